// Package formats implements content-based format detection and the parser
// adapters that turn raw drive-test exports into sequences of RawRecords.
//
// The format set is a design constant: delimited text, spreadsheet workbooks,
// XML exports, the proprietary TRP binary trace, and generic line-oriented
// text. Detection is content-first; filename extensions only break ties.
// Every adapter is tolerant of partial corruption: malformed rows are skipped
// and counted, and only a missing structural header is fatal.
package formats
