package formats

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// DelimitedParser reads comma, tab or semicolon separated exports. The
// delimiter is re-sniffed from the content so a mismatched extension cannot
// change how a file parses.
type DelimitedParser struct {
	logger *slog.Logger
}

// Format implements Parser.
func (p *DelimitedParser) Format() domain.FormatTag { return domain.FormatCSV }

// Parse implements Parser. The header row is the first row where a majority
// of cells are non-numeric; rows before it are counted as skipped. A file in
// which no header can be located is rejected with a non-recoverable error.
func (p *DelimitedParser) Parse(ctx context.Context, data []byte) ([]domain.RawRecord, ParseStats, error) {
	var stats ParseStats

	delim, ok := SniffDelimiter(sampleLines(data, sniffLines))
	if !ok {
		delim = ','
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var header []string
	var records []domain.RawRecord
	row := 0

	for {
		if err := cancelled(ctx, row); err != nil {
			return nil, stats, err
		}
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		pos := row
		row++
		if err != nil {
			stats.skip("malformed_row")
			continue
		}

		if header == nil {
			if isHeaderRow(cells) {
				header = normalizeHeader(cells)
				continue
			}
			stats.skip("preamble_row")
			continue
		}

		if allEmpty(cells) {
			stats.skip("empty_row")
			continue
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(cells) {
				continue
			}
			if v := strings.TrimSpace(cells[i]); v != "" {
				fields[name] = v
			}
		}
		if len(fields) == 0 {
			stats.skip("empty_row")
			continue
		}
		records = append(records, domain.RawRecord{Row: pos, Fields: fields})
		stats.Rows++
	}

	if header == nil {
		return nil, stats, errors.NewParseError(string(domain.FormatCSV), "no header row found", false, nil)
	}

	p.logger.Debug("delimited parse complete",
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped),
		slog.String("delimiter", string(delim)))

	return records, stats, nil
}

// isHeaderRow reports whether a majority of the non-empty cells are
// non-numeric, which distinguishes a header from a data row.
func isHeaderRow(cells []string) bool {
	nonEmpty, nonNumeric := 0, 0
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(c, ",", ""), 64); err != nil {
			nonNumeric++
		}
	}
	return nonEmpty >= 2 && nonNumeric*2 > nonEmpty
}

func normalizeHeader(cells []string) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		header[i] = strings.TrimSpace(c)
	}
	return header
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
