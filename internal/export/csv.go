// Package export writes standardized datasets back out as canonical CSV.
// The output uses the canonical field names directly, so re-ingesting an
// exported file yields the same records.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"drivetest/pkg/contracts/domain"
)

// canonicalHeaders is the column order of every exported file.
var canonicalHeaders = []string{
	"timestamp",
	"latitude",
	"longitude",
	"rsrp",
	"rsrq",
	"sinr",
	"serving_cell_id",
	"neighbor_cell_ids",
	"throughput_dl",
	"throughput_ul",
	"event",
}

// CSVWriter serializes canonical records.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// Write streams the dataset to w as canonical CSV, headers first.
func (c *CSVWriter) Write(w io.Writer, ds *domain.Dataset) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(canonicalHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i := range ds.Records {
		if err := writer.Write(recordRow(&ds.Records[i])); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes the dataset to path, creating parent directories as
// needed.
func (c *CSVWriter) WriteFile(path string, ds *domain.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	c.logger.Info("writing canonical CSV",
		slog.String("path", path),
		slog.Int("record_count", ds.Len()))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := c.Write(file, ds); err != nil {
		return err
	}
	return file.Close()
}

func recordRow(rec *domain.CanonicalRecord) []string {
	ts := ""
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return []string{
		ts,
		formatOptional(rec.Latitude, 6),
		formatOptional(rec.Longitude, 6),
		formatOptional(rec.RSRP, 2),
		formatOptional(rec.RSRQ, 2),
		formatOptional(rec.SINR, 2),
		rec.ServingCellID,
		strings.Join(rec.NeighborCellIDs, ";"),
		formatOptional(rec.ThroughputDL, 2),
		formatOptional(rec.ThroughputUL, 2),
		formatEvent(rec.EventType),
	}
}

// formatOptional renders a nullable metric. Absent values become empty cells
// so they stay absent on re-ingest.
func formatOptional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatEvent(ev domain.EventType) string {
	if ev == domain.EventNone {
		return ""
	}
	return string(ev)
}
