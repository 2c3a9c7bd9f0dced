package formats

import (
	"context"
	"log/slog"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// ParseStats counts what happened during one adapter run. Skipped rows are
// absorbed here and surfaced in the dataset validation summary, never thrown
// up as pipeline failures.
type ParseStats struct {
	Rows    int            // rows emitted
	Skipped int            // malformed rows dropped
	Reasons map[string]int // skip reason -> count
}

func (s *ParseStats) skip(reason string) {
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	s.Skipped++
	s.Reasons[reason]++
}

// Parser converts raw file content into an ordered sequence of RawRecords.
// Row order is preserved: drive-test records are time-ordered and order
// carries meaning for trajectory reconstruction.
type Parser interface {
	Format() domain.FormatTag
	Parse(ctx context.Context, data []byte) ([]domain.RawRecord, ParseStats, error)
}

// ForFormat returns the adapter for the given format tag. The set of
// adapters is fixed; an unknown tag is a format error.
func ForFormat(tag domain.FormatTag, logger *slog.Logger) (Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch tag {
	case domain.FormatCSV:
		return &DelimitedParser{logger: logger}, nil
	case domain.FormatExcel:
		return &ExcelParser{logger: logger}, nil
	case domain.FormatXML:
		return &XMLParser{logger: logger}, nil
	case domain.FormatTRP:
		return &TRPParser{logger: logger}, nil
	case domain.FormatText:
		return &TextParser{logger: logger}, nil
	default:
		return nil, errors.NewFormatError("no parser adapter for format " + string(tag))
	}
}

// checkEvery is how many rows an adapter processes between cancellation checks.
const checkEvery = 256

func cancelled(ctx context.Context, row int) error {
	if row%checkEvery != 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
