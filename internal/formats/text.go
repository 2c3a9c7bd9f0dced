package formats

import (
	"context"
	"log/slog"
	"strings"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// timestampKeys mark the start of a new sample in generic text logs when the
// key repeats.
var timestampKeys = map[string]bool{
	"time": true, "timestamp": true, "date": true, "datetime": true,
}

// TextParser is the fallback adapter for generic line-oriented logs made of
// "key=value" or "key: value" pairs. A blank line, or a repeated timestamp
// key, starts a new sample. Lines with no key/value structure are skipped and
// counted.
type TextParser struct {
	logger *slog.Logger
}

// Format implements Parser.
func (p *TextParser) Format() domain.FormatTag { return domain.FormatText }

// Parse implements Parser.
func (p *TextParser) Parse(ctx context.Context, data []byte) ([]domain.RawRecord, ParseStats, error) {
	var stats ParseStats
	var records []domain.RawRecord
	var fields map[string]string
	sampleStart := 0 // line index where the current sample began

	flush := func() {
		if len(fields) > 0 {
			records = append(records, domain.RawRecord{Row: sampleStart, Fields: fields})
			stats.Rows++
		}
		fields = nil
	}

	for i, line := range strings.Split(string(data), "\n") {
		if err := cancelled(ctx, i); err != nil {
			return nil, stats, err
		}
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" {
			flush()
			continue
		}

		key, value := splitKeyValue(line)
		if key == "" {
			stats.skip("unstructured_line")
			continue
		}

		norm := strings.ToLower(key)
		if fields != nil {
			if _, seen := fields[key]; seen || (timestampKeys[norm] && hasTimestampKey(fields)) {
				flush()
			}
		}
		if fields == nil {
			fields = make(map[string]string)
			sampleStart = i
		}
		fields[key] = value
	}
	flush()

	if stats.Rows == 0 {
		return nil, stats, errors.NewParseError(string(domain.FormatText), "no key/value samples found", false, nil)
	}

	p.logger.Debug("text parse complete",
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped))

	return records, stats, nil
}

func splitKeyValue(line string) (key, value string) {
	eq := strings.Index(line, "=")
	co := strings.Index(line, ":")
	cut := -1
	switch {
	case eq >= 0 && (co < 0 || eq < co):
		cut = eq
	case co >= 0:
		cut = co
	}
	if cut <= 0 {
		return "", ""
	}
	key = strings.TrimSpace(line[:cut])
	if key == "" || isDigits(key) {
		return "", ""
	}
	return key, strings.TrimSpace(line[cut+1:])
}

func hasTimestampKey(fields map[string]string) bool {
	for k := range fields {
		if timestampKeys[strings.ToLower(k)] {
			return true
		}
	}
	return false
}
