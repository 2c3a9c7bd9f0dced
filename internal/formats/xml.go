package formats

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"strings"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// XMLParser reads marked-up measurement exports. Every child element of the
// document root is treated as one sample; its attributes and simple child
// elements become raw fields. Unknown elements are tolerated, and a document
// that breaks mid-stream keeps the samples parsed so far.
type XMLParser struct {
	logger *slog.Logger
}

// Format implements Parser.
func (p *XMLParser) Format() domain.FormatTag { return domain.FormatXML }

// Parse implements Parser.
func (p *XMLParser) Parse(ctx context.Context, data []byte) ([]domain.RawRecord, ParseStats, error) {
	var stats ParseStats

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var records []domain.RawRecord
	depth := 0
	sampleIdx := 0 // zero-based sample position, counting skipped elements
	var fields map[string]string // non-nil while inside a sample element
	var fieldName string
	var text strings.Builder

	for {
		if err := cancelled(ctx, stats.Rows+stats.Skipped); err != nil {
			return nil, stats, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(records) == 0 {
				return nil, stats, errors.NewParseError(string(domain.FormatXML), "malformed document", false, err)
			}
			stats.skip("truncated_document")
			p.logger.Warn("xml document truncated, keeping parsed samples",
				slog.Int("rows", stats.Rows),
				slog.String("error", err.Error()))
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				fields = make(map[string]string)
				for _, attr := range t.Attr {
					if v := strings.TrimSpace(attr.Value); v != "" {
						fields[attr.Name.Local] = v
					}
				}
			case 3:
				fieldName = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth >= 3 && fieldName != "" {
				text.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case 3:
				if fields != nil && fieldName != "" {
					if v := strings.TrimSpace(text.String()); v != "" {
						fields[fieldName] = v
					}
				}
				fieldName = ""
			case 2:
				if len(fields) > 0 {
					records = append(records, domain.RawRecord{Row: sampleIdx, Fields: fields})
					stats.Rows++
				} else {
					stats.skip("empty_element")
				}
				sampleIdx++
				fields = nil
			}
			depth--
		}
	}

	if stats.Rows == 0 && stats.Skipped == 0 {
		return nil, stats, errors.NewParseError(string(domain.FormatXML), "no sample elements found", false, nil)
	}

	return records, stats, nil
}
