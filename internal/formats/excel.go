package formats

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// headerPatterns are the field-name fragments used to score candidate header
// rows when locating the measurement sheet inside a workbook.
var headerPatterns = []string{
	"rsrp", "rsrq", "sinr", "lat", "lon", "time", "date",
	"cell", "throughput", "event", "neighbor", "pci", "speed",
}

// ExcelParser reads xlsx/xls workbooks. Multi-sheet workbooks are handled by
// scoring every sheet's candidate header rows against known field-name
// patterns and parsing the best match; position in the workbook carries no
// meaning.
type ExcelParser struct {
	logger *slog.Logger
}

// Format implements Parser.
func (p *ExcelParser) Format() domain.FormatTag { return domain.FormatExcel }

// Parse implements Parser.
func (p *ExcelParser) Parse(ctx context.Context, data []byte) ([]domain.RawRecord, ParseStats, error) {
	var stats ParseStats

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, stats, errors.NewParseError(string(domain.FormatExcel), "cannot open workbook", false, err)
	}
	defer f.Close()

	sheet, headerIdx, score, rows := p.bestSheet(f)
	if score < 2 {
		return nil, stats, errors.NewParseError(string(domain.FormatExcel), "no sheet with a measurement header", false, nil)
	}

	p.logger.Debug("selected workbook sheet",
		slog.String("sheet", sheet),
		slog.Int("header_row", headerIdx),
		slog.Int("score", score))

	header := normalizeHeader(rows[headerIdx])
	stats.Skipped += headerIdx // preamble rows above the header
	if headerIdx > 0 {
		if stats.Reasons == nil {
			stats.Reasons = make(map[string]int)
		}
		stats.Reasons["preamble_row"] += headerIdx
	}

	var records []domain.RawRecord
	for i := headerIdx + 1; i < len(rows); i++ {
		if err := cancelled(ctx, i); err != nil {
			return nil, stats, err
		}
		cells := rows[i]
		if allEmpty(cells) {
			stats.skip("empty_row")
			continue
		}
		fields := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" || j >= len(cells) {
				continue
			}
			if v := strings.TrimSpace(cells[j]); v != "" {
				fields[name] = v
			}
		}
		if len(fields) == 0 {
			stats.skip("empty_row")
			continue
		}
		records = append(records, domain.RawRecord{Row: i, Fields: fields})
		stats.Rows++
	}

	return records, stats, nil
}

// bestSheet returns the sheet and header-row index whose header scores
// highest against the known field-name patterns.
func (p *ExcelParser) bestSheet(f *excelize.File) (sheet string, headerIdx, best int, rows [][]string) {
	for _, name := range f.GetSheetList() {
		sheetRows, err := f.GetRows(name)
		if err != nil || len(sheetRows) == 0 {
			continue
		}
		limit := len(sheetRows)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit; i++ {
			if s := scoreHeader(sheetRows[i]); s > best {
				sheet, headerIdx, best, rows = name, i, s, sheetRows
			}
		}
	}
	return sheet, headerIdx, best, rows
}

func scoreHeader(cells []string) int {
	score := 0
	for _, c := range cells {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		for _, pat := range headerPatterns {
			if strings.Contains(c, pat) {
				score++
				break
			}
		}
	}
	return score
}
