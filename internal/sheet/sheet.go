// Package sheet reads event rows from spreadsheets and writes the import
// template.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"moncal/internal/importer"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .xls.
var ErrUnsupportedFormat = errors.New("sheet: unsupported file format")

// TemplateSheet is the sheet name used by WriteTemplate.
const TemplateSheet = "Calendar Template"

// templateRows are the example rows shipped in the import template.
var templateRows = [][3]string{
	{"2025-08-01", "프로젝트 킥오프", "일정"},
	{"2025-08-15", "월간 매출 목표 달성", "실적"},
	{"2025-08-20", "우수 직원 포상", "상장"},
	{"2025-08-25", "IPO 청약 시작", "청약"},
}

// ReadRows parses the first sheet of a workbook. The first row is the
// header; each following non-empty row becomes an importer.Row keyed by
// header text.
func ReadRows(r io.Reader, filename string) ([]importer.Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".xls":
		return readXLS(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

func readXLSX(r io.Reader) ([]importer.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("sheet: workbook has no sheets")
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet: read rows: %w", err)
	}
	return toRows(grid), nil
}

func readXLS(r io.Reader) (rows []importer.Row, err error) {
	// The xls reader needs random access.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: read xls: %w", err)
	}

	// extrame/xls indexes its tables with offsets read from the file and
	// panics on corrupt input.
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("sheet: open xls: %v", p)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("sheet: open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("sheet: no workbook stream")
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, errors.New("sheet: workbook has no sheets")
	}

	grid := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		grid = append(grid, cells)
	}
	return toRows(grid), nil
}

// toRows maps a header + data grid into rows, dropping blank lines and
// headerless columns.
func toRows(grid [][]string) []importer.Row {
	if len(grid) == 0 {
		return nil
	}
	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]importer.Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := importer.Row{}
		for i, v := range cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				row[header[i]] = v
			}
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteTemplate writes the example workbook with columns date, title, type.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return fmt.Errorf("sheet: rename sheet: %w", err)
	}

	if err := f.SetSheetRow(TemplateSheet, "A1", &[]any{"date", "title", "type"}); err != nil {
		return fmt.Errorf("sheet: write header: %w", err)
	}
	for i, r := range templateRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(TemplateSheet, cell, &[]any{r[0], r[1], r[2]}); err != nil {
			return fmt.Errorf("sheet: write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("sheet: write workbook: %w", err)
	}
	return nil
}
