package table

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// A Workbook collects the tables of a run, one sheet per table, with raw (ungrouped) numbers so that
// the spreadsheet can compute with them.

type Workbook struct {
	f      *excelize.File
	header int
	names  map[string]bool
	sheets int
}

func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	return &Workbook{f: f, header: header, names: make(map[string]bool)}, nil
}

// Sheet names are at most 31 characters and may not contain []:*?/\
func (w *Workbook) sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, title)
	if name == "" {
		name = "Table"
	}
	base := []rune(name)
	if len(base) > 31 {
		base = base[:31]
	}
	name = string(base)
	for n := 2; w.names[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		cut := min(len(base), 31-len(suffix))
		name = string(base[:cut]) + suffix
	}
	w.names[strings.ToLower(name)] = true
	return name
}

func (w *Workbook) Add(t *Table) error {
	name := w.sheetName(t.Title)
	if w.sheets == 0 {
		if err := w.f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return err
	}
	w.sheets++

	for i, h := range t.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.f.SetCellValue(name, cell, h); err != nil {
			return err
		}
		w.f.SetCellStyle(name, cell, cell, w.header)
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if c >= len(t.Header) {
				break
			}
			if p, ok := v.(*int64); ok {
				if p == nil {
					continue
				}
				v = *p
			}
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := w.f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	if len(t.Header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(t.Header))
		w.f.SetColWidth(name, "A", "A", 40)
		if last != "A" {
			w.f.SetColWidth(name, "B", last, 16)
		}
	}
	return nil
}

func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("Failed to write workbook %s: %w", path, err)
	}
	return w.f.Close()
}
