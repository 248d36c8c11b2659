package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"taskpanel/internal/model"
)

const SheetName = "Reports"

// WriteXLSX writes the same report as WriteCSV into a single-sheet workbook.
// Worked hours are stored as numbers so they can be summed in a spreadsheet.
func WriteXLSX(w io.Writer, tasks []model.Task) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, header := range Header {
		if err := setCell(f, i+1, 1, header); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return err
	}

	for r, t := range tasks {
		values := make([]interface{}, len(Header))
		for i, v := range Row(t) {
			values[i] = v
		}
		if t.WorkedHours != nil {
			values[4] = *t.WorkedHours
		}
		for c, v := range values {
			if err := setCell(f, c+1, r+2, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "F", 20); err != nil {
		return err
	}

	return f.Write(w)
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(SheetName, cell, value)
}
