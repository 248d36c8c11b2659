package export

import (
	"encoding/csv"
	"io"

	"taskpanel/internal/model"
)

// WriteCSV writes one row per task, header first.
func WriteCSV(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := cw.Write(Row(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
