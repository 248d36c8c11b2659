// Package export writes the completed-task report as CSV or XLSX.
package export

import (
	"strconv"

	"taskpanel/internal/model"
)

const (
	CSVFileName  = "task_reports.csv"
	XLSXFileName = "task_reports.xlsx"

	timeLayout = "2006-01-02 15:04:05"
)

var Header = []string{"ID", "Title", "Assigned To", "Completion Report", "Worked Hours", "Completed At"}

// Row is the report line for one task. The completion time is the task's last
// update, which is when it moved to COMPLETED.
func Row(t model.Task) []string {
	report := ""
	if t.CompletionReport != nil {
		report = *t.CompletionReport
	}
	return []string{
		t.ID.String(),
		t.Title,
		t.Assignee.Username,
		report,
		FormatHours(t.WorkedHours),
		t.UpdatedAt.Format(timeLayout),
	}
}

// FormatHours renders hours with two decimals, matching the stored precision.
func FormatHours(h *float64) string {
	if h == nil {
		return ""
	}
	return strconv.FormatFloat(*h, 'f', 2, 64)
}
