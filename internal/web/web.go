// Package web holds the server-rendered pages of the panel.
package web

import (
	"embed"
	"html/template"
	"time"

	"taskpanel/internal/export"
)

//go:embed templates/*.html
var templateFiles embed.FS

var funcs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"hours": export.FormatHours,
	"str": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Templates parses every page. Page templates are named after their file, so
// handlers render them with c.HTML(status, "task_list.html", data).
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
}
