package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/printsheet"
	"github.com/clinicdesk/console/internal/visits"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer plugs the embedded page templates into echo.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() *Renderer {
	funcs := template.FuncMap{
		"fmtDate":     func(t time.Time) string { return t.Format("02.01.2006") },
		"fmtClock":    func(t time.Time) string { return t.Format("15:04") },
		"fmtDay":      func(t *time.Time) string { return t.Format("2006-01-02") },
		"statusLabel": statusLabel,
		"orDash": func(s *string) string {
			if s == nil || *s == "" {
				return "—"
			}
			return *s
		},
		"fmtCost": func(c *float64) string {
			if c == nil {
				return "—"
			}
			return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *c), "0"), ".")
		},
		"fmtTimeRange": func(v *backend.Visit) string {
			if v.EndDate != nil {
				return v.StartDate.Format("15:04") + "–" + v.EndDate.Format("15:04")
			}
			return v.StartDate.Format("15:04")
		},
		"editing": func(edit *visits.EditTarget, visitID uuid.UUID, field string) bool {
			return edit != nil && edit.ID == visitID && string(edit.Field) == field
		},
		"hasColumn": func(cols []printsheet.Column, col printsheet.Column) bool {
			for _, c := range cols {
				if c == col {
					return true
				}
			}
			return false
		},
	}
	return &Renderer{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func statusLabel(s backend.VisitStatus) string {
	switch s {
	case backend.StatusUnconfirmed:
		return "Не подтверждён"
	case backend.StatusConfirmed:
		return "Подтверждён"
	case backend.StatusPaid:
		return "Оплачен"
	}
	return string(s)
}
