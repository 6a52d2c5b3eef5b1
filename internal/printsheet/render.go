package printsheet

import (
	"html/template"
	"io"
)

var sheetTemplate = template.Must(template.New("printsheet").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #111; }
h1 { font-size: 18px; margin: 0 0 4px; }
p.subtitle { font-size: 13px; color: #555; margin: 0 0 16px; }
table { border-collapse: collapse; width: 100%; font-size: 13px; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
th { background: #eee; }
p.printed { font-size: 11px; color: #777; margin-top: 16px; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Subtitle}}<p class="subtitle">{{.Subtitle}}</p>{{end}}
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
<p class="printed">Сформировано: {{.Printed.Format "02.01.2006 15:04"}}</p>
<script>window.print()</script>
</body>
</html>
`))

// Render writes the sheet as a self-printing HTML document.
func (s *Sheet) Render(w io.Writer) error {
	return sheetTemplate.Execute(w, s)
}
