// Package printsheet projects a filtered visit list onto a user-selected
// column subset and renders it as a printable table.
package printsheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/phone"
	"github.com/clinicdesk/console/internal/platform/backend"
)

// Column is one of the eight printable visit attributes.
type Column string

const (
	ColDate      Column = "date"
	ColTime      Column = "time"
	ColClient    Column = "client"
	ColDoctor    Column = "doctor"
	ColCabinet   Column = "cabinet"
	ColProcedure Column = "procedure"
	ColStatus    Column = "status"
	ColCost      Column = "cost"
)

// AllColumns lists every column in display order.
func AllColumns() []Column {
	return []Column{ColDate, ColTime, ColClient, ColDoctor, ColCabinet, ColProcedure, ColStatus, ColCost}
}

var headers = map[Column]string{
	ColDate:      "Дата",
	ColTime:      "Время",
	ColClient:    "Клиент",
	ColDoctor:    "Врач",
	ColCabinet:   "Кабинет",
	ColProcedure: "Процедура",
	ColStatus:    "Статус",
	ColCost:      "Стоимость",
}

var statusLabels = map[backend.VisitStatus]string{
	backend.StatusUnconfirmed: "Не подтверждён",
	backend.StatusConfirmed:   "Подтверждён",
	backend.StatusPaid:        "Оплачен",
}

const emptyCell = "—"

// Header returns the printed title of a column.
func (c Column) Header() string {
	if h, ok := headers[c]; ok {
		return h
	}
	return string(c)
}

// ParseColumns validates a submitted column selection, preserving canonical
// display order regardless of submission order.
func ParseColumns(raw []string) ([]Column, error) {
	selected := make(map[Column]bool, len(raw))
	for _, r := range raw {
		col := Column(r)
		if _, ok := headers[col]; !ok {
			return nil, fmt.Errorf("unknown print column %q", r)
		}
		selected[col] = true
	}
	var cols []Column
	for _, col := range AllColumns() {
		if selected[col] {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no print columns selected")
	}
	return cols, nil
}

// DefaultColumns picks the column preset for a hosting context: a pinned
// doctor hides its own column and the date, a pinned client hides its own
// column, and the unscoped view shows everything.
func DefaultColumns(clientID, doctorID uuid.UUID) []Column {
	switch {
	case doctorID != uuid.Nil:
		return []Column{ColTime, ColClient, ColCabinet, ColProcedure}
	case clientID != uuid.Nil:
		return []Column{ColDate, ColTime, ColDoctor, ColCabinet, ColProcedure}
	default:
		return AllColumns()
	}
}

// Input is everything a sheet is built from. Clients and Doctors are
// optional enrichment lookups; cells fall back to the denormalized names the
// visit already carries.
type Input struct {
	Visits  []backend.Visit
	Columns []Column
	Clients map[uuid.UUID]backend.Client
	Doctors map[uuid.UUID]backend.Doctor

	// Pinned context entities resolve the sheet title.
	Client *backend.Client
	Doctor *backend.Doctor

	FilterSummary string
	Now           time.Time
}

// Sheet is the fully projected, render-ready table model.
type Sheet struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
	Printed  time.Time
}

// Build projects the visits onto the selected columns.
func Build(in Input) *Sheet {
	cols := in.Columns
	if len(cols) == 0 {
		cols = AllColumns()
	}

	sheet := &Sheet{
		Title:    title(in),
		Subtitle: in.FilterSummary,
		Printed:  in.Now,
	}
	for _, col := range cols {
		sheet.Headers = append(sheet.Headers, col.Header())
	}
	for i := range in.Visits {
		row := make([]string, 0, len(cols))
		for _, col := range cols {
			row = append(row, cell(&in.Visits[i], col, in))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func title(in Input) string {
	switch {
	case in.Doctor != nil:
		return "Расписание врача: " + in.Doctor.FullName
	case in.Client != nil:
		return "Визиты клиента: " + in.Client.FullName
	default:
		return "Список визитов"
	}
}

func cell(v *backend.Visit, col Column, in Input) string {
	switch col {
	case ColDate:
		return v.StartDate.Format("02.01.2006")
	case ColTime:
		if v.EndDate != nil {
			return v.StartDate.Format("15:04") + "–" + v.EndDate.Format("15:04")
		}
		return v.StartDate.Format("15:04")
	case ColClient:
		return clientCell(v, in)
	case ColDoctor:
		return doctorCell(v, in)
	case ColCabinet:
		return orDash(v.Cabinet)
	case ColProcedure:
		return orDash(v.Procedure)
	case ColStatus:
		if label, ok := statusLabels[v.Status]; ok {
			return label
		}
		return string(v.Status)
	case ColCost:
		if v.Cost == nil {
			return emptyCell
		}
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *v.Cost), "0"), ".") + " ₽"
	}
	return emptyCell
}

func clientCell(v *backend.Visit, in Input) string {
	client, ok := in.Clients[v.ClientID]
	if !ok {
		return fallbackName(v.ClientName)
	}
	parts := []string{client.FullName}
	if client.PhoneNumber != "" {
		parts = append(parts, phone.Format(client.PhoneNumber))
	}
	if years, ok := age(client.DateOfBirth, in.Now); ok {
		parts = append(parts, fmt.Sprintf("%d %s", years, yearsWord(years)))
	}
	return strings.Join(parts, ", ")
}

func doctorCell(v *backend.Visit, in Input) string {
	doctor, ok := in.Doctors[v.DoctorID]
	if !ok {
		return fallbackName(v.DoctorName)
	}
	if doctor.Speciality == "" {
		return doctor.FullName
	}
	return doctor.FullName + " — " + doctor.Speciality
}

func fallbackName(name string) string {
	if name == "" {
		return emptyCell
	}
	return name
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return emptyCell
	}
	return *s
}

func age(dateOfBirth string, now time.Time) (int, bool) {
	born, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		return 0, false
	}
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	if years < 0 {
		return 0, false
	}
	return years, true
}

// yearsWord picks the Russian plural form for a number of years.
func yearsWord(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "лет"
	}
	switch n % 10 {
	case 1:
		return "год"
	case 2, 3, 4:
		return "года"
	default:
		return "лет"
	}
}
