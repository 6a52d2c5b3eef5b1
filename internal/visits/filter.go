package visits

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/platform/backend"
)

// Context pins the view to one client or one doctor. A pinned dimension is
// excluded from user-editable filters and from the URL.
type Context struct {
	ClientID uuid.UUID
	DoctorID uuid.UUID
}

// Pinned reports whether the view is scoped by a hosting page.
func (c Context) Pinned() bool {
	return c.ClientID != uuid.Nil || c.DoctorID != uuid.Nil
}

// Filter is the user-editable part of the view state. Day and Range are
// mutually exclusive: setting one clears the other.
type Filter struct {
	ClientID  uuid.UUID
	DoctorID  uuid.UUID
	Status    backend.VisitStatus
	Day       *time.Time
	RangeFrom *time.Time
	RangeTo   *time.Time
	Cabinet   string
	Procedure string
	Page      int
	PageSize  int
}

// SetDay selects a single-day window and clears any range.
func (f *Filter) SetDay(day time.Time) {
	d := day.Truncate(24 * time.Hour)
	f.Day = &d
	f.RangeFrom = nil
	f.RangeTo = nil
}

// SetRange selects an explicit window and clears any single day.
func (f *Filter) SetRange(from, to time.Time) {
	f.RangeFrom = &from
	f.RangeTo = &to
	f.Day = nil
}

// State is the single source of truth for both the fetch query and the URL
// query string. It hydrates from the URL exactly once; afterwards every
// change serializes back out.
type State struct {
	Context  Context
	Filter   Filter
	hydrated bool
	defaults defaults
}

type defaults struct {
	pageSize int
}

func NewState(ctx Context, defaultPageSize int) *State {
	return &State{
		Context:  ctx,
		Filter:   Filter{Page: 1, PageSize: defaultPageSize},
		defaults: defaults{pageSize: defaultPageSize},
	}
}

// Hydrated reports whether the one-time URL hydration has run.
func (s *State) Hydrated() bool {
	return s.hydrated
}

// Hydrate loads filter state from a URL query string. Only the first call
// applies; the guard keeps a session from re-hydrating mid-flight.
func (s *State) Hydrate(values url.Values) {
	if s.hydrated {
		return
	}
	s.hydrated = true

	if s.Context.ClientID == uuid.Nil {
		if id, err := uuid.Parse(values.Get("client_id")); err == nil {
			s.Filter.ClientID = id
		}
	}
	if s.Context.DoctorID == uuid.Nil {
		if id, err := uuid.Parse(values.Get("doctor_id")); err == nil {
			s.Filter.DoctorID = id
		}
	}
	if status, err := backend.CanonicalStatus(values.Get("status")); err == nil {
		s.Filter.Status = status
	}
	if day, err := time.Parse("2006-01-02", values.Get("day")); err == nil {
		s.Filter.SetDay(day)
	} else {
		from, errFrom := parseStamp(values.Get("from"))
		to, errTo := parseStamp(values.Get("to"))
		if errFrom == nil && errTo == nil {
			s.Filter.SetRange(from, to)
		}
	}
	s.Filter.Cabinet = values.Get("cabinet")
	s.Filter.Procedure = values.Get("procedure")
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		s.Filter.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil && size > 0 {
		s.Filter.PageSize = size
	}
}

// parseStamp reads a range bound, accepting both the serialized RFC 3339
// form and the bare date a date input submits.
func parseStamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// Serialize writes the filter state back into URL query form. Pinned context
// dimensions and zero values are omitted so the URL stays minimal.
func (s *State) Serialize() url.Values {
	values := url.Values{}
	if s.Context.ClientID == uuid.Nil && s.Filter.ClientID != uuid.Nil {
		values.Set("client_id", s.Filter.ClientID.String())
	}
	if s.Context.DoctorID == uuid.Nil && s.Filter.DoctorID != uuid.Nil {
		values.Set("doctor_id", s.Filter.DoctorID.String())
	}
	if s.Filter.Status != "" {
		values.Set("status", string(s.Filter.Status))
	}
	if s.Filter.Day != nil {
		values.Set("day", s.Filter.Day.Format("2006-01-02"))
	} else if s.Filter.RangeFrom != nil && s.Filter.RangeTo != nil {
		values.Set("from", s.Filter.RangeFrom.Format(time.RFC3339))
		values.Set("to", s.Filter.RangeTo.Format(time.RFC3339))
	}
	if s.Filter.Cabinet != "" {
		values.Set("cabinet", s.Filter.Cabinet)
	}
	if s.Filter.Procedure != "" {
		values.Set("procedure", s.Filter.Procedure)
	}
	if s.Filter.Page > 1 {
		values.Set("page", strconv.Itoa(s.Filter.Page))
	}
	if s.Filter.PageSize > 0 && s.Filter.PageSize != s.defaults.pageSize {
		values.Set("page_size", strconv.Itoa(s.Filter.PageSize))
	}
	return values
}

// EffectiveClientID resolves the pinned or filtered client dimension.
func (s *State) EffectiveClientID() uuid.UUID {
	if s.Context.ClientID != uuid.Nil {
		return s.Context.ClientID
	}
	return s.Filter.ClientID
}

// EffectiveDoctorID resolves the pinned or filtered doctor dimension.
func (s *State) EffectiveDoctorID() uuid.UUID {
	if s.Context.DoctorID != uuid.Nil {
		return s.Context.DoctorID
	}
	return s.Filter.DoctorID
}

// DayViewMode reports the special fixed-doctor single-day mode, where
// pagination is disabled so the gap computation sees the whole day.
func (s *State) DayViewMode() bool {
	return s.Context.DoctorID != uuid.Nil && s.Filter.Day != nil
}

// Query builds the remote API listing query from the active filters. A
// single day expands to [startOfDay, endOfDay]; a range passes through. In
// day-view mode one large fetch replaces pagination.
func (s *State) Query(dayViewLimit int) backend.VisitQuery {
	q := backend.VisitQuery{
		ClientID:  s.EffectiveClientID(),
		DoctorID:  s.EffectiveDoctorID(),
		Status:    s.Filter.Status,
		Cabinet:   s.Filter.Cabinet,
		Procedure: s.Filter.Procedure,
	}

	if s.Filter.Day != nil {
		start := *s.Filter.Day
		end := start.Add(24*time.Hour - time.Millisecond)
		q.StartDate = &start
		q.EndDate = &end
	} else if s.Filter.RangeFrom != nil && s.Filter.RangeTo != nil {
		q.StartDate = s.Filter.RangeFrom
		q.EndDate = s.Filter.RangeTo
	}

	if s.DayViewMode() {
		q.Limit = dayViewLimit
		q.Offset = 0
		return q
	}

	q.Limit = s.Filter.PageSize
	q.Offset = (s.Filter.Page - 1) * s.Filter.PageSize
	return q
}
