package visits

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/platform/querycache"
)

// ResourceVisits is the query-cache family for visit listings.
const ResourceVisits = "visits"

// DefaultVisitDuration derives the end of a visit created without one, making
// the end-not-before-start invariant true by construction.
const DefaultVisitDuration = 30 * time.Minute

// Backend is the slice of the remote API the visit view needs.
type Backend interface {
	ListVisits(ctx context.Context, q backend.VisitQuery) (*backend.VisitPage, error)
	GetVisit(ctx context.Context, id uuid.UUID) (*backend.Visit, error)
	CreateVisit(ctx context.Context, body backend.VisitCreate) (*backend.Visit, error)
	UpdateVisit(ctx context.Context, id uuid.UUID, patch *backend.VisitPatch) (*backend.Visit, error)
	DeleteVisit(ctx context.Context, id uuid.UUID) error
}

// InlineField names one of the two directly table-editable visit fields.
type InlineField string

const (
	FieldProcedure InlineField = "procedure"
	FieldCost      InlineField = "cost"
)

// ParseInlineField validates a field name from the wire.
func ParseInlineField(raw string) (InlineField, error) {
	switch InlineField(raw) {
	case FieldProcedure:
		return FieldProcedure, nil
	case FieldCost:
		return FieldCost, nil
	}
	return "", fmt.Errorf("field %q is not editable inline", raw)
}

// EditTarget identifies the single cell in edit mode, serialized in the URL
// as "<visit-id>:<field>".
type EditTarget struct {
	ID    uuid.UUID
	Field InlineField
}

func ParseEditTarget(raw string) (*EditTarget, error) {
	idPart, fieldPart, found := strings.Cut(raw, ":")
	if !found {
		return nil, fmt.Errorf("malformed edit target %q", raw)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, fmt.Errorf("malformed edit target %q: %w", raw, err)
	}
	field, err := ParseInlineField(fieldPart)
	if err != nil {
		return nil, err
	}
	return &EditTarget{ID: id, Field: field}, nil
}

func (t EditTarget) String() string {
	return t.ID.String() + ":" + string(t.Field)
}

// Listing is one rendered page of the visit view.
type Listing struct {
	Page    *backend.VisitPage
	Rows    []Row
	DayView bool
}

// View orchestrates the visit list: cached fetches, gap interleaving, and
// the mutation flows that invalidate the listing family.
type View struct {
	api          Backend
	cache        *querycache.Cache
	log          zerolog.Logger
	minMinute    int
	maxMinute    int
	dayViewLimit int
}

func NewView(api Backend, cache *querycache.Cache, log zerolog.Logger, minMinute, maxMinute, dayViewLimit int) *View {
	return &View{
		api:          api,
		cache:        cache,
		log:          log,
		minMinute:    minMinute,
		maxMinute:    maxMinute,
		dayViewLimit: dayViewLimit,
	}
}

// List fetches the page for the current filter state, serving repeats from
// the query cache. In day-view mode the rows carry the free-slot gaps.
func (v *View) List(ctx context.Context, state *State) (*Listing, error) {
	query := state.Query(v.dayViewLimit)
	key := querycache.NewKey(ResourceVisits, query.Values())

	var page *backend.VisitPage
	if cached, ok := v.cache.Get(key); ok {
		page = cached.(*backend.VisitPage)
	} else {
		generation := v.cache.Generation(ResourceVisits)
		fetched, err := v.api.ListVisits(ctx, query)
		if err != nil {
			return nil, err
		}
		v.cache.Set(key, fetched, generation)
		page = fetched
	}

	listing := &Listing{Page: page, DayView: state.DayViewMode()}
	if listing.DayView {
		listing.Rows = DayRows(*state.Filter.Day, page.Items, v.minMinute, v.maxMinute)
	} else {
		listing.Rows = make([]Row, len(page.Items))
		for i := range page.Items {
			listing.Rows[i] = Row{Kind: RowVisit, Visit: &page.Items[i]}
		}
	}
	return listing, nil
}

// Get loads a single visit, bypassing the cache.
func (v *View) Get(ctx context.Context, id uuid.UUID) (*backend.Visit, error) {
	return v.api.GetVisit(ctx, id)
}

// Create submits a new visit. A missing end derives from the start plus the
// default duration; an explicit end must not precede the start.
func (v *View) Create(ctx context.Context, body backend.VisitCreate) (*backend.Visit, error) {
	if body.ClientID == uuid.Nil {
		return nil, fmt.Errorf("client is required")
	}
	if body.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("doctor is required")
	}
	if body.StartDate.IsZero() {
		return nil, fmt.Errorf("start time is required")
	}
	if body.EndDate == nil {
		end := body.StartDate.Add(DefaultVisitDuration)
		body.EndDate = &end
	} else if body.EndDate.Before(body.StartDate) {
		return nil, fmt.Errorf("end time must not precede start time")
	}

	visit, err := v.api.CreateVisit(ctx, body)
	if err != nil {
		return nil, err
	}
	v.cache.Invalidate(ResourceVisits)
	return visit, nil
}

// Update applies a full-form patch.
func (v *View) Update(ctx context.Context, id uuid.UUID, patch *backend.VisitPatch) (*backend.Visit, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("nothing to update")
	}
	visit, err := v.api.UpdateVisit(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	v.cache.Invalidate(ResourceVisits)
	return visit, nil
}

// UpdateField commits an inline cell edit, scoped to exactly that field. An
// empty value clears the field.
func (v *View) UpdateField(ctx context.Context, id uuid.UUID, field InlineField, raw string) (*backend.Visit, error) {
	patch := backend.NewVisitPatch()
	raw = strings.TrimSpace(raw)

	switch field {
	case FieldProcedure:
		if raw == "" {
			patch.ClearProcedure()
		} else {
			patch.SetProcedure(raw)
		}
	case FieldCost:
		if raw == "" {
			patch.ClearCost()
		} else {
			cost, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("cost must be a number")
			}
			if cost < 0 {
				return nil, fmt.Errorf("cost must not be negative")
			}
			patch.SetCost(cost)
		}
	default:
		return nil, fmt.Errorf("field %q is not editable inline", field)
	}

	visit, err := v.api.UpdateVisit(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	v.cache.Invalidate(ResourceVisits)
	return visit, nil
}

// UpdateStatus moves a visit to any of the canonical statuses; no transition
// is restricted.
func (v *View) UpdateStatus(ctx context.Context, id uuid.UUID, status backend.VisitStatus) (*backend.Visit, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid visit status: %s", status)
	}
	visit, err := v.api.UpdateVisit(ctx, id, backend.NewVisitPatch().SetStatus(status))
	if err != nil {
		return nil, err
	}
	v.cache.Invalidate(ResourceVisits)
	return visit, nil
}

// Delete removes a visit and invalidates the listing.
func (v *View) Delete(ctx context.Context, id uuid.UUID) error {
	if err := v.api.DeleteVisit(ctx, id); err != nil {
		return err
	}
	v.cache.Invalidate(ResourceVisits)
	return nil
}
