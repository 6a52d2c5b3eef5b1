// Package manager provides the reusable list+search+form controller shared by
// the doctor and client screens. A screen supplies the entity-specific fetch,
// create, and update operations plus the form mappers; the manager owns the
// search-keyed caching, validation, submit dispatch, and error extraction.
package manager

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/platform/querycache"
)

// Mode discriminates the shared modal form between its two uses.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Form carries one submitted or pre-filled set of field values.
type Form map[string]string

// Get returns the trimmed value for a field.
func (f Form) Get(name string) string {
	return strings.TrimSpace(f[name])
}

// FromValues projects the named fields out of raw form data.
func FromValues(values url.Values, fields []Field) Form {
	form := Form{}
	for _, field := range fields {
		form[field.Name] = values.Get(field.Name)
	}
	return form
}

// Field describes one form input: its name, label, and validation.
type Field struct {
	Name     string
	Label    string
	Required bool
	Validate func(value string) error
}

// Column describes one table column over the listed items.
type Column[TItem any] struct {
	Key   string
	Title string
	Cell  func(item TItem) string
}

// Config wires one entity's operations and mappers into a Manager.
type Config[TItem, TCreate, TUpdate any] struct {
	// Resource names the query-cache family, e.g. "doctors".
	Resource string
	Fields   []Field
	Columns  []Column[TItem]

	List   func(ctx context.Context, search string) ([]TItem, error)
	Create func(ctx context.Context, body TCreate) (*TItem, error)
	Update func(ctx context.Context, id uuid.UUID, body TUpdate) (*TItem, error)

	// ToForm projects an existing item into the edit form.
	ToForm func(item TItem) Form
	// ToCreate and ToUpdate build request bodies from a validated form.
	ToCreate func(form Form) (TCreate, error)
	ToUpdate func(form Form) (TUpdate, error)
}

// Manager is the generic list+search+create/edit controller.
type Manager[TItem, TCreate, TUpdate any] struct {
	cfg   Config[TItem, TCreate, TUpdate]
	cache *querycache.Cache
	log   zerolog.Logger
}

func New[TItem, TCreate, TUpdate any](cfg Config[TItem, TCreate, TUpdate], cache *querycache.Cache, log zerolog.Logger) *Manager[TItem, TCreate, TUpdate] {
	return &Manager[TItem, TCreate, TUpdate]{cfg: cfg, cache: cache, log: log}
}

// Resource names the manager's query-cache family.
func (m *Manager[TItem, TCreate, TUpdate]) Resource() string { return m.cfg.Resource }

// Fields exposes the form field definitions for rendering.
func (m *Manager[TItem, TCreate, TUpdate]) Fields() []Field { return m.cfg.Fields }

// Columns exposes the table column definitions for rendering.
func (m *Manager[TItem, TCreate, TUpdate]) Columns() []Column[TItem] { return m.cfg.Columns }

// List fetches the entity list for a search string, serving repeats of the
// same search from the query cache.
func (m *Manager[TItem, TCreate, TUpdate]) List(ctx context.Context, search string) ([]TItem, error) {
	search = strings.TrimSpace(search)
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	key := querycache.NewKey(m.cfg.Resource, params)

	if cached, ok := m.cache.Get(key); ok {
		return cached.([]TItem), nil
	}
	generation := m.cache.Generation(m.cfg.Resource)
	items, err := m.cfg.List(ctx, search)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, items, generation)
	return items, nil
}

// FormFor loads an existing item's values into the shared form, the
// open-for-edit half of the modal contract.
func (m *Manager[TItem, TCreate, TUpdate]) FormFor(item TItem) Form {
	return m.cfg.ToForm(item)
}

// EmptyForm is the open-for-create half: every field present and blank.
func (m *Manager[TItem, TCreate, TUpdate]) EmptyForm() Form {
	form := Form{}
	for _, field := range m.cfg.Fields {
		form[field.Name] = ""
	}
	return form
}

// Validate runs the per-field checks and returns the first failure per field,
// keyed by field name.
func (m *Manager[TItem, TCreate, TUpdate]) Validate(form Form) map[string]string {
	problems := map[string]string{}
	for _, field := range m.cfg.Fields {
		value := form.Get(field.Name)
		if value == "" {
			if field.Required {
				problems[field.Name] = fmt.Sprintf("%s: обязательное поле", field.Label)
			}
			continue
		}
		if field.Validate != nil {
			if err := field.Validate(value); err != nil {
				problems[field.Name] = fmt.Sprintf("%s: %s", field.Label, err)
			}
		}
	}
	return problems
}

// SubmitResult reports the outcome of one modal submit.
type SubmitResult[TItem any] struct {
	Item *TItem
	// FieldErrors holds validation failures; the modal stays open when set.
	FieldErrors map[string]string
	// Message is the extracted remote failure text, empty on success.
	Message string
}

// Ok reports whether the submit went through and the modal may close.
func (r SubmitResult[TItem]) Ok() bool {
	return len(r.FieldErrors) == 0 && r.Message == ""
}

// Submit validates the form and dispatches create or update by mode. On
// success the entity's list cache family is invalidated; on failure the
// extracted message is surfaced and nothing is cached or invalidated.
func (m *Manager[TItem, TCreate, TUpdate]) Submit(ctx context.Context, mode Mode, id uuid.UUID, form Form) SubmitResult[TItem] {
	if problems := m.Validate(form); len(problems) > 0 {
		return SubmitResult[TItem]{FieldErrors: problems}
	}

	var (
		item *TItem
		err  error
	)
	switch mode {
	case ModeCreate:
		var body TCreate
		if body, err = m.cfg.ToCreate(form); err == nil {
			item, err = m.cfg.Create(ctx, body)
		}
	case ModeEdit:
		if id == uuid.Nil {
			err = fmt.Errorf("edit submit without an id")
		} else {
			var body TUpdate
			if body, err = m.cfg.ToUpdate(form); err == nil {
				item, err = m.cfg.Update(ctx, id, body)
			}
		}
	default:
		err = fmt.Errorf("unknown form mode %q", mode)
	}
	if err != nil {
		m.log.Warn().Err(err).Str("resource", m.cfg.Resource).Str("mode", string(mode)).Msg("entity submit failed")
		return SubmitResult[TItem]{Message: backend.Message(err)}
	}

	m.cache.Invalidate(m.cfg.Resource)
	return SubmitResult[TItem]{Item: item}
}
