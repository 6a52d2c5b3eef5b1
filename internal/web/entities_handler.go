package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/console/internal/manager"
	"github.com/clinicdesk/console/internal/platform/backend"
)

// EntityHandler serves one managed entity screen: a searchable table plus a
// shared create/edit form. The doctor and client screens are two
// instantiations of the same handler.
type EntityHandler[TItem, TCreate, TUpdate any] struct {
	mgr      *manager.Manager[TItem, TCreate, TUpdate]
	title    string
	basePath string
	idOf     func(item TItem) uuid.UUID
}

func NewEntityHandler[TItem, TCreate, TUpdate any](
	mgr *manager.Manager[TItem, TCreate, TUpdate],
	title, basePath string,
	idOf func(item TItem) uuid.UUID,
) *EntityHandler[TItem, TCreate, TUpdate] {
	return &EntityHandler[TItem, TCreate, TUpdate]{mgr: mgr, title: title, basePath: basePath, idOf: idOf}
}

func (h *EntityHandler[TItem, TCreate, TUpdate]) RegisterRoutes(e *echo.Echo) {
	e.GET(h.basePath, h.Page)
	e.POST(h.basePath, h.Create)
	e.POST(h.basePath+"/:id", h.Update)
}

// entityPage is the template model for the entities screen.
type entityPage struct {
	Title       string
	BasePath    string
	Search      string
	Headers     []string
	Rows        []entityRow
	Mode        manager.Mode
	EditID      string
	Form        manager.Form
	Fields      []manager.Field
	FieldErrors map[string]string
	Message     string
}

type entityRow struct {
	ID    string
	Cells []string
}

// Page renders the table and, when ?edit=<id> is present, pre-fills the form
// with that row's values.
func (h *EntityHandler[TItem, TCreate, TUpdate]) Page(c echo.Context) error {
	search := c.QueryParam("search")
	items, err := h.mgr.List(c.Request().Context(), search)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, backend.Message(err))
	}
	page := h.page(search, items)

	if raw := c.QueryParam("edit"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			for _, item := range items {
				if h.idOf(item) == id {
					page.Mode = manager.ModeEdit
					page.EditID = id.String()
					page.Form = h.mgr.FormFor(item)
					break
				}
			}
		}
	}
	return c.Render(http.StatusOK, "entities", page)
}

// Create handles the form submit in create mode. Success redirects back to
// the list; a failure re-renders the page with the form still open.
func (h *EntityHandler[TItem, TCreate, TUpdate]) Create(c echo.Context) error {
	return h.submit(c, manager.ModeCreate, uuid.Nil)
}

// Update handles the form submit in edit mode.
func (h *EntityHandler[TItem, TCreate, TUpdate]) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return h.submit(c, manager.ModeEdit, id)
}

func (h *EntityHandler[TItem, TCreate, TUpdate]) submit(c echo.Context, mode manager.Mode, id uuid.UUID) error {
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}
	form := manager.FromValues(values, h.mgr.Fields())

	result := h.mgr.Submit(c.Request().Context(), mode, id, form)
	if result.Ok() {
		return c.Redirect(http.StatusSeeOther, h.basePath)
	}

	items, listErr := h.mgr.List(c.Request().Context(), "")
	if listErr != nil {
		return echo.NewHTTPError(http.StatusBadGateway, backend.Message(listErr))
	}
	page := h.page("", items)
	page.Mode = mode
	if id != uuid.Nil {
		page.EditID = id.String()
	}
	page.Form = form
	page.FieldErrors = result.FieldErrors
	page.Message = result.Message
	return c.Render(http.StatusUnprocessableEntity, "entities", page)
}

func (h *EntityHandler[TItem, TCreate, TUpdate]) page(search string, items []TItem) *entityPage {
	columns := h.mgr.Columns()
	page := &entityPage{
		Title:    h.title,
		BasePath: h.basePath,
		Search:   search,
		Mode:     manager.ModeCreate,
		Form:     h.mgr.EmptyForm(),
		Fields:   h.mgr.Fields(),
	}
	for _, col := range columns {
		page.Headers = append(page.Headers, col.Title)
	}
	for _, item := range items {
		row := entityRow{ID: h.idOf(item).String()}
		for _, col := range columns {
			row.Cells = append(row.Cells, col.Cell(item))
		}
		page.Rows = append(page.Rows, row)
	}
	return page
}
