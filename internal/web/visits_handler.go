package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/config"
	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/platform/querycache"
	"github.com/clinicdesk/console/internal/printsheet"
	"github.com/clinicdesk/console/internal/visits"
	"github.com/clinicdesk/console/pkg/pagination"
)

// VisitHandler serves the scheduling screens and the JSON endpoints behind
// the inline edit, status, print, and option-list flows.
type VisitHandler struct {
	api   Backend
	view  *visits.View
	cache *querycache.Cache
	cfg   *config.Config
	log   zerolog.Logger
}

func NewVisitHandler(api Backend, view *visits.View, cache *querycache.Cache, cfg *config.Config, log zerolog.Logger) *VisitHandler {
	return &VisitHandler{api: api, view: view, cache: cache, cfg: cfg, log: log}
}

func (h *VisitHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.AllVisitsPage)
	e.GET("/clients/:id", h.ClientVisitsPage)
	e.GET("/doctors/:id", h.DoctorVisitsPage)
	e.GET("/visits/:id", h.VisitDetailPage)

	api := e.Group("/api")
	api.GET("/visits", h.ListJSON)
	api.POST("/visits", h.CreateJSON)
	api.PATCH("/visits/:id/field", h.UpdateFieldJSON)
	api.PATCH("/visits/:id/status", h.UpdateStatusJSON)
	// HTML forms cannot issue PATCH; the in-page flows post to the same
	// handlers and get redirected back.
	api.POST("/visits/:id/field", h.UpdateFieldJSON)
	api.POST("/visits/:id/status", h.UpdateStatusJSON)
	api.POST("/visits/:id/delete", h.DeleteJSON)
	api.DELETE("/visits/:id", h.DeleteJSON)
	api.POST("/visits/print", h.PrintSheet)
	api.GET("/options/:entity", h.Options)
}

// visitsPage is the template model for the scheduling screen.
type visitsPage struct {
	Title         string
	BasePath      string
	State         *visits.State
	Listing       *visits.Listing
	Edit          *visits.EditTarget
	Statuses      []backend.VisitStatus
	DoctorOptions []backend.Option
	ClientOptions []backend.Option
	PrintColumns  []printsheet.Column
	PrintDefaults []printsheet.Column
	Query         string
}

// FilterValues exposes the serialized filter state so forms that leave the
// page, like the print submit, can carry it as hidden inputs.
func (p *visitsPage) FilterValues() url.Values {
	return p.State.Serialize()
}

// HasNext reports whether a later page exists.
func (p *visitsPage) HasNext() bool {
	params := pagination.Params{Page: p.State.Filter.Page, PageSize: p.State.Filter.PageSize}
	return params.HasNext(p.Listing.Page.Total)
}

// PrevURL and NextURL rebuild the page URL with only the page number moved.
func (p *visitsPage) PrevURL() string { return p.pageURL(p.State.Filter.Page - 1) }
func (p *visitsPage) NextURL() string { return p.pageURL(p.State.Filter.Page + 1) }

func (p *visitsPage) pageURL(page int) string {
	values := p.State.Serialize()
	values.Del("page")
	if page > 1 {
		values.Set("page", fmt.Sprint(page))
	}
	if encoded := values.Encode(); encoded != "" {
		return p.BasePath + "?" + encoded
	}
	return p.BasePath
}

// AllVisitsPage renders the unscoped scheduling view.
func (h *VisitHandler) AllVisitsPage(c echo.Context) error {
	return h.visitsPage(c, visits.Context{}, "Визиты", "/")
}

// ClientVisitsPage pins the view to one client.
func (h *VisitHandler) ClientVisitsPage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	client, err := h.api.GetClient(c.Request().Context(), id)
	if err != nil {
		return h.remoteError(err)
	}
	return h.visitsPage(c, visits.Context{ClientID: id}, "Визиты клиента: "+client.FullName, "/clients/"+id.String())
}

// DoctorVisitsPage pins the view to one doctor; combined with a day filter
// this is the gap-interleaved day view.
func (h *VisitHandler) DoctorVisitsPage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctor, err := h.api.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return h.remoteError(err)
	}
	return h.visitsPage(c, visits.Context{DoctorID: id}, "Расписание врача: "+doctor.FullName, "/doctors/"+id.String())
}

func (h *VisitHandler) visitsPage(c echo.Context, vctx visits.Context, title, basePath string) error {
	state := visits.NewState(vctx, h.cfg.DefaultPageSize)
	state.Hydrate(c.QueryParams())

	var edit *visits.EditTarget
	if raw := c.QueryParam("edit"); raw != "" {
		if target, err := visits.ParseEditTarget(raw); err == nil {
			edit = target
		}
	}

	// The URL is a serialization of the filter state. When they disagree the
	// canonical form replaces the address, mirroring a replace-not-push
	// navigation.
	canonical := state.Serialize()
	if edit != nil {
		canonical.Set("edit", edit.String())
	}
	if canonical.Encode() != c.QueryParams().Encode() {
		target := basePath
		if encoded := canonical.Encode(); encoded != "" {
			target += "?" + encoded
		}
		return c.Redirect(http.StatusFound, target)
	}

	listing, err := h.view.List(c.Request().Context(), state)
	if err != nil {
		return h.remoteError(err)
	}

	doctorOptions, err := h.options(c, ResourceDoctors)
	if err != nil {
		return h.remoteError(err)
	}
	clientOptions, err := h.options(c, ResourceClients)
	if err != nil {
		return h.remoteError(err)
	}

	return c.Render(http.StatusOK, "visits", &visitsPage{
		Title:         title,
		BasePath:      basePath,
		State:         state,
		Listing:       listing,
		Edit:          edit,
		Statuses:      backend.Statuses(),
		DoctorOptions: doctorOptions,
		ClientOptions: clientOptions,
		PrintColumns:  printsheet.AllColumns(),
		PrintDefaults: printsheet.DefaultColumns(vctx.ClientID, vctx.DoctorID),
		Query:         state.Serialize().Encode(),
	})
}

// VisitDetailPage renders one visit.
func (h *VisitHandler) VisitDetailPage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	visit, err := h.view.Get(c.Request().Context(), id)
	if err != nil {
		return h.remoteError(err)
	}
	return c.Render(http.StatusOK, "visit_detail", visit)
}

// ListJSON returns the filtered listing with interleaved rows.
func (h *VisitHandler) ListJSON(c echo.Context) error {
	state := visits.NewState(visits.Context{}, h.cfg.DefaultPageSize)
	state.Hydrate(c.QueryParams())

	listing, err := h.view.List(c.Request().Context(), state)
	if err != nil {
		return h.remoteError(err)
	}
	envelope := pagination.Envelope[visits.Row]{
		Total:     listing.Page.Total,
		Limit:     listing.Page.Limit,
		Offset:    listing.Page.Offset,
		Items:     listing.Rows,
		TotalCost: listing.Page.TotalCost,
	}
	return c.JSON(http.StatusOK, map[string]any{
		"page":     envelope,
		"day_view": listing.DayView,
	})
}

type visitCreateRequest struct {
	ClientID  uuid.UUID `json:"client_id" form:"client_id"`
	DoctorID  uuid.UUID `json:"doctor_id" form:"doctor_id"`
	StartDate string    `json:"start_date" form:"start_date"`
	EndDate   string    `json:"end_date" form:"end_date"`
	Procedure string    `json:"procedure" form:"procedure"`
	Cabinet   string    `json:"cabinet" form:"cabinet"`
	Cost      *float64  `json:"cost" form:"-"`
	// Form submits carry cost as text so a blank input stays unset
	// instead of binding to zero.
	CostRaw string `json:"-" form:"cost"`
}

// CreateJSON schedules a new visit; a missing end gets the default block.
func (h *VisitHandler) CreateJSON(c echo.Context) error {
	var req visitCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	body := backend.VisitCreate{ClientID: req.ClientID, DoctorID: req.DoctorID, Cost: req.Cost}
	if raw := strings.TrimSpace(req.CostRaw); raw != "" {
		cost, err := strconv.ParseFloat(raw, 64)
		if err != nil || cost < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cost")
		}
		body.Cost = &cost
	}
	start, err := parseTime(req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
	}
	body.StartDate = start
	if req.EndDate != "" {
		end, err := parseTime(req.EndDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		body.EndDate = &end
	}
	if v := strings.TrimSpace(req.Procedure); v != "" {
		body.Procedure = &v
	}
	if v := strings.TrimSpace(req.Cabinet); v != "" {
		body.Cabinet = &v
	}

	visit, err := h.view.Create(c.Request().Context(), body)
	if err != nil {
		if _, remote := backend.AsAPIError(err); !remote {
			return echo.NewHTTPError(http.StatusBadRequest, backend.Message(err))
		}
		return h.remoteError(err)
	}
	if redirected, err := h.redirectBack(c); redirected {
		return err
	}
	return c.JSON(http.StatusCreated, visit)
}

type fieldUpdateRequest struct {
	Field string `json:"field" form:"field"`
	Value string `json:"value" form:"value"`
}

// UpdateFieldJSON commits an inline cell edit.
func (h *VisitHandler) UpdateFieldJSON(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req fieldUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	field, err := visits.ParseInlineField(req.Field)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	visit, err := h.view.UpdateField(c.Request().Context(), id, field, req.Value)
	if err != nil {
		return h.remoteError(err)
	}
	if redirected, err := h.redirectBack(c); redirected {
		return err
	}
	return c.JSON(http.StatusOK, visit)
}

type statusUpdateRequest struct {
	Status backend.VisitStatus `json:"status" form:"status"`
}

// UpdateStatusJSON moves a visit to a new status.
func (h *VisitHandler) UpdateStatusJSON(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	visit, err := h.view.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		if _, remote := backend.AsAPIError(err); !remote {
			return echo.NewHTTPError(http.StatusBadRequest, backend.Message(err))
		}
		return h.remoteError(err)
	}
	if redirected, err := h.redirectBack(c); redirected {
		return err
	}
	return c.JSON(http.StatusOK, visit)
}

// redirectBack sends a form submit back to the page it came from; JSON
// callers fall through to the JSON response.
func (h *VisitHandler) redirectBack(c echo.Context) (bool, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		return false, nil
	}
	target := c.Request().Referer()
	if target == "" {
		target = "/"
	}
	return true, c.Redirect(http.StatusSeeOther, target)
}

// DeleteJSON removes a visit.
func (h *VisitHandler) DeleteJSON(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.view.Delete(c.Request().Context(), id); err != nil {
		return h.remoteError(err)
	}
	if redirected, err := h.redirectBack(c); redirected {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// PrintSheet renders the current filtered listing, restricted to the chosen
// columns, as a self-printing document.
func (h *VisitHandler) PrintSheet(c echo.Context) error {
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}

	var vctx visits.Context
	if id, err := uuid.Parse(values.Get("context_client_id")); err == nil {
		vctx.ClientID = id
	}
	if id, err := uuid.Parse(values.Get("context_doctor_id")); err == nil {
		vctx.DoctorID = id
	}

	state := visits.NewState(vctx, h.cfg.DefaultPageSize)
	state.Hydrate(values)

	columns := printsheet.DefaultColumns(vctx.ClientID, vctx.DoctorID)
	if raw, ok := values["columns"]; ok {
		columns, err = printsheet.ParseColumns(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	// One unpaginated fetch: the sheet covers the whole filtered set.
	query := state.Query(h.cfg.DayViewLimit)
	query.Limit = h.cfg.DayViewLimit
	query.Offset = 0
	page, err := h.api.ListVisits(c.Request().Context(), query)
	if err != nil {
		return h.remoteError(err)
	}

	input := printsheet.Input{
		Visits:  page.Items,
		Columns: columns,
		Clients: map[uuid.UUID]backend.Client{},
		Doctors: map[uuid.UUID]backend.Doctor{},
		Now:     timeNow(),
	}
	if vctx.ClientID != uuid.Nil {
		if client, err := h.api.GetClient(c.Request().Context(), vctx.ClientID); err == nil {
			input.Client = client
			input.Clients[client.ID] = *client
		}
	}
	if vctx.DoctorID != uuid.Nil {
		if doctor, err := h.api.GetDoctor(c.Request().Context(), vctx.DoctorID); err == nil {
			input.Doctor = doctor
			input.Doctors[doctor.ID] = *doctor
		}
	}
	input.FilterSummary = h.filterSummary(state)

	sheet := printsheet.Build(input)
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	// The sheet carries an inline script that opens the print dialog, so
	// its policy is looser than the console pages'.
	c.Response().Header().Set("Content-Security-Policy",
		"default-src 'self'; style-src 'unsafe-inline'; script-src 'unsafe-inline'; frame-ancestors 'none'")
	c.Response().WriteHeader(http.StatusOK)
	return sheet.Render(c.Response())
}

// Options serves the (id, label) lists behind the selection controls.
func (h *VisitHandler) Options(c echo.Context) error {
	entity := c.Param("entity")
	if entity != ResourceDoctors && entity != ResourceClients {
		return echo.NewHTTPError(http.StatusNotFound, "unknown entity")
	}
	options, err := h.options(c, entity)
	if err != nil {
		return h.remoteError(err)
	}
	return c.JSON(http.StatusOK, options)
}

// options caches the option lists under the owning entity's family, so a
// doctor or client mutation refreshes its selection list too.
func (h *VisitHandler) options(c echo.Context, resource string) ([]backend.Option, error) {
	key := querycache.NewKey(resource, url.Values{"view": {"options"}})
	if cached, ok := h.cache.Get(key); ok {
		return cached.([]backend.Option), nil
	}
	generation := h.cache.Generation(resource)

	var (
		options []backend.Option
		err     error
	)
	switch resource {
	case ResourceDoctors:
		options, err = h.api.DoctorOptions(c.Request().Context())
	case ResourceClients:
		options, err = h.api.ClientOptions(c.Request().Context())
	}
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, options, generation)
	return options, nil
}

func (h *VisitHandler) filterSummary(state *visits.State) string {
	var parts []string
	if day := state.Filter.Day; day != nil {
		parts = append(parts, "День: "+day.Format("02.01.2006"))
	} else if state.Filter.RangeFrom != nil && state.Filter.RangeTo != nil {
		parts = append(parts, fmt.Sprintf("Период: %s – %s",
			state.Filter.RangeFrom.Format("02.01.2006"),
			state.Filter.RangeTo.Format("02.01.2006")))
	}
	if state.Filter.Status != "" {
		parts = append(parts, "Статус: "+string(state.Filter.Status))
	}
	if state.Filter.Cabinet != "" {
		parts = append(parts, "Кабинет: "+state.Filter.Cabinet)
	}
	if state.Filter.Procedure != "" {
		parts = append(parts, "Процедура: "+state.Filter.Procedure)
	}
	return strings.Join(parts, "; ")
}

// remoteError maps a remote API failure onto the console's response, keeping
// the upstream status where one exists.
func (h *VisitHandler) remoteError(err error) error {
	if apiErr, ok := backend.AsAPIError(err); ok {
		return echo.NewHTTPError(apiErr.StatusCode, backend.Message(err))
	}
	return echo.NewHTTPError(http.StatusBadGateway, backend.Message(err))
}
