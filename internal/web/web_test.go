package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/config"
	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/platform/querycache"
)

type fakeAPI struct {
	doctors []backend.Doctor
	clients []backend.Client
	visits  []backend.Visit

	lastVisitQuery backend.VisitQuery
	createdVisits  []backend.VisitCreate
	patchedVisits  map[uuid.UUID]*backend.VisitPatch
	deletedVisits  []uuid.UUID
	createdDoctors []backend.DoctorCreate
	updatedDoctors map[uuid.UUID]backend.DoctorUpdate
	createdClients []backend.ClientCreate

	err error
}

func (f *fakeAPI) ListDoctors(_ context.Context, search string) ([]backend.Doctor, error) {
	if f.err != nil {
		return nil, f.err
	}
	if search == "" {
		return f.doctors, nil
	}
	var out []backend.Doctor
	for _, d := range f.doctors {
		if strings.Contains(strings.ToLower(d.FullName), strings.ToLower(search)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetDoctor(_ context.Context, id uuid.UUID) (*backend.Doctor, error) {
	for i := range f.doctors {
		if f.doctors[i].ID == id {
			return &f.doctors[i], nil
		}
	}
	return nil, &backend.APIError{StatusCode: http.StatusNotFound, Detail: "Врач не найден"}
}

func (f *fakeAPI) CreateDoctor(_ context.Context, body backend.DoctorCreate) (*backend.Doctor, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdDoctors = append(f.createdDoctors, body)
	d := backend.Doctor{ID: uuid.New(), FullName: body.FullName, Speciality: body.Speciality}
	f.doctors = append(f.doctors, d)
	return &d, nil
}

func (f *fakeAPI) UpdateDoctor(_ context.Context, id uuid.UUID, body backend.DoctorUpdate) (*backend.Doctor, error) {
	if f.updatedDoctors == nil {
		f.updatedDoctors = map[uuid.UUID]backend.DoctorUpdate{}
	}
	f.updatedDoctors[id] = body
	return &backend.Doctor{ID: id}, nil
}

func (f *fakeAPI) DoctorOptions(_ context.Context) ([]backend.Option, error) {
	var out []backend.Option
	for _, d := range f.doctors {
		out = append(out, backend.Option{Value: d.ID, Label: d.FullName})
	}
	return out, nil
}

func (f *fakeAPI) ListClients(_ context.Context, search string) ([]backend.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.clients, nil
}

func (f *fakeAPI) GetClient(_ context.Context, id uuid.UUID) (*backend.Client, error) {
	for i := range f.clients {
		if f.clients[i].ID == id {
			return &f.clients[i], nil
		}
	}
	return nil, &backend.APIError{StatusCode: http.StatusNotFound, Detail: "Клиент не найден"}
}

func (f *fakeAPI) CreateClient(_ context.Context, body backend.ClientCreate) (*backend.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdClients = append(f.createdClients, body)
	c := backend.Client{ID: uuid.New(), FullName: body.FullName, PhoneNumber: body.PhoneNumber, DateOfBirth: body.DateOfBirth}
	f.clients = append(f.clients, c)
	return &c, nil
}

func (f *fakeAPI) UpdateClient(_ context.Context, id uuid.UUID, body backend.ClientUpdate) (*backend.Client, error) {
	return &backend.Client{ID: id}, nil
}

func (f *fakeAPI) ClientOptions(_ context.Context) ([]backend.Option, error) {
	var out []backend.Option
	for _, c := range f.clients {
		out = append(out, backend.Option{Value: c.ID, Label: c.FullName})
	}
	return out, nil
}

func (f *fakeAPI) ListVisits(_ context.Context, q backend.VisitQuery) (*backend.VisitPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastVisitQuery = q
	return &backend.VisitPage{
		Total:  len(f.visits),
		Limit:  q.Limit,
		Offset: q.Offset,
		Items:  f.visits,
	}, nil
}

func (f *fakeAPI) GetVisit(_ context.Context, id uuid.UUID) (*backend.Visit, error) {
	for i := range f.visits {
		if f.visits[i].ID == id {
			return &f.visits[i], nil
		}
	}
	return nil, &backend.APIError{StatusCode: http.StatusNotFound, Detail: "Визит не найден"}
}

func (f *fakeAPI) CreateVisit(_ context.Context, body backend.VisitCreate) (*backend.Visit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdVisits = append(f.createdVisits, body)
	return &backend.Visit{ID: uuid.New(), ClientID: body.ClientID, DoctorID: body.DoctorID, StartDate: body.StartDate, EndDate: body.EndDate, Status: backend.StatusUnconfirmed}, nil
}

func (f *fakeAPI) UpdateVisit(_ context.Context, id uuid.UUID, patch *backend.VisitPatch) (*backend.Visit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.patchedVisits == nil {
		f.patchedVisits = map[uuid.UUID]*backend.VisitPatch{}
	}
	f.patchedVisits[id] = patch
	return &backend.Visit{ID: id}, nil
}

func (f *fakeAPI) DeleteVisit(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deletedVisits = append(f.deletedVisits, id)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		Env:               "test",
		APIBaseURL:        "http://backend.test",
		APITimeoutSeconds: 15,
		MinTime:           "06:30",
		MaxTime:           "21:30",
		DefaultPageSize:   20,
		DayViewLimit:      500,
		CacheTTLSeconds:   60,
	}
}

func newTestServer(api *fakeAPI) *echo.Echo {
	cache := querycache.New(time.Minute, nil)
	return NewEcho(testConfig(), api, cache, nil, nil, zerolog.Nop())
}

func seededAPI() *fakeAPI {
	doctorID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	clientID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	end := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &fakeAPI{
		doctors: []backend.Doctor{{ID: doctorID, FullName: "Петров Сергей", Speciality: "Терапевт"}},
		clients: []backend.Client{{ID: clientID, FullName: "Иванова Анна", PhoneNumber: "+79161234567", DateOfBirth: "1990-06-15"}},
		visits: []backend.Visit{{
			ID:         uuid.MustParse("33333333-3333-3333-3333-333333333333"),
			ClientID:   clientID,
			DoctorID:   doctorID,
			StartDate:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			EndDate:    &end,
			Status:     backend.StatusConfirmed,
			ClientName: "Иванова Анна",
			DoctorName: "Петров Сергей",
		}},
	}
}

func doRequest(e *echo.Echo, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestVisitsPageRenders(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	rec := doRequest(e, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	html := rec.Body.String()
	for _, want := range []string{"Иванова Анна", "Петров Сергей", "09:00–09:30"} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestVisitsPageCanonicalRedirect(t *testing.T) {
	e := newTestServer(seededAPI())

	rec := doRequest(e, http.MethodGet, "/?procedure=massage&junk=1", "", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	loc := rec.Header().Get(echo.HeaderLocation)
	if loc != "/?procedure=massage" {
		t.Fatalf("location = %q", loc)
	}

	// the canonical form must be stable, not a redirect loop
	rec = doRequest(e, http.MethodGet, loc, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("canonical URL redirected again: %d -> %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestDoctorDayViewShowsGaps(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	rec := doRequest(e, http.MethodGet, "/doctors/11111111-1111-1111-1111-111111111111?day=2026-03-14", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Свободно") {
		t.Fatal("day view missing gap rows")
	}
	if api.lastVisitQuery.Limit != 500 {
		t.Fatalf("day view limit = %d, want 500", api.lastVisitQuery.Limit)
	}
	if api.lastVisitQuery.DoctorID.String() != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("doctor not pinned in query: %s", api.lastVisitQuery.DoctorID)
	}
}

func TestUnknownDoctorPage(t *testing.T) {
	e := newTestServer(seededAPI())
	rec := doRequest(e, http.MethodGet, "/doctors/"+uuid.NewString(), "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateVisitJSON(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	body := fmt.Sprintf(`{"client_id":%q,"doctor_id":%q,"start_date":"2026-03-20T10:00:00Z"}`,
		api.clients[0].ID, api.doctors[0].ID)
	rec := doRequest(e, http.MethodPost, "/api/visits", body, echo.MIMEApplicationJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if len(api.createdVisits) != 1 {
		t.Fatalf("created = %d", len(api.createdVisits))
	}
	created := api.createdVisits[0]
	if created.EndDate == nil || !created.EndDate.Equal(created.StartDate.Add(30*time.Minute)) {
		t.Fatalf("derived end = %v", created.EndDate)
	}
}

func TestCreateVisitForm(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	form := url.Values{
		"client_id":  {api.clients[0].ID.String()},
		"doctor_id":  {api.doctors[0].ID.String()},
		"start_date": {"2026-03-20T10:00"},
		"cost":       {"1500"},
	}
	rec := doRequest(e, http.MethodPost, "/api/visits", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	created := api.createdVisits[0]
	if created.Cost == nil || *created.Cost != 1500 {
		t.Fatalf("cost = %v", created.Cost)
	}

	// a blank cost input stays unset
	form.Set("cost", "")
	rec = doRequest(e, http.MethodPost, "/api/visits", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if got := api.createdVisits[1].Cost; got != nil {
		t.Fatalf("blank cost bound to %v", *got)
	}
}

func TestVisitsPageRangeFilter(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	rec := doRequest(e, http.MethodGet, "/", "", "")
	html := rec.Body.String()
	for _, want := range []string{`name="from"`, `name="to"`, `name="cost"`} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q input", want)
		}
	}

	// a date-input range canonicalizes to the serialized form and filters
	// the fetch
	rec = doRequest(e, http.MethodGet, "/?from=2026-03-01&to=2026-03-05", "", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	rec = doRequest(e, http.MethodGet, rec.Header().Get(echo.HeaderLocation), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("canonical range URL: %d", rec.Code)
	}
	if api.lastVisitQuery.StartDate == nil ||
		!api.lastVisitQuery.StartDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("range start = %v", api.lastVisitQuery.StartDate)
	}
}

func TestInlineFieldUpdateJSON(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)
	id := api.visits[0].ID

	rec := doRequest(e, http.MethodPatch, "/api/visits/"+id.String()+"/field",
		`{"field":"cost","value":"1200"}`, echo.MIMEApplicationJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	raw, _ := json.Marshal(api.patchedVisits[id])
	if string(raw) != `{"cost":1200}` {
		t.Fatalf("patch body = %s", raw)
	}

	rec = doRequest(e, http.MethodPatch, "/api/visits/"+id.String()+"/field",
		`{"field":"status","value":"PAID"}`, echo.MIMEApplicationJSON)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-inline field accepted: %d", rec.Code)
	}
}

func TestStatusUpdateForm(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)
	id := api.visits[0].ID

	rec := doRequest(e, http.MethodPost, "/api/visits/"+id.String()+"/status",
		"status=PAID", echo.MIMEApplicationForm)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect, body: %s", rec.Code, rec.Body.String())
	}
	raw, _ := json.Marshal(api.patchedVisits[id])
	if string(raw) != `{"status":"PAID"}` {
		t.Fatalf("patch body = %s", raw)
	}
}

func TestDeleteVisitJSON(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)
	id := api.visits[0].ID

	rec := doRequest(e, http.MethodDelete, "/api/visits/"+id.String(), "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(api.deletedVisits) != 1 || api.deletedVisits[0] != id {
		t.Fatalf("deleted = %v", api.deletedVisits)
	}
}

// Deletion must be reachable from the rendered page, which only speaks
// forms: a per-row POST fallback mirrors the DELETE endpoint.
func TestDeleteVisitForm(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)
	id := api.visits[0].ID

	rec := doRequest(e, http.MethodGet, "/", "", "")
	if !strings.Contains(rec.Body.String(), "/api/visits/"+id.String()+"/delete") {
		t.Fatal("page has no delete control for the visit row")
	}

	rec = doRequest(e, http.MethodPost, "/api/visits/"+id.String()+"/delete",
		"submit=1", echo.MIMEApplicationForm)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect, body: %s", rec.Code, rec.Body.String())
	}
	if len(api.deletedVisits) != 1 || api.deletedVisits[0] != id {
		t.Fatalf("deleted = %v", api.deletedVisits)
	}
}

// The console ships no JavaScript and its CSP blocks inline handlers, so
// every flow needs a plain submit control.
func TestPageFormsNeedNoScripts(t *testing.T) {
	e := newTestServer(seededAPI())

	rec := doRequest(e, http.MethodGet, "/", "", "")
	html := rec.Body.String()
	if strings.Contains(html, "onchange=") || strings.Contains(html, "onclick=") || strings.Contains(html, "onload=") {
		t.Fatal("page relies on an inline event handler")
	}
}

func TestOptionsEndpoint(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	rec := doRequest(e, http.MethodGet, "/api/options/doctors", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var options []backend.Option
	if err := json.Unmarshal(rec.Body.Bytes(), &options); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(options) != 1 || options[0].Label != "Петров Сергей" {
		t.Fatalf("options = %+v", options)
	}

	rec = doRequest(e, http.MethodGet, "/api/options/rooms", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown entity status = %d", rec.Code)
	}
}

// The print form must carry the active filters as hidden inputs, so the
// sheet covers the same set the page shows.
func TestPrintFormCarriesFilters(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	rec := doRequest(e, http.MethodGet, "/?procedure=massage&status=CONFIRMED", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	html := rec.Body.String()
	for _, want := range []string{
		`<input type="hidden" name="procedure" value="massage">`,
		`<input type="hidden" name="status" value="CONFIRMED">`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("print form missing %q", want)
		}
	}

	// submit exactly what the form carries
	form := url.Values{
		"procedure": {"massage"},
		"status":    {"CONFIRMED"},
		"columns":   {"time", "client"},
	}
	rec = doRequest(e, http.MethodPost, "/api/visits/print", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if api.lastVisitQuery.Procedure != "massage" {
		t.Fatalf("procedure filter lost: %q", api.lastVisitQuery.Procedure)
	}
	if api.lastVisitQuery.Status != backend.StatusConfirmed {
		t.Fatalf("status filter lost: %q", api.lastVisitQuery.Status)
	}
	if !strings.Contains(rec.Body.String(), "Процедура: massage") {
		t.Fatal("filter summary missing the procedure")
	}
}

func TestPrintSheet(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	form := url.Values{
		"context_doctor_id": {api.doctors[0].ID.String()},
		"day":               {"2026-03-14"},
		"columns":           {"time", "client"},
	}
	rec := doRequest(e, http.MethodPost, "/api/visits/print", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	html := rec.Body.String()
	for _, want := range []string{"Расписание врача: Петров Сергей", "<th>Время</th>", "<th>Клиент</th>", "День: 14.03.2026"} {
		if !strings.Contains(html, want) {
			t.Fatalf("sheet missing %q", want)
		}
	}
	if strings.Contains(html, "<th>Статус</th>") {
		t.Fatal("unselected column leaked into the sheet")
	}
	// the sheet's own policy must admit its print trigger script
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'unsafe-inline'") {
		t.Fatalf("sheet CSP blocks the print trigger: %q", csp)
	}
}

func TestDoctorCreateForm(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	form := url.Values{"full_name": {"Новикова Мария"}, "speciality": {"Хирург"}}
	rec := doRequest(e, http.MethodPost, "/doctors", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if len(api.createdDoctors) != 1 || api.createdDoctors[0].FullName != "Новикова Мария" {
		t.Fatalf("created = %+v", api.createdDoctors)
	}
}

func TestDoctorCreateValidation(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	form := url.Values{"full_name": {""}, "speciality": {"Хирург"}}
	rec := doRequest(e, http.MethodPost, "/doctors", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(api.createdDoctors) != 0 {
		t.Fatal("invalid form reached the backend")
	}
	if !strings.Contains(rec.Body.String(), "обязательное поле") {
		t.Fatal("validation message not rendered")
	}
}

func TestClientCreateNormalizesPhone(t *testing.T) {
	api := seededAPI()
	e := newTestServer(api)

	form := url.Values{
		"full_name":     {"Сидорова Ольга"},
		"phone_number":  {"8 (916) 555-44-33"},
		"date_of_birth": {"1985-01-20"},
	}
	rec := doRequest(e, http.MethodPost, "/clients", form.Encode(), echo.MIMEApplicationForm)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if got := api.createdClients[0].PhoneNumber; got != "+79165554433" {
		t.Fatalf("phone = %q", got)
	}
}

func TestHealth(t *testing.T) {
	e := newTestServer(seededAPI())
	rec := doRequest(e, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
