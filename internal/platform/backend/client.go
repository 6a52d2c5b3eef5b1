// Package backend is the typed client for the remote scheduling API. All
// persistence, validation, and ID generation live behind it; the console
// only builds queries and decodes responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/platform/telemetry"
)

// API issues requests against the remote scheduling service.
type API struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
	metrics *telemetry.Metrics
}

func New(baseURL string, timeout time.Duration, log zerolog.Logger, metrics *telemetry.Metrics) *API {
	return &API{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		metrics: metrics,
	}
}

// do performs one API round trip. Non-2xx responses decode into *APIError;
// transport failures pass through wrapped.
func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := a.http.Do(req)
	resource := resourceOf(path)
	if err != nil {
		a.metrics.ObserveBackendCall(method, resource, "error", time.Since(start).Seconds())
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	a.metrics.ObserveBackendCall(method, resource, strconv.Itoa(res.StatusCode), time.Since(start).Seconds())

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if res.StatusCode >= 400 {
		apiErr := decodeAPIError(res.StatusCode, data)
		a.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", res.StatusCode).
			Msg("backend error response")
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// resourceOf extracts the first path segment for metric labels.
func resourceOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// -- Doctors --

func (a *API) ListDoctors(ctx context.Context, search string) ([]Doctor, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search_substr", search)
	}
	var doctors []Doctor
	if err := a.do(ctx, http.MethodGet, "/doctors/", q, nil, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (a *API) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var doctor Doctor
	if err := a.do(ctx, http.MethodGet, "/doctors/"+id.String(), nil, nil, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (a *API) CreateDoctor(ctx context.Context, body DoctorCreate) (*Doctor, error) {
	var doctor Doctor
	if err := a.do(ctx, http.MethodPost, "/doctors/", nil, body, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (a *API) UpdateDoctor(ctx context.Context, id uuid.UUID, body DoctorUpdate) (*Doctor, error) {
	var doctor Doctor
	if err := a.do(ctx, http.MethodPatch, "/doctors/"+id.String(), nil, body, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// DoctorOptions fetches the lightweight (id, name) list for selection controls.
func (a *API) DoctorOptions(ctx context.Context) ([]Option, error) {
	doctors, err := a.ListDoctors(ctx, "")
	if err != nil {
		return nil, err
	}
	options := make([]Option, len(doctors))
	for i, d := range doctors {
		options[i] = Option{Value: d.ID, Label: d.FullName}
	}
	return options, nil
}

// -- Clients --

func (a *API) ListClients(ctx context.Context, search string) ([]Client, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search_substr", search)
	}
	var clients []Client
	if err := a.do(ctx, http.MethodGet, "/clients/", q, nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (a *API) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	var client Client
	if err := a.do(ctx, http.MethodGet, "/clients/"+id.String(), nil, nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (a *API) CreateClient(ctx context.Context, body ClientCreate) (*Client, error) {
	var client Client
	if err := a.do(ctx, http.MethodPost, "/clients/", nil, body, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (a *API) UpdateClient(ctx context.Context, id uuid.UUID, body ClientUpdate) (*Client, error) {
	var client Client
	if err := a.do(ctx, http.MethodPatch, "/clients/"+id.String(), nil, body, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// ClientOptions fetches the lightweight (id, name) list for selection controls.
func (a *API) ClientOptions(ctx context.Context) ([]Option, error) {
	clients, err := a.ListClients(ctx, "")
	if err != nil {
		return nil, err
	}
	options := make([]Option, len(clients))
	for i, c := range clients {
		options[i] = Option{Value: c.ID, Label: c.FullName}
	}
	return options, nil
}

// -- Visits --

// VisitQuery holds the listing filters. Zero values are omitted from the
// query string.
type VisitQuery struct {
	Limit     int
	Offset    int
	ClientID  uuid.UUID
	DoctorID  uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Cabinet   string
	Procedure string
	Status    VisitStatus
}

// Values serializes the query for GET /visits/.
func (q VisitQuery) Values() url.Values {
	values := url.Values{}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.ClientID != uuid.Nil {
		values.Set("client_id", q.ClientID.String())
	}
	if q.DoctorID != uuid.Nil {
		values.Set("doctor_id", q.DoctorID.String())
	}
	if q.StartDate != nil {
		values.Set("start_date", q.StartDate.Format(time.RFC3339))
	}
	if q.EndDate != nil {
		values.Set("end_date", q.EndDate.Format(time.RFC3339))
	}
	if q.Cabinet != "" {
		values.Set("cabinet", q.Cabinet)
	}
	if q.Procedure != "" {
		values.Set("procedure", q.Procedure)
	}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	return values
}

func (a *API) ListVisits(ctx context.Context, q VisitQuery) (*VisitPage, error) {
	var page VisitPage
	if err := a.do(ctx, http.MethodGet, "/visits/", q.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (a *API) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	var visit Visit
	if err := a.do(ctx, http.MethodGet, "/visits/"+id.String(), nil, nil, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

func (a *API) CreateVisit(ctx context.Context, body VisitCreate) (*Visit, error) {
	var visit Visit
	if err := a.do(ctx, http.MethodPost, "/visits/", nil, body, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

func (a *API) UpdateVisit(ctx context.Context, id uuid.UUID, patch *VisitPatch) (*Visit, error) {
	var visit Visit
	if err := a.do(ctx, http.MethodPatch, "/visits/"+id.String(), nil, patch, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

func (a *API) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	return a.do(ctx, http.MethodDelete, "/visits/"+id.String(), nil, nil, nil)
}
