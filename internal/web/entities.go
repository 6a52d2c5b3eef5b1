package web

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/manager"
	"github.com/clinicdesk/console/internal/phone"
	"github.com/clinicdesk/console/internal/platform/backend"
)

// ResourceDoctors and ResourceClients name the entity cache families.
const (
	ResourceDoctors = "doctors"
	ResourceClients = "clients"
)

// DoctorConfig wires the doctor screen into the generic entity manager.
func DoctorConfig(api Backend) manager.Config[backend.Doctor, backend.DoctorCreate, backend.DoctorUpdate] {
	return manager.Config[backend.Doctor, backend.DoctorCreate, backend.DoctorUpdate]{
		Resource: ResourceDoctors,
		Fields: []manager.Field{
			{Name: "full_name", Label: "ФИО", Required: true},
			{Name: "speciality", Label: "Специальность", Required: true},
		},
		Columns: []manager.Column[backend.Doctor]{
			{Key: "full_name", Title: "ФИО", Cell: func(d backend.Doctor) string { return d.FullName }},
			{Key: "speciality", Title: "Специальность", Cell: func(d backend.Doctor) string { return d.Speciality }},
		},
		List:   api.ListDoctors,
		Create: api.CreateDoctor,
		Update: api.UpdateDoctor,
		ToForm: func(d backend.Doctor) manager.Form {
			return manager.Form{"full_name": d.FullName, "speciality": d.Speciality}
		},
		ToCreate: func(f manager.Form) (backend.DoctorCreate, error) {
			return backend.DoctorCreate{
				FullName:   f.Get("full_name"),
				Speciality: f.Get("speciality"),
			}, nil
		},
		ToUpdate: func(f manager.Form) (backend.DoctorUpdate, error) {
			name := f.Get("full_name")
			speciality := f.Get("speciality")
			return backend.DoctorUpdate{FullName: &name, Speciality: &speciality}, nil
		},
	}
}

// ClientConfig wires the client screen. Phone numbers are normalized to the
// canonical +7 form before they leave the console.
func ClientConfig(api Backend) manager.Config[backend.Client, backend.ClientCreate, backend.ClientUpdate] {
	return manager.Config[backend.Client, backend.ClientCreate, backend.ClientUpdate]{
		Resource: ResourceClients,
		Fields: []manager.Field{
			{Name: "full_name", Label: "ФИО", Required: true},
			{Name: "phone_number", Label: "Телефон", Required: true, Validate: validatePhone},
			{Name: "date_of_birth", Label: "Дата рождения", Required: true, Validate: validateDate},
		},
		Columns: []manager.Column[backend.Client]{
			{Key: "full_name", Title: "ФИО", Cell: func(c backend.Client) string { return c.FullName }},
			{Key: "phone_number", Title: "Телефон", Cell: func(c backend.Client) string { return phone.Format(c.PhoneNumber) }},
			{Key: "date_of_birth", Title: "Дата рождения", Cell: func(c backend.Client) string { return birthDate(c.DateOfBirth) }},
		},
		List:   api.ListClients,
		Create: api.CreateClient,
		Update: api.UpdateClient,
		ToForm: func(c backend.Client) manager.Form {
			return manager.Form{
				"full_name":     c.FullName,
				"phone_number":  phone.FormatInput(c.PhoneNumber),
				"date_of_birth": c.DateOfBirth,
			}
		},
		ToCreate: func(f manager.Form) (backend.ClientCreate, error) {
			return backend.ClientCreate{
				FullName:    f.Get("full_name"),
				PhoneNumber: phone.Normalize(f.Get("phone_number")),
				DateOfBirth: f.Get("date_of_birth"),
			}, nil
		},
		ToUpdate: func(f manager.Form) (backend.ClientUpdate, error) {
			name := f.Get("full_name")
			phoneNumber := phone.Normalize(f.Get("phone_number"))
			dob := f.Get("date_of_birth")
			return backend.ClientUpdate{
				FullName:    &name,
				PhoneNumber: &phoneNumber,
				DateOfBirth: &dob,
			}, nil
		},
	}
}

func validatePhone(value string) error {
	normalized := phone.Normalize(value)
	if len(normalized) != 12 {
		return fmt.Errorf("неполный номер телефона")
	}
	return nil
}

func validateDate(value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("ожидается дата в формате ГГГГ-ММ-ДД")
	}
	return nil
}

func birthDate(dateOfBirth string) string {
	born, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		return dateOfBirth
	}
	return born.Format("02.01.2006")
}

// Backend is the full remote API surface the console consumes.
type Backend interface {
	ListDoctors(ctx context.Context, search string) ([]backend.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*backend.Doctor, error)
	CreateDoctor(ctx context.Context, body backend.DoctorCreate) (*backend.Doctor, error)
	UpdateDoctor(ctx context.Context, id uuid.UUID, body backend.DoctorUpdate) (*backend.Doctor, error)
	DoctorOptions(ctx context.Context) ([]backend.Option, error)

	ListClients(ctx context.Context, search string) ([]backend.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*backend.Client, error)
	CreateClient(ctx context.Context, body backend.ClientCreate) (*backend.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, body backend.ClientUpdate) (*backend.Client, error)
	ClientOptions(ctx context.Context) ([]backend.Option, error)

	ListVisits(ctx context.Context, q backend.VisitQuery) (*backend.VisitPage, error)
	GetVisit(ctx context.Context, id uuid.UUID) (*backend.Visit, error)
	CreateVisit(ctx context.Context, body backend.VisitCreate) (*backend.Visit, error)
	UpdateVisit(ctx context.Context, id uuid.UUID, patch *backend.VisitPatch) (*backend.Visit, error)
	DeleteVisit(ctx context.Context, id uuid.UUID) error
}
