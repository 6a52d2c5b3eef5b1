package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VisitStatus is the canonical three-value status enumeration.
type VisitStatus string

const (
	StatusUnconfirmed VisitStatus = "UNCONFIRMED"
	StatusConfirmed   VisitStatus = "CONFIRMED"
	StatusPaid        VisitStatus = "PAID"
)

// Statuses lists the canonical values in display order.
func Statuses() []VisitStatus {
	return []VisitStatus{StatusUnconfirmed, StatusConfirmed, StatusPaid}
}

// Valid reports whether s is one of the canonical values.
func (s VisitStatus) Valid() bool {
	switch s {
	case StatusUnconfirmed, StatusConfirmed, StatusPaid:
		return true
	}
	return false
}

// CanonicalStatus maps any observed status value onto the canonical set.
// The superseded five-value enumeration folds into it: IN_PROGRESS was an
// active confirmed visit, COMPLETED a visit awaiting nothing but payment
// records, already folded into PAID by the upstream migration.
func CanonicalStatus(raw string) (VisitStatus, error) {
	switch raw {
	case "UNCONFIRMED":
		return StatusUnconfirmed, nil
	case "CONFIRMED", "IN_PROGRESS":
		return StatusConfirmed, nil
	case "PAID", "COMPLETED":
		return StatusPaid, nil
	}
	return "", fmt.Errorf("unknown visit status %q", raw)
}

// UnmarshalJSON folds superseded status values into the canonical set.
func (s *VisitStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	canonical, err := CanonicalStatus(raw)
	if err != nil {
		return err
	}
	*s = canonical
	return nil
}

// Doctor is a practitioner record as served by the remote API.
type Doctor struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Speciality string    `json:"speciality"`
}

type DoctorCreate struct {
	FullName   string `json:"full_name"`
	Speciality string `json:"speciality"`
}

type DoctorUpdate struct {
	FullName   *string `json:"full_name,omitempty"`
	Speciality *string `json:"speciality,omitempty"`
}

// Client is a patient record. Phone numbers travel in the canonical
// +7XXXXXXXXXX form and dates of birth as YYYY-MM-DD.
type Client struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	DateOfBirth string    `json:"date_of_birth"`
}

type ClientCreate struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
}

type ClientUpdate struct {
	FullName    *string `json:"full_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

// Visit is a scheduled appointment linking one client and one doctor.
type Visit struct {
	ID         uuid.UUID   `json:"id"`
	ClientID   uuid.UUID   `json:"client_id"`
	DoctorID   uuid.UUID   `json:"doctor_id"`
	StartDate  time.Time   `json:"start_date"`
	EndDate    *time.Time  `json:"end_date"`
	Procedure  *string     `json:"procedure"`
	Cabinet    *string     `json:"cabinet"`
	Cost       *float64    `json:"cost"`
	Status     VisitStatus `json:"status"`
	ClientName string      `json:"client_name"`
	DoctorName string      `json:"doctor_name"`
}

// End returns the visit's end, falling back to its start when the remote
// record carries none.
func (v *Visit) End() time.Time {
	if v.EndDate != nil {
		return *v.EndDate
	}
	return v.StartDate
}

type VisitCreate struct {
	ClientID  uuid.UUID  `json:"client_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Procedure *string    `json:"procedure"`
	Cabinet   *string    `json:"cabinet"`
	Cost      *float64   `json:"cost"`
}

// VisitPage is the paginated listing envelope returned by GET /visits/.
type VisitPage struct {
	Total     int      `json:"total"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
	Items     []Visit  `json:"items"`
	TotalCost *float64 `json:"total_cost,omitempty"`
}

// Option is a lightweight (id, display-name) pair for selection controls.
type Option struct {
	Value uuid.UUID `json:"value"`
	Label string    `json:"label"`
}
