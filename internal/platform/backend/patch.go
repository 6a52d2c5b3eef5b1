package backend

import (
	"encoding/json"
	"time"
)

// VisitPatch accumulates fields for a PATCH /visits/{id} request. The wire
// contract is three-state per field: omitted means unchanged, an explicit
// null clears, a value replaces. Only fields touched through the setters are
// serialized.
type VisitPatch struct {
	fields map[string]any
}

func NewVisitPatch() *VisitPatch {
	return &VisitPatch{fields: make(map[string]any)}
}

// Empty reports whether no field has been touched.
func (p *VisitPatch) Empty() bool {
	return len(p.fields) == 0
}

func (p *VisitPatch) SetClientID(id string) *VisitPatch  { p.fields["client_id"] = id; return p }
func (p *VisitPatch) SetDoctorID(id string) *VisitPatch  { p.fields["doctor_id"] = id; return p }
func (p *VisitPatch) SetStatus(s VisitStatus) *VisitPatch { p.fields["status"] = s; return p }

func (p *VisitPatch) SetStartDate(t time.Time) *VisitPatch {
	p.fields["start_date"] = t.Format(time.RFC3339)
	return p
}

func (p *VisitPatch) SetEndDate(t time.Time) *VisitPatch {
	p.fields["end_date"] = t.Format(time.RFC3339)
	return p
}
func (p *VisitPatch) ClearEndDate() *VisitPatch { p.fields["end_date"] = nil; return p }

func (p *VisitPatch) SetProcedure(v string) *VisitPatch { p.fields["procedure"] = v; return p }
func (p *VisitPatch) ClearProcedure() *VisitPatch       { p.fields["procedure"] = nil; return p }

func (p *VisitPatch) SetCabinet(v string) *VisitPatch { p.fields["cabinet"] = v; return p }
func (p *VisitPatch) ClearCabinet() *VisitPatch       { p.fields["cabinet"] = nil; return p }

func (p *VisitPatch) SetCost(v float64) *VisitPatch { p.fields["cost"] = v; return p }
func (p *VisitPatch) ClearCost() *VisitPatch        { p.fields["cost"] = nil; return p }

// MarshalJSON emits only the touched fields.
func (p *VisitPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fields)
}
