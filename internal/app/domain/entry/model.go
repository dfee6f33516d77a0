// Package entry holds the transaction entry model and its lifecycle states.
package entry

import (
	"time"

	"github.com/ticware/opscore/internal/app/domain/value"
)

// Status is an entry's lifecycle state. P is a legacy value accepted on read
// only; D and L are reachable only through direct store mutation.
type Status string

const (
	StatusDraft    Status = "DR"
	StatusApproved Status = "A"
	StatusDenied   Status = "D"
	StatusLocked   Status = "L"
	StatusPending  Status = "P"
)

// Known reports whether s is a recognized status value.
func (s Status) Known() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusDenied, StatusLocked, StatusPending:
		return true
	}
	return false
}

// Entry is one business record instance. CustomFields holds header values
// keyed by field key; LineItems holds one map per detail row.
type Entry struct {
	ID              string                   `json:"id"`
	Submodule       string                   `json:"submodule"`
	Status          Status                   `json:"status"`
	User            string                   `json:"user"`
	DocNo           string                   `json:"docNo,omitempty"`
	DocNoSequential int64                    `json:"docNo_sequential,omitempty"`
	CustomFields    map[string]value.Value   `json:"customFields"`
	LineItems       []map[string]value.Value `json:"lineItems"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.CustomFields = cloneFields(e.CustomFields)
	if e.LineItems != nil {
		out.LineItems = make([]map[string]value.Value, len(e.LineItems))
		for i, item := range e.LineItems {
			out.LineItems[i] = cloneFields(item)
		}
	}
	return out
}

// Duplicate returns a brand-new draft lineage decoupled from e: the copy has
// no ID, no document number, and status forced back to draft.
func (e Entry) Duplicate() Entry {
	out := e.Clone()
	out.ID = ""
	out.DocNo = ""
	out.DocNoSequential = 0
	out.Status = StatusDraft
	out.CreatedAt = time.Time{}
	out.UpdatedAt = time.Time{}
	return out
}

func cloneFields(fields map[string]value.Value) map[string]value.Value {
	if fields == nil {
		return nil
	}
	out := make(map[string]value.Value, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
