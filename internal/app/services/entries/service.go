// Package entries implements the transaction entry lifecycle: drafts,
// submission for approval with document numbering, duplication, and the
// autosave session. Raw field values are validated and coerced against the
// schema registry at this boundary before anything is persisted.
package entries

import (
	"context"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/domain/value"
	"github.com/ticware/opscore/internal/app/metrics"
	"github.com/ticware/opscore/internal/app/services/docnum"
	"github.com/ticware/opscore/internal/app/services/forms"
	"github.com/ticware/opscore/internal/app/services/permissions"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
)

// Service manages transaction entries for all submodules.
type Service struct {
	store     storage.EntryStore
	registry  *forms.Service
	allocator *docnum.Allocator
	log       *logger.Logger
}

// New constructs an entry service.
func New(store storage.EntryStore, registry *forms.Service, allocator *docnum.Allocator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("entries")
	}
	return &Service{store: store, registry: registry, allocator: allocator, log: log}
}

// SaveDraft creates or updates an entry without touching its document number.
// New entries start as drafts; for existing entries the stored status and
// numbers are preserved regardless of what the caller sends, so a save can
// never escalate state.
func (s *Service) SaveDraft(ctx context.Context, auth permissions.Authorizer, sub form.Submodule, e entry.Entry) (entry.Entry, error) {
	if !auth.CanWrite(sub.MainModule, sub.Name) {
		return entry.Entry{}, apperrors.Forbidden("write access to " + sub.Name + " denied")
	}

	e.Submodule = sub.Name
	if e.User == "" {
		e.User = auth.Principal.DisplayName
	}

	if err := s.coerceAgainstSchema(ctx, sub.ID, &e, false); err != nil {
		return entry.Entry{}, err
	}

	if e.ID == "" {
		e.Status = entry.StatusDraft
		e.DocNo = ""
		e.DocNoSequential = 0
		return s.store.CreateEntry(ctx, e)
	}

	existing, err := s.store.GetEntry(ctx, e.ID)
	if err != nil {
		return entry.Entry{}, err
	}
	e.Status = existing.Status
	e.DocNo = existing.DocNo
	e.DocNoSequential = existing.DocNoSequential
	e.User = existing.User
	return s.store.UpdateEntry(ctx, e)
}

// Submit transitions a draft to approved. The allocator runs exactly once:
// an entry that already carries a document number keeps it. Status and
// number are persisted in a single write, so a persistence failure leaves
// the entry in its prior state.
func (s *Service) Submit(ctx context.Context, auth permissions.Authorizer, sub form.Submodule, id string) (entry.Entry, error) {
	if !auth.CanWrite(sub.MainModule, sub.Name) {
		return entry.Entry{}, apperrors.Forbidden("write access to " + sub.Name + " denied")
	}

	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return entry.Entry{}, err
	}
	if e.Status == entry.StatusApproved && e.DocNo != "" {
		return e, nil
	}

	if err := s.coerceAgainstSchema(ctx, sub.ID, &e, true); err != nil {
		return entry.Entry{}, err
	}

	if e.DocNo == "" {
		allocation, err := s.allocator.Allocate(ctx, sub.ID)
		if err != nil {
			metrics.RecordSubmission(sub.Name, false)
			return entry.Entry{}, err
		}
		e.DocNo = allocation.DocNo
		e.DocNoSequential = allocation.Sequential
	}
	e.Status = entry.StatusApproved

	updated, err := s.store.UpdateEntry(ctx, e)
	if err != nil {
		metrics.RecordSubmission(sub.Name, false)
		return entry.Entry{}, err
	}
	metrics.RecordSubmission(sub.Name, true)
	s.log.WithField("entry_id", updated.ID).
		WithField("submodule", sub.Name).
		WithField("doc_no", updated.DocNo).
		Info("entry approved")
	return updated, nil
}

// Duplicate loads an entry and creates a new draft lineage from it: no ID,
// no document number, status back to draft, header and detail values copied.
func (s *Service) Duplicate(ctx context.Context, auth permissions.Authorizer, sub form.Submodule, id string) (entry.Entry, error) {
	if !auth.CanWrite(sub.MainModule, sub.Name) {
		return entry.Entry{}, apperrors.Forbidden("write access to " + sub.Name + " denied")
	}

	source, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return entry.Entry{}, err
	}
	draft := source.Duplicate()
	draft.User = auth.Principal.DisplayName

	created, err := s.store.CreateEntry(ctx, draft)
	if err != nil {
		return entry.Entry{}, err
	}
	s.log.WithField("entry_id", created.ID).
		WithField("source_id", id).
		Info("entry duplicated")
	return created, nil
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, auth permissions.Authorizer, sub form.Submodule, id string) (entry.Entry, error) {
	if !auth.CanRead(sub.MainModule, sub.Name) {
		return entry.Entry{}, apperrors.Forbidden("read access to " + sub.Name + " denied")
	}
	return s.store.GetEntry(ctx, id)
}

// List returns a submodule's entries in arrival order.
func (s *Service) List(ctx context.Context, auth permissions.Authorizer, sub form.Submodule) ([]entry.Entry, error) {
	if !auth.CanRead(sub.MainModule, sub.Name) {
		return nil, apperrors.Forbidden("read access to " + sub.Name + " denied")
	}
	return s.store.ListEntries(ctx, sub.Name)
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, auth permissions.Authorizer, sub form.Submodule, id string) error {
	if !auth.CanDelete(sub.MainModule, sub.Name) {
		return apperrors.Forbidden("delete access to " + sub.Name + " denied")
	}
	return s.store.DeleteEntry(ctx, id)
}

// coerceAgainstSchema re-types every known field value in place and, when
// enforceRequired is set, rejects absent required header fields. Values for
// keys the schema does not know are passed through untouched; deleting a
// field definition must not destroy historical data.
func (s *Service) coerceAgainstSchema(ctx context.Context, submoduleID string, e *entry.Entry, enforceRequired bool) error {
	headerFields, err := s.registry.ListFields(ctx, submoduleID, form.SectionHeader)
	if err != nil {
		return err
	}
	detailFields, err := s.registry.ListFields(ctx, submoduleID, form.SectionDetail)
	if err != nil {
		return err
	}

	if e.CustomFields == nil && len(headerFields) > 0 {
		e.CustomFields = make(map[string]value.Value)
	}
	if err := coerceRow(headerFields, e.CustomFields, enforceRequired); err != nil {
		return err
	}
	for i := range e.LineItems {
		if e.LineItems[i] == nil {
			e.LineItems[i] = make(map[string]value.Value)
		}
		if err := coerceRow(detailFields, e.LineItems[i], enforceRequired); err != nil {
			return err
		}
	}
	return nil
}

func coerceRow(fields []form.Field, row map[string]value.Value, enforceRequired bool) error {
	for _, f := range fields {
		raw, present := row[f.Key]
		if !present || raw.Absent() {
			if f.Type == form.TypeBoolean {
				row[f.Key] = value.Bool(false)
				continue
			}
			if enforceRequired && f.Required {
				return apperrors.Validation("field %q is required", f.Label)
			}
			continue
		}
		coerced, ok := value.Coerce(f, raw)
		if !ok {
			if enforceRequired && f.Required {
				return apperrors.Validation("field %q has an invalid %s value", f.Label, f.Type)
			}
			delete(row, f.Key)
			continue
		}
		row[f.Key] = coerced
	}
	return nil
}
