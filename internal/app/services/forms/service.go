// Package forms implements the schema registry: submodule masters and the
// dynamic field definitions per (submodule, section) partition. The registry
// is a thin typed view over the store; no in-memory cache is authoritative.
package forms

import (
	"context"
	"sort"
	"strings"

	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
	"github.com/ticware/opscore/pkg/slug"
)

// Service manages submodules and their form field definitions.
type Service struct {
	submodules storage.SubmoduleStore
	fields     storage.FieldStore
	log        *logger.Logger
}

// New constructs a schema registry service.
func New(submodules storage.SubmoduleStore, fields storage.FieldStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("forms")
	}
	return &Service{submodules: submodules, fields: fields, log: log}
}

// CreateSubmodule registers a business transaction category under a main
// module. Nav position is assigned after the existing submodules.
func (s *Service) CreateSubmodule(ctx context.Context, name, mainModule string) (form.Submodule, error) {
	name = strings.TrimSpace(name)
	mainModule = strings.TrimSpace(mainModule)
	if name == "" {
		return form.Submodule{}, apperrors.Validation("submodule name is required")
	}
	if mainModule == "" {
		return form.Submodule{}, apperrors.Validation("main module is required")
	}

	existing, err := s.submodules.ListSubmodules(ctx)
	if err != nil {
		return form.Submodule{}, err
	}
	position := 0
	for _, sub := range existing {
		if strings.EqualFold(sub.Name, name) {
			return form.Submodule{}, apperrors.Validation("submodule %q already exists", name)
		}
		if sub.Position > position {
			position = sub.Position
		}
	}

	created, err := s.submodules.CreateSubmodule(ctx, form.Submodule{
		Name:       name,
		MainModule: mainModule,
		Position:   position + 1,
	})
	if err != nil {
		return form.Submodule{}, err
	}
	s.log.WithField("submodule_id", created.ID).
		WithField("main_module", mainModule).
		Info("submodule created")
	return created, nil
}

// GetSubmodule fetches one submodule.
func (s *Service) GetSubmodule(ctx context.Context, id string) (form.Submodule, error) {
	return s.submodules.GetSubmodule(ctx, id)
}

// GetSubmoduleByName finds a submodule by its display name, matching the way
// names are bridged through slugs elsewhere.
func (s *Service) GetSubmoduleByName(ctx context.Context, name string) (form.Submodule, error) {
	subs, err := s.submodules.ListSubmodules(ctx)
	if err != nil {
		return form.Submodule{}, err
	}
	want := slug.Make(name)
	for _, sub := range subs {
		if slug.Make(sub.Name) == want {
			return sub, nil
		}
	}
	return form.Submodule{}, apperrors.NotFound("submodule", name)
}

// ListSubmodules returns all submodules in nav order.
func (s *Service) ListSubmodules(ctx context.Context) ([]form.Submodule, error) {
	subs, err := s.submodules.ListSubmodules(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Position < subs[j].Position })
	return subs, nil
}

// DeleteSubmodule removes a submodule master.
func (s *Service) DeleteSubmodule(ctx context.Context, id string) error {
	return s.submodules.DeleteSubmodule(ctx, id)
}

// ListFields returns a partition's fields ordered by position ascending.
// Missing or duplicate positions fall back to stable order of arrival; the
// call never fails on malformed position data.
func (s *Service) ListFields(ctx context.Context, submoduleID string, section form.Section) ([]form.Field, error) {
	fields, err := s.fields.ListFields(ctx, submoduleID, section)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Position < fields[j].Position })
	return fields, nil
}

// AddField appends a field definition to a partition. The position is one
// past the partition's current maximum. An empty key is derived from the
// label before persisting; an empty label is rejected before any store write.
func (s *Service) AddField(ctx context.Context, submoduleID string, section form.Section, draft form.Field) (form.Field, error) {
	if strings.TrimSpace(submoduleID) == "" {
		return form.Field{}, apperrors.Validation("submodule id is required")
	}
	if !section.Valid() {
		return form.Field{}, apperrors.Validation("unknown section %q", section)
	}
	draft.Label = strings.TrimSpace(draft.Label)
	if draft.Label == "" {
		return form.Field{}, apperrors.Validation("field label is required")
	}
	draft.Key = strings.TrimSpace(draft.Key)
	if draft.Key == "" {
		draft.Key = slug.Make(draft.Label)
	}
	if draft.Key == "" {
		return form.Field{}, apperrors.Validation("field key could not be derived from label %q", draft.Label)
	}
	if draft.Type == "" {
		draft.Type = form.TypeText
	}
	if !draft.Type.Valid() {
		return form.Field{}, apperrors.Validation("unknown field type %q", draft.Type)
	}

	existing, err := s.fields.ListFields(ctx, submoduleID, section)
	if err != nil {
		return form.Field{}, err
	}
	position := 0
	for _, f := range existing {
		if f.Key == draft.Key {
			return form.Field{}, apperrors.Validation("field key %q already exists in this section", draft.Key)
		}
		if f.Position > position {
			position = f.Position
		}
	}

	draft.SubmoduleID = submoduleID
	draft.Section = section
	draft.Position = position + 1

	created, err := s.fields.CreateField(ctx, draft)
	if err != nil {
		return form.Field{}, err
	}
	s.log.WithField("field_id", created.ID).
		WithField("submodule_id", submoduleID).
		WithField("key", created.Key).
		Info("form field added")
	return created, nil
}

// UpdateField applies a partial update. When the patch sets a label and the
// stored key is empty, the key is re-derived from the new label.
func (s *Service) UpdateField(ctx context.Context, fieldID string, patch form.FieldPatch) (form.Field, error) {
	current, err := s.fields.GetField(ctx, fieldID)
	if err != nil {
		return form.Field{}, err
	}

	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			return form.Field{}, apperrors.Validation("field label cannot be empty")
		}
		if current.Key == "" {
			current.Key = slug.Make(label)
		}
		current.Label = label
	}
	if patch.Key != nil {
		key := strings.TrimSpace(*patch.Key)
		if key == "" {
			return form.Field{}, apperrors.Validation("field key cannot be empty")
		}
		current.Key = key
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return form.Field{}, apperrors.Validation("unknown field type %q", *patch.Type)
		}
		current.Type = *patch.Type
	}
	if patch.Position != nil {
		current.Position = *patch.Position
	}
	if patch.Required != nil {
		current.Required = *patch.Required
	}
	if patch.Placeholder != nil {
		current.Placeholder = strings.TrimSpace(*patch.Placeholder)
	}
	if patch.Options != nil {
		current.Options = append([]string(nil), (*patch.Options)...)
	}
	if current.Key == "" {
		return form.Field{}, apperrors.Validation("field key cannot be empty")
	}

	updated, err := s.fields.UpdateField(ctx, current)
	if err != nil {
		return form.Field{}, err
	}
	s.log.WithField("field_id", fieldID).Info("form field updated")
	return updated, nil
}

// DeleteField removes a field. Remaining positions are not renumbered; gaps
// are tolerated by ListFields.
func (s *Service) DeleteField(ctx context.Context, fieldID string) error {
	if err := s.fields.DeleteField(ctx, fieldID); err != nil {
		return err
	}
	s.log.WithField("field_id", fieldID).Info("form field deleted")
	return nil
}
