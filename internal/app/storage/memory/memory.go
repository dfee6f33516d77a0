// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/domain/license"
	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
)

// Store is the in-memory document store.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	arrival    int64
	submodules map[string]form.Submodule
	fields     map[string]form.Field
	fieldOrder map[string]int64
	entries    map[string]entry.Entry
	entryOrder map[string]int64
	roles      map[string]role.Role
	users      map[string]user.User
	licenses   map[string]license.License
	counters   map[string]int64
}

var _ storage.SubmoduleStore = (*Store)(nil)
var _ storage.FieldStore = (*Store)(nil)
var _ storage.EntryStore = (*Store)(nil)
var _ storage.RoleStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.LicenseStore = (*Store)(nil)
var _ storage.CounterStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		submodules: make(map[string]form.Submodule),
		fields:     make(map[string]form.Field),
		fieldOrder: make(map[string]int64),
		entries:    make(map[string]entry.Entry),
		entryOrder: make(map[string]int64),
		roles:      make(map[string]role.Role),
		users:      make(map[string]user.User),
		licenses:   make(map[string]license.License),
		counters:   make(map[string]int64),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func (s *Store) nextArrivalLocked() int64 {
	s.arrival++
	return s.arrival
}

// SubmoduleStore implementation ----------------------------------------------

func (s *Store) CreateSubmodule(_ context.Context, sub form.Submodule) (form.Submodule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = s.nextIDLocked()
	} else if _, exists := s.submodules[sub.ID]; exists {
		return form.Submodule{}, apperrors.Conflict(fmt.Sprintf("submodule %s already exists", sub.ID))
	}
	sub.CreatedAt = time.Now().UTC()
	s.submodules[sub.ID] = sub
	return sub, nil
}

func (s *Store) GetSubmodule(_ context.Context, id string) (form.Submodule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submodules[id]
	if !ok {
		return form.Submodule{}, apperrors.NotFound("submodule", id)
	}
	return sub, nil
}

func (s *Store) ListSubmodules(_ context.Context) ([]form.Submodule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]form.Submodule, 0, len(s.submodules))
	for _, sub := range s.submodules {
		result = append(result, sub)
	}
	return result, nil
}

func (s *Store) DeleteSubmodule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submodules[id]; !ok {
		return apperrors.NotFound("submodule", id)
	}
	delete(s.submodules, id)
	return nil
}

// FieldStore implementation ---------------------------------------------------

func (s *Store) CreateField(_ context.Context, f form.Field) (form.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = s.nextIDLocked()
	} else if _, exists := s.fields[f.ID]; exists {
		return form.Field{}, apperrors.Conflict(fmt.Sprintf("field %s already exists", f.ID))
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	f.Options = append([]string(nil), f.Options...)

	s.fields[f.ID] = f
	s.fieldOrder[f.ID] = s.nextArrivalLocked()
	return cloneField(f), nil
}

func (s *Store) UpdateField(_ context.Context, f form.Field) (form.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.fields[f.ID]
	if !ok {
		return form.Field{}, apperrors.NotFound("field", f.ID)
	}
	f.CreatedAt = original.CreatedAt
	f.UpdatedAt = time.Now().UTC()
	f.Options = append([]string(nil), f.Options...)

	s.fields[f.ID] = f
	return cloneField(f), nil
}

func (s *Store) GetField(_ context.Context, id string) (form.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fields[id]
	if !ok {
		return form.Field{}, apperrors.NotFound("field", id)
	}
	return cloneField(f), nil
}

func (s *Store) ListFields(_ context.Context, submoduleID string, section form.Section) ([]form.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]form.Field, 0)
	for _, f := range s.fields {
		if f.SubmoduleID == submoduleID && f.Section == section {
			result = append(result, cloneField(f))
		}
	}
	// Stable arrival order; position ordering is the registry's concern.
	sort.SliceStable(result, func(i, j int) bool {
		return s.fieldOrder[result[i].ID] < s.fieldOrder[result[j].ID]
	})
	return result, nil
}

func (s *Store) DeleteField(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[id]; !ok {
		return apperrors.NotFound("field", id)
	}
	delete(s.fields, id)
	delete(s.fieldOrder, id)
	return nil
}

// EntryStore implementation ---------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, e entry.Entry) (entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	} else if _, exists := s.entries[e.ID]; exists {
		return entry.Entry{}, apperrors.Conflict(fmt.Sprintf("entry %s already exists", e.ID))
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	s.entries[e.ID] = e.Clone()
	s.entryOrder[e.ID] = s.nextArrivalLocked()
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e entry.Entry) (entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.entries[e.ID]
	if !ok {
		return entry.Entry{}, apperrors.NotFound("entry", e.ID)
	}
	e.CreatedAt = original.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	s.entries[e.ID] = e.Clone()
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return entry.Entry{}, apperrors.NotFound("entry", id)
	}
	return e.Clone(), nil
}

func (s *Store) ListEntries(_ context.Context, submodule string) ([]entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entry.Entry, 0)
	for _, e := range s.entries {
		if submodule == "" || e.Submodule == submodule {
			result = append(result, e.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return s.entryOrder[result[i].ID] < s.entryOrder[result[j].ID]
	})
	return result, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return apperrors.NotFound("entry", id)
	}
	delete(s.entries, id)
	delete(s.entryOrder, id)
	return nil
}

// RoleStore implementation ----------------------------------------------------

func (s *Store) CreateRole(_ context.Context, r role.Role) (role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	} else if _, exists := s.roles[r.ID]; exists {
		return role.Role{}, apperrors.Conflict(fmt.Sprintf("role %s already exists", r.ID))
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Permissions = r.Permissions.Clone()

	s.roles[r.ID] = r
	return cloneRole(r), nil
}

func (s *Store) UpdateRole(_ context.Context, r role.Role) (role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.roles[r.ID]
	if !ok {
		return role.Role{}, apperrors.NotFound("role", r.ID)
	}
	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	r.Permissions = r.Permissions.Clone()

	s.roles[r.ID] = r
	return cloneRole(r), nil
}

func (s *Store) GetRole(_ context.Context, id string) (role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return role.Role{}, apperrors.NotFound("role", id)
	}
	return cloneRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if strings.EqualFold(r.Name, name) {
			return cloneRole(r), nil
		}
	}
	return role.Role{}, apperrors.NotFound("role", name)
}

func (s *Store) ListRoles(_ context.Context) ([]role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		result = append(result, cloneRole(r))
	}
	return result, nil
}

func (s *Store) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return apperrors.NotFound("role", id)
	}
	delete(s.roles, id)
	return nil
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, apperrors.Conflict(fmt.Sprintf("user %s already exists", u.ID))
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Roles = append([]string(nil), u.Roles...)

	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, apperrors.NotFound("user", u.ID)
	}
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.Roles = append([]string(nil), u.Roles...)

	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, apperrors.NotFound("user", id)
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return user.User{}, apperrors.NotFound("user", email)
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, cloneUser(u))
	}
	return result, nil
}

// LicenseStore implementation -------------------------------------------------

func (s *Store) CreateLicense(_ context.Context, l license.License) (license.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.LicenseKey == "" {
		return license.License{}, apperrors.Validation("license key is required")
	}
	if _, exists := s.licenses[l.LicenseKey]; exists {
		return license.License{}, apperrors.Conflict(fmt.Sprintf("license %s already exists", l.LicenseKey))
	}
	l.CreatedAt = time.Now().UTC()
	s.licenses[l.LicenseKey] = l
	return l, nil
}

func (s *Store) UpdateLicense(_ context.Context, l license.License) (license.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.licenses[l.LicenseKey]
	if !ok {
		return license.License{}, apperrors.NotFound("license", l.LicenseKey)
	}
	l.CreatedAt = original.CreatedAt
	s.licenses[l.LicenseKey] = l
	return l, nil
}

func (s *Store) GetLicense(_ context.Context, key string) (license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.licenses[key]
	if !ok {
		return license.License{}, apperrors.NotFound("license", key)
	}
	return l, nil
}

func (s *Store) ListLicenses(_ context.Context) ([]license.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]license.License, 0, len(s.licenses))
	for _, l := range s.licenses {
		result = append(result, l)
	}
	return result, nil
}

// CounterStore implementation -------------------------------------------------

func (s *Store) GetCounter(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key], nil
}

func (s *Store) CompareAndSwapCounter(_ context.Context, key string, old, next int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counters[key] != old {
		return apperrors.Conflict(fmt.Sprintf("counter %s moved past %d", key, old))
	}
	s.counters[key] = next
	return nil
}

// helpers ----------------------------------------------------------------------

func cloneField(f form.Field) form.Field {
	f.Options = append([]string(nil), f.Options...)
	return f
}

func cloneRole(r role.Role) role.Role {
	r.Permissions = r.Permissions.Clone()
	return r
}

func cloneUser(u user.User) user.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}
