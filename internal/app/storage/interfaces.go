package storage

import (
	"context"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/domain/license"
	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
)

// SubmoduleStore persists business submodules.
type SubmoduleStore interface {
	CreateSubmodule(ctx context.Context, sub form.Submodule) (form.Submodule, error)
	GetSubmodule(ctx context.Context, id string) (form.Submodule, error)
	ListSubmodules(ctx context.Context) ([]form.Submodule, error)
	DeleteSubmodule(ctx context.Context, id string) error
}

// FieldStore persists dynamic form field definitions. ListFields returns
// fields of one (submodule, section) partition in stable arrival order; the
// schema registry applies position ordering on top.
type FieldStore interface {
	CreateField(ctx context.Context, f form.Field) (form.Field, error)
	UpdateField(ctx context.Context, f form.Field) (form.Field, error)
	GetField(ctx context.Context, id string) (form.Field, error)
	ListFields(ctx context.Context, submoduleID string, section form.Section) ([]form.Field, error)
	DeleteField(ctx context.Context, id string) error
}

// EntryStore persists transaction entries.
type EntryStore interface {
	CreateEntry(ctx context.Context, e entry.Entry) (entry.Entry, error)
	UpdateEntry(ctx context.Context, e entry.Entry) (entry.Entry, error)
	GetEntry(ctx context.Context, id string) (entry.Entry, error)
	ListEntries(ctx context.Context, submodule string) ([]entry.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// RoleStore persists role documents.
type RoleStore interface {
	CreateRole(ctx context.Context, r role.Role) (role.Role, error)
	UpdateRole(ctx context.Context, r role.Role) (role.Role, error)
	GetRole(ctx context.Context, id string) (role.Role, error)
	GetRoleByName(ctx context.Context, name string) (role.Role, error)
	ListRoles(ctx context.Context) ([]role.Role, error)
	DeleteRole(ctx context.Context, id string) error
}

// UserStore persists user masters.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// LicenseStore persists license keys.
type LicenseStore interface {
	CreateLicense(ctx context.Context, l license.License) (license.License, error)
	UpdateLicense(ctx context.Context, l license.License) (license.License, error)
	GetLicense(ctx context.Context, key string) (license.License, error)
	ListLicenses(ctx context.Context) ([]license.License, error)
}

// CounterStore is the atomic read-modify-write primitive backing document
// number allocation. CompareAndSwapCounter must fail with a conflict error
// when the stored value no longer equals old, and must treat an absent
// counter as zero.
type CounterStore interface {
	GetCounter(ctx context.Context, key string) (int64, error)
	CompareAndSwapCounter(ctx context.Context, key string, old, next int64) error
}
