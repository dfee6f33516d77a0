package app

import (
	"context"
	"time"

	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/services/docnum"
	"github.com/ticware/opscore/internal/app/services/entries"
	"github.com/ticware/opscore/internal/app/services/forms"
	"github.com/ticware/opscore/internal/app/services/licenses"
	"github.com/ticware/opscore/internal/app/services/permissions"
	"github.com/ticware/opscore/internal/app/services/users"
	"github.com/ticware/opscore/internal/app/storage"
	"github.com/ticware/opscore/internal/app/storage/memory"
	"github.com/ticware/opscore/internal/app/system"
	"github.com/ticware/opscore/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Submodules storage.SubmoduleStore
	Fields     storage.FieldStore
	Entries    storage.EntryStore
	Roles      storage.RoleStore
	Users      storage.UserStore
	Licenses   storage.LicenseStore
	Counters   storage.CounterStore
}

// Options tunes application construction.
type Options struct {
	SuperAdminEmail  string
	DocNoPrefix      string
	FiscalPeriod     string
	AutosaveInterval time.Duration
}

// Application ties the domain services together and manages their lifecycle.
type Application struct {
	manager          *system.Manager
	log              *logger.Logger
	autosaveInterval time.Duration

	Forms       *forms.Service
	Permissions *permissions.Service
	Allocator   *docnum.Allocator
	Entries     *entries.Service
	Licenses    *licenses.Service
	Users       *users.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Submodules == nil {
		stores.Submodules = mem
	}
	if stores.Fields == nil {
		stores.Fields = mem
	}
	if stores.Entries == nil {
		stores.Entries = mem
	}
	if stores.Roles == nil {
		stores.Roles = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Licenses == nil {
		stores.Licenses = mem
	}
	if stores.Counters == nil {
		stores.Counters = mem
	}

	formService := forms.New(stores.Submodules, stores.Fields, log)
	permService := permissions.New(stores.Users, stores.Roles, opts.SuperAdminEmail, log)
	allocator := docnum.New(stores.Counters, log).WithFormat(opts.DocNoPrefix, opts.FiscalPeriod)
	entryService := entries.New(stores.Entries, formService, allocator, log)
	licenseService := licenses.New(stores.Licenses, log)
	userService := users.New(stores.Users, log)

	return &Application{
		manager:          system.NewManager(),
		log:              log,
		autosaveInterval: opts.AutosaveInterval,
		Forms:            formService,
		Permissions:      permService,
		Allocator:        allocator,
		Entries:          entryService,
		Licenses:         licenseService,
		Users:            userService,
	}, nil
}

// NewAutosaveSession creates a lifecycle-managed autosave session for one
// editing session of the given submodule. Register it via Attach or manage
// its Start/Stop directly.
func (a *Application) NewAutosaveSession(auth permissions.Authorizer, sub form.Submodule) *entries.Autosaver {
	return entries.NewAutosaver(a.Entries, auth, sub, a.log).WithInterval(a.autosaveInterval)
}

// Attach registers an additional lifecycle-managed service, such as an
// autosave session. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
