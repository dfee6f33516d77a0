// Package permissions computes effective permission sets from role
// membership and answers capability queries. Denial is a false return, never
// an error; a store failure during resolution is reported as an error so
// callers can distinguish "unresolved" from "denied".
package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
	"github.com/ticware/opscore/pkg/slug"
)

// Action names a capability on a submodule.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Authorizer bundles a principal with its resolved permission set so entry
// points can thread an explicit authorization context instead of consulting
// ambient state.
type Authorizer struct {
	Principal   user.Principal
	Permissions role.PermissionSet
}

// CanRead reports read capability on mainModule/submodule.
func (a Authorizer) CanRead(mainModule, submodule string) bool {
	return Can(a.Permissions, mainModule, submodule, ActionRead)
}

// CanWrite reports write capability on mainModule/submodule.
func (a Authorizer) CanWrite(mainModule, submodule string) bool {
	return Can(a.Permissions, mainModule, submodule, ActionWrite)
}

// CanDelete reports delete capability on mainModule/submodule.
func (a Authorizer) CanDelete(mainModule, submodule string) bool {
	return Can(a.Permissions, mainModule, submodule, ActionDelete)
}

// Service resolves effective permissions and manages role documents.
type Service struct {
	users      storage.UserStore
	roles      storage.RoleStore
	superAdmin string
	log        *logger.Logger
}

// New constructs a permission service. superAdminEmail identifies the
// distinguished principal exempt from all checks; empty disables the bypass.
func New(users storage.UserStore, roles storage.RoleStore, superAdminEmail string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("permissions")
	}
	return &Service{
		users:      users,
		roles:      roles,
		superAdmin: strings.ToLower(strings.TrimSpace(superAdminEmail)),
		log:        log,
	}
}

// Resolve computes the principal's effective permission set. The result is
// valid until the principal's role list or any underlying role document
// changes; callers cache it per session or render cycle via an Authorizer.
func (s *Service) Resolve(ctx context.Context, principal user.Principal) (role.PermissionSet, error) {
	if s.superAdmin != "" && strings.EqualFold(principal.Email, s.superAdmin) {
		return role.AllAccess(), nil
	}

	u, err := s.users.GetUserByEmail(ctx, principal.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return role.PermissionSet{}, nil
		}
		return role.PermissionSet{}, fmt.Errorf("load user %s: %w", principal.Email, err)
	}
	if u.Status == user.StatusDisabled {
		return role.PermissionSet{}, nil
	}

	matched := make([]role.Role, 0, len(u.Roles))
	for _, name := range u.Roles {
		r, err := s.roles.GetRoleByName(ctx, name)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return role.PermissionSet{}, fmt.Errorf("load role %s: %w", name, err)
		}
		matched = append(matched, r)
	}
	return mergeRolePermissions(matched), nil
}

// Authorize resolves the principal and wraps the result.
func (s *Service) Authorize(ctx context.Context, principal user.Principal) (Authorizer, error) {
	perms, err := s.Resolve(ctx, principal)
	if err != nil {
		return Authorizer{}, err
	}
	return Authorizer{Principal: principal, Permissions: perms}, nil
}

// mergeRolePermissions merges role permission sets via shallow top-level
// overwrite-union: for each role in order, each present module key replaces
// the accumulator's value wholesale, so the later role wins on collision.
// Submodule-level grants are NOT deep-unioned across roles. This matches the
// product's current behavior; if a deep union is ever wanted, this function
// is the single place to change.
func mergeRolePermissions(roles []role.Role) role.PermissionSet {
	merged := role.PermissionSet{}
	for _, r := range roles {
		if r.Permissions.All {
			merged.All = true
		}
		for name, grant := range r.Permissions.Modules {
			if merged.Modules == nil {
				merged.Modules = make(map[string]role.ModuleGrant)
			}
			merged.Modules[name] = grant
		}
	}
	return merged.Clone()
}

// Can answers a capability query against an effective permission set. The
// whole-module sentinel grants every action on every submodule of that
// module. Malformed or missing keys resolve to deny; Can never panics.
func Can(perms role.PermissionSet, mainModule, submodule string, action Action) bool {
	if perms.All {
		return true
	}
	grant, ok := perms.Modules[slug.Make(mainModule)]
	if !ok {
		return false
	}
	if grant.Entire {
		return true
	}
	actions, ok := grant.Submodules[slug.Make(submodule)]
	if !ok {
		return false
	}
	switch action {
	case ActionRead:
		return actions.Read
	case ActionWrite:
		return actions.Write
	case ActionDelete:
		return actions.Delete
	}
	return false
}

// CreateRole persists a new role document.
func (s *Service) CreateRole(ctx context.Context, name, description string, perms role.PermissionSet) (role.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return role.Role{}, apperrors.Validation("role name is required")
	}
	if existing, err := s.roles.GetRoleByName(ctx, name); err == nil {
		return role.Role{}, apperrors.Validation("role %q already exists", existing.Name)
	} else if !apperrors.IsNotFound(err) {
		return role.Role{}, err
	}

	created, err := s.roles.CreateRole(ctx, role.Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		Permissions: perms,
	})
	if err != nil {
		return role.Role{}, err
	}
	s.log.WithField("role_id", created.ID).WithField("name", name).Info("role created")
	return created, nil
}

// UpdateRole replaces a role's description and permission set.
func (s *Service) UpdateRole(ctx context.Context, id, description string, perms role.PermissionSet) (role.Role, error) {
	current, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return role.Role{}, err
	}
	current.Description = strings.TrimSpace(description)
	current.Permissions = perms

	updated, err := s.roles.UpdateRole(ctx, current)
	if err != nil {
		return role.Role{}, err
	}
	s.log.WithField("role_id", id).Info("role updated")
	return updated, nil
}

// ListRoles returns all role documents.
func (s *Service) ListRoles(ctx context.Context) ([]role.Role, error) {
	return s.roles.ListRoles(ctx)
}

// DeleteRole removes a role document. Users referencing the name simply stop
// matching it during resolution.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	if err := s.roles.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.log.WithField("role_id", id).Info("role deleted")
	return nil
}
