package permissions

import (
	"context"
	"testing"

	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/storage/memory"
)

func grant(read, write, del bool) role.Actions {
	return role.Actions{Read: read, Write: write, Delete: del}
}

func TestMergeIsShallowLastWriterWins(t *testing.T) {
	store := memory.New()
	svc := New(store, store, "", nil)
	ctx := context.Background()

	// First role grants write on purchase-order only.
	_, err := svc.CreateRole(ctx, "Clerk", "", role.PermissionSet{
		Modules: map[string]role.ModuleGrant{
			"procurement": {Submodules: map[string]role.Actions{
				"purchase-order": grant(true, true, false),
			}},
		},
	})
	if err != nil {
		t.Fatalf("create clerk: %v", err)
	}
	// Second role grants read on goods-receipt under the same module key.
	_, err = svc.CreateRole(ctx, "Viewer", "", role.PermissionSet{
		Modules: map[string]role.ModuleGrant{
			"procurement": {Submodules: map[string]role.Actions{
				"goods-receipt": grant(true, false, false),
			}},
		},
	})
	if err != nil {
		t.Fatalf("create viewer: %v", err)
	}

	u, err := store.CreateUser(ctx, user.User{
		Username: "sam",
		Email:    "sam@example.com",
		Roles:    []string{"Clerk", "Viewer"},
		Status:   user.StatusActive,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	perms, err := svc.Resolve(ctx, user.Principal{ID: u.ID, Email: u.Email})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// The later role's module value replaces the earlier one wholesale: the
	// purchase-order grant from Clerk is gone, not unioned in.
	if Can(perms, "Procurement", "Purchase Order", ActionWrite) {
		t.Fatalf("purchase-order write should have been overwritten by the later role")
	}
	if !Can(perms, "Procurement", "Goods Receipt", ActionRead) {
		t.Fatalf("goods-receipt read expected from the later role")
	}
}

func TestWholeModuleSentinel(t *testing.T) {
	perms := role.PermissionSet{
		Modules: map[string]role.ModuleGrant{
			"procurement": {Entire: true},
		},
	}
	for _, action := range []Action{ActionRead, ActionWrite, ActionDelete} {
		if !Can(perms, "Procurement", "Anything At All", action) {
			t.Fatalf("whole-module grant should allow %s on any submodule", action)
		}
	}
	if Can(perms, "Sales", "Invoice", ActionRead) {
		t.Fatalf("unrelated module must stay denied")
	}
}

func TestReadOnlyUserDeniedWriteAndDelete(t *testing.T) {
	store := memory.New()
	svc := New(store, store, "", nil)
	ctx := context.Background()

	if _, err := svc.CreateRole(ctx, "Reader", "", role.PermissionSet{
		Modules: map[string]role.ModuleGrant{
			"procurement": {Submodules: map[string]role.Actions{
				"purchase-order": grant(true, false, false),
			}},
		},
	}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	u, _ := store.CreateUser(ctx, user.User{
		Username: "ro", Email: "ro@example.com",
		Roles: []string{"Reader"}, Status: user.StatusActive,
	})

	auth, err := svc.Authorize(ctx, user.Principal{ID: u.ID, Email: u.Email})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !auth.CanRead("Procurement", "Purchase Order") {
		t.Fatalf("read should be allowed")
	}
	if auth.CanWrite("Procurement", "Purchase Order") || auth.CanDelete("Procurement", "Purchase Order") {
		t.Fatalf("write/delete must be denied")
	}
	if auth.CanRead("Procurement", "Goods Receipt") {
		t.Fatalf("unrelated submodule must be denied")
	}
}

func TestSuperAdminBypassesRoles(t *testing.T) {
	store := memory.New()
	svc := New(store, store, "Admin@Example.com", nil)

	perms, err := svc.Resolve(context.Background(), user.Principal{Email: "admin@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !perms.All {
		t.Fatalf("super admin should resolve to all access")
	}
	if !Can(perms, "Anything", "Whatever", ActionDelete) {
		t.Fatalf("all access should allow every action")
	}
}

func TestUnknownAndDisabledUsersGetEmptySet(t *testing.T) {
	store := memory.New()
	svc := New(store, store, "", nil)
	ctx := context.Background()

	perms, err := svc.Resolve(ctx, user.Principal{Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("unknown user must resolve to empty, not error: %v", err)
	}
	if perms.All || len(perms.Modules) != 0 {
		t.Fatalf("expected empty set, got %+v", perms)
	}

	if _, err := svc.CreateRole(ctx, "Any", "", role.AllAccess()); err != nil {
		t.Fatalf("create role: %v", err)
	}
	u, _ := store.CreateUser(ctx, user.User{
		Username: "off", Email: "off@example.com",
		Roles: []string{"Any"}, Status: user.StatusActive,
	})
	if _, err := store.UpdateUser(ctx, withStatus(u, user.StatusDisabled)); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	perms, err = svc.Resolve(ctx, user.Principal{ID: u.ID, Email: u.Email})
	if err != nil {
		t.Fatalf("resolve disabled: %v", err)
	}
	if perms.All || len(perms.Modules) != 0 {
		t.Fatalf("disabled user should get empty set, got %+v", perms)
	}
}

func TestMissingRoleNamesAreSkipped(t *testing.T) {
	store := memory.New()
	svc := New(store, store, "", nil)
	ctx := context.Background()

	if _, err := svc.CreateRole(ctx, "Real", "", role.PermissionSet{
		Modules: map[string]role.ModuleGrant{"sales": {Entire: true}},
	}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	u, _ := store.CreateUser(ctx, user.User{
		Username: "mix", Email: "mix@example.com",
		Roles: []string{"Deleted Role", "Real"}, Status: user.StatusActive,
	})

	perms, err := svc.Resolve(ctx, user.Principal{ID: u.ID, Email: u.Email})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !Can(perms, "Sales", "Invoice", ActionWrite) {
		t.Fatalf("surviving role should still apply")
	}
}

func withStatus(u user.User, status user.Status) user.User {
	u.Status = status
	return u
}
