package entries

import (
	"context"
	"testing"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/domain/value"
	"github.com/ticware/opscore/internal/app/services/docnum"
	"github.com/ticware/opscore/internal/app/services/forms"
	"github.com/ticware/opscore/internal/app/services/permissions"
	"github.com/ticware/opscore/internal/app/storage/memory"
	apperrors "github.com/ticware/opscore/internal/errors"
)

type fixture struct {
	svc      *Service
	registry *forms.Service
	sub      form.Submodule
	auth     permissions.Authorizer
	readOnly permissions.Authorizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	registry := forms.New(store, store, nil)
	allocator := docnum.New(store, nil)
	svc := New(store, registry, allocator, nil)
	ctx := context.Background()

	sub, err := registry.CreateSubmodule(ctx, "Purchase Order", "Procurement")
	if err != nil {
		t.Fatalf("create submodule: %v", err)
	}
	mustField := func(section form.Section, f form.Field) {
		if _, err := registry.AddField(ctx, sub.ID, section, f); err != nil {
			t.Fatalf("add field %s: %v", f.Label, err)
		}
	}
	mustField(form.SectionHeader, form.Field{Label: "Vendor Name", Required: true})
	mustField(form.SectionHeader, form.Field{Label: "Order Date", Type: form.TypeDate})
	mustField(form.SectionHeader, form.Field{Label: "Urgent", Type: form.TypeBoolean})
	mustField(form.SectionDetail, form.Field{Label: "Item"})
	mustField(form.SectionDetail, form.Field{Label: "Quantity", Type: form.TypeNumber, Required: true})

	full := permissions.Authorizer{
		Principal: user.Principal{ID: "u1", Email: "sam@example.com", DisplayName: "Sam"},
		Permissions: role.PermissionSet{Modules: map[string]role.ModuleGrant{
			"procurement": {Entire: true},
		}},
	}
	readOnly := permissions.Authorizer{
		Principal: user.Principal{ID: "u2", Email: "ro@example.com", DisplayName: "Ro"},
		Permissions: role.PermissionSet{Modules: map[string]role.ModuleGrant{
			"procurement": {Submodules: map[string]role.Actions{
				"purchase-order": {Read: true},
			}},
		}},
	}
	return &fixture{svc: svc, registry: registry, sub: sub, auth: full, readOnly: readOnly}
}

func draftEntry() entry.Entry {
	return entry.Entry{
		CustomFields: map[string]value.Value{
			"vendor-name": value.Text("Acme Ltd"),
			"order-date":  value.Text("2025-04-01"),
		},
		LineItems: []map[string]value.Value{
			{"item": value.Text("Widget"), "quantity": value.Number(3)},
		},
	}
}

func TestSaveDraftCreatesDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if saved.ID == "" || saved.Status != entry.StatusDraft {
		t.Fatalf("unexpected draft: %+v", saved)
	}
	if saved.DocNo != "" || saved.DocNoSequential != 0 {
		t.Fatalf("draft must carry no document number: %+v", saved)
	}
	if saved.User != "Sam" {
		t.Fatalf("expected creating user to be stamped, got %q", saved.User)
	}
	// The date string was re-typed against the schema.
	if saved.CustomFields["order-date"].Kind != value.KindDate {
		t.Fatalf("order date not coerced: %+v", saved.CustomFields["order-date"])
	}
	// The absent boolean collapsed to false.
	urgent := saved.CustomFields["urgent"]
	if urgent.Kind != value.KindBool || urgent.Flag {
		t.Fatalf("absent boolean should store as false: %+v", urgent)
	}
}

func TestSaveDraftNeverEscalatesStatus(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	approved, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A later save claiming draft status keeps the stored status and number.
	tampered := approved
	tampered.Status = entry.StatusDraft
	tampered.DocNo = ""
	tampered.DocNoSequential = 0
	resaved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, tampered)
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if resaved.Status != entry.StatusApproved || resaved.DocNo != approved.DocNo {
		t.Fatalf("save must not change status or number: %+v", resaved)
	}
}

func TestSubmitAllocatesOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}

	approved, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if approved.Status != entry.StatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.DocNo != "tic/25-26/1" || approved.DocNoSequential != 1 {
		t.Fatalf("unexpected first document number: %+v", approved)
	}

	// Submitting again must not consume another number.
	again, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.DocNo != approved.DocNo || again.DocNoSequential != 1 {
		t.Fatalf("resubmission consumed a number: %+v", again)
	}

	// The next distinct entry gets the next number.
	second, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	secondApproved, err := fx.svc.Submit(ctx, fx.auth, fx.sub, second.ID)
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}
	if secondApproved.DocNo != "tic/25-26/2" {
		t.Fatalf("expected tic/25-26/2, got %s", secondApproved.DocNo)
	}
}

func TestSubmitEnforcesRequiredFields(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	e := draftEntry()
	delete(e.CustomFields, "vendor-name")
	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, e)
	if err != nil {
		t.Fatalf("drafts tolerate missing required fields: %v", err)
	}

	if _, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation failure, got %v", err)
	}

	// The failed submission consumed no number.
	e2, _ := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	approved, err := fx.svc.Submit(ctx, fx.auth, fx.sub, e2.ID)
	if err != nil {
		t.Fatalf("submit valid entry: %v", err)
	}
	if approved.DocNoSequential != 1 {
		t.Fatalf("failed submit leaked a number, got %d", approved.DocNoSequential)
	}
}

func TestSubmitEnforcesRequiredLineItemFields(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	e := draftEntry()
	e.LineItems = append(e.LineItems, map[string]value.Value{"item": value.Text("Bolt")})
	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, e)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation failure for missing quantity, got %v", err)
	}
}

func TestDuplicateStartsFreshLineage(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saved, _ := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	approved, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	dup, err := fx.svc.Duplicate(ctx, fx.auth, fx.sub, approved.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == approved.ID || dup.ID == "" {
		t.Fatalf("duplicate must get a new identity: %+v", dup)
	}
	if dup.Status != entry.StatusDraft || dup.DocNo != "" || dup.DocNoSequential != 0 {
		t.Fatalf("duplicate must restart as an unnumbered draft: %+v", dup)
	}
	if dup.CustomFields["vendor-name"].Str != "Acme Ltd" {
		t.Fatalf("field values should be carried over: %+v", dup.CustomFields)
	}
	if len(dup.LineItems) != 1 {
		t.Fatalf("line items should be carried over: %+v", dup.LineItems)
	}
}

func TestUnknownKeysSurviveCoercion(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	e := draftEntry()
	e.CustomFields["legacy-field"] = value.Text("kept")
	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, e)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if saved.CustomFields["legacy-field"].Str != "kept" {
		t.Fatalf("unknown key should pass through untouched: %+v", saved.CustomFields)
	}
}

func TestInvalidOptionalValueIsDropped(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	e := draftEntry()
	e.CustomFields["order-date"] = value.Text("not a date")
	saved, err := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, e)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, present := saved.CustomFields["order-date"]; present {
		t.Fatalf("invalid optional value should be dropped: %+v", saved.CustomFields)
	}
}

func TestCapabilityChecks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saved, _ := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())

	if _, err := fx.svc.SaveDraft(ctx, fx.readOnly, fx.sub, draftEntry()); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeForbidden {
		t.Fatalf("read-only save should be forbidden, got %v", err)
	}
	if _, err := fx.svc.Submit(ctx, fx.readOnly, fx.sub, saved.ID); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeForbidden {
		t.Fatalf("read-only submit should be forbidden, got %v", err)
	}
	if err := fx.svc.Delete(ctx, fx.readOnly, fx.sub, saved.ID); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeForbidden {
		t.Fatalf("read-only delete should be forbidden, got %v", err)
	}
	if _, err := fx.svc.Get(ctx, fx.readOnly, fx.sub, saved.ID); err != nil {
		t.Fatalf("read-only get should pass: %v", err)
	}
	if _, err := fx.svc.List(ctx, fx.readOnly, fx.sub); err != nil {
		t.Fatalf("read-only list should pass: %v", err)
	}
}
