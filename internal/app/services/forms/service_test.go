package forms

import (
	"context"
	"testing"

	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/storage/memory"
	apperrors "github.com/ticware/opscore/internal/errors"
)

func TestSubmoduleLifecycle(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	po, err := svc.CreateSubmodule(ctx, "Purchase Order", "Procurement")
	if err != nil {
		t.Fatalf("create submodule: %v", err)
	}
	if po.ID == "" || po.Position != 1 {
		t.Fatalf("unexpected submodule: %+v", po)
	}

	gr, err := svc.CreateSubmodule(ctx, "Goods Receipt", "Procurement")
	if err != nil {
		t.Fatalf("create second submodule: %v", err)
	}
	if gr.Position != 2 {
		t.Fatalf("expected position 2, got %d", gr.Position)
	}

	if _, err := svc.CreateSubmodule(ctx, "purchase  order", "Procurement"); !apperrors.IsValidation(err) {
		t.Fatalf("expected duplicate name rejection, got %v", err)
	}

	byName, err := svc.GetSubmoduleByName(ctx, "Purchase Order")
	if err != nil || byName.ID != po.ID {
		t.Fatalf("lookup by name: %+v %v", byName, err)
	}

	list, err := svc.ListSubmodules(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	if list[0].ID != po.ID {
		t.Fatalf("list not ordered by position")
	}
}

func TestAddFieldDerivesKeyAndPosition(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sub, err := svc.CreateSubmodule(ctx, "Purchase Order", "Procurement")
	if err != nil {
		t.Fatalf("create submodule: %v", err)
	}

	vendor, err := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "Vendor Name"})
	if err != nil {
		t.Fatalf("add field: %v", err)
	}
	if vendor.Key != "vendor-name" {
		t.Fatalf("expected derived key vendor-name, got %q", vendor.Key)
	}
	if vendor.Position != 1 || vendor.Type != form.TypeText {
		t.Fatalf("unexpected defaults: %+v", vendor)
	}

	date, err := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "Order Date", Type: form.TypeDate})
	if err != nil {
		t.Fatalf("add second field: %v", err)
	}
	if date.Position != 2 {
		t.Fatalf("expected position 2, got %d", date.Position)
	}

	// Same key in the other section is fine; in the same section it is not.
	if _, err := svc.AddField(ctx, sub.ID, form.SectionDetail, form.Field{Label: "Vendor Name"}); err != nil {
		t.Fatalf("same key in detail section: %v", err)
	}
	if _, err := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "VENDOR name"}); !apperrors.IsValidation(err) {
		t.Fatalf("expected duplicate key rejection, got %v", err)
	}

	if _, err := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "   "}); !apperrors.IsValidation(err) {
		t.Fatalf("expected empty label rejection, got %v", err)
	}
}

func TestListFieldsToleratesPositionGaps(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sub, _ := svc.CreateSubmodule(ctx, "Invoice", "Sales")
	first, _ := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "Alpha"})
	second, _ := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "Beta"})
	third, _ := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "Gamma"})

	// Delete the middle field; the remaining positions keep their gap.
	if err := svc.DeleteField(ctx, second.ID); err != nil {
		t.Fatalf("delete field: %v", err)
	}

	fields, err := svc.ListFields(ctx, sub.ID, form.SectionHeader)
	if err != nil {
		t.Fatalf("list fields: %v", err)
	}
	if len(fields) != 2 || fields[0].ID != first.ID || fields[1].ID != third.ID {
		t.Fatalf("unexpected order after gap: %+v", fields)
	}
	if fields[1].Position != 3 {
		t.Fatalf("positions must not be renumbered, got %d", fields[1].Position)
	}
}

func TestUpdateFieldPatch(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sub, _ := svc.CreateSubmodule(ctx, "Invoice", "Sales")
	f, _ := svc.AddField(ctx, sub.ID, form.SectionHeader, form.Field{Label: "Amount", Type: form.TypeNumber})

	required := true
	label := "Total Amount"
	updated, err := svc.UpdateField(ctx, f.ID, form.FieldPatch{Label: &label, Required: &required})
	if err != nil {
		t.Fatalf("update field: %v", err)
	}
	if updated.Label != "Total Amount" || !updated.Required {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Key != f.Key {
		t.Fatalf("key must stay stable across relabel, got %q", updated.Key)
	}

	bad := form.FieldType("picture")
	if _, err := svc.UpdateField(ctx, f.ID, form.FieldPatch{Type: &bad}); !apperrors.IsValidation(err) {
		t.Fatalf("expected invalid type rejection, got %v", err)
	}

	if _, err := svc.UpdateField(ctx, "missing", form.FieldPatch{}); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
