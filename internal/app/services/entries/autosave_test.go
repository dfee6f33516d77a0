package entries

import (
	"context"
	"testing"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/value"
)

func TestFlushPersistsDirtyDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saver := NewAutosaver(fx.svc, fx.auth, fx.sub, nil)
	saver.SetDraft(draftEntry())
	saver.Flush(ctx)

	if err := saver.LastError(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	draft := saver.Draft()
	if draft.ID == "" {
		t.Fatalf("flush should adopt the stored identity")
	}

	stored, err := fx.svc.Get(ctx, fx.auth, fx.sub, draft.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.Status != entry.StatusDraft || stored.DocNo != "" {
		t.Fatalf("autosave must not escalate state: %+v", stored)
	}
}

func TestFlushSkipsCleanDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saver := NewAutosaver(fx.svc, fx.auth, fx.sub, nil)
	saver.SetDraft(draftEntry())
	saver.Flush(ctx)
	firstID := saver.Draft().ID

	// Unchanged content: a second flush must not write again.
	saver.Flush(ctx)

	list, err := fx.svc.List(ctx, fx.auth, fx.sub)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != firstID {
		t.Fatalf("clean flush must not create another record: %+v", list)
	}
}

func TestFlushAfterEditWritesAgain(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saver := NewAutosaver(fx.svc, fx.auth, fx.sub, nil)
	saver.SetDraft(draftEntry())
	saver.Flush(ctx)

	edited := saver.Draft()
	edited.CustomFields["vendor-name"] = value.Text("Updated Vendor")
	saver.SetDraft(edited)
	saver.Flush(ctx)

	stored, err := fx.svc.Get(ctx, fx.auth, fx.sub, edited.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.CustomFields["vendor-name"].Str != "Updated Vendor" {
		t.Fatalf("edit not persisted: %+v", stored.CustomFields)
	}
}

func TestFlushLeavesApprovedEntriesAlone(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saved, _ := fx.svc.SaveDraft(ctx, fx.auth, fx.sub, draftEntry())
	approved, err := fx.svc.Submit(ctx, fx.auth, fx.sub, saved.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	saver := NewAutosaver(fx.svc, fx.auth, fx.sub, nil)
	saver.SetDraft(approved)
	saver.Flush(ctx)

	stored, _ := fx.svc.Get(ctx, fx.auth, fx.sub, approved.ID)
	if stored.UpdatedAt != approved.UpdatedAt {
		t.Fatalf("approved entry must not be rewritten by autosave")
	}
}

func TestStopRunsFinalFlush(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	saver := NewAutosaver(fx.svc, fx.auth, fx.sub, nil)
	if err := saver.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	saver.SetDraft(draftEntry())

	// Stop before the first tick; the teardown flush must still persist.
	if err := saver.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	list, err := fx.svc.List(ctx, fx.auth, fx.sub)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("final flush did not persist the draft: %+v", list)
	}
}

func TestFailedFlushKeepsDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// A read-only session cannot persist, but must not drop the edit.
	saver := NewAutosaver(fx.svc, fx.readOnly, fx.sub, nil)
	saver.SetDraft(draftEntry())
	saver.Flush(ctx)

	if saver.LastError() == nil {
		t.Fatalf("expected flush failure for read-only session")
	}
	if saver.Draft().CustomFields["vendor-name"].Str != "Acme Ltd" {
		t.Fatalf("draft content must survive a failed flush")
	}
}
