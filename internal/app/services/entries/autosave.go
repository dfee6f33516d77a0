package entries

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/metrics"
	"github.com/ticware/opscore/internal/app/services/permissions"
	"github.com/ticware/opscore/internal/app/system"
	"github.com/ticware/opscore/pkg/logger"
)

var _ system.Service = (*Autosaver)(nil)

// Autosaver persists the in-memory draft of one editing session on a fixed
// period. A flush happens only while editing is active, the serialized form
// state differs from the last saved snapshot, and the entry is not already
// approved. Stop runs one final flush so teardown never loses an edit, and
// a failed flush keeps the draft in memory for the next attempt.
type Autosaver struct {
	service  *Service
	auth     permissions.Authorizer
	sub      form.Submodule
	log      *logger.Logger
	interval time.Duration

	mu        sync.Mutex
	draft     entry.Entry
	lastSaved string
	editing   bool
	lastErr   error
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
}

// NewAutosaver creates an autosave session for one submodule's entry editor.
func NewAutosaver(service *Service, auth permissions.Authorizer, sub form.Submodule, log *logger.Logger) *Autosaver {
	if log == nil {
		log = logger.NewDefault("autosave")
	}
	return &Autosaver{
		service:  service,
		auth:     auth,
		sub:      sub,
		log:      log,
		interval: 30 * time.Second,
	}
}

// WithInterval overrides the autosave period. Call before Start.
func (a *Autosaver) WithInterval(interval time.Duration) *Autosaver {
	if interval > 0 {
		a.interval = interval
	}
	return a
}

// SetDraft replaces the session's in-memory draft and marks editing active.
func (a *Autosaver) SetDraft(e entry.Entry) {
	a.mu.Lock()
	a.draft = e.Clone()
	a.editing = true
	a.mu.Unlock()
}

// Draft returns the current in-memory draft.
func (a *Autosaver) Draft() entry.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.draft.Clone()
}

// LastError returns the most recent flush failure, cleared by a later
// successful flush.
func (a *Autosaver) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Autosaver) Name() string { return "entry-autosaver" }

// Start begins the periodic flush loop.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				a.Flush(runCtx)
			}
		}
	}()

	a.log.WithField("submodule", a.sub.Name).Debug("autosave session started")
	return nil
}

// Stop cancels the loop, waits for it, then runs the final save-if-dirty
// check so the editing session's last state is not silently lost.
func (a *Autosaver) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	cancel := a.cancel
	a.running = false
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	a.Flush(ctx)
	a.log.WithField("submodule", a.sub.Name).Debug("autosave session stopped")
	return nil
}

// Flush persists the draft if it is dirty. It never escalates status and
// never allocates a document number; approved entries are left alone.
func (a *Autosaver) Flush(ctx context.Context) {
	a.mu.Lock()
	if !a.editing || a.draft.Status == entry.StatusApproved {
		a.mu.Unlock()
		return
	}
	snapshot := serializeDraft(a.draft)
	if snapshot == a.lastSaved {
		a.mu.Unlock()
		return
	}
	draft := a.draft.Clone()
	a.mu.Unlock()

	saved, err := a.service.SaveDraft(ctx, a.auth, a.sub, draft)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		// The in-memory draft is kept so nothing the user typed is lost.
		a.lastErr = err
		metrics.RecordAutosaveFlush(false)
		a.log.WithError(err).Warn("autosave flush failed")
		return
	}
	if a.draft.ID == "" {
		a.draft.ID = saved.ID
	}
	a.lastSaved = snapshot
	a.lastErr = nil
	metrics.RecordAutosaveFlush(true)
}

// serializeDraft captures the user-editable surface of a draft. Store-owned
// bookkeeping (timestamps, status, numbers) is excluded so a flush does not
// mark the session dirty again.
func serializeDraft(e entry.Entry) string {
	payload := struct {
		Submodule    string `json:"submodule"`
		CustomFields any    `json:"customFields"`
		LineItems    any    `json:"lineItems"`
	}{e.Submodule, e.CustomFields, e.LineItems}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}
