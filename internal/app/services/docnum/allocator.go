// Package docnum allocates per-submodule document numbers. The sequence is
// strictly increasing with no duplicates under concurrent submitters; the
// guarantee rests on the counter store's compare-and-swap primitive plus a
// bounded retry loop here.
package docnum

import (
	"context"
	"fmt"
	"strings"

	"github.com/ticware/opscore/internal/app/metrics"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
)

const defaultMaxAttempts = 8

// Allocation is one granted document number.
type Allocation struct {
	Sequential int64
	DocNo      string
}

// Allocator produces document numbers backed by a counter store.
type Allocator struct {
	counters    storage.CounterStore
	prefix      string
	fiscal      string
	maxAttempts int
	log         *logger.Logger
}

// New constructs an allocator with the default "tic/25-26" numbering scheme.
func New(counters storage.CounterStore, log *logger.Logger) *Allocator {
	if log == nil {
		log = logger.NewDefault("docnum")
	}
	return &Allocator{
		counters:    counters,
		prefix:      "tic",
		fiscal:      "25-26",
		maxAttempts: defaultMaxAttempts,
		log:         log,
	}
}

// WithFormat overrides the document number prefix and fiscal period literal.
func (a *Allocator) WithFormat(prefix, fiscal string) *Allocator {
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		a.prefix = prefix
	}
	if fiscal = strings.TrimSpace(fiscal); fiscal != "" {
		a.fiscal = fiscal
	}
	return a
}

// Format renders the human-readable document number for a sequential value.
func (a *Allocator) Format(sequential int64) string {
	return fmt.Sprintf("%s/%s/%d", a.prefix, a.fiscal, sequential)
}

// Allocate grants the next number for a submodule. A lost compare-and-swap
// race transparently retries against a freshly read counter; exhausting the
// attempt budget surfaces a retryable error and consumes nothing.
func (a *Allocator) Allocate(ctx context.Context, submoduleID string) (Allocation, error) {
	if strings.TrimSpace(submoduleID) == "" {
		return Allocation{}, apperrors.Validation("submodule id is required")
	}

	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Allocation{}, err
		}

		current, err := a.counters.GetCounter(ctx, submoduleID)
		if err != nil {
			return Allocation{}, apperrors.Persistence("read document counter", err)
		}
		next := current + 1

		err = a.counters.CompareAndSwapCounter(ctx, submoduleID, current, next)
		if err == nil {
			metrics.RecordAllocationAttempt("ok")
			return Allocation{Sequential: next, DocNo: a.Format(next)}, nil
		}
		if !apperrors.IsConflict(err) {
			metrics.RecordAllocationAttempt("error")
			return Allocation{}, apperrors.Persistence("advance document counter", err)
		}

		metrics.RecordAllocationAttempt("conflict")
		lastErr = err
		a.log.WithField("submodule_id", submoduleID).
			WithField("attempt", attempt+1).
			Debug("document counter contended, retrying")
	}

	metrics.RecordAllocationAttempt("exhausted")
	return Allocation{}, apperrors.Retryable(
		fmt.Sprintf("document number allocation for %s exhausted %d attempts", submoduleID, a.maxAttempts),
		lastErr,
	)
}
