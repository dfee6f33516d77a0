package docnum

import (
	"context"
	"sync"
	"testing"

	"github.com/ticware/opscore/internal/app/storage/memory"
	apperrors "github.com/ticware/opscore/internal/errors"
)

func TestAllocateSequentialAndFormat(t *testing.T) {
	alloc := New(memory.New(), nil)
	ctx := context.Background()

	first, err := alloc.Allocate(ctx, "sub-1")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if first.Sequential != 1 || first.DocNo != "tic/25-26/1" {
		t.Fatalf("unexpected first allocation: %+v", first)
	}

	second, err := alloc.Allocate(ctx, "sub-1")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if second.Sequential != 2 || second.DocNo != "tic/25-26/2" {
		t.Fatalf("unexpected second allocation: %+v", second)
	}
}

func TestAllocatePerSubmoduleSequences(t *testing.T) {
	alloc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := alloc.Allocate(ctx, "po"); err != nil {
		t.Fatalf("allocate po: %v", err)
	}
	got, err := alloc.Allocate(ctx, "invoice")
	if err != nil {
		t.Fatalf("allocate invoice: %v", err)
	}
	if got.Sequential != 1 {
		t.Fatalf("each submodule has its own sequence, got %d", got.Sequential)
	}
}

func TestWithFormat(t *testing.T) {
	alloc := New(memory.New(), nil).WithFormat("acme", "26-27")
	got, err := alloc.Allocate(context.Background(), "po")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got.DocNo != "acme/26-27/1" {
		t.Fatalf("unexpected doc number: %s", got.DocNo)
	}
}

func TestConcurrentAllocationNoDuplicatesNoGaps(t *testing.T) {
	// Every lost race means another worker succeeded and left the pool, so
	// with workers <= attempt budget each call is guaranteed to land.
	const workers = 8
	alloc := New(memory.New(), nil)

	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := alloc.Allocate(context.Background(), "po")
			if err != nil {
				t.Errorf("allocate: %v", err)
				return
			}
			results <- got.Sequential
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for seq := range results {
		if seen[seq] {
			t.Fatalf("duplicate sequential %d", seq)
		}
		seen[seq] = true
	}
	for want := int64(1); want <= workers; want++ {
		if !seen[want] {
			t.Fatalf("missing sequential %d", want)
		}
	}
}

// contendedCounters always loses the compare-and-swap.
type contendedCounters struct {
	memoryLike int64
}

func (c *contendedCounters) GetCounter(ctx context.Context, key string) (int64, error) {
	return c.memoryLike, nil
}

func (c *contendedCounters) CompareAndSwapCounter(ctx context.Context, key string, old, next int64) error {
	c.memoryLike++
	return apperrors.Conflict("counter moved")
}

func TestAllocateExhaustionIsRetryable(t *testing.T) {
	alloc := New(&contendedCounters{}, nil)
	_, err := alloc.Allocate(context.Background(), "po")
	if !apperrors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestAllocateHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := New(memory.New(), nil)
	if _, err := alloc.Allocate(ctx, "po"); err == nil {
		t.Fatalf("expected context error")
	}
}
