package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunProcessesEverySeedExactlyOnce(t *testing.T) {
	seeds := make([]Seed, 50)
	for i := range seeds {
		seeds[i] = Seed{Value: string(rune('a' + i%26))}
	}

	var calls int64
	pool := NewPool(8)
	results := pool.Run(context.Background(), seeds, func(ctx context.Context, seed Seed) seedOutcome {
		atomic.AddInt64(&calls, 1)
		return seedOutcome{seed: seed}
	})

	if int(calls) != len(seeds) {
		t.Fatalf("expected %d calls, got %d", len(seeds), calls)
	}
	if len(results) != len(seeds) {
		t.Fatalf("expected %d results, got %d", len(seeds), len(results))
	}
}

func TestPoolRunSurfacesCancellation(t *testing.T) {
	seeds := make([]Seed, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(2)
	results := pool.Run(ctx, seeds, func(ctx context.Context, seed Seed) seedOutcome {
		time.Sleep(time.Millisecond)
		return seedOutcome{seed: seed}
	})

	var canceled int
	for _, r := range results {
		if r.err != nil {
			canceled++
		}
	}
	if canceled == 0 {
		t.Fatalf("expected at least one seed to observe the already-canceled context")
	}
}

func TestNewPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewPool(0)
	if pool.workers != 1 {
		t.Fatalf("expected NewPool(0) to default to 1 worker, got %d", pool.workers)
	}
}
