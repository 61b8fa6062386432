package throttle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(0, time.Second, testLogger()); err == nil {
		t.Error("New(0, ...) should fail")
	}
	if _, err := New(-1, time.Second, testLogger()); err == nil {
		t.Error("New(-1, ...) should fail")
	}
	if _, err := New(4, -time.Second, testLogger()); err == nil {
		t.Error("New(.., negative delay) should fail")
	}
}

func TestDoRunsFunction(t *testing.T) {
	g, err := New(2, 0, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ran := false
	if err := g.Do(context.Background(), func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Error("wrapped function did not run")
	}
}

func TestDoPropagatesError(t *testing.T) {
	g, err := New(1, 0, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	wantErr := errors.New("backend exploded")
	if err := g.Do(context.Background(), func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
}

// TestMinDelaySpacing verifies call starts are separated by at least the
// configured delay, even under contention.
func TestMinDelaySpacing(t *testing.T) {
	const minDelay = 50 * time.Millisecond
	const calls = 4

	g, err := New(calls, minDelay, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var mu sync.Mutex
	var starts []time.Time
	var wg sync.WaitGroup

	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(context.Background(), func() error {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if len(starts) != calls {
		t.Fatalf("got %d call starts, want %d", len(starts), calls)
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// Allow a small tolerance for the gap between stamping lastStart
		// and the function observing time.Now.
		if gap < minDelay-5*time.Millisecond {
			t.Errorf("gap between call %d and %d = %v, want >= %v", i-1, i, gap, minDelay)
		}
	}
}

// TestConcurrencyCap verifies no more than the configured number of calls
// are in flight at once.
func TestConcurrencyCap(t *testing.T) {
	const limit = 2

	g, err := New(limit, 0, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(context.Background(), func() error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInFlight > limit {
		t.Errorf("max in-flight calls = %d, want <= %d", maxInFlight, limit)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	g, err := New(1, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// First call stamps lastStart; the second would wait an hour.
	if err := g.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("first Do() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = g.Do(ctx, func() error {
		t.Error("function ran despite spacing wait cancellation")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
}
