package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/opexdevelop/mediacache/internal/shared"
)

func newTestQueue(t *testing.T, delay time.Duration) *Queue {
	t.Helper()
	q := New(delay, shared.NewLogger(io.Discard))
	t.Cleanup(q.Close)
	return q
}

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := newTestQueue(t, 0)

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Stagger submissions so the FIFO order is deterministic.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			q.Submit(context.Background(), func(ctx context.Context) (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
		}()
	}
	close(start)
	wg.Wait()

	if len(order) != 5 {
		t.Fatalf("ran %d tasks, want 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestQueue_NeverOverlaps(t *testing.T) {
	q := newTestQueue(t, 0)

	var mu sync.Mutex
	running := 0
	maxRunning := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Submit(context.Background(), func(ctx context.Context) (any, error) {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil, nil
			})
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", maxRunning)
	}
}

func TestQueue_PropagatesResults(t *testing.T) {
	q := newTestQueue(t, 0)

	t.Run("value", func(t *testing.T) {
		got, err := Submit(context.Background(), q, func(ctx context.Context) (string, error) {
			return "done", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "done" {
			t.Errorf("value = %q, want done", got)
		}
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Submit(context.Background(), q, func(ctx context.Context) (string, error) {
			return "", boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want boom", err)
		}
	})
}

func TestQueue_SkipsCancelledTasks(t *testing.T) {
	q := newTestQueue(t, 0)

	blocker := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Submit(context.Background(), func(ctx context.Context) (any, error) {
			<-blocker
			return nil, nil
		})
	}()

	// Give the blocker time to occupy the worker.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	executed := false

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Submit(ctx, func(ctx context.Context) (any, error) {
			executed = true
			return nil, nil
		})
	}()

	cancel()
	<-done
	close(blocker)
	wg.Wait()

	// Let the worker reach the cancelled job before asserting.
	q.Submit(context.Background(), func(ctx context.Context) (any, error) { return nil, nil })

	if executed {
		t.Error("cancelled task was executed")
	}
}

func TestQueue_DelayFollowsCompletion(t *testing.T) {
	delay := 100 * time.Millisecond
	q := newTestQueue(t, delay)

	// The first task runs longer than the delay itself; the gap before the
	// next task must still be measured from its completion, not its start.
	var finished time.Time
	if _, err := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		time.Sleep(250 * time.Millisecond)
		finished = time.Now()
		return nil, nil
	}); err != nil {
		t.Fatalf("first task failed: %v", err)
	}

	var started time.Time
	if _, err := q.Submit(context.Background(), func(ctx context.Context) (any, error) {
		started = time.Now()
		return nil, nil
	}); err != nil {
		t.Fatalf("second task failed: %v", err)
	}

	if gap := started.Sub(finished); gap < delay-5*time.Millisecond {
		t.Errorf("second task started %v after first finished, want at least %v", gap, delay)
	}
}

func TestQueue_ThrottleSpacesTasks(t *testing.T) {
	delay := 50 * time.Millisecond
	q := newTestQueue(t, delay)

	var times []time.Time
	for i := 0; i < 3; i++ {
		q.Submit(context.Background(), func(ctx context.Context) (any, error) {
			times = append(times, time.Now())
			return nil, nil
		})
	}

	if len(times) != 3 {
		t.Fatalf("ran %d tasks, want 3", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < delay-5*time.Millisecond {
			t.Errorf("gap %d = %v, want at least %v", i, gap, delay)
		}
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := New(0, shared.NewLogger(io.Discard))

	ran := false
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Submit(context.Background(), func(ctx context.Context) (any, error) {
			time.Sleep(20 * time.Millisecond)
			ran = true
			return nil, nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()

	if !ran {
		t.Error("in-flight task was not drained on close")
	}
}
