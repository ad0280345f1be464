package stages

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cropdata/internal/logger"
)

func TestNonOverlapping_SkipsTickWhileRunning(t *testing.T) {
	var (
		runs    atomic.Int32
		active  atomic.Int32
		overlap atomic.Bool
	)

	started := make(chan struct{})
	release := make(chan struct{})

	job := NonOverlapping(logger.Discard(), func() {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		defer active.Add(-1)

		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
	})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		job.Run()
	}()

	<-started

	// Second tick while the first is still running returns without running.
	job.Run()

	if got := runs.Load(); got != 1 {
		t.Errorf("runs while first tick active = %d, want 1", got)
	}

	close(release)
	wg.Wait()

	// Once the first run finished the next tick runs again.
	job.Run()

	if got := runs.Load(); got != 2 {
		t.Errorf("runs after first tick finished = %d, want 2", got)
	}

	if overlap.Load() {
		t.Error("two runs were active at the same time")
	}
}

func TestNonOverlapping_RecoversPanic(t *testing.T) {
	var runs atomic.Int32

	job := NonOverlapping(logger.Discard(), func() {
		runs.Add(1)
		panic("boom")
	})

	job.Run()
	job.Run()

	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestNewScheduler(t *testing.T) {
	if _, err := NewScheduler("every tuesday", logger.Discard(), func() {}); err == nil {
		t.Error("NewScheduler accepted an invalid expression")
	}

	c, err := NewScheduler("*/5 * * * *", logger.Discard(), func() {})
	if err != nil {
		t.Fatalf("NewScheduler returned error: %v", err)
	}

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	c.Start()

	select {
	case <-c.Stop().Done():
	case <-time.After(time.Second):
		t.Error("scheduler did not stop")
	}
}
