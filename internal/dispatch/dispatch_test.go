package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTasksRunExactlyOnce(t *testing.T) {
	d := New(zerolog.Nop(), WithBufferSize(4))
	var count atomic.Int32
	for i := 0; i < 20; i++ {
		d.Submit(Task{Name: "count", Run: func(ctx context.Context) error {
			count.Add(1)
			return nil
		}})
	}
	d.Close()
	if got := count.Load(); got != 20 {
		t.Fatalf("expected 20 runs, got %d", got)
	}
}

func TestSubmitDoesNotBlockOnSlowTask(t *testing.T) {
	d := New(zerolog.Nop(), WithBufferSize(1))
	release := make(chan struct{})
	slow := Task{Name: "slow", Run: func(ctx context.Context) error {
		<-release
		return nil
	}}

	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Submit(slow)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("submit blocked")
	}
	close(release)
	d.Close()
}

func TestFailingTaskDoesNotStopOthers(t *testing.T) {
	d := New(zerolog.Nop())
	var mu sync.Mutex
	var ran []string
	record := func(name string, err error) Task {
		return Task{Name: name, Run: func(ctx context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return err
		}}
	}
	d.Submit(record("a", errors.New("boom")))
	d.Submit(Task{Name: "panic", Run: func(ctx context.Context) error { panic("bad") }})
	d.Submit(record("b", nil))
	d.Close()

	if len(ran) != 2 || ran[0] != "a" || ran[1] != "b" {
		t.Fatalf("unexpected run order %v", ran)
	}
}

func TestSubmitAfterCloseRunsInline(t *testing.T) {
	d := New(zerolog.Nop())
	d.Close()
	var ran bool
	d.Submit(Task{Name: "late", Run: func(ctx context.Context) error {
		ran = true
		return nil
	}})
	if !ran {
		t.Fatalf("expected late task to run inline")
	}
}
