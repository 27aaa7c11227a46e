// Package dispatch runs post-commit side effects off the request path.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 10 * time.Second
)

// Task is one best-effort side effect. Its error is logged, never propagated.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Option func(*Dispatcher)

func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.bufSize = n
		}
	}
}

func WithDrainTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.drainTimeout = t }
}

// Dispatcher executes tasks on a background goroutine in submission order.
// Each submitted task is attempted exactly once.
type Dispatcher struct {
	logger       zerolog.Logger
	ch           chan Task
	done         chan struct{}
	bufSize      int
	drainTimeout time.Duration
	overflow     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New(logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:       logger,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ch = make(chan Task, d.bufSize)
	d.done = make(chan struct{})
	go d.drain()
	return d
}

// Submit enqueues a task without blocking. When the buffer is full the task
// runs on its own goroutine; after Close it runs inline.
func (d *Dispatcher) Submit(task Task) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.run(task)
		return
	}
	select {
	case d.ch <- task:
	default:
		d.logger.Warn().Str("task", task.Name).Msg("dispatch buffer full, running task out of band")
		d.overflow.Add(1)
		go func() {
			defer d.overflow.Done()
			d.run(task)
		}()
	}
}

// Close stops accepting queued work and waits for pending tasks, bounded by the drain timeout.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-d.done
		d.overflow.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(d.drainTimeout):
		d.logger.Warn().Msg("dispatch drain timed out")
	}
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for task := range d.ch {
		d.run(task)
	}
}

func (d *Dispatcher) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("task", task.Name).Interface("panic", r).Msg("dispatch task panicked")
		}
	}()
	if err := task.Run(context.Background()); err != nil {
		d.logger.Warn().Err(err).Str("task", task.Name).Msg("dispatch task failed")
	}
}
