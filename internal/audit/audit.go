// Package audit records every network attempt made by the submission engine.
// Records are queued without blocking the engine and written by a background
// goroutine; when the queue is full records are dropped and counted.
package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

const (
	DefaultAuditBuffer  = 1024
	DefaultAuditTimeout = 5 * time.Second
)

// Repository persists audit events.
type Repository interface {
	Insert(ctx context.Context, event Event) error
}

// Event is one audited network attempt.
type Event struct {
	ID            string    `db:"id" json:"id"`
	Timestamp     time.Time `db:"ts" json:"timestamp"`
	TraceID       string    `db:"trace_id" json:"trace_id"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	Endpoint      string    `db:"endpoint" json:"endpoint"`
	Kind          string    `db:"kind" json:"kind"`
	Attempt       int       `db:"attempt" json:"attempt"`
	Code          string    `db:"code" json:"code"`
	Error         string    `db:"error" json:"error"`
	DurationMS    int64     `db:"duration_ms" json:"duration_ms"`
}

// EventFrom converts an engine request event.
func EventFrom(ctx context.Context, ev chain.RequestEvent, now time.Time) Event {
	out := Event{
		ID:            uuid.NewString(),
		Timestamp:     now.UTC(),
		TraceID:       logger.TraceIDFromContext(ctx),
		TransactionID: ev.TransactionID.String(),
		Endpoint:      ev.Endpoint,
		Kind:          ev.Kind,
		Attempt:       ev.Attempt,
		Code:          ev.Code.String(),
		DurationMS:    ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}

// AuditLogger queues events for a Repository.
type AuditLogger struct {
	repo    Repository
	timeout time.Duration
	log     *logger.Logger

	queue   chan Event
	once    sync.Once
	stopped atomic.Bool
	dropped atomic.Uint64
	written atomic.Uint64
	failed  atomic.Uint64

	wg sync.WaitGroup
}

// NewAuditLogger returns a logger writing to repo. Non-positive buffer and
// timeout select the defaults.
func NewAuditLogger(repo Repository, buffer int, timeout time.Duration, log *logger.Logger) *AuditLogger {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	if timeout <= 0 {
		timeout = DefaultAuditTimeout
	}
	if log == nil {
		log = logger.NewDefault("audit")
	}
	return &AuditLogger{
		repo:    repo,
		timeout: timeout,
		log:     log,
		queue:   make(chan Event, buffer),
	}
}

func (l *AuditLogger) Start() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.wg.Add(1)
		go l.run()
	})
}

// Stop closes the queue and waits for queued events to be written.
func (l *AuditLogger) Stop(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if !l.stopped.CompareAndSwap(false, true) {
		return nil
	}

	close(l.queue)

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit stop: %w", ctx.Err())
	}
}

func (l *AuditLogger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Written returns how many events the repository accepted.
func (l *AuditLogger) Written() uint64 {
	if l == nil {
		return 0
	}
	return l.written.Load()
}

// Failed returns how many events the repository rejected.
func (l *AuditLogger) Failed() uint64 {
	if l == nil {
		return 0
	}
	return l.failed.Load()
}

// Log enqueues an event. It never blocks; events are dropped when the queue
// is full.
func (l *AuditLogger) Log(event Event) bool {
	if l == nil || l.stopped.Load() {
		return false
	}

	select {
	case l.queue <- event:
		return true
	default:
		l.dropped.Add(1)
		return false
	}
}

// Hook returns a request hook feeding this logger, for chain.WithOnRequest.
func (l *AuditLogger) Hook() chain.RequestHook {
	return func(ctx context.Context, ev chain.RequestEvent) {
		l.Log(EventFrom(ctx, ev, time.Now()))
	}
}

func (l *AuditLogger) run() {
	defer l.wg.Done()

	for event := range l.queue {
		if l.repo == nil {
			continue
		}

		reqCtx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err := l.repo.Insert(reqCtx, event)
		cancel()
		if err != nil {
			l.failed.Add(1)
			l.log.WithError(err).WithField("transaction_id", event.TransactionID).Warn("audit write failed")
			continue
		}
		l.written.Add(1)
	}
}
