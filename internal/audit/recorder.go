// Package audit records who changed what on the audited tables. Entries are
// handed to a background Recorder so that audit failures never block or fail
// the request that produced them.
package audit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"bookinventory/internal/metrics"
	"bookinventory/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Operation string

const (
	OpCreate     Operation = model.AuditCreate
	OpUpdate     Operation = model.AuditUpdate
	OpDelete     Operation = model.AuditDelete
	OpSoftDelete Operation = model.AuditSoftDelete
	OpRestore    Operation = model.AuditRestore
)

// OperationForMethod derives the audit operation from an HTTP method
func OperationForMethod(method string) Operation {
	switch method {
	case http.MethodPost:
		return OpCreate
	case http.MethodPut, http.MethodPatch:
		return OpUpdate
	case http.MethodDelete:
		return OpSoftDelete
	default:
		return OpUpdate
	}
}

var (
	ErrQueueFull = errors.New("audit queue full")
	ErrClosed    = errors.New("audit recorder closed")
)

// Entry is one audit row waiting to be written
type Entry struct {
	Table     string         `json:"table_name"`
	RecordID  string         `json:"record_id"`
	Operation Operation      `json:"operation"`
	OldValues datatypes.JSON `json:"old_values,omitempty"`
	NewValues datatypes.JSON `json:"new_values,omitempty"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	UserIP    string         `json:"user_ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	At        time.Time      `json:"at"`
}

func (e Entry) toModel() *model.AuditLog {
	return &model.AuditLog{
		Table:     e.Table,
		RecordID:  e.RecordID,
		Operation: string(e.Operation),
		OldValues: e.OldValues,
		NewValues: e.NewValues,
		UserID:    e.UserID,
		UserIP:    e.UserIP,
		UserAgent: e.UserAgent,
		CreatedAt: e.At,
	}
}

// Store persists audit rows
type Store interface {
	Log(ctx context.Context, entry *model.AuditLog) error
}

// DeadLetter receives entries that could not be persisted
type DeadLetter interface {
	Send(ctx context.Context, entry Entry, reason error)
}

type Options struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	DeadLetter   DeadLetter
	Counters     *metrics.AuditCounters
}

// Recorder persists entries on a fixed worker pool with bounded retry
type Recorder struct {
	store       Store
	deadLetter  DeadLetter
	counters    *metrics.AuditCounters
	log         *zap.Logger
	queue       chan Entry
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts opts.Workers goroutines draining the queue. Call Close
// to flush pending entries and stop them.
func NewRecorder(store Store, log *zap.Logger, opts Options) *Recorder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.DeadLetter == nil {
		opts.DeadLetter = NewLogDeadLetter(log)
	}

	r := &Recorder{
		store:       store,
		deadLetter:  opts.DeadLetter,
		counters:    opts.Counters,
		log:         log,
		queue:       make(chan Entry, opts.QueueSize),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
		timeout:     opts.WriteTimeout,
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Record enqueues e without blocking. It reports false when the entry could
// not be queued; such entries go straight to the dead letter sink.
func (r *Recorder) Record(e Entry) bool {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := r.offer(e); err != nil {
		r.reject(e, err)
		return false
	}
	return true
}

// offer enqueues e without blocking and without dead-lettering it on failure
func (r *Recorder) offer(e Entry) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	select {
	case r.queue <- e:
		r.counters.SetQueueDepth(len(r.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Recorder) reject(e Entry, reason error) {
	r.counters.Inc(e.Table, metrics.AuditDropped)
	r.log.Warn("audit entry not queued",
		zap.String("table", e.Table),
		zap.String("record_id", e.RecordID),
		zap.Error(reason),
	)
	r.deadLetter.Send(context.Background(), e, reason)
}

// Close stops accepting entries and waits for queued ones to be written, or
// for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for e := range r.queue {
		r.counters.SetQueueDepth(len(r.queue))
		r.persist(e)
	}
}

func (r *Recorder) persist(e Entry) {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err = r.store.Log(ctx, e.toModel())
		cancel()
		if err == nil {
			r.counters.Inc(e.Table, metrics.AuditPersisted)
			return
		}

		r.log.Warn("audit write failed",
			zap.String("table", e.Table),
			zap.String("record_id", e.RecordID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < r.maxAttempts {
			r.counters.Inc(e.Table, metrics.AuditRetried)
			time.Sleep(r.backoff * time.Duration(attempt))
		}
	}

	r.counters.Inc(e.Table, metrics.AuditDeadLettered)
	r.deadLetter.Send(context.Background(), e, err)
}
