// Package audit delivers engine audit events to a Writer through a buffered, batching
// worker pool. Emit never blocks the caller.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
)

type Config struct {
	BatchSize     int           // default: 50
	FlushInterval time.Duration // default: 2 seconds
	WorkerCount   int           // default: 1
	QueueSize     int           // default: 1000
}

type Sink struct {
	writer audit.Writer
	config Config

	queue    chan audit.Event
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewSink(writer audit.Writer, cfg Config) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	s := &Sink{
		writer: writer,
		config: cfg,
		queue:  make(chan audit.Event, cfg.QueueSize),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Audit sink started", "workers", cfg.WorkerCount, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval)
	return s
}

// Emit queues e. A full queue drops the event with a warning.
func (s *Sink) Emit(ctx context.Context, e audit.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	select {
	case s.queue <- e:
	default:
		slog.Warn("Audit queue full, event dropped", "action", e.Action, "entity_id", e.EntityID)
	}
}

// Close drains the queue, flushes every worker and closes the writer.
func (s *Sink) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	slog.Info("Audit sink stopped")
	return s.writer.Close()
}

func (s *Sink) worker(id int) {
	defer s.wg.Done()

	batch := make([]audit.Event, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.writer.Write(ctx, batch); err != nil {
			slog.Error("Failed to write audit events", "worker", id, "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			for {
				select {
				case e := <-s.queue:
					batch = append(batch, e)
					if len(batch) >= s.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Discard is a Sink that drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, audit.Event) {}
