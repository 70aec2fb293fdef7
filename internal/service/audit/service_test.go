package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]audit.Event
	closed  bool
}

func (w *recordingWriter) Write(ctx context.Context, events []audit.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]audit.Event(nil), events...))
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) events() []audit.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []audit.Event
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func TestSink_BatchesAndDrainsOnClose(t *testing.T) {
	w := &recordingWriter{}
	s := NewSink(w, Config{BatchSize: 2, FlushInterval: time.Hour})

	for i := 0; i < 5; i++ {
		s.Emit(context.Background(), audit.Event{Action: audit.ActionDebtPayment, EntityID: "d"})
	}
	require.NoError(t, s.Close())

	got := w.events()
	assert.Len(t, got, 5)
	assert.True(t, w.closed)
	for _, e := range got {
		assert.False(t, e.OccurredAt.IsZero())
	}
}

func TestSink_FlushesOnInterval(t *testing.T) {
	w := &recordingWriter{}
	s := NewSink(w, Config{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	defer s.Close()

	s.Emit(context.Background(), audit.Event{Action: audit.ActionRunCreated})
	assert.Eventually(t, func() bool { return len(w.events()) == 1 }, time.Second, 5*time.Millisecond)
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	fail      error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.fail != nil {
		return f.fail
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPWriter_Publishes(t *testing.T) {
	ch := &fakeChannel{}
	w := &AMQPWriter{ch: ch, exchange: "payroll.audit"}

	err := w.Write(context.Background(), []audit.Event{{
		Action:     audit.ActionRunPaid,
		CompanyID:  "co-1",
		EntityType: audit.EntityPayrollRun,
		EntityID:   "run-1",
	}})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)
	assert.Equal(t, "audit.PAYROLL_RUN_PAID", ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var e audit.Event
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &e))
	assert.Equal(t, "run-1", e.EntityID)

	ch.fail = errors.New("channel closed")
	assert.Error(t, w.Write(context.Background(), []audit.Event{{Action: audit.ActionRunPaid}}))
	assert.NoError(t, w.Close())
}

func TestStreamWriter_PublishesPerCompany(t *testing.T) {
	hub := sse.NewHub(4)
	events, cleanup := hub.Subscribe("co-1")
	defer cleanup()

	next := &recordingWriter{}
	w := NewStreamWriter(next, hub)
	err := w.Write(context.Background(), []audit.Event{
		{Action: audit.ActionRunCreated, CompanyID: "co-1", EntityID: "run-1"},
		{Action: audit.ActionDebtCreated, CompanyID: "co-2", EntityID: "debt-1"},
	})
	require.NoError(t, err)
	assert.Len(t, next.events(), 2)

	require.Len(t, events, 1)
	got := <-events
	assert.Equal(t, string(audit.ActionRunCreated), got.Event)
	assert.Equal(t, "run-1", got.Data.(audit.Event).EntityID)

	require.NoError(t, w.Close())
	assert.True(t, next.closed)
}
