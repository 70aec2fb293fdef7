package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishIsTenantScoped(t *testing.T) {
	h := NewHub(4)
	a, cleanupA := h.Subscribe("co-1")
	defer cleanupA()
	b, cleanupB := h.Subscribe("co-2")
	defer cleanupB()

	assert.Equal(t, 1, h.Publish(Event{CompanyID: "co-1", Event: "PAYROLL_RUN_CREATED"}))

	require.Len(t, a, 1)
	assert.Equal(t, "PAYROLL_RUN_CREATED", (<-a).Event)
	assert.Len(t, b, 0)
}

func TestHub_FullSubscriberIsSkipped(t *testing.T) {
	h := NewHub(1)
	ch, cleanup := h.Subscribe("co-1")
	defer cleanup()

	assert.Equal(t, 1, h.Publish(Event{CompanyID: "co-1", Event: "first"}))
	assert.Equal(t, 0, h.Publish(Event{CompanyID: "co-1", Event: "second"}))
	assert.Equal(t, "first", (<-ch).Event)
}

func TestHub_CleanupUnsubscribes(t *testing.T) {
	h := NewHub(1)
	ch, cleanup := h.Subscribe("co-1")
	assert.Equal(t, 1, h.SubscriberCount("co-1"))

	cleanup()
	cleanup()
	assert.Equal(t, 0, h.SubscriberCount("co-1"))
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Publish(Event{CompanyID: "co-1"}))
}
