package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
)

type EventHandler interface {
	// Stream pushes the caller's company audit events as server-sent events.
	Stream(w http.ResponseWriter, r *http.Request)
}

type eventHandlerImpl struct {
	hub       *sse.Hub
	keepalive time.Duration
}

func NewEventHandler(hub *sse.Hub) EventHandler {
	return &eventHandlerImpl{hub: hub, keepalive: 30 * time.Second}
}

func (h *eventHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	a, err := actor.Require(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(a.CompanyID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"company_id\":%q}\n\n", a.CompanyID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
