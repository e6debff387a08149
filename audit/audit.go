// Package audit provides an async audit trail for identity decisions.
//
// Route guard outcomes, org activations, and device trust transitions are
// recorded as structured events and fanned out to handlers off the request
// path. Handlers must not block.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the identity packages.
const (
	ActionGuardDecision = "guard_decision"
	ActionActivation    = "org_activation"
	ActionGateDecision  = "gate_decision"
	ActionDeviceTrust   = "device_trust"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	OrgID     string    `json:"org_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Action    string    `json:"action"`
	Path      string    `json:"path,omitempty"`
	Result    string    `json:"result"`
	Detail    string    `json:"detail,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Trail buffers events and fans them out to handlers asynchronously.
type Trail struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures Trail behavior.
type Option func(*Trail)

// WithStdoutHandler adds a handler that writes JSON events to stdout.
func WithStdoutHandler() Option {
	return func(t *Trail) {
		t.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(t *Trail) {
		t.AddHandler(h)
	}
}

// New creates an audit trail with buffered async emission.
// bufferSize: event queue buffer size (default: 1000).
func New(bufferSize int, opts ...Option) *Trail {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	trail := &Trail{
		handlers: make([]Handler, 0),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(trail)
	}

	trail.wg.Add(1)
	go trail.process()

	return trail
}

// AddHandler adds a handler to receive audit events.
func (t *Trail) AddHandler(h Handler) {
	t.handlers = append(t.handlers, h)
}

// Record emits an audit event asynchronously. Missing IDs and timestamps
// are filled in.
func (t *Trail) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case t.queue <- event:
	case <-t.done:
		// Trail is shutting down, event is dropped
	}
}

// process handles events from the queue.
func (t *Trail) process() {
	defer t.wg.Done()

	for {
		select {
		case event := <-t.queue:
			for _, h := range t.handlers {
				h(event)
			}
		case <-t.done:
			// Drain remaining events
			for {
				select {
				case event := <-t.queue:
					for _, h := range t.handlers {
						h(event)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending events and stops the trail.
func (t *Trail) Close() error {
	close(t.done)
	t.wg.Wait()
	return nil
}

// FromContext retrieves the audit trail from context.
func FromContext(ctx context.Context) *Trail {
	trail, ok := ctx.Value(contextKeyTrail).(*Trail)
	if !ok {
		return nil
	}
	return trail
}

// WithContext stores the audit trail in context.
func WithContext(ctx context.Context, trail *Trail) context.Context {
	return context.WithValue(ctx, contextKeyTrail, trail)
}

// RequestID retrieves the request ID from context.
func RequestID(ctx context.Context) string {
	id, ok := ctx.Value(contextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return id
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

type contextKey string

const (
	contextKeyTrail     contextKey = "audit.trail"
	contextKeyRequestID contextKey = "audit.request_id"
)
