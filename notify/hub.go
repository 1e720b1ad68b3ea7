// Package notify holds the status line and transient toasts of a workspace
// and fans their changes out to subscribers as events. It knows nothing about
// rendering; the page draws whatever the event stream says.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultToastTTL  = 2200 * time.Millisecond
	DefaultToastExit = 180 * time.Millisecond

	subscriberBuffer = 64
)

// Kind classifies a toast.
type Kind string

const (
	Success Kind = "success"
	Failure Kind = "error"
)

// Icon returns the glyph shown next to a toast of kind k.
func (k Kind) Icon() string {
	if k == Success {
		return "✅"
	}
	return "⚠️"
}

// Status is the single-line status message.
type Status struct {
	Message string `json:"message"`
	OK      bool   `json:"ok"`
}

// Toast is one transient notification.
type Toast struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Icon      string    `json:"icon"`
	Message   string    `json:"message"`
	Leaving   bool      `json:"leaving"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType names an event on the stream.
type EventType string

const (
	EventStatus       EventType = "status"
	EventToast        EventType = "toast"
	EventToastLeaving EventType = "toast-leaving"
	EventToastRemoved EventType = "toast-removed"
)

// Event is one entry on the stream. Status and Toast are set for the
// matching event types; other publishers use ID and Data.
type Event struct {
	Type   EventType `json:"type"`
	Status *Status   `json:"status,omitempty"`
	Toast  *Toast    `json:"toast,omitempty"`
	ID     string    `json:"id,omitempty"`
	Data   any       `json:"data,omitempty"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithToastTiming overrides the display time and exit animation time.
func WithToastTiming(ttl, exit time.Duration) Option {
	return func(h *Hub) {
		h.ttl = ttl
		h.exit = exit
	}
}

// Hub is safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	status Status
	toasts []Toast
	timers map[string]*time.Timer
	subs   map[int]chan Event
	nextID int
	closed bool

	ttl  time.Duration
	exit time.Duration
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]chan Event),
		ttl:    DefaultToastTTL,
		exit:   DefaultToastExit,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SetStatus overwrites the status line.
func (h *Hub) SetStatus(msg string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = Status{Message: msg, OK: ok}
	st := h.status
	h.emit(Event{Type: EventStatus, Status: &st})
}

// Status returns the current status line.
func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Toast appends a toast and schedules its exit and removal.
func (h *Hub) Toast(msg string, kind Kind) Toast {
	t := Toast{
		ID:        uuid.New().String(),
		Kind:      kind,
		Icon:      kind.Icon(),
		Message:   msg,
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return t
	}
	h.toasts = append(h.toasts, t)
	h.timers[t.ID] = time.AfterFunc(h.ttl, func() { h.leave(t.ID) })
	cp := t
	h.emit(Event{Type: EventToast, Toast: &cp})
	return t
}

// Toasts returns a copy of the toasts currently shown, oldest first.
func (h *Hub) Toasts() []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Toast, len(h.toasts))
	copy(out, h.toasts)
	return out
}

// Publish sends an arbitrary event to subscribers.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emit(ev)
}

// Subscribe returns a channel of events and a func that ends the
// subscription. Events are dropped for a subscriber whose buffer is full.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops pending toast timers and closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for i := range h.toasts {
		if h.toasts[i].ID != id {
			continue
		}
		h.toasts[i].Leaving = true
		cp := h.toasts[i]
		h.timers[id] = time.AfterFunc(h.exit, func() { h.remove(id) })
		h.emit(Event{Type: EventToastLeaving, Toast: &cp})
		return
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.timers, id)
	if h.closed {
		return
	}
	for i := range h.toasts {
		if h.toasts[i].ID != id {
			continue
		}
		cp := h.toasts[i]
		h.toasts = append(h.toasts[:i], h.toasts[i+1:]...)
		h.emit(Event{Type: EventToastRemoved, Toast: &cp})
		return
	}
}

// emit delivers ev without blocking. Caller must hold h.mu.
func (h *Hub) emit(ev Event) {
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
