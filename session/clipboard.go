package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"obfuscator-web/notify"
)

var (
	ErrNoClient         = errors.New("no client connected")
	ErrClipboardDenied  = errors.New("clipboard write rejected by client")
	ErrSessionClosed    = errors.New("session closed")
	ErrClipboardTimeout = errors.New("clipboard write not answered by client")
)

// DefaultClipboardTimeout bounds the wait for a clipboard-result answer.
const DefaultClipboardTimeout = 10 * time.Second

// Clipboard writes text to the user's clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(ctx context.Context, text string) error

func (f ClipboardFunc) WriteText(ctx context.Context, text string) error { return f(ctx, text) }

// clientClipboard asks the connected page to write the text and waits for
// its clipboard-result answer.
type clientClipboard struct {
	s       *Session
	timeout time.Duration
	mu      sync.Mutex
	pending map[string]chan bool
}

func newClientClipboard(s *Session, timeout time.Duration) *clientClipboard {
	if timeout <= 0 {
		timeout = DefaultClipboardTimeout
	}
	return &clientClipboard{s: s, timeout: timeout, pending: make(map[string]chan bool)}
}

func (c *clientClipboard) WriteText(ctx context.Context, text string) error {
	if !c.s.Connected() {
		return ErrNoClient
	}

	id := uuid.New().String()
	ch := make(chan bool, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.s.hub.Publish(notify.Event{Type: EventClipboard, ID: id, Data: text})

	// A page that never answers must not hold the caller past c.timeout.
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case ok := <-ch:
		if !ok {
			return ErrClipboardDenied
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.s.done:
		return ErrSessionClosed
	case <-timer.C:
		return ErrClipboardTimeout
	}
}

func (c *clientClipboard) resolve(id string, ok bool) bool {
	c.mu.Lock()
	ch, found := c.pending[id]
	c.mu.Unlock()
	if !found {
		return false
	}
	select {
	case ch <- ok:
	default:
	}
	return true
}
