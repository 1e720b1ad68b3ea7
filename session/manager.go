package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"obfuscator-web/notify"
	"obfuscator-web/obfuscator"
	"obfuscator-web/options"
	"obfuscator-web/transform"
)

var ErrNotFound = errors.New("session not found")

// Option configures a Manager.
type Option func(*Manager)

// WithHubOptions passes options to every session's notification hub.
func WithHubOptions(opts ...notify.Option) Option {
	return func(m *Manager) { m.hubOpts = append(m.hubOpts, opts...) }
}

// WithClipboard replaces the client clipboard bridge. Tests use it to stub
// the platform clipboard.
func WithClipboard(fn func(*Session) Clipboard) Option {
	return func(m *Manager) { m.clipboardFn = fn }
}

// WithClipboardTimeout bounds how long Copy waits for the page to answer a
// clipboard request.
func WithClipboardTimeout(d time.Duration) Option {
	return func(m *Manager) { m.clipboardTimeout = d }
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	opts        *options.Manager
	invoker     *transform.Invoker
	log         *zap.Logger
	hubOpts     []notify.Option
	clipboardFn func(*Session) Clipboard

	clipboardTimeout time.Duration
}

// NewManager returns a Manager whose sessions share opts and obf. A nil obf
// means the obfuscator library is not loaded.
func NewManager(opts *options.Manager, obf obfuscator.Obfuscator, log *zap.Logger, mopts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		invoker:  transform.NewInvoker(obf, log),
		log:      log,
	}
	for _, o := range mopts {
		o(m)
	}
	return m
}

// Options returns the shared options manager.
func (m *Manager) Options() *options.Manager {
	return m.opts
}

// Loaded reports whether the obfuscator library is available.
func (m *Manager) Loaded() bool {
	return m.invoker.Loaded()
}

// Create opens a new session in its initial state.
func (m *Manager) Create() *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		lastActive: now,
		hub:        notify.NewHub(m.hubOpts...),
		invoker:    m.invoker,
		opts:       m.opts,
		log:        m.log,
		done:       make(chan struct{}),
	}
	if m.clipboardFn != nil {
		s.clipboard = m.clipboardFn(s)
	} else {
		s.bridge = newClientClipboard(s, m.clipboardTimeout)
		s.clipboard = s.bridge
	}
	s.stopReset = m.opts.OnReset(s.publishOptions)
	s.hub.SetStatus(MsgReady, true)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Debug("session created", zap.String("session", s.ID))
	return s
}

// List returns all sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	infos := make([]Info, len(list))
	for i, s := range list {
		infos[i] = s.Info()
	}
	return infos
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Kill closes a session and forgets it.
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.close()
	m.log.Debug("session killed", zap.String("session", id))
	return nil
}

// Close kills every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}
