package options

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"obfuscator-web/kv"
)

// Manager loads and persists the options record through a kv.Store.
//
// Persistence is best-effort: Load never fails and Save never reports an
// error.
type Manager struct {
	mu      sync.RWMutex
	store   kv.Store
	log     *zap.Logger
	nextID  int
	onReset map[int]func(Options)
}

// NewManager returns a Manager over store. A nil logger disables logging.
func NewManager(store kv.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, onReset: make(map[int]func(Options))}
}

// Load returns the persisted record. An absent or undecodable value yields
// Defaults() as a whole; keys missing from a decodable record keep their
// default.
func (m *Manager) Load() Options {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok, err := m.store.Get(StorageKey)
	if err != nil {
		m.log.Debug("options read failed", zap.Error(err))
		return Defaults()
	}
	if !ok || raw == "" || raw == "null" {
		return Defaults()
	}

	o := Defaults()
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		m.log.Debug("options decode failed, using defaults", zap.Error(err))
		return Defaults()
	}
	return o
}

// Save persists o. Failures are logged and dropped.
func (m *Manager) Save(o Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.save(o)
}

func (m *Manager) save(o Options) {
	raw, err := json.Marshal(o)
	if err != nil {
		m.log.Debug("options encode failed", zap.Error(err))
		return
	}
	if err := m.store.Set(StorageKey, string(raw)); err != nil {
		m.log.Debug("options write failed", zap.Error(err))
	}
}

// Reset persists Defaults() and notifies reset listeners.
func (m *Manager) Reset() Options {
	d := Defaults()

	m.mu.Lock()
	m.save(d)
	listeners := make([]func(Options), 0, len(m.onReset))
	for _, fn := range m.onReset {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(d)
	}
	return d
}

// OnReset registers fn to run after every Reset. The returned func
// unregisters it.
func (m *Manager) OnReset(fn func(Options)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.onReset[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.onReset, id)
	}
}
