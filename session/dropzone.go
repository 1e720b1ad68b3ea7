package session

import "sync"

// DropZone tracks whether something is being dragged over the page.
type DropZone struct {
	mu       sync.Mutex
	dragging bool
}

func (d *DropZone) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging
}

// set updates the state and reports whether it changed.
func (d *DropZone) set(v bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragging == v {
		return false
	}
	d.dragging = v
	return true
}
