package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store backed by a single JSON object on disk.
type File struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]string

	decodeErr   error
	corruptPath string
}

// NewFile loads the store from filePath, or starts empty if the file does not
// exist or cannot be decoded. Returns an error only on I/O failures.
func NewFile(filePath string) (*File, error) {
	f := &File{filePath: filePath, data: make(map[string]string)}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("kv: read %s: %w", filePath, err)
	}
	if len(raw) == 0 {
		return f, nil
	}

	if err := json.Unmarshal(raw, &f.data); err != nil {
		// An unreadable store starts empty. The bad file is moved aside so
		// the next Set does not destroy it.
		f.data = make(map[string]string)
		f.decodeErr = fmt.Errorf("kv: decode %s: %w", filePath, err)
		aside := filePath + ".corrupt"
		if err := os.Rename(filePath, aside); err == nil {
			f.corruptPath = aside
		}
		return f, nil
	}
	if f.data == nil {
		f.data = make(map[string]string)
	}
	return f, nil
}

// Recovered reports the decode error that made NewFile start empty, and the
// path the unreadable file was moved to ("" if it could not be moved). The
// error is nil when the file loaded normally.
func (f *File) Recovered() (string, error) {
	return f.corruptPath, f.decodeErr
}

func (f *File) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok, nil
}

// Set writes the whole store to disk, then updates in-memory state. On a
// write failure the in-memory state is left as it was.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string]string, len(f.data)+1)
	for k, v := range f.data {
		next[k] = v
	}
	next[key] = value

	if err := f.writeAtomic(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.filePath
}

// writeAtomic writes to a temp file then renames it over filePath.
// Caller must hold f.mu.
func (f *File) writeAtomic(data map[string]string) error {
	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("kv: create dir: %w", err)
	}

	tmp := f.filePath + ".tmp"
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("kv: write: %w", err)
	}
	if err := os.Rename(tmp, f.filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("kv: rename: %w", err)
	}
	return nil
}
