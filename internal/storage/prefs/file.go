package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// FileDictionary persists all entries as a single JSON object. Every mutation
// rewrites the file atomically, so a crash leaves either the old or the new
// content on disk.
type FileDictionary struct {
	path string

	mu        sync.RWMutex
	values    map[string]string
	closed    bool
	listeners listeners
}

// OpenFile loads the dictionary stored at path. A missing file is treated as empty.
func OpenFile(path string) (*FileDictionary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("prefs file path is required")
	}
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}

	values := make(map[string]string)
	data, err := os.ReadFile(cleanPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read prefs file: %w", err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decode prefs file %s: %w", cleanPath, err)
		}
	}

	return &FileDictionary{path: cleanPath, values: values}, nil
}

// Path returns the file backing the dictionary.
func (d *FileDictionary) Path() string { return d.path }

func (d *FileDictionary) GetString(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", false, ErrClosed
	}
	value, ok := d.values[key]
	return value, ok, nil
}

func (d *FileDictionary) PutString(key, value string) error {
	return d.mutate(key, func(next map[string]string) {
		next[key] = value
	})
}

func (d *FileDictionary) Remove(key string) error {
	return d.mutate(key, func(next map[string]string) {
		delete(next, key)
	})
}

func (d *FileDictionary) Keys() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	return slices.Sorted(maps.Keys(d.values)), nil
}

func (d *FileDictionary) RegisterListener(fn Listener) func() {
	return d.listeners.register(fn)
}

func (d *FileDictionary) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// mutate applies fn to a copy of the current values and only swaps it in once
// the new content is on disk.
func (d *FileDictionary) mutate(key string, fn func(map[string]string)) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}

	next := maps.Clone(d.values)
	fn(next)

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := atomic.WriteFile(d.path, bytes.NewReader(data)); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("write prefs file: %w", err)
	}
	d.values = next
	d.mu.Unlock()

	d.listeners.notify(key)
	return nil
}
