package prefs

import (
	"sort"
	"sync"
)

// MemoryDictionary implements Dictionary with an in-memory map, suitable for tests
// and ephemeral deployments.
type MemoryDictionary struct {
	mu        sync.RWMutex
	values    map[string]string
	listeners listeners
}

// NewMemoryDictionary returns an empty MemoryDictionary.
func NewMemoryDictionary() *MemoryDictionary {
	return &MemoryDictionary{values: make(map[string]string)}
}

func (d *MemoryDictionary) GetString(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.values[key]
	return value, ok, nil
}

func (d *MemoryDictionary) PutString(key, value string) error {
	d.mu.Lock()
	d.values[key] = value
	d.mu.Unlock()

	d.listeners.notify(key)
	return nil
}

func (d *MemoryDictionary) Remove(key string) error {
	d.mu.Lock()
	delete(d.values, key)
	d.mu.Unlock()

	d.listeners.notify(key)
	return nil
}

func (d *MemoryDictionary) Keys() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.values))
	for key := range d.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *MemoryDictionary) RegisterListener(fn Listener) func() {
	return d.listeners.register(fn)
}

func (d *MemoryDictionary) Close() error { return nil }
