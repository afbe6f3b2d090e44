// Package prefs provides persistent string dictionaries used as the backing
// store for slotted favorites.
package prefs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zhouzirui/transport-eta/backend/internal/config"
)

// ErrClosed is returned by operations on a closed dictionary.
var ErrClosed = errors.New("dictionary closed")

// Listener is invoked with the key after every successful put or remove.
type Listener func(key string)

// Dictionary is a string-keyed persistent key-value store.
type Dictionary interface {
	// GetString returns the stored value and whether the key exists.
	GetString(key string) (string, bool, error)
	PutString(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
	// RegisterListener subscribes fn to change notifications until the
	// returned function is called.
	RegisterListener(fn Listener) (unregister func())
	Close() error
}

// Open 根据存储配置创建对应的字典实现。
func Open(cfg config.StorageConfig) (Dictionary, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryDictionary(), nil
	case config.BackendFile:
		d, err := OpenFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.BackendSQLite:
		d, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported prefs backend: %q", cfg.Backend)
	}
}

// listeners 保存变更监听器，通知在锁外执行。
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]Listener
}

func (l *listeners) register(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) notify(key string) {
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}
