// Package favorites stores up to three favorite transports in fixed, named
// slots of a persistent string dictionary.
//
// Allocation always takes the first free slot in order (ONE, TWO, THREE). The
// store never compacts and never moves a record to another slot.
package favorites

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	"github.com/zhouzirui/transport-eta/backend/internal/storage/prefs"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

// Store is a three-slot key-value store over a prefs.Dictionary.
//
// Every slot is read once in New. Afterwards the in-memory slots are the
// source of truth for lookups; writes go to the dictionary first and are only
// reflected in memory once the dictionary accepted them.
type Store struct {
	dict   prefs.Dictionary
	mapper Mapper
	lggr   logger.Logger

	mu         sync.RWMutex
	slots      [slotCount]*Record
	unregister func()
}

// New loads every slot from dict and subscribes to its change notifications.
func New(dict prefs.Dictionary, mapper Mapper, lggr logger.Logger) (*Store, error) {
	if dict == nil {
		return nil, errors.New("favorites: dictionary is required")
	}
	if mapper == nil {
		mapper = JSONMapper{}
	}
	if lggr == nil {
		lggr = logger.Nop()
	}

	s := &Store{dict: dict, mapper: mapper, lggr: lggr}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.unregister = dict.RegisterListener(s.onPrefsChanged)
	return s, nil
}

func (s *Store) load() error {
	for _, slot := range Slots() {
		raw, ok, err := s.dict.GetString(slot.Key())
		if err != nil {
			return fmt.Errorf("read %s: %w", slot, err)
		}
		if !ok {
			continue
		}

		record, err := s.mapper.Deserialize(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCorrupt, slot, err)
		}
		record.Slot = &slot
		s.slots[slot] = &record
	}

	s.lggr.Infof("[favorites] loaded %d of %d slots", s.count(), slotCount)
	return nil
}

// onPrefsChanged runs synchronously inside dictionary writes, possibly while
// s.mu is held, so it must not touch the slots.
func (s *Store) onPrefsChanged(key string) {
	if _, err := ParseSlot(key); err != nil {
		return
	}
	s.lggr.Debugf("[favorites] prefs key changed: %s", key)
}

// Save stores entity in the first free slot.
func (s *Store) Save(entity transport.Transport) (Record, error) {
	record := s.mapper.ToModel(entity)
	if strings.TrimSpace(record.ID) == "" {
		return Record{}, fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.find(record.ID); found {
		return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, record.ID)
	}

	slot, ok := s.firstFree()
	if !ok {
		return Record{}, ErrNoCapacity
	}

	record.Slot = &slot
	raw, err := s.mapper.Serialize(record)
	if err != nil {
		return Record{}, err
	}
	if err := s.dict.PutString(slot.Key(), raw); err != nil {
		return Record{}, fmt.Errorf("write %s: %w", slot, err)
	}

	stored := record.clone()
	s.slots[slot] = &stored
	s.lggr.Infof("[favorites] saved %s to %s", record.ID, slot)
	return record.clone(), nil
}

// Delete removes the record with the given id and frees its slot.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, found := s.find(id)
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.dict.Remove(slot.Key()); err != nil {
		return fmt.Errorf("remove %s: %w", slot, err)
	}

	s.slots[slot] = nil
	s.lggr.Infof("[favorites] deleted %s from %s", id, slot)
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, found := s.find(id)
	if !found {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.slots[slot].clone(), nil
}

// List returns every stored record in slot order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Record, 0, slotCount)
	for _, record := range s.slots {
		if record != nil {
			records = append(records, record.clone())
		}
	}
	return records
}

// Clear removes every occupied slot. On error the slots cleared so far stay
// cleared.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range Slots() {
		if s.slots[slot] == nil {
			continue
		}
		if err := s.dict.Remove(slot.Key()); err != nil {
			return fmt.Errorf("remove %s: %w", slot, err)
		}
		s.slots[slot] = nil
	}
	s.lggr.Infof("[favorites] cleared all slots")
	return nil
}

// Mapper returns the mapper used to convert records.
func (s *Store) Mapper() Mapper { return s.mapper }

// Close stops listening for dictionary changes. It does not close the dictionary.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unregister != nil {
		s.unregister()
		s.unregister = nil
	}
	return nil
}

func (s *Store) find(id string) (Slot, bool) {
	for _, slot := range Slots() {
		if record := s.slots[slot]; record != nil && record.ID == id {
			return slot, true
		}
	}
	return 0, false
}

func (s *Store) firstFree() (Slot, bool) {
	for _, slot := range Slots() {
		if s.slots[slot] == nil {
			return slot, true
		}
	}
	return 0, false
}

func (s *Store) count() int {
	n := 0
	for _, record := range s.slots {
		if record != nil {
			n++
		}
	}
	return n
}
