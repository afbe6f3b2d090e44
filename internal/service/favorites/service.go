package favorites

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
	favstore "github.com/zhouzirui/transport-eta/backend/internal/storage/favorites"
	"github.com/zhouzirui/transport-eta/backend/pkg/logger"
)

var (
	ErrCodeRequired = errors.New("transport code is required")
	ErrNameRequired = errors.New("transport name is required")

	ErrNotFound      = favstore.ErrNotFound
	ErrNoCapacity    = favstore.ErrNoCapacity
	ErrAlreadyExists = favstore.ErrAlreadyExists
)

// Repository is the slotted storage the service persists favorites in.
type Repository interface {
	Save(entity transport.Transport) (favstore.Record, error)
	Delete(id string) error
	Get(id string) (favstore.Record, error)
	List() []favstore.Record
	Clear() error
}

// EventType names the kind of change a ChangeEvent describes.
type EventType string

const (
	EventSaved   EventType = "saved"
	EventRemoved EventType = "removed"
	EventCleared EventType = "cleared"
)

// ChangeEvent is published after every successful mutation and carries the
// full favorites list as it stands afterwards.
type ChangeEvent struct {
	Type      EventType             `json:"type"`
	Transport *transport.Transport  `json:"transport,omitempty"`
	Favorites []transport.Transport `json:"favorites"`
	At        time.Time             `json:"at"`
}

const subscriberBuffer = 16

// Service 封装收藏相关的用例：标记、取消、查询与清空。
type Service struct {
	repo   Repository
	mapper favstore.Mapper
	lggr   logger.Logger
	now    func() time.Time

	mu          sync.Mutex
	nextSubID   int
	subscribers map[int]chan ChangeEvent
	closed      bool
}

// NewService wires the favorites use-cases to repo.
func NewService(repo Repository, mapper favstore.Mapper, lggr logger.Logger) *Service {
	if mapper == nil {
		mapper = favstore.JSONMapper{}
	}
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Service{
		repo:        repo,
		mapper:      mapper,
		lggr:        lggr,
		now:         func() time.Time { return time.Now().UTC() },
		subscribers: make(map[int]chan ChangeEvent),
	}
}

// MarkAsFavorite stores t as a favorite, assigning an id when it has none.
func (s *Service) MarkAsFavorite(ctx context.Context, t transport.Transport) (transport.Transport, error) {
	if err := ctx.Err(); err != nil {
		return transport.Transport{}, err
	}

	t.ID = strings.TrimSpace(t.ID)
	t.Code = strings.TrimSpace(t.Code)
	t.Name = strings.TrimSpace(t.Name)
	if t.Code == "" {
		return transport.Transport{}, ErrCodeRequired
	}
	if t.Name == "" {
		return transport.Transport{}, ErrNameRequired
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Type == "" {
		t.Type = transport.TypeUnknown
	}
	t.IsFavorite = true
	t.LastUpdated = s.now()

	record, err := s.repo.Save(t)
	if err != nil {
		return transport.Transport{}, err
	}

	saved := s.mapper.ToEntity(record)
	s.publish(EventSaved, &saved)
	return saved, nil
}

// RemoveAsFavorite deletes the favorite with the given id.
func (s *Service) RemoveAsFavorite(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	removed := s.mapper.ToEntity(record)
	removed.IsFavorite = false
	s.publish(EventRemoved, &removed)
	return nil
}

// Get returns a single favorite.
func (s *Service) Get(ctx context.Context, id string) (transport.Transport, error) {
	if err := ctx.Err(); err != nil {
		return transport.Transport{}, err
	}
	record, err := s.repo.Get(id)
	if err != nil {
		return transport.Transport{}, err
	}
	return s.mapper.ToEntity(record), nil
}

// GetAll returns every favorite in slot order.
func (s *Service) GetAll(ctx context.Context) ([]transport.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.list(), nil
}

// FindByCode returns the favorite registered for a stop code, if any.
func (s *Service) FindByCode(ctx context.Context, code string) (transport.Transport, bool) {
	if ctx.Err() != nil {
		return transport.Transport{}, false
	}
	for _, t := range s.list() {
		if t.Code == code {
			return t, true
		}
	}
	return transport.Transport{}, false
}

// ClearAll removes every favorite.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.repo.Clear(); err != nil {
		return err
	}
	s.publish(EventCleared, nil)
	return nil
}

// Subscribe returns a channel receiving every ChangeEvent and a function that
// cancels the subscription. Slow subscribers miss events rather than block writers.
func (s *Service) Subscribe() (<-chan ChangeEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// Close ends every subscription.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Service) list() []transport.Transport {
	records := s.repo.List()
	items := make([]transport.Transport, 0, len(records))
	for _, record := range records {
		items = append(items, s.mapper.ToEntity(record))
	}
	return items
}

func (s *Service) publish(kind EventType, t *transport.Transport) {
	event := ChangeEvent{Type: kind, Transport: t, Favorites: s.list(), At: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.lggr.Warnf("[favorites] subscriber %d is full, dropping %s event", id, kind)
		}
	}
}
