// Package replay implements the anti-replay cache for identity provider
// responses. A SAML response or assertion id, once consumed, can not be
// consumed again within the TTL window. Keys are namespaced with a prefix
// per IdP integration so two providers can not collide on identical raw
// response ids.
package replay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrAlreadySeen is returned when a response id was consumed before.
var ErrAlreadySeen = errors.New("identity provider response id was already consumed")

// Store records consumed response ids with a TTL. Consume is atomic
// insert-if-absent: under concurrent submissions of the same id at most
// one caller wins.
type Store interface {
	Consume(key string, ttl time.Duration) error
}

// Key builds the namespaced cache key for a response id.
func Key(prefix, responseID string) string {
	return prefix + ":" + responseID
}

// Memory is an in-process Store for dev mode and tests.
type Memory struct {
	mu   sync.Mutex
	seen map[string]time.Time
	stop chan struct{}
	once sync.Once
}

// NewMemory creates a Memory store and starts its expiry janitor.
func NewMemory() *Memory {
	m := &Memory{
		seen: make(map[string]time.Time),
		stop: make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Consume implements Store.
func (m *Memory) Consume(key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if exp, ok := m.seen[key]; ok && now.Before(exp) {
		return ErrAlreadySeen
	}

	m.seen[key] = now.Add(ttl)

	return nil
}

// Close stops the expiry janitor.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanupExpired()
		}
	}
}

func (m *Memory) cleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, exp := range m.seen {
		if now.After(exp) {
			delete(m.seen, key)
		}
	}
}

// ConsumedID is one consumed response id row. The primary key is the
// coordination point: concurrent inserts of the same id across gateway
// instances resolve to exactly one winner in the database, no matter
// how many processes race.
type ConsumedID struct {
	ResponseID string    `gorm:"primaryKey;size:191"`
	ExpiresAt  time.Time `gorm:"index"`
}

// TableName implements the gorm table naming interface.
func (ConsumedID) TableName() string {
	return "saml_replay"
}

// Shared is a Store backed by the gateway database, shared by all
// instances of one deployment. Consume inserts the id and relies on the
// primary key for first-writer-wins; a duplicate key is a replay. The
// database connection must be opened with gorm error translation so
// duplicate-key errors surface as gorm.ErrDuplicatedKey.
type Shared struct {
	db   *gorm.DB
	stop chan struct{}
	once sync.Once
}

// NewShared creates a Store on top of the given database and starts its
// expiry janitor.
func NewShared(db *gorm.DB) *Shared {
	if db == nil {
		panic("db is nil")
	}

	s := &Shared{
		db:   db,
		stop: make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Consume implements Store.
func (s *Shared) Consume(key string, ttl time.Duration) error {
	now := time.Now()

	// An expired row for this id must not block a fresh consumption.
	if err := s.db.Where("response_id = ? AND expires_at <= ?", key, now).Delete(&ConsumedID{}).Error; err != nil {
		return fmt.Errorf("failed to expire replay cache row: %w", err)
	}

	err := s.db.Create(&ConsumedID{ResponseID: key, ExpiresAt: now.Add(ttl)}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadySeen
	}

	if err != nil {
		return fmt.Errorf("failed to write replay cache: %w", err)
	}

	return nil
}

// Close stops the expiry janitor.
func (s *Shared) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Shared) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.db.Where("expires_at <= ?", time.Now()).Delete(&ConsumedID{})
		}
	}
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Shared)(nil)
)
