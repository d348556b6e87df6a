package replay

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestKey(t *testing.T) {
	if got := Key("keycloak-saml-resp", "abc"); got != "keycloak-saml-resp:abc" {
		t.Errorf("Key() = %q, want keycloak-saml-resp:abc", got)
	}
}

func TestMemory_ConsumeOnce(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	if err := m.Consume("k1", time.Minute); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}

	if err := m.Consume("k1", time.Minute); !errors.Is(err, ErrAlreadySeen) {
		t.Fatalf("second Consume() error = %v, want ErrAlreadySeen", err)
	}

	if err := m.Consume("k2", time.Minute); err != nil {
		t.Fatalf("Consume() of fresh key error = %v", err)
	}
}

func TestMemory_ConsumeAfterExpiry(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	if err := m.Consume("k1", 10*time.Millisecond); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := m.Consume("k1", time.Minute); err != nil {
		t.Fatalf("Consume() after expiry error = %v", err)
	}
}

func TestMemory_ConcurrentConsume(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	const workers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := m.Consume("contested", time.Minute); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if wins != 1 {
		t.Errorf("%d concurrent consumers won, want exactly 1", wins)
	}
}

// newTestDB opens an in-memory database with the same error
// translation the daemon configures, limited to one connection so the
// in-memory store is consistent across goroutines.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&ConsumedID{}); err != nil {
		t.Fatalf("failed to migrate replay table: %v", err)
	}

	return db
}

func TestShared_ConsumeOnceAcrossInstances(t *testing.T) {
	db := newTestDB(t)

	a := NewShared(db)
	defer a.Close()

	b := NewShared(db)
	defer b.Close()

	if err := a.Consume("k1", time.Minute); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}

	// The second instance shares no in-process state with the first;
	// only the database row can reject the repeat.
	if err := b.Consume("k1", time.Minute); !errors.Is(err, ErrAlreadySeen) {
		t.Fatalf("Consume() on second instance error = %v, want ErrAlreadySeen", err)
	}

	if err := b.Consume("k2", time.Minute); err != nil {
		t.Fatalf("Consume() of fresh key error = %v", err)
	}
}

func TestShared_ConsumeAfterExpiry(t *testing.T) {
	db := newTestDB(t)

	s := NewShared(db)
	defer s.Close()

	if err := s.Consume("k1", 10*time.Millisecond); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := s.Consume("k1", time.Minute); err != nil {
		t.Fatalf("Consume() after expiry error = %v", err)
	}
}

func TestShared_ConcurrentInstances(t *testing.T) {
	db := newTestDB(t)

	instances := []*Shared{NewShared(db), NewShared(db)}
	for _, s := range instances {
		defer s.Close()
	}

	const workers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(s *Shared) {
			defer wg.Done()

			if err := s.Consume("contested", time.Minute); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(instances[i%len(instances)])
	}

	wg.Wait()

	if wins != 1 {
		t.Errorf("%d concurrent consumers won, want exactly 1", wins)
	}
}

func TestNewShared_NilDBPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil db")
		}
	}()

	NewShared(nil)
}
