package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/storage"

	"github.com/evaka-go/apigw/internal/auth"
)

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func initTestStore() {
	Init(&testStorage{data: make(map[string][]byte)})
}

func TestWriteAndRead(t *testing.T) {
	initTestStore()

	sessionID, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	in := &Data{
		User: auth.SessionUser{
			ID:          "person-1",
			UserType:    auth.UserTypeEmployee,
			GlobalRoles: []string{"ADMIN"},
		},
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}

	if err := in.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := new(Data)
	if err := out.Read(sessionID); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if out.User.ID != "person-1" || out.User.UserType != auth.UserTypeEmployee {
		t.Errorf("read user = %+v, want written user", out.User)
	}
}

func TestRead_UnknownSession(t *testing.T) {
	initTestStore()

	out := new(Data)
	if err := out.Read("no-such-session"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Read() error = %v, want ErrNoSession", err)
	}
}

func TestTouch_UpdatesLastActivity(t *testing.T) {
	initTestStore()

	sessionID, _ := GenerateSessionID()

	in := &Data{
		User:         auth.SessionUser{ID: "person-1"},
		LastActivity: time.Now().Add(-time.Hour),
	}

	if err := in.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := in.Touch(sessionID, time.Minute); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	out := new(Data)
	if err := out.Read(sessionID); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if time.Since(out.LastActivity) > time.Minute {
		t.Errorf("LastActivity = %v, was not refreshed", out.LastActivity)
	}
}

func TestDestroy(t *testing.T) {
	initTestStore()

	sessionID, _ := GenerateSessionID()

	in := &Data{User: auth.SessionUser{ID: "person-1"}}
	if err := in.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := Destroy(sessionID); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	out := new(Data)
	if err := out.Read(sessionID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Read() after Destroy error = %v, want ErrNoSession", err)
	}
}

func TestGenerateSessionID_Unique(t *testing.T) {
	a, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	b, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	if len(a) != 64 {
		t.Errorf("session id length = %d, want 64 hex chars", len(a))
	}

	if a == b {
		t.Error("two generated session ids are equal")
	}
}
