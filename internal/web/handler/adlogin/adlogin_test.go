package adlogin

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}

func TestInit_Disabled(t *testing.T) {
	var s Service

	cfg := &config.Config{Auth: config.Auth{LDAP: config.LDAPAuth{Enabled: false}}}

	if err := s.Init(fiber.New(), cfg, newTestDB(t), auth.Verifier{}); err != nil {
		t.Fatalf("Init() with disabled AD error = %v", err)
	}
}

func TestInit_MisconfiguredRefusesStartup(t *testing.T) {
	var s Service

	cfg := &config.Config{Auth: config.Auth{LDAP: config.LDAPAuth{
		Enabled: true,
		Host:    "ad.example.com",
		// BaseDN and UserFilter missing.
	}}}

	err := s.Init(fiber.New(), cfg, newTestDB(t), auth.Verifier{})
	if !errors.Is(err, auth.ErrLDAPMisconfigured) {
		t.Fatalf("Init() error = %v, want ErrLDAPMisconfigured", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	var s Service

	cfg := &config.Config{Auth: config.Auth{LDAP: config.LDAPAuth{
		Enabled:    true,
		Host:       "ad.example.com",
		BaseDN:     "dc=example,dc=com",
		UserFilter: "(sAMAccountName={username})",
	}}}

	if err := s.Init(fiber.New(), cfg, newTestDB(t), auth.Verifier{}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if s.provider == nil {
		t.Error("provider was not constructed")
	}
}
