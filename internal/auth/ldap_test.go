package auth

import (
	"errors"
	"testing"

	"github.com/evaka-go/apigw/internal/config"
)

func TestNewADProvider_Disabled(t *testing.T) {
	_, err := NewADProvider(&config.LDAPAuth{Enabled: false})
	if !errors.Is(err, ErrLDAPDisabled) {
		t.Fatalf("error = %v, want ErrLDAPDisabled", err)
	}
}

func TestNewADProvider_MissingDirectorySettings(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.LDAPAuth
	}{
		{"no host", config.LDAPAuth{Enabled: true, BaseDN: "dc=example,dc=com", UserFilter: "(sAMAccountName={username})"}},
		{"no base dn", config.LDAPAuth{Enabled: true, Host: "ad.example.com", UserFilter: "(sAMAccountName={username})"}},
		{"no user filter", config.LDAPAuth{Enabled: true, Host: "ad.example.com", BaseDN: "dc=example,dc=com"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewADProvider(&tc.cfg); !errors.Is(err, ErrLDAPMisconfigured) {
				t.Fatalf("error = %v, want ErrLDAPMisconfigured", err)
			}
		})
	}
}

func TestNewADProvider_Defaults(t *testing.T) {
	cfg := config.LDAPAuth{
		Enabled:    true,
		Host:       "ad.example.com",
		BaseDN:     "dc=example,dc=com",
		UserFilter: "(sAMAccountName={username})",
	}

	if _, err := NewADProvider(&cfg); err != nil {
		t.Fatalf("NewADProvider() error = %v", err)
	}

	if cfg.Port != 389 {
		t.Errorf("Port = %d, want 389 default", cfg.Port)
	}

	if cfg.UsernameAttr != "sAMAccountName" || cfg.EmailAttr != "mail" {
		t.Errorf("attribute defaults not applied: %+v", cfg)
	}

	if cfg.FirstNameAttr != "givenName" || cfg.LastNameAttr != "sn" {
		t.Errorf("name attribute defaults not applied: %+v", cfg)
	}

	ssl := cfg
	ssl.Port = 0
	ssl.UseSSL = true

	if _, err := NewADProvider(&ssl); err != nil {
		t.Fatalf("NewADProvider() error = %v", err)
	}

	if ssl.Port != 636 {
		t.Errorf("Port = %d, want 636 default with ssl", ssl.Port)
	}
}
