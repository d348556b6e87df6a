package config

import (
	"time"

	"github.com/evaka-go/apigw/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Backend   Backend
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain         string  // domain name for the webserver
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  // base url for the webserver
	DisableRecover bool    // disable recover middleware
	Session        Session // session settings
}

// Backend is the core service the gateway resolves identities against.
type Backend struct {
	URL     string        // base url of the core service backend
	APIKey  string        // shared secret for the machine-to-machine login endpoints
	Timeout time.Duration // per-request timeout for backend calls
}

// Auth groups the identity provider integrations.
type Auth struct {
	// LoginFailedURL is where the browser is sent on any authentication
	// failure. The page is generic on purpose; causes stay in the logs.
	LoginFailedURL string

	// ReplayTTL is how long a consumed SAML response id is remembered.
	ReplayTTL time.Duration

	EmployeeSAML SAMLAuth
	CitizenSAML  SAMLAuth
	OIDC         OIDCAuth
	LDAP         LDAPAuth
}

// SAMLAuth configures one SAML service provider integration.
// Certificate material is referenced by file path and loaded at startup.
type SAMLAuth struct {
	Enabled bool

	EntityID    string // SP entity id (issuer)
	IDPEntityID string // IdP entity id
	EntryPoint  string // IdP single sign-on URL
	CallbackURL string // assertion consumer service URL of this gateway
	SuccessURL  string // frontend url to land on after login

	IDPCertFile string // IdP signing certificate (PEM)
	SPKeyFile   string // SP private key for signing and decryption (PEM)
	SPCertFile  string // SP certificate (PEM)
}

// OIDCAuth configures the strong citizen authentication provider.
type OIDCAuth struct {
	Enabled      bool
	ProviderURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	SSNClaim     string // id token claim carrying the social security number
	SuccessURL   string // frontend url to land on after login
}

// LDAPAuth configures the Active Directory employee login.
type LDAPAuth struct {
	Enabled       bool
	Host          string
	Port          int
	UseSSL        bool
	UseTLS        bool
	SkipVerify    bool
	BindDN        string
	BindPassword  string
	BaseDN        string
	UserFilter    string
	UsernameAttr  string
	EmailAttr     string
	FirstNameAttr string
	LastNameAttr  string
	Timeout       int
}
