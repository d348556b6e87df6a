package auth

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/config"
)

// ADProvider handles the Active Directory employee login: a credential
// check against the directory plus attribute extraction. The directory
// account name becomes the identifying attribute of the employee
// profile; role assignment stays with the backend.
type ADProvider struct {
	config *config.LDAPAuth
}

// NewADProvider creates the Active Directory provider with directory
// attribute defaults. Host, base DN and user filter have no sensible
// defaults and must be configured.
func NewADProvider(cfg *config.LDAPAuth) (*ADProvider, error) {
	if !cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	if cfg.Host == "" || cfg.BaseDN == "" || cfg.UserFilter == "" {
		return nil, ErrLDAPMisconfigured
	}

	if cfg.Port == 0 {
		if cfg.UseSSL {
			cfg.Port = 636
		} else {
			cfg.Port = 389
		}
	}

	if cfg.UsernameAttr == "" {
		cfg.UsernameAttr = "sAMAccountName"
	}

	if cfg.EmailAttr == "" {
		cfg.EmailAttr = "mail"
	}

	if cfg.FirstNameAttr == "" {
		cfg.FirstNameAttr = "givenName"
	}

	if cfg.LastNameAttr == "" {
		cfg.LastNameAttr = "sn"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10
	}

	return &ADProvider{config: cfg}, nil
}

// Connect establishes a connection to the directory server.
func (p *ADProvider) Connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	var ldapURL string
	if p.config.UseSSL {
		ldapURL = "ldaps://" + hostPort
	} else {
		ldapURL = "ldap://" + hostPort
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         p.config.Host,
		}
	}

	conn, err := ldap.DialURL(ldapURL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to directory server: %w", err)
	}

	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close directory connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	if p.config.Timeout > 0 {
		conn.SetTimeout(time.Duration(p.config.Timeout) * time.Second)
	}

	return conn, nil
}

// Authenticate verifies the credentials against the directory and
// returns the account attributes. A failed user bind surfaces as
// ErrInvalidCredentials so the handler never leaks whether the account
// exists.
func (p *ADProvider) Authenticate(username, password string) (Attributes, error) {
	conn, err := p.Connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory connection")
		}
	}()

	if errBind := p.bindServiceForSearch(conn); errBind != nil {
		return nil, errBind
	}

	entry, errSearch := p.searchUserEntry(conn, username)
	if errSearch != nil {
		return nil, errSearch
	}

	if errBindUser := conn.Bind(entry.DN, password); errBindUser != nil {
		log.Debug().Str("user", username).Msg("directory bind with user credentials failed")

		return nil, ErrInvalidCredentials
	}

	attrs := Attributes{}
	attrs.Set("id", entry.GetAttributeValue(p.config.UsernameAttr))
	attrs.Set("email", entry.GetAttributeValue(p.config.EmailAttr))
	attrs.Set("firstName", entry.GetAttributeValue(p.config.FirstNameAttr))
	attrs.Set("lastName", entry.GetAttributeValue(p.config.LastNameAttr))

	return attrs, nil
}

// bindServiceForSearch binds with the configured service account (if
// provided) to perform the user search.
func (p *ADProvider) bindServiceForSearch(conn *ldap.Conn) error {
	if p.config.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchUserEntry searches the directory for the given username and
// returns a single entry.
func (p *ADProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	userFilter := strings.ReplaceAll(p.config.UserFilter, "{username}", ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		p.config.Timeout,
		false,
		userFilter,
		[]string{
			p.config.UsernameAttr,
			p.config.EmailAttr,
			p.config.FirstNameAttr,
			p.config.LastNameAttr,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}
