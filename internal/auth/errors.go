package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrReplayDetected is returned when an IdP response id was already consumed.
	ErrReplayDetected = errors.New("identity provider response was already consumed")

	// ErrResolverFailure is returned when the backend login call failed.
	ErrResolverFailure = errors.New("backend identity resolution failed")

	// ErrInvalidAssertion is returned when a SAML response fails validation.
	ErrInvalidAssertion = errors.New("invalid SAML assertion")

	// ErrInvalidCredentials is returned for bad AD credentials or a wrong device PIN.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
	ErrOIDCDisabled = errors.New("oidc authentication is disabled")

	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrLDAPMisconfigured is returned when the enabled directory integration lacks host, base dn or user filter.
	ErrLDAPMisconfigured = errors.New("directory host, base dn and user filter must be configured")

	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrUserNotFound is returned when a user cannot be found in the directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a directory query expected one user but found multiple.
	// This typically indicates a misconfigured LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")
)

// ValidationError reports an identity profile that failed normalization.
// The missing identifying field means the IdP sent something we were
// never configured to trust, so the login attempt is aborted entirely.
type ValidationError struct {
	Profile string   // which profile schema failed, e.g. "employee"
	Fields  []string // the failed field names
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s profile validation failed on: %s", e.Profile, strings.Join(e.Fields, ", "))
}
