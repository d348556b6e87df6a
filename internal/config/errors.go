package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrEmptyBackendURL error if config backend.url is empty.
	ErrEmptyBackendURL = errors.New("toml config backend.url can not be empty")

	// ErrEmptyLoginFailedURL error if config auth.loginFailedURL is empty.
	ErrEmptyLoginFailedURL = errors.New("toml config auth.loginFailedURL can not be empty")

	// ErrMissingSAMLCertificates error if an enabled SAML integration has no certificate material.
	ErrMissingSAMLCertificates = errors.New("enabled SAML integration is missing certificate or key file paths")

	// ErrIncompleteSAMLConfig error if an enabled SAML integration is missing entity or endpoint settings.
	ErrIncompleteSAMLConfig = errors.New("enabled SAML integration is missing entity id, entry point or callback url")

	// ErrIncompleteOIDCConfig error if the enabled OIDC integration is missing provider or client settings.
	ErrIncompleteOIDCConfig = errors.New("enabled OIDC integration is missing provider url, client credentials or redirect url")

	// ErrIncompleteLDAPConfig error if the enabled AD integration is missing directory settings.
	ErrIncompleteLDAPConfig = errors.New("enabled AD integration is missing host, base dn or user filter")
)
