// Package main provides the entry point for the evaka API gateway.
// The gateway terminates authentication for the citizen and employee
// single-page applications: it consumes SAML assertions from Keycloak
// (employee and citizen weak auth), OIDC tokens for strong citizen
// authentication, Active Directory credentials and mobile device PINs,
// normalizes every identity into a single session-user model, keeps
// sessions in a shared cache store and reports the authentication state
// to the frontends over a uniform status endpoint.
package main
