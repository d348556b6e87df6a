// Package auth implements the identity core of the gateway: it
// normalizes provider-specific assertions (Keycloak SAML, OIDC, Active
// Directory, mobile PIN) into validated identity profiles, resolves them
// against the core service backend and builds the canonical session user
// every frontend sees.
package auth
