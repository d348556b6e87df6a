// Package auth provides the session loading middleware and per-route
// user type guards.
package auth
