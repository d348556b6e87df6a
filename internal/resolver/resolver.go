// Package resolver implements the backend identity resolution client.
// Every login flow funnels through it: the backend upserts the person
// record for a validated identity profile and returns the canonical
// id and roles the session is built from.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
)

// machineAuthHeader authenticates the gateway itself to the backend
// system endpoints.
const machineAuthHeader = "X-API-Key"

const (
	employeeLoginPath = "/system/employee-login"
	citizenLoginPath  = "/system/citizen-login"
)

// Client calls the backend system login endpoints. It implements
// auth.PersonResolver.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ auth.PersonResolver = &Client{}

// New creates the backend client from the gateway configuration.
func New(cfg *config.Backend) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// EmployeeLogin upserts the employee person record in the backend.
func (c *Client) EmployeeLogin(ctx context.Context, req auth.EmployeeLoginRequest) (auth.Person, error) {
	return c.login(ctx, employeeLoginPath, req)
}

// CitizenLogin upserts the citizen person record in the backend.
func (c *Client) CitizenLogin(ctx context.Context, req auth.CitizenLoginRequest) (auth.Person, error) {
	return c.login(ctx, citizenLoginPath, req)
}

func (c *Client) login(ctx context.Context, path string, payload interface{}) (auth.Person, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return auth.Person{}, errors.Wrap(err, "encoding login request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return auth.Person{}, errors.Wrap(err, "building login request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(machineAuthHeader, c.apiKey)

	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return auth.Person{}, errors.Wrap(err, "calling backend")
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close backend response body")
		}
	}()

	log.Debug().Str("path", path).Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).Msg("backend login call")

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the log, not for the caller:
		// backend error details never reach the login response.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().Str("path", path).Int("status", resp.StatusCode).
			Bytes("body", snippet).Msg("backend login rejected")

		return auth.Person{}, fmt.Errorf("backend responded with status %d", resp.StatusCode)
	}

	var person auth.Person
	if err := json.NewDecoder(resp.Body).Decode(&person); err != nil {
		return auth.Person{}, errors.Wrap(err, "decoding backend response")
	}

	return person, nil
}
