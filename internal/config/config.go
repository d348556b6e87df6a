// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv("EVAKA_APIGW_CONFIG_JSON")

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to merge json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the minimal settings the gateway refuses to start without.
// Incomplete authentication config must never reach request handling:
// an enabled SAML integration without certificate material is a startup
// error, not something to discover on the first login attempt.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = 32 * time.Minute
	}

	if c.Backend.URL == "" {
		return errors.Wrap(ErrEmptyBackendURL, invalidErrMessage)
	}

	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}

	if c.Auth.ReplayTTL == 0 {
		c.Auth.ReplayTTL = 5 * time.Minute
	}

	if c.Auth.LoginFailedURL == "" {
		return errors.Wrap(ErrEmptyLoginFailedURL, invalidErrMessage)
	}

	for _, saml := range []*SAMLAuth{&c.Auth.EmployeeSAML, &c.Auth.CitizenSAML} {
		if !saml.Enabled {
			continue
		}

		if saml.IDPCertFile == "" || saml.SPKeyFile == "" || saml.SPCertFile == "" {
			return errors.Wrap(ErrMissingSAMLCertificates, invalidErrMessage)
		}

		if saml.EntityID == "" || saml.IDPEntityID == "" || saml.EntryPoint == "" || saml.CallbackURL == "" {
			return errors.Wrap(ErrIncompleteSAMLConfig, invalidErrMessage)
		}
	}

	if oidc := &c.Auth.OIDC; oidc.Enabled {
		if oidc.ProviderURL == "" || oidc.ClientID == "" || oidc.ClientSecret == "" || oidc.RedirectURL == "" {
			return errors.Wrap(ErrIncompleteOIDCConfig, invalidErrMessage)
		}
	}

	if ad := &c.Auth.LDAP; ad.Enabled {
		if ad.Host == "" || ad.BaseDN == "" || ad.UserFilter == "" {
			return errors.Wrap(ErrIncompleteLDAPConfig, invalidErrMessage)
		}
	}

	return nil
}
