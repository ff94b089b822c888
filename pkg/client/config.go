package client

import (
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// Auth holds call-time credential settings. Values are merged into each
// request when it is built, never baked into method descriptors.
type Auth struct {
	// APIKey is sent under APIKeyName in the location given by APIKeyIn.
	APIKey     string
	APIKeyName string
	APIKeyIn   string // "query" or "header"
	// BearerToken is sent as "Authorization: Bearer <token>".
	BearerToken string
}

// Config carries the final merged client settings. Base/profile/CLI merging
// happens in an outer loader; the client consumes only the result.
type Config struct {
	BaseURL        string
	DefaultHeaders map[string]string
	Timeout        time.Duration
	Auth           Auth
	// Adapter defaults to an HTTP adapter when nil.
	Adapter transport.Adapter
	// Interceptors run in declaration order on requests and reverse order on
	// responses and errors.
	Interceptors []any
}

// Validate reports the first fatal problem as a *ConfigError.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return &ConfigError{Field: "baseURL", Reason: "must not be empty"}
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "baseURL", Reason: "must be an absolute http(s) URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Field: "baseURL", Reason: "unsupported scheme " + u.Scheme}
	}
	if c.Auth.APIKey != "" {
		if c.Auth.APIKeyName == "" {
			return &ConfigError{Field: "auth.apiKeyName", Reason: "required when an API key is set"}
		}
		switch c.Auth.APIKeyIn {
		case "query", "header":
		default:
			return &ConfigError{Field: "auth.apiKeyIn", Reason: `must be "query" or "header"`}
		}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Reason: "must not be negative"}
	}
	return nil
}
