package client

import (
	"errors"
	"fmt"

	"github.com/mark3labs/swagger2client/pkg/interceptor"
)

// Local rejection sentinels from the interceptor chain, re-exported so
// generated-code consumers only need this package to branch on them.
var (
	ErrCircuitOpen = interceptor.ErrCircuitOpen
	ErrRateLimited = interceptor.ErrRateLimited
)

// ErrorKind classifies a non-2xx response so callers can branch without
// string matching.
type ErrorKind string

const (
	// KindAuth covers authorization and permission-denied statuses (401, 403).
	KindAuth ErrorKind = "auth"
	// KindServer covers 5xx statuses.
	KindServer ErrorKind = "server"
	// KindClient covers every other non-2xx status.
	KindClient ErrorKind = "client"
)

// APIError is returned for any non-2xx response that survives the
// interceptor chain.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s error: status %d", e.Kind, e.StatusCode)
}

// IsAuthError reports whether err is an authorization failure.
func IsAuthError(err error) bool { return errKind(err) == KindAuth }

// IsServerError reports whether err is a 5xx failure.
func IsServerError(err error) bool { return errKind(err) == KindServer }

func errKind(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// ConfigError is fatal before any call is made: malformed base URL,
// contradictory auth fields, or an unusable adapter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("client: invalid config %s: %s", e.Field, e.Reason)
}
