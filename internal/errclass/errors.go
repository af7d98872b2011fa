// File: internal/errclass/errors.go
package errclass

import "fmt"

// Typed errors thrown at the boundaries. Classify maps each of these to a
// stable category/severity; everything else falls through pattern matching.

// NetworkError wraps a transport-level failure (no HTTP response at all).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}
func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError signals a missing, expired, or rejected credential.
type AuthError struct {
	Code string // e.g. "token_expired", "auth/wrong-password"
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication error [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("authentication error [%s]", e.Code)
}
func (e *AuthError) Unwrap() error { return e.Err }

// ConfigError means the runtime client configuration could not be obtained.
// Nothing payment-related can proceed without it.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}
func (e *ConfigError) Unwrap() error { return e.Err }

// APIError carries an HTTP status from the backend.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d on %s: %s", e.Status, e.Endpoint, e.Message)
}

// StripeError carries a provider error code, e.g. "card_declined".
type StripeError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *StripeError) Error() string {
	return fmt.Sprintf("stripe error [%s]: %s", e.Code, e.Message)
}

// DecodeError means the backend answered with a payload that failed schema
// validation. Classified VALIDATION so malformed responses fail fast
// instead of silently producing wrong data.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }
