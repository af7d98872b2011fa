// File: internal/errclass/classify.go
package errclass

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// Category buckets every error the payment/credits flow can surface.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryValidation     Category = "validation"
	CategoryServer         Category = "server"
	CategoryUnknown        Category = "unknown"
)

// Categories lists every member exactly once.
func Categories() []Category {
	return []Category{
		CategoryNetwork,
		CategoryAuthentication,
		CategoryAuthorization,
		CategoryValidation,
		CategoryServer,
		CategoryUnknown,
	}
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ClassifiedError is the normalized record derived on-the-fly from any
// failure. It is never persisted and never itself the cause of a failure.
type ClassifiedError struct {
	Category    Category
	Severity    Severity
	Code        string
	Message     string
	UserMessage string
	Timestamp   time.Time
	Context     map[string]any
}

func (e *ClassifiedError) Error() string { return e.Message }

// FromStatus maps an HTTP status code to a category. The mapping is total.
func FromStatus(status int) Category {
	switch {
	case status == 401:
		return CategoryAuthentication
	case status == 403:
		return CategoryAuthorization
	case status == 400, status == 404, status == 409, status == 422, status == 429:
		return CategoryValidation
	case status >= 500 && status < 600:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// Classify maps any error into a ClassifiedError. It is total: every input,
// including nil-ish garbage, lands in a category with a user message.
func Classify(err error) *ClassifiedError {
	ce := &ClassifiedError{
		Category:  CategoryUnknown,
		Severity:  SeverityMedium,
		Code:      "unknown",
		Timestamp: time.Now(),
	}
	if err == nil {
		ce.Message = "unknown error"
		ce.UserMessage = UserMessage(ce.Category, ce.Code)
		return ce
	}
	ce.Message = err.Error()

	var (
		netErr    *NetworkError
		authErr   *AuthError
		cfgErr    *ConfigError
		apiErr    *APIError
		stripeErr *StripeError
		decErr    *DecodeError
	)
	switch {
	case errors.As(err, &cfgErr):
		// Configuration failures block the whole payment surface.
		ce.Category = CategoryValidation
		ce.Severity = SeverityCritical
		ce.Code = "config_invalid"
	case errors.As(err, &authErr):
		ce.Category = CategoryAuthentication
		ce.Severity = SeverityHigh
		ce.Code = authErr.Code
		if ce.Code == "" {
			ce.Code = "auth_failed"
		}
	case errors.As(err, &stripeErr):
		ce.Category = CategoryValidation
		ce.Severity = SeverityHigh
		ce.Code = stripeErr.Code
		if ce.Code == "" {
			ce.Code = "stripe_error"
		}
	case errors.As(err, &apiErr):
		ce.Category = FromStatus(apiErr.Status)
		ce.Severity = SeverityMedium
		if apiErr.Status >= 500 {
			ce.Severity = SeverityHigh
		}
		if ce.Category == CategoryAuthentication || ce.Category == CategoryAuthorization {
			ce.Severity = SeverityHigh
		}
		ce.Code = "http_" + strconv.Itoa(apiErr.Status)
	case errors.As(err, &decErr):
		ce.Category = CategoryValidation
		ce.Severity = SeverityHigh
		ce.Code = "malformed_response"
	case errors.As(err, &netErr):
		ce.Category = CategoryNetwork
		ce.Severity = SeverityMedium
		ce.Code = "network_failure"
	default:
		ce.Category, ce.Code = classifyGeneric(err)
		if ce.Category == CategoryAuthentication {
			ce.Severity = SeverityHigh
		}
	}

	ce.UserMessage = UserMessage(ce.Category, ce.Code)
	return ce
}

// classifyGeneric pattern-matches untyped errors on message substrings.
func classifyGeneric(err error) (Category, string) {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CategoryNetwork, "network_failure"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "fetch"), strings.Contains(msg, "network"),
		strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"):
		return CategoryNetwork, "network_failure"
	case strings.Contains(msg, "auth"), strings.Contains(msg, "token"):
		return CategoryAuthentication, "auth_failed"
	default:
		return CategoryUnknown, "unknown"
	}
}

// Retryable reports whether the failure is eligible for backoff retry:
// transport failures without any HTTP status, and 5xx responses. Everything
// with a definite non-5xx status is the caller's bug or the user's problem,
// not a transient fault.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}
