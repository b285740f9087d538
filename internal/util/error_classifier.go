package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"

	"habitflow/internal/apperr"
)

// IsRetryableError reports whether redelivering the message could succeed,
// plus a short label for logging. Malformed payloads and ownership failures
// never heal on retry; transport and timeout failures might.
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	if errors.Is(err, apperr.ErrSchema) {
		return false, "schema_error"
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return false, "not_found"
	}
	if errors.Is(err, apperr.ErrPermission) {
		return false, "permission_denied"
	}
	if errors.Is(err, apperr.ErrEmptyInput) {
		return false, "empty_input"
	}
	if errors.Is(err, apperr.ErrTransport) {
		return true, "transport_error"
	}

	// context.DeadlineExceeded also satisfies net.Error, so the context
	// sentinels must be matched first.
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true, "network_error"
	}

	// Unknown errors are retried: a store hiccup is the common case here.
	return true, "unknown_error"
}
