package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the operation boundary. Services wrap these with
// fmt.Errorf("...: %w", ...) and handlers match them with errors.Is.
var (
	ErrPermission    = errors.New("permission denied")
	ErrNotFound      = errors.New("not found")
	ErrEmptyInput    = errors.New("empty input")
	ErrTransport     = errors.New("transport failure")
	ErrSchema        = errors.New("schema validation failed")
	ErrConfiguration = errors.New("not configured")
)

// Permissionf wraps ErrPermission with context.
func Permissionf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrPermission)...)
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Transportf wraps ErrTransport with context.
func Transportf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransport)...)
}

// Schemaf wraps ErrSchema with context.
func Schemaf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrSchema)...)
}

// Configurationf wraps ErrConfiguration with context.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConfiguration)...)
}
