package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration classifies every *ConfigError.
	ErrConfiguration = errors.New("configuration error")
	// ErrDomain classifies every *DomainError.
	ErrDomain = errors.New("domain error")
)

// ConfigError reports an invalid training parameter. It is returned before any
// episode runs and is never recovered from.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// DomainError reports an observation outside the market model's domain. It
// points at broken bookkeeping in the caller rather than a runtime condition.
type DomainError struct {
	Op     string
	Field  string
	Value  any
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", e.Op, e.Field, e.Value, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

func domainErr(op, field string, value any, reason string) error {
	return &DomainError{Op: op, Field: field, Value: value, Reason: reason}
}
