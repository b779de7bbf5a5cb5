// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound covers unknown months, transaction ids and list domains.
	ErrNotFound = errors.New("not found")

	// ErrUnknownListValue is returned when a classification value is absent
	// from the list registry.
	ErrUnknownListValue = errors.New("unknown list value")

	// ErrLockedMonth is returned when a mutation targets a finalized month.
	ErrLockedMonth = errors.New("month is finalized")

	// ErrNotReady is returned when finalize is attempted while the review
	// queue is non-empty and the month has not been submitted.
	ErrNotReady = errors.New("month not ready to finalize")

	// ErrDuplicate marks a registry add of an existing value. Callers treat
	// it as an idempotent no-op, not a failure.
	ErrDuplicate = errors.New("duplicate entry")
)

// NotFoundf wraps ErrNotFound with enough detail to identify the missing thing.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// UnknownListValuef wraps ErrUnknownListValue naming the offending value.
func UnknownListValuef(domain, value string) error {
	return fmt.Errorf("%w: %q is not a known %s", ErrUnknownListValue, value, domain)
}

// LockedMonthf wraps ErrLockedMonth with the month key.
func LockedMonthf(month string) error {
	return fmt.Errorf("%w: %s", ErrLockedMonth, month)
}

// IsPolicyRejection reports whether err is a policy rejection (locked or
// not-ready month) rather than a caller-correctable validation error. Clients
// use this to decide between retry-after-another-action and abandon.
func IsPolicyRejection(err error) bool {
	return errors.Is(err, ErrLockedMonth) || errors.Is(err, ErrNotReady)
}
