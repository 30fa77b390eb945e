package services

import "errors"

// Typed errors for the billing layer. The HTTP layer maps them to status
// codes without looking at gateway specific errors.
var (
	// ErrInvalidArgument indicates the caller supplied an unusable combination of options.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned by the OrFail lookups.
	ErrNotFound = errors.New("not found")
	// ErrNotInGracePeriod is returned when resuming a subscription outside its grace period.
	ErrNotInGracePeriod = errors.New("subscription is not within grace period")
	// ErrMailerNotConfigured is returned when sending an invoice without a mailer.
	ErrMailerNotConfigured = errors.New("mailer not configured")
)
