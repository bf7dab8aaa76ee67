// Package services defines the business logic for usage gating, RAG answers,
// and contact submissions. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrQuotaExceeded indicates the user has spent today's query quota.
	ErrQuotaExceeded = errors.New("daily query limit reached")

	// ErrQuotaUnavailable indicates usage accounting failed and the
	// configured policy is fail-closed.
	ErrQuotaUnavailable = errors.New("usage accounting unavailable")

	// ErrEmptyMessage is returned when the conversation has no non-empty
	// latest message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMissingField is returned when a required contact field is absent.
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidEmail is returned when a contact email fails the shape check.
	ErrInvalidEmail = errors.New("email address is invalid")

	// ErrInvalidTier is returned when an admin submits an unrecognized tier.
	ErrInvalidTier = errors.New("unknown subscription tier")

	// ErrProfileNotFound indicates the requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
)
