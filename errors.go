package mint

import (
	"errors"

	"github.com/xraph/mint/types"
)

// Sentinel errors for common failure scenarios. They are defined in the
// types package so every subpackage can return them.
var (
	// General errors
	ErrNotFound      = types.ErrNotFound
	ErrAlreadyExists = types.ErrAlreadyExists
	ErrValidation    = types.ErrValidation

	// Pre-submission errors
	ErrAccountNotFound       = types.ErrAccountNotFound
	ErrInsufficientBalance   = types.ErrInsufficientBalance
	ErrMissingTrustline      = types.ErrMissingTrustline
	ErrInsufficientReserve   = types.ErrInsufficientReserve
	ErrPriceLookupFailed     = types.ErrPriceLookupFailed
	ErrSigningFailed         = types.ErrSigningFailed
	ErrClawbackNotAuthorized = types.ErrClawbackNotAuthorized

	// Submission errors
	ErrSequenceConflict  = types.ErrSequenceConflict
	ErrLedgerRejected    = types.ErrLedgerRejected
	ErrLedgerUnavailable = types.ErrLedgerUnavailable

	// Lifecycle errors
	ErrInvalidTransition = types.ErrInvalidTransition
	ErrKeyRetired        = types.ErrKeyRetired

	// Store errors
	ErrAssetNotFound        = types.ErrAssetNotFound
	ErrKeypairNotFound      = types.ErrKeypairNotFound
	ErrSubscriptionNotFound = types.ErrSubscriptionNotFound
	ErrVanityNotFound       = types.ErrVanityNotFound
	ErrIntentNotFound       = types.ErrIntentNotFound
)

// ValidationError represents a validation failure with details.
type ValidationError = types.ValidationError

// InsufficientBalanceError reports which account falls short and by how much.
type InsufficientBalanceError = types.InsufficientBalanceError

// LedgerRejectedError carries the ledger's result codes.
type LedgerRejectedError = types.LedgerRejectedError

// MultiError represents multiple errors that occurred.
type MultiError = types.MultiError

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrKeypairNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrVanityNotFound) ||
		errors.Is(err, ErrIntentNotFound)
}

// IsRebuildable returns true if the envelope should be rebuilt from a
// fresh account snapshot and submitted again.
func IsRebuildable(err error) bool {
	return errors.Is(err, ErrSequenceConflict)
}

// IsPreflight returns true if the error was detected before anything was
// submitted to the ledger.
func IsPreflight(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrMissingTrustline) ||
		errors.Is(err, ErrInsufficientReserve) ||
		errors.Is(err, ErrPriceLookupFailed) ||
		errors.Is(err, ErrSigningFailed) ||
		errors.Is(err, ErrClawbackNotAuthorized)
}
