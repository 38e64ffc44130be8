package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by every Mint package. The root package
// re-exports them.
var (
	// General errors
	ErrNotFound      = errors.New("mint: not found")
	ErrAlreadyExists = errors.New("mint: already exists")
	ErrValidation    = errors.New("mint: validation failed")

	// Pre-submission errors
	ErrAccountNotFound       = errors.New("mint: account not found")
	ErrInsufficientBalance   = errors.New("mint: insufficient balance")
	ErrMissingTrustline      = errors.New("mint: missing trustline")
	ErrInsufficientReserve   = errors.New("mint: insufficient reserve")
	ErrPriceLookupFailed     = errors.New("mint: price lookup failed")
	ErrSigningFailed         = errors.New("mint: signing failed")
	ErrClawbackNotAuthorized = errors.New("mint: clawback not authorized for asset")

	// Submission errors
	ErrSequenceConflict  = errors.New("mint: sequence conflict")
	ErrLedgerRejected    = errors.New("mint: ledger rejected transaction")
	ErrLedgerUnavailable = errors.New("mint: ledger unavailable")

	// Lifecycle errors
	ErrInvalidTransition = errors.New("mint: invalid state transition")
	ErrKeyRetired        = errors.New("mint: keypair retired")

	// Store errors
	ErrAssetNotFound        = errors.New("mint: asset not found")
	ErrKeypairNotFound      = errors.New("mint: keypair not found")
	ErrSubscriptionNotFound = errors.New("mint: subscription not found")
	ErrVanityNotFound       = errors.New("mint: vanity url not found")
	ErrIntentNotFound       = errors.New("mint: intent not found")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("mint: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientBalanceError reports which account falls short and by how much.
type InsufficientBalanceError struct {
	Account string
	Asset   string
	Need    Money
	Have    Money
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("mint: insufficient balance: %s needs %s %s, has %s",
		e.Account, e.Need.String(), e.Asset, e.Have.String())
}

// Is makes errors.Is(err, ErrInsufficientBalance) true.
func (e InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// LedgerRejectedError carries the ledger's result codes for a failed submission.
type LedgerRejectedError struct {
	ResultCode     string
	OperationCodes []string
}

func (e LedgerRejectedError) Error() string {
	if len(e.OperationCodes) == 0 {
		return fmt.Sprintf("mint: ledger rejected transaction: %s", e.ResultCode)
	}
	return fmt.Sprintf("mint: ledger rejected transaction: %s [%s]",
		e.ResultCode, strings.Join(e.OperationCodes, ", "))
}

// Is makes errors.Is(err, ErrLedgerRejected) true.
func (e LedgerRejectedError) Is(target error) bool { return target == ErrLedgerRejected }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "mint: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("mint: %d errors occurred: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}
