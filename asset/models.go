package asset

import (
	"fmt"
	"time"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/types"
)

// State is the lifecycle state of an issued asset.
type State string

const (
	StateUninitialized State = "uninitialized"
	StatePending       State = "pending"     // Issuance envelope built, not confirmed
	StateActive        State = "active"      // Issued and for sale
	StateClawedBack    State = "clawed_back" // Revoked, no further sales
)

var transitions = map[State][]State{
	StateUninitialized: {StatePending},
	StatePending:       {StateActive, StateUninitialized},
	StateActive:        {StateActive, StateClawedBack},
	StateClawedBack:    {StateClawedBack},
}

// CanTransition reports whether the state machine allows from -> to.
func (s State) CanTransition(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Record is the persisted view of a creator asset.
type Record struct {
	types.Entity
	ID              id.AssetID        `json:"id"`
	CreatorID       string            `json:"creator_id"`
	Code            string            `json:"code"`
	Issuer          string            `json:"issuer"`
	StorageAccount  string            `json:"storage_account"`
	Limit           types.Money       `json:"limit"`
	HomeDomain      string            `json:"home_domain"`
	ContentPointer  string            `json:"content_pointer"`
	ClawbackEnabled bool              `json:"clawback_enabled"`
	IssuerLocked    bool              `json:"issuer_locked"`
	State           State             `json:"state"`
	IssuanceHash    string            `json:"issuance_hash,omitempty"`
	Redemptions     int64             `json:"redemptions"`
	Clawbacks       int64             `json:"clawbacks"`
	ActivatedAt     *time.Time        `json:"activated_at,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Asset returns the ledger asset this record describes.
func (r *Record) Asset() Asset {
	return Asset{Code: r.Code, Issuer: r.Issuer}
}

// Transition moves the record to a new state or returns ErrInvalidTransition.
func (r *Record) Transition(to State) error {
	from := r.State
	if from == "" {
		from = StateUninitialized
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: asset %s %s -> %s", types.ErrInvalidTransition, r.Code, from, to)
	}
	r.State = to
	r.Touch()
	return nil
}

// Sellable reports whether the asset may be bought, gifted or subscribed to.
func (r *Record) Sellable() bool { return r.State == StateActive }
