package intent

import (
	"fmt"
	"time"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/types"
)

type Kind string

const (
	KindIssue     Kind = "issue"
	KindSubscribe Kind = "subscribe"
	KindRedeem    Kind = "redeem"
	KindClawback  Kind = "clawback"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Intent is the local effect a built envelope will have once the ledger
// accepts it. It is keyed by transaction hash.
type Intent struct {
	types.Entity
	ID             id.IntentID       `json:"id"`
	Hash           string            `json:"hash"`
	Kind           Kind              `json:"kind"`
	Source         string            `json:"source"`
	AssetID        id.AssetID        `json:"asset_id"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	Status         Status            `json:"status"`
	Reason         string            `json:"reason,omitempty"`
	ConfirmedAt    *time.Time        `json:"confirmed_at,omitempty"`
	Ledger         int32             `json:"ledger,omitempty"`
}

// Resolve moves a pending intent to a terminal status.
func (i *Intent) Resolve(to Status, reason string) error {
	if i.Status != StatusPending {
		return fmt.Errorf("%w: intent %s %s -> %s", types.ErrInvalidTransition, i.Hash, i.Status, to)
	}
	i.Status = to
	i.Reason = reason
	if to == StatusConfirmed {
		now := time.Now().UTC()
		i.ConfirmedAt = &now
	}
	i.Touch()
	return nil
}
