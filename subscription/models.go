package subscription

import (
	"time"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// Subscription is a fan's paid access to a creator tier, settled by a
// subscribe transaction.
type Subscription struct {
	types.Entity
	ID                 id.SubscriptionID `json:"id"`
	FanAccount         string            `json:"fan_account"`
	CreatorID          string            `json:"creator_id"`
	CreatorAccount     string            `json:"creator_account"`
	AssetID            id.AssetID        `json:"asset_id"`
	Tier               string            `json:"tier"`
	Price              types.Money       `json:"price"`
	Period             time.Duration     `json:"period"`
	Status             Status            `json:"status"`
	CurrentPeriodStart time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   time.Time         `json:"current_period_end"`
	RenewedAt          *time.Time        `json:"renewed_at,omitempty"`
	CanceledAt         *time.Time        `json:"canceled_at,omitempty"`
	TxHash             string            `json:"tx_hash,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Activate starts or renews the subscription period at now.
func (s *Subscription) Activate(now time.Time) {
	if s.Status == StatusActive {
		s.RenewedAt = &now
		if s.CurrentPeriodEnd.After(now) {
			now = s.CurrentPeriodEnd
		}
	}
	s.Status = StatusActive
	s.CurrentPeriodStart = now
	s.CurrentPeriodEnd = now.Add(s.Period)
	s.Touch()
}

// Due reports whether the paid period of an active or canceled subscription
// has ended by now. Canceled subscriptions run to the end of their period.
func (s *Subscription) Due(now time.Time) bool {
	return (s.Status == StatusActive || s.Status == StatusCanceled) && !s.CurrentPeriodEnd.After(now)
}

// Vanity is a creator's reserved short URL. It lapses when not renewed.
type Vanity struct {
	types.Entity
	ID        id.VanityID `json:"id"`
	Slug      string      `json:"slug"`
	OwnerID   string      `json:"owner_id"`
	Status    Status      `json:"status"`
	ExpiresAt time.Time   `json:"expires_at"`
	RenewedAt *time.Time  `json:"renewed_at,omitempty"`
}

// Due reports whether the vanity URL has lapsed by now.
func (v *Vanity) Due(now time.Time) bool {
	return v.Status == StatusActive && !v.ExpiresAt.After(now)
}
