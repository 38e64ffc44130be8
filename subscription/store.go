package subscription

import (
	"context"
	"time"

	"github.com/xraph/mint/id"
)

type Store interface {
	CreateSubscription(ctx context.Context, s *Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	ListSubscriptions(ctx context.Context, fanAccount string, opts ListOpts) ([]*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	ListDueSubscriptions(ctx context.Context, before time.Time) ([]*Subscription, error)

	CreateVanity(ctx context.Context, v *Vanity) error
	GetVanity(ctx context.Context, slug string) (*Vanity, error)
	UpdateVanity(ctx context.Context, v *Vanity) error
	ListDueVanities(ctx context.Context, before time.Time) ([]*Vanity, error)
}

type ListOpts struct {
	Status    Status
	CreatorID string
	Limit     int
	Offset    int
}
