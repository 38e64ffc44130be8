package store

import (
	"context"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/intent"
	"github.com/xraph/mint/subscription"
)

// Store is the unified storage interface for all Mint entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Asset methods
	CreateAsset(ctx context.Context, r *asset.Record) error
	GetAsset(ctx context.Context, assetID id.AssetID) (*asset.Record, error)
	GetAssetByCode(ctx context.Context, code, issuer string) (*asset.Record, error)
	ListAssets(ctx context.Context, creatorID string, opts asset.ListOpts) ([]*asset.Record, error)
	UpdateAsset(ctx context.Context, r *asset.Record) error

	// Keypair methods
	CreateKeypair(ctx context.Context, kp *custody.Keypair) error
	GetKeypair(ctx context.Context, kpID id.KeypairID) (*custody.Keypair, error)
	GetKeypairByPublicKey(ctx context.Context, publicKey string) (*custody.Keypair, error)
	ListKeypairs(ctx context.Context, ownerID string, role custody.Role) ([]*custody.Keypair, error)
	RetireKeypair(ctx context.Context, publicKey string) error

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, fanAccount string, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	ListDueSubscriptions(ctx context.Context, before time.Time) ([]*subscription.Subscription, error)

	// Vanity methods
	CreateVanity(ctx context.Context, v *subscription.Vanity) error
	GetVanity(ctx context.Context, slug string) (*subscription.Vanity, error)
	UpdateVanity(ctx context.Context, v *subscription.Vanity) error
	ListDueVanities(ctx context.Context, before time.Time) ([]*subscription.Vanity, error)

	// Intent methods
	CreateIntent(ctx context.Context, in *intent.Intent) error
	GetIntentByHash(ctx context.Context, hash string) (*intent.Intent, error)
	UpdateIntent(ctx context.Context, in *intent.Intent) error
	ListPendingIntents(ctx context.Context, before time.Time) ([]*intent.Intent, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Compile-time checks that Store satisfies each domain store.
var (
	_ asset.Store        = (Store)(nil)
	_ custody.Store      = (Store)(nil)
	_ subscription.Store = (Store)(nil)
	_ intent.Store       = (Store)(nil)
)
