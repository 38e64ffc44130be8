// Package plugin provides an extensible plugin system for Mint.
// Plugins can hook into envelope, asset and subscription events.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Envelope hooks
// ──────────────────────────────────────────────────

// OnEnvelopeBuilt is called after a descriptor is turned into an envelope.
type OnEnvelopeBuilt interface {
	Plugin
	OnEnvelopeBuilt(ctx context.Context, env *txbuild.Envelope) error
}

// OnEnvelopeSubmitted is called after the ledger accepts a transaction.
type OnEnvelopeSubmitted interface {
	Plugin
	OnEnvelopeSubmitted(ctx context.Context, env *txbuild.Envelope, hash string, ledger int32, elapsed time.Duration) error
}

// OnSubmissionFailed is called when a submission is rejected or times out.
type OnSubmissionFailed interface {
	Plugin
	OnSubmissionFailed(ctx context.Context, env *txbuild.Envelope, err error) error
}

// ──────────────────────────────────────────────────
// Asset lifecycle hooks
// ──────────────────────────────────────────────────

// OnAssetIssued is called when an issuance envelope has been prepared.
type OnAssetIssued interface {
	Plugin
	OnAssetIssued(ctx context.Context, rec *asset.Record) error
}

// OnAssetActivated is called when an issuance is confirmed on the ledger.
type OnAssetActivated interface {
	Plugin
	OnAssetActivated(ctx context.Context, rec *asset.Record) error
}

// OnRedeemed is called when a redemption is confirmed.
type OnRedeemed interface {
	Plugin
	OnRedeemed(ctx context.Context, rec *asset.Record, user string) error
}

// OnClawedBack is called when a clawback is confirmed.
type OnClawedBack interface {
	Plugin
	OnClawedBack(ctx context.Context, rec *asset.Record) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated is called when a subscribe payment is confirmed.
type OnSubscriptionActivated interface {
	Plugin
	OnSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionExpired is called when a subscription lapses.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error
}

// OnVanityExpired is called when a vanity URL lapses.
type OnVanityExpired interface {
	Plugin
	OnVanityExpired(ctx context.Context, v *subscription.Vanity) error
}
