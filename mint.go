package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stellar/go/network"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/ledgerclient"
	"github.com/xraph/mint/lifecycle"
	"github.com/xraph/mint/plugin"
	"github.com/xraph/mint/price"
	"github.com/xraph/mint/renewal"
	"github.com/xraph/mint/signing"
	"github.com/xraph/mint/store"
	"github.com/xraph/mint/submit"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

// Ledger is the network surface the engine talks to.
// *ledgerclient.Client satisfies it.
type Ledger interface {
	account.Loader
	Submit(ctx context.Context, xdr string) (ledgerclient.Submission, error)
	ClaimableBalances(ctx context.Context, claimant string) ([]ledgerclient.ClaimableBalance, error)
	TransactionHistory(ctx context.Context, accountID, cursor string, limit uint) (ledgerclient.Page, error)
}

var _ Ledger = (*ledgerclient.Client)(nil)

// Engine is the transaction orchestration engine.
type Engine struct {
	store   store.Store
	ledger  Ledger
	plugins *plugin.Registry
	logger  *slog.Logger

	builder *txbuild.Builder
	keys    *custody.Keyring
	manager *lifecycle.Manager
	signer  *signing.Coordinator
	queue   *submit.Queue
	sweeper *renewal.Sweeper

	// Configuration
	passphrase    string
	platform      signing.PlatformSigner
	platformAsset asset.Asset
	schedule      fee.Schedule
	prices        price.Provider
	vault         *custody.Vault
	identities    signing.IdentityResolver
	locker        submit.Locker
	lockIssuer    bool
	defaultPeriod time.Duration
	sweep         renewal.Config
	migrate       bool
}

// New creates an Engine over s and ledger. A platform signer, platform
// asset, price provider and vault are required.
func New(s store.Store, ledger Ledger, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:      s,
		ledger:     ledger,
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		passphrase: network.TestNetworkPassphrase,
		schedule:   fee.DefaultSchedule(),
		locker:     submit.NewLocalLocker(),
		migrate:    true,
	}

	for _, opt := range opts {
		opt(e)
	}

	switch {
	case e.platform == nil:
		return nil, types.ValidationError{Field: "platform", Message: "a platform signer is required"}
	case e.platformAsset.IsNative():
		return nil, types.ValidationError{Field: "platform_asset", Message: "a platform token is required"}
	case e.prices == nil:
		return nil, types.ValidationError{Field: "price", Message: "a price provider is required"}
	case e.vault == nil:
		return nil, types.ValidationError{Field: "vault_key", Message: "a custody vault is required"}
	}

	builder, err := txbuild.NewBuilder(txbuild.Config{
		Platform:      e.platform.Address(),
		PlatformAsset: e.platformAsset,
		Schedule:      e.schedule,
	}, ledger, price.NewConverter(e.prices), e.logger)
	if err != nil {
		return nil, err
	}

	events := e.plugins.Events()
	e.builder = builder
	e.keys = custody.NewKeyring(s, e.vault)
	e.manager = lifecycle.NewManager(lifecycle.Config{
		Passphrase:    e.passphrase,
		LockIssuer:    e.lockIssuer,
		DefaultPeriod: e.defaultPeriod,
	}, s, e.keys, builder, events, e.logger)
	e.signer = signing.NewCoordinator(e.passphrase, e.platform, e.identities, e.logger)
	e.queue = submit.NewQueue(e.locker, "", e.logger)
	e.sweeper = renewal.New(e.sweep, s, e.manager, e, events, e.logger)

	return e, nil
}

// Start migrates the store, initializes plugins and starts the renewal
// sweeper.
func (e *Engine) Start(ctx context.Context) error {
	if e.migrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	if err := e.sweeper.Start(ctx); err != nil {
		return err
	}

	e.logger.Info("mint started",
		"platform", e.platform.Address(),
		"platform_asset", e.platformAsset.String(),
		"plugins", e.plugins.Count(),
	)
	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	e.sweeper.Stop()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Passphrase returns the network passphrase envelopes are signed for.
func (e *Engine) Passphrase() string { return e.passphrase }

// Plugins returns the engine's plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Sweeper returns the renewal sweeper.
func (e *Engine) Sweeper() *renewal.Sweeper { return e.sweeper }

// ──────────────────────────────────────────────────
// Execution
// ──────────────────────────────────────────────────

// Result describes one executed envelope. When Submitted is false the
// envelope still lacks the signatures in Missing; XDR then carries the
// partially signed transaction for the remaining signers, and Submit
// finishes it.
type Result struct {
	Hash         string                     `json:"hash"`
	Ledger       int32                      `json:"ledger,omitempty"`
	Submitted    bool                       `json:"submitted"`
	XDR          string                     `json:"xdr"`
	Missing      []string                   `json:"missing,omitempty"`
	Quote        fee.Quote                  `json:"quote"`
	Envelope     *txbuild.Envelope          `json:"-"`
	Asset        *asset.Record              `json:"asset,omitempty"`
	Subscription *subscription.Subscription `json:"subscription,omitempty"`
}

// PrepareFunc builds one envelope. It runs under the source lock.
type PrepareFunc func(ctx context.Context) (*lifecycle.Prepared, error)

// Execute holds the platform source lock while prepare loads and builds,
// the envelope is signed and, when fully signed, submitted. A rejected
// envelope fails its intent; an accepted one is confirmed before the lock
// is released.
func (e *Engine) Execute(ctx context.Context, prepare PrepareFunc, with signing.SignWith) (*Result, error) {
	var res *Result
	err := e.queue.Do(ctx, e.platform.Address(), func(ctx context.Context) error {
		p, err := prepare(ctx)
		if err != nil {
			return err
		}
		e.plugins.EmitEnvelopeBuilt(ctx, p.Envelope)

		local := append(p.Keys, e.platform.Keypair())
		signed, err := e.signer.Sign(ctx, p.Envelope, local, with)
		if err != nil {
			e.abandon(ctx, p.Hash, err)
			return err
		}
		report, err := e.signer.Verify(signed)
		if err != nil {
			e.abandon(ctx, p.Hash, err)
			return err
		}
		xdr, err := signed.XDR()
		if err != nil {
			e.abandon(ctx, p.Hash, err)
			return err
		}

		res = &Result{
			Hash:         p.Hash,
			XDR:          xdr,
			Quote:        signed.Quote,
			Envelope:     signed,
			Asset:        p.Asset,
			Subscription: p.Subscription,
		}
		if !report.Complete() {
			res.Missing = report.Missing
			e.logger.Info("envelope awaiting signatures",
				"kind", signed.Kind,
				"hash", p.Hash,
				"missing", len(report.Missing),
			)
			return nil
		}

		sub, err := e.submit(ctx, signed, p.Hash, xdr)
		if err != nil {
			return err
		}
		res.Submitted = true
		res.Ledger = sub.Ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Submit sends an externally signed envelope, such as one returned by
// Execute and completed in a wallet. Envelopes still missing signatures are
// refused before the ledger is contacted.
func (e *Engine) Submit(ctx context.Context, xdr string) (*Result, error) {
	env, err := txbuild.FromXDR(xdr)
	if err != nil {
		return nil, err
	}
	report, err := e.signer.Verify(env)
	if err != nil {
		return nil, err
	}
	if !report.Complete() {
		return nil, fmt.Errorf("%w: missing signatures from %v", types.ErrSigningFailed, report.Missing)
	}
	hash, err := env.Hash(e.passphrase)
	if err != nil {
		return nil, err
	}

	res := &Result{Hash: hash, XDR: xdr, Envelope: env}
	err = e.queue.Do(ctx, env.Source, func(ctx context.Context) error {
		sub, err := e.submit(ctx, env, hash, xdr)
		if err != nil {
			return err
		}
		res.Submitted = true
		res.Ledger = sub.Ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Confirm applies the local effect of an envelope the ledger accepted
// outside of Execute or Submit.
func (e *Engine) Confirm(ctx context.Context, hash string, ledger int32) error {
	return e.manager.Confirm(ctx, hash, ledger)
}

// submit sends xdr and settles the intent recorded under hash. Rejections
// fail the intent. When the ledger cannot be reached the outcome is
// unknown, so the intent stays pending until it is confirmed or expires.
func (e *Engine) submit(ctx context.Context, env *txbuild.Envelope, hash, xdr string) (ledgerclient.Submission, error) {
	start := time.Now()
	sub, err := e.ledger.Submit(ctx, xdr)
	if err != nil {
		e.plugins.EmitSubmissionFailed(ctx, env, err)
		if errors.Is(err, types.ErrLedgerRejected) || errors.Is(err, types.ErrSequenceConflict) {
			e.abandon(ctx, hash, err)
		}
		e.logger.Warn("submission failed", "kind", env.Kind, "hash", hash, "error", err)
		return sub, err
	}
	if sub.Hash == "" {
		sub.Hash = hash
	}

	elapsed := time.Since(start)
	e.plugins.EmitEnvelopeSubmitted(ctx, env, sub.Hash, sub.Ledger, elapsed)
	e.logger.Info("envelope submitted",
		"kind", env.Kind,
		"hash", sub.Hash,
		"ledger", sub.Ledger,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	if err := e.manager.Confirm(ctx, sub.Hash, sub.Ledger); err != nil {
		return sub, fmt.Errorf("mint: confirm %s: %w", sub.Hash, err)
	}
	return sub, nil
}

func (e *Engine) abandon(ctx context.Context, hash string, cause error) {
	if err := e.manager.Fail(ctx, hash, cause.Error()); err != nil {
		e.logger.Warn("intent not failed", "hash", hash, "error", err)
	}
}

// ──────────────────────────────────────────────────
// Flows
// ──────────────────────────────────────────────────

// Issue creates a new creator asset.
func (e *Engine) Issue(ctx context.Context, req IssueRequest, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Issue(ctx, req)
	}, with)
}

// Buy sells units of an active asset.
func (e *Engine) Buy(ctx context.Context, req BuyRequest, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Buy(ctx, req)
	}, with)
}

// Gift sends units of an active asset for free.
func (e *Engine) Gift(ctx context.Context, req GiftRequest, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Gift(ctx, req)
	}, with)
}

// Subscribe starts or renews a subscription.
func (e *Engine) Subscribe(ctx context.Context, req SubscribeRequest, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Subscribe(ctx, req)
	}, with)
}

// Redeem delivers units from a creator's storage to a user.
func (e *Engine) Redeem(ctx context.Context, req RedeemRequest, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Redeem(ctx, req)
	}, with)
}

// Clawback reclaims units of a clawback-enabled asset.
func (e *Engine) Clawback(ctx context.Context, req ClawbackRequest) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Clawback(ctx, req)
	}, signing.ByAdmin{})
}

// Trustline opens a trustline from account to as, paid in payIn.
func (e *Engine) Trustline(ctx context.Context, account string, as asset.Asset, payIn types.Unit, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Trustline(ctx, account, as, payIn, 0)
	}, with)
}

// Claim claims a claimable balance for claimant.
func (e *Engine) Claim(ctx context.Context, claimant, balanceID string, as asset.Asset, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Claim(ctx, claimant, balanceID, as, 0)
	}, with)
}

// Offer places a DEX sell offer.
func (e *Engine) Offer(ctx context.Context, d txbuild.PlaceOffer, with signing.SignWith) (*Result, error) {
	return e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		return e.manager.Offer(ctx, d)
	}, with)
}

// Revoke claws back the unit an expired subscription granted and reports
// whether anything was clawed back. Assets issued without clawback and fans
// who no longer hold the asset are left alone. The asset itself stays active.
func (e *Engine) Revoke(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	rec, err := e.store.GetAsset(ctx, sub.AssetID)
	if err != nil {
		return false, err
	}
	if !rec.ClawbackEnabled {
		return false, nil
	}

	fan, err := e.ledger.Load(ctx, sub.FanAccount)
	if err != nil {
		return false, err
	}
	held, ok := fan.Balance(rec.Asset())
	if !ok || held.Amount.IsZero() {
		e.logger.Debug("nothing to revoke", "subscription", sub.ID.String(), "fan", sub.FanAccount)
		return false, nil
	}
	// Less than one unit left: take what remains.
	amount := "1"
	if held.Amount.Amount < types.One {
		amount = ""
	}

	res, err := e.Execute(ctx, func(ctx context.Context) (*lifecycle.Prepared, error) {
		env, err := e.builder.Build(ctx, txbuild.ClawbackAsset{
			Asset:      rec.Asset(),
			Authorized: true,
			From:       sub.FanAccount,
			Amount:     amount,
		})
		if err != nil {
			return nil, err
		}
		hash, err := env.Hash(e.passphrase)
		if err != nil {
			return nil, err
		}
		keys, err := e.manager.LocalKeys(ctx, env)
		if err != nil {
			return nil, err
		}
		return &lifecycle.Prepared{Envelope: env, Hash: hash, Keys: keys, Asset: rec, Subscription: sub}, nil
	}, signing.ByAdmin{})
	if errors.Is(err, types.ErrMissingTrustline) {
		// The trustline was removed after the balance check.
		e.logger.Debug("nothing to revoke", "subscription", sub.ID.String(), "fan", sub.FanAccount)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Submitted, nil
}

// ──────────────────────────────────────────────────
// Records
// ──────────────────────────────────────────────────

// GetAsset retrieves an asset record by ID.
func (e *Engine) GetAsset(ctx context.Context, assetID id.AssetID) (*asset.Record, error) {
	return e.store.GetAsset(ctx, assetID)
}

// ListAssets lists a creator's assets.
func (e *Engine) ListAssets(ctx context.Context, creatorID string, opts asset.ListOpts) ([]*asset.Record, error) {
	return e.store.ListAssets(ctx, creatorID, opts)
}

// GetSubscription retrieves a subscription by ID.
func (e *Engine) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, subID)
}

// ListSubscriptions lists a fan's subscriptions.
func (e *Engine) ListSubscriptions(ctx context.Context, fanAccount string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptions(ctx, fanAccount, opts)
}

// CancelSubscription stops a subscription from renewing. The current
// period is not refunded.
func (e *Engine) CancelSubscription(ctx context.Context, subID id.SubscriptionID) error {
	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	if sub.Status == subscription.StatusCanceled {
		return nil
	}
	now := time.Now().UTC()
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = &now
	sub.Touch()
	return e.store.UpdateSubscription(ctx, sub)
}

// ReserveVanity reserves slug for owner until now+d.
func (e *Engine) ReserveVanity(ctx context.Context, slug, ownerID string, d time.Duration) (*subscription.Vanity, error) {
	if slug == "" {
		return nil, types.ValidationError{Field: "slug", Message: "is required"}
	}
	v := &subscription.Vanity{
		Entity:    types.NewEntity(),
		ID:        id.NewVanityID(),
		Slug:      slug,
		OwnerID:   ownerID,
		Status:    subscription.StatusActive,
		ExpiresAt: time.Now().UTC().Add(d),
	}
	if err := e.store.CreateVanity(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// RenewVanity extends a vanity URL by d from its current expiry, or from
// now when it has already lapsed.
func (e *Engine) RenewVanity(ctx context.Context, slug string, d time.Duration) (*subscription.Vanity, error) {
	v, err := e.store.GetVanity(ctx, slug)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	from := v.ExpiresAt
	if v.Status != subscription.StatusActive || from.Before(now) {
		from = now
	}
	v.ExpiresAt = from.Add(d)
	v.Status = subscription.StatusActive
	v.RenewedAt = &now
	v.Touch()
	if err := e.store.UpdateVanity(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// ClaimableBalances lists the deposits claimant may claim.
func (e *Engine) ClaimableBalances(ctx context.Context, claimant string) ([]ledgerclient.ClaimableBalance, error) {
	return e.ledger.ClaimableBalances(ctx, claimant)
}

// History returns one page of an account's transactions.
func (e *Engine) History(ctx context.Context, accountID, cursor string, limit uint) (ledgerclient.Page, error) {
	return e.ledger.TransactionHistory(ctx, accountID, cursor, limit)
}
