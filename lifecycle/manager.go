// Package lifecycle drives creator assets from issuance to clawback. It
// builds envelopes, custodies generated keys and records the local effect
// of each envelope as an intent that is applied on confirmation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stellar/go/keypair"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/intent"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

// Store is the persistence a Manager needs.
type Store interface {
	asset.Store
	custody.Store
	subscription.Store
	intent.Store
}

// Builder builds envelopes from descriptors.
type Builder interface {
	Build(ctx context.Context, d txbuild.Descriptor) (*txbuild.Envelope, error)
}

// Events receives lifecycle notifications. Implementations must not block.
type Events interface {
	AssetIssued(ctx context.Context, rec *asset.Record)
	AssetActivated(ctx context.Context, rec *asset.Record)
	Redeemed(ctx context.Context, rec *asset.Record, user string)
	ClawedBack(ctx context.Context, rec *asset.Record)
	SubscriptionActivated(ctx context.Context, sub *subscription.Subscription)
}

// NopEvents ignores every notification.
type NopEvents struct{}

func (NopEvents) AssetIssued(context.Context, *asset.Record)                        {}
func (NopEvents) AssetActivated(context.Context, *asset.Record)                     {}
func (NopEvents) Redeemed(context.Context, *asset.Record, string)                   {}
func (NopEvents) ClawedBack(context.Context, *asset.Record)                         {}
func (NopEvents) SubscriptionActivated(context.Context, *subscription.Subscription) {}

// Config holds the manager's settings.
type Config struct {
	Passphrase string
	// LockIssuer zeroes the issuer master weight of assets issued without
	// clawback.
	LockIssuer bool
	// DefaultPeriod applies to subscriptions that name none.
	DefaultPeriod time.Duration
}

// Prepared is a built envelope plus the custodied keys that must sign it
// and the records it will change once confirmed.
type Prepared struct {
	Envelope     *txbuild.Envelope
	Hash         string
	Keys         []*keypair.Full
	Asset        *asset.Record
	Subscription *subscription.Subscription
	Intent       *intent.Intent
}

// Manager orchestrates every flow over one store.
type Manager struct {
	cfg     Config
	store   Store
	keys    *custody.Keyring
	builder Builder
	events  Events
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager wires a manager. events may be nil.
func NewManager(cfg Config, s Store, keys *custody.Keyring, b Builder, events Events, logger *slog.Logger) *Manager {
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultPeriod == 0 {
		cfg.DefaultPeriod = 30 * 24 * time.Hour
	}
	return &Manager{
		cfg:     cfg,
		store:   s,
		keys:    keys,
		builder: b,
		events:  events,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueRequest asks for a new creator asset.
type IssueRequest struct {
	CreatorID      string
	Code           string
	Limit          string
	HomeDomain     string
	ContentPointer string
	Clawback       bool
	// Requester pays the mint fee when set.
	Requester string
	Metadata  map[string]string
	Timeout   time.Duration
}

// Issue builds the issuance envelope, seals the generated keys and records
// the asset as pending. Every call uses a fresh issuer keypair.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*Prepared, error) {
	var (
		storage    string
		storageKey *keypair.Full
	)
	kp, err := m.keys.Storage(ctx, req.CreatorID)
	switch {
	case err == nil:
		storage = kp.PublicKey
		if storageKey, err = m.keys.Full(ctx, storage); err != nil {
			return nil, err
		}
	case errors.Is(err, types.ErrKeypairNotFound):
	default:
		return nil, err
	}

	env, err := m.builder.Build(ctx, txbuild.IssueAsset{
		CreatorID:      req.CreatorID,
		Code:           req.Code,
		Limit:          req.Limit,
		HomeDomain:     req.HomeDomain,
		ContentPointer: req.ContentPointer,
		Storage:        storage,
		Requester:      req.Requester,
		Clawback:       req.Clawback,
		LockIssuer:     m.cfg.LockIssuer,
		Timeout:        req.Timeout,
	})
	if err != nil {
		return nil, err
	}
	hash, err := env.Hash(m.cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	gen := env.Generated
	if _, err := m.keys.Import(ctx, custody.RoleIssuer, req.CreatorID, gen.Issuer); err != nil {
		return nil, err
	}
	if gen.Storage != nil {
		if _, err := m.keys.Import(ctx, custody.RoleStorage, req.CreatorID, gen.Storage); err != nil {
			return nil, err
		}
		storage, storageKey = gen.Storage.Address(), gen.Storage
	}

	limit, err := types.ParseMoney(req.Limit, env.Asset.Unit())
	if err != nil {
		return nil, err
	}
	rec := &asset.Record{
		Entity:          types.NewEntity(),
		ID:              id.NewAssetID(),
		CreatorID:       req.CreatorID,
		Code:            env.Asset.Code,
		Issuer:          env.Asset.Issuer,
		StorageAccount:  storage,
		Limit:           limit,
		HomeDomain:      req.HomeDomain,
		ContentPointer:  req.ContentPointer,
		ClawbackEnabled: req.Clawback,
		IssuerLocked:    m.cfg.LockIssuer && !req.Clawback,
		State:           asset.StateUninitialized,
		IssuanceHash:    hash,
		Metadata:        req.Metadata,
	}
	if err := rec.Transition(asset.StatePending); err != nil {
		return nil, err
	}
	if err := m.store.CreateAsset(ctx, rec); err != nil {
		return nil, fmt.Errorf("lifecycle: create asset: %w", err)
	}

	in, err := m.record(ctx, env, hash, intent.KindIssue, rec.ID, id.Nil)
	if err != nil {
		return nil, err
	}

	m.logger.Info("asset issuance prepared",
		"asset", env.Asset.String(),
		"creator_id", req.CreatorID,
		"hash", hash,
		"clawback", req.Clawback,
	)
	m.events.AssetIssued(ctx, rec)

	return &Prepared{
		Envelope: env,
		Hash:     hash,
		Keys:     []*keypair.Full{gen.Issuer, storageKey},
		Asset:    rec,
		Intent:   in,
	}, nil
}

// BuyRequest sells units of an active asset.
type BuyRequest struct {
	AssetID id.AssetID
	Buyer   string
	Seller  string
	Price   string
	PayIn   types.Unit
	Amount  string
	Timeout time.Duration
}

// Buy prepares a purchase.
func (m *Manager) Buy(ctx context.Context, req BuyRequest) (*Prepared, error) {
	rec, err := m.sellable(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	return m.prepare(ctx, rec, txbuild.BuyAsset{
		Buyer:   req.Buyer,
		Seller:  req.Seller,
		Storage: rec.StorageAccount,
		Asset:   rec.Asset(),
		Price:   req.Price,
		PayIn:   req.PayIn,
		Amount:  req.Amount,
		Timeout: req.Timeout,
	})
}

// GiftRequest sends units of an active asset for free.
type GiftRequest struct {
	AssetID   id.AssetID
	Recipient string
	Amount    string
	Timeout   time.Duration
}

// Gift prepares a gift. Recipients without a trustline receive a claimable
// balance.
func (m *Manager) Gift(ctx context.Context, req GiftRequest) (*Prepared, error) {
	rec, err := m.sellable(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	return m.prepare(ctx, rec, txbuild.GiftAsset{
		Storage:   rec.StorageAccount,
		Recipient: req.Recipient,
		Asset:     rec.Asset(),
		Amount:    req.Amount,
		Timeout:   req.Timeout,
	})
}

// SubscribeRequest starts or renews a subscription.
type SubscribeRequest struct {
	AssetID        id.AssetID
	Subscriber     string
	CreatorAccount string
	Tier           string
	Price          string
	PayIn          types.Unit
	Period         time.Duration
	// Renew extends an existing subscription instead of creating one.
	Renew   id.SubscriptionID
	Timeout time.Duration
}

// Subscribe prepares a subscription payment. The subscription becomes
// active when the envelope is confirmed.
func (m *Manager) Subscribe(ctx context.Context, req SubscribeRequest) (*Prepared, error) {
	rec, err := m.sellable(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	if !req.Renew.IsNil() {
		if sub, err = m.store.GetSubscription(ctx, req.Renew); err != nil {
			return nil, err
		}
		if sub.FanAccount != req.Subscriber || sub.AssetID.String() != rec.ID.String() {
			return nil, types.ValidationError{Field: "renew", Message: "subscription belongs to another fan or asset"}
		}
	}

	d := txbuild.Subscribe{
		Subscriber: req.Subscriber,
		Creator:    req.CreatorAccount,
		Storage:    rec.StorageAccount,
		Asset:      rec.Asset(),
		Price:      req.Price,
		PayIn:      req.PayIn,
		Timeout:    req.Timeout,
	}
	p, err := m.prepare(ctx, rec, d)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		period := req.Period
		if period == 0 {
			period = m.cfg.DefaultPeriod
		}
		sub = &subscription.Subscription{
			Entity:         types.NewEntity(),
			ID:             id.NewSubscriptionID(),
			FanAccount:     req.Subscriber,
			CreatorID:      rec.CreatorID,
			CreatorAccount: req.CreatorAccount,
			AssetID:        rec.ID,
			Tier:           req.Tier,
			Price:          p.Envelope.Quote.Price,
			Period:         period,
			Status:         subscription.StatusPending,
		}
		sub.TxHash = p.Hash
		if err := m.store.CreateSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("lifecycle: create subscription: %w", err)
		}
	} else {
		sub.TxHash = p.Hash
		sub.Touch()
		if err := m.store.UpdateSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("lifecycle: update subscription: %w", err)
		}
	}

	if p.Intent, err = m.record(ctx, p.Envelope, p.Hash, intent.KindSubscribe, rec.ID, sub.ID); err != nil {
		return nil, err
	}
	p.Subscription = sub
	return p, nil
}

// RedeemRequest delivers units from storage to a user.
type RedeemRequest struct {
	AssetID id.AssetID
	User    string
	Amount  string
	Timeout time.Duration
}

// Redeem prepares a redemption. Only the storage balance moves; supply is
// unchanged.
func (m *Manager) Redeem(ctx context.Context, req RedeemRequest) (*Prepared, error) {
	rec, err := m.sellable(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	p, err := m.prepare(ctx, rec, txbuild.Redeem{
		User:    req.User,
		Storage: rec.StorageAccount,
		Asset:   rec.Asset(),
		Amount:  req.Amount,
		Timeout: req.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if p.Intent, err = m.record(ctx, p.Envelope, p.Hash, intent.KindRedeem, rec.ID, id.Nil); err != nil {
		return nil, err
	}
	return p, nil
}

// ClawbackRequest reclaims a holder balance or an unclaimed deposit.
type ClawbackRequest struct {
	AssetID   id.AssetID
	From      string
	Amount    string
	BalanceID string
	Timeout   time.Duration
}

// Clawback prepares a clawback. Assets issued without clawback are
// rejected before the ledger is consulted.
func (m *Manager) Clawback(ctx context.Context, req ClawbackRequest) (*Prepared, error) {
	rec, err := m.store.GetAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if !rec.ClawbackEnabled {
		return nil, fmt.Errorf("%w: %s was issued without clawback", types.ErrClawbackNotAuthorized, rec.Asset())
	}
	if !rec.State.CanTransition(asset.StateClawedBack) {
		return nil, fmt.Errorf("%w: asset %s is %s", types.ErrInvalidTransition, rec.Code, rec.State)
	}

	p, err := m.prepare(ctx, rec, txbuild.ClawbackAsset{
		Asset:      rec.Asset(),
		Authorized: rec.ClawbackEnabled,
		From:       req.From,
		Amount:     req.Amount,
		BalanceID:  req.BalanceID,
		Timeout:    req.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if p.Intent, err = m.record(ctx, p.Envelope, p.Hash, intent.KindClawback, rec.ID, id.Nil); err != nil {
		return nil, err
	}
	return p, nil
}

// Trustline prepares a standalone trustline for account.
func (m *Manager) Trustline(ctx context.Context, account string, as asset.Asset, payIn types.Unit, timeout time.Duration) (*Prepared, error) {
	return m.prepare(ctx, nil, txbuild.TrustlineOnly{Account: account, Asset: as, PayIn: payIn, Timeout: timeout})
}

// Claim prepares the claim of a claimable balance.
func (m *Manager) Claim(ctx context.Context, claimant, balanceID string, as asset.Asset, timeout time.Duration) (*Prepared, error) {
	return m.prepare(ctx, nil, txbuild.ClaimBalance{Claimant: claimant, BalanceID: balanceID, Asset: as, Timeout: timeout})
}

// Offer prepares a DEX sell offer.
func (m *Manager) Offer(ctx context.Context, d txbuild.PlaceOffer) (*Prepared, error) {
	if !d.Selling.IsNative() {
		if rec, err := m.store.GetAssetByCode(ctx, d.Selling.Code, d.Selling.Issuer); err == nil && !rec.Sellable() {
			return nil, fmt.Errorf("%w: asset %s is %s", types.ErrInvalidTransition, rec.Code, rec.State)
		}
	}
	return m.prepare(ctx, nil, d)
}

// Confirm applies the local effect of the envelope with hash. Envelopes
// without an intent and intents already confirmed are ignored.
func (m *Manager) Confirm(ctx context.Context, hash string, ledger int32) error {
	in, err := m.store.GetIntentByHash(ctx, hash)
	if errors.Is(err, types.ErrIntentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if in.Status == intent.StatusConfirmed {
		return nil
	}

	switch in.Kind {
	case intent.KindIssue:
		err = m.activate(ctx, in)
	case intent.KindSubscribe:
		err = m.activateSubscription(ctx, in)
	case intent.KindRedeem:
		err = m.countRedemption(ctx, in)
	case intent.KindClawback:
		err = m.markClawedBack(ctx, in)
	}
	if err != nil {
		return err
	}

	if err := in.Resolve(intent.StatusConfirmed, ""); err != nil {
		return err
	}
	in.Ledger = ledger
	if err := m.store.UpdateIntent(ctx, in); err != nil {
		return fmt.Errorf("lifecycle: update intent: %w", err)
	}
	m.logger.Info("intent confirmed", "hash", hash, "kind", in.Kind, "ledger", ledger)
	return nil
}

// Fail records that the envelope with hash will never apply. A failed
// issuance returns its asset to uninitialized and retires the unused
// issuer key.
func (m *Manager) Fail(ctx context.Context, hash, reason string) error {
	in, err := m.store.GetIntentByHash(ctx, hash)
	if errors.Is(err, types.ErrIntentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.abandon(ctx, in, intent.StatusFailed, reason)
}

// ExpireIntents abandons every intent still pending that was created
// before cutoff. It returns the number expired.
func (m *Manager) ExpireIntents(ctx context.Context, cutoff time.Time) (int, error) {
	pending, err := m.store.ListPendingIntents(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, in := range pending {
		if err := m.abandon(ctx, in, intent.StatusExpired, "not confirmed before "+cutoff.Format(time.RFC3339)); err != nil {
			m.logger.Warn("intent expiry failed", "hash", in.Hash, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

func (m *Manager) abandon(ctx context.Context, in *intent.Intent, status intent.Status, reason string) error {
	if in.Status != intent.StatusPending {
		return nil
	}
	if in.Kind == intent.KindIssue {
		rec, err := m.store.GetAsset(ctx, in.AssetID)
		if err != nil {
			return err
		}
		if rec.State == asset.StatePending {
			if err := rec.Transition(asset.StateUninitialized); err != nil {
				return err
			}
			if err := m.store.UpdateAsset(ctx, rec); err != nil {
				return fmt.Errorf("lifecycle: update asset: %w", err)
			}
			if err := m.keys.Retire(ctx, rec.Issuer); err != nil {
				return err
			}
		}
	}
	if err := in.Resolve(status, reason); err != nil {
		return err
	}
	if err := m.store.UpdateIntent(ctx, in); err != nil {
		return fmt.Errorf("lifecycle: update intent: %w", err)
	}
	m.logger.Warn("intent abandoned", "hash", in.Hash, "kind", in.Kind, "status", status, "reason", reason)
	return nil
}

func (m *Manager) activate(ctx context.Context, in *intent.Intent) error {
	rec, err := m.store.GetAsset(ctx, in.AssetID)
	if err != nil {
		return err
	}
	if err := rec.Transition(asset.StateActive); err != nil {
		return err
	}
	now := m.now()
	rec.ActivatedAt = &now
	if err := m.store.UpdateAsset(ctx, rec); err != nil {
		return fmt.Errorf("lifecycle: update asset: %w", err)
	}
	// Clawback needs the issuer key; every other issuer is done signing.
	if !rec.ClawbackEnabled {
		if err := m.keys.Retire(ctx, rec.Issuer); err != nil {
			return err
		}
	}
	m.events.AssetActivated(ctx, rec)
	return nil
}

func (m *Manager) activateSubscription(ctx context.Context, in *intent.Intent) error {
	sub, err := m.store.GetSubscription(ctx, in.SubscriptionID)
	if err != nil {
		return err
	}
	sub.Activate(m.now())
	sub.TxHash = in.Hash
	if err := m.store.UpdateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("lifecycle: update subscription: %w", err)
	}
	m.events.SubscriptionActivated(ctx, sub)
	return nil
}

func (m *Manager) countRedemption(ctx context.Context, in *intent.Intent) error {
	rec, err := m.store.GetAsset(ctx, in.AssetID)
	if err != nil {
		return err
	}
	rec.Redemptions++
	rec.Touch()
	if err := m.store.UpdateAsset(ctx, rec); err != nil {
		return fmt.Errorf("lifecycle: update asset: %w", err)
	}
	m.events.Redeemed(ctx, rec, in.Source)
	return nil
}

func (m *Manager) markClawedBack(ctx context.Context, in *intent.Intent) error {
	rec, err := m.store.GetAsset(ctx, in.AssetID)
	if err != nil {
		return err
	}
	if err := rec.Transition(asset.StateClawedBack); err != nil {
		return err
	}
	rec.Clawbacks++
	if err := m.store.UpdateAsset(ctx, rec); err != nil {
		return fmt.Errorf("lifecycle: update asset: %w", err)
	}
	m.events.ClawedBack(ctx, rec)
	return nil
}

func (m *Manager) sellable(ctx context.Context, assetID id.AssetID) (*asset.Record, error) {
	rec, err := m.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !rec.Sellable() {
		return nil, fmt.Errorf("%w: asset %s is %s", types.ErrInvalidTransition, rec.Code, rec.State)
	}
	return rec, nil
}

// prepare builds d and gathers the custodied keys among its signers.
func (m *Manager) prepare(ctx context.Context, rec *asset.Record, d txbuild.Descriptor) (*Prepared, error) {
	env, err := m.builder.Build(ctx, d)
	if err != nil {
		return nil, err
	}
	hash, err := env.Hash(m.cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	keys, err := m.LocalKeys(ctx, env)
	if err != nil {
		return nil, err
	}
	return &Prepared{Envelope: env, Hash: hash, Keys: keys, Asset: rec}, nil
}

// LocalKeys opens the custodied keys among env's signers. Signers the
// platform does not custody are skipped.
func (m *Manager) LocalKeys(ctx context.Context, env *txbuild.Envelope) ([]*keypair.Full, error) {
	var out []*keypair.Full
	for _, s := range env.Signers {
		kp, err := m.keys.Full(ctx, s)
		if errors.Is(err, types.ErrKeypairNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, kp)
	}
	return out, nil
}

// record stores a pending intent for env. The intent's source is the user
// account the envelope serves, or the tx source when there is none.
func (m *Manager) record(ctx context.Context, env *txbuild.Envelope, hash string, kind intent.Kind, assetID id.AssetID, subID id.SubscriptionID) (*intent.Intent, error) {
	source := env.UserAccount
	if source == "" {
		source = env.Source
	}
	if kind == intent.KindRedeem {
		for _, op := range env.Operations {
			if p, ok := op.(txbuild.Payment); ok && p.Asset.Equal(env.Asset) {
				source = p.To
			}
		}
	}
	in := &intent.Intent{
		Entity:         types.NewEntity(),
		ID:             id.NewIntentID(),
		Hash:           hash,
		Kind:           kind,
		Source:         source,
		AssetID:        assetID,
		SubscriptionID: subID,
		Status:         intent.StatusPending,
	}
	if err := m.store.CreateIntent(ctx, in); err != nil {
		return nil, fmt.Errorf("lifecycle: create intent: %w", err)
	}
	return in, nil
}
