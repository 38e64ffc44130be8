// Package txbuild assembles ordered, fee-accounted ledger transactions for
// every Mint flow and checks their preconditions before anything is signed.
package txbuild

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/types"
)

// Config identifies the platform and its fee schedule.
type Config struct {
	Platform      string
	PlatformAsset asset.Asset
	Schedule      fee.Schedule
}

// Builder turns descriptors into envelopes. It holds no mutable state; every
// build loads fresh account snapshots.
type Builder struct {
	cfg    Config
	loader account.Loader
	conv   fee.Converter
	trust  *TrustlineManager
	logger *slog.Logger
}

// NewBuilder validates cfg and returns a builder.
func NewBuilder(cfg Config, loader account.Loader, conv fee.Converter, logger *slog.Logger) (*Builder, error) {
	if !strkey.IsValidEd25519PublicKey(cfg.Platform) {
		return nil, types.ValidationError{Field: "platform", Message: "invalid platform account"}
	}
	if cfg.PlatformAsset.IsNative() {
		return nil, types.ValidationError{Field: "platform_asset", Message: "platform token is required"}
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:    cfg,
		loader: loader,
		conv:   conv,
		trust:  NewTrustlineManager(cfg.Platform, cfg.Schedule.TrustlineReserve, conv),
		logger: logger,
	}, nil
}

// Trustlines exposes the builder's trustline manager.
func (b *Builder) Trustlines() *TrustlineManager { return b.trust }

// Build validates d, loads the accounts it references, checks every
// precondition and returns the unsigned envelope.
func (b *Builder) Build(ctx context.Context, d Descriptor) (*Envelope, error) {
	if d == nil {
		return nil, types.ValidationError{Field: "descriptor", Message: "is required"}
	}
	// Clawback authorization is decided before any other work.
	if cb, ok := d.(ClawbackAsset); ok && !cb.Authorized {
		return nil, fmt.Errorf("%w: %s", types.ErrClawbackNotAuthorized, cb.Asset)
	}
	if err := validateStruct(d); err != nil {
		return nil, err
	}

	var (
		env *Envelope
		err error
	)
	switch d := d.(type) {
	case IssueAsset:
		env, err = b.issue(ctx, d)
	case BuyAsset:
		env, err = b.buy(ctx, d)
	case GiftAsset:
		env, err = b.gift(ctx, d)
	case Subscribe:
		env, err = b.subscribe(ctx, d)
	case Redeem:
		env, err = b.redeem(ctx, d)
	case ClawbackAsset:
		env, err = b.clawback(ctx, d)
	case TrustlineOnly:
		env, err = b.trustlineOnly(ctx, d)
	case ClaimBalance:
		env, err = b.claim(ctx, d)
	case PlaceOffer:
		env, err = b.offer(ctx, d)
	default:
		return nil, types.ValidationError{Field: "descriptor", Message: fmt.Sprintf("unsupported descriptor %T", d)}
	}
	if err != nil {
		return nil, err
	}

	b.logger.Debug("envelope built",
		"kind", env.Kind,
		"source", env.Source,
		"sequence", env.Sequence,
		"ops", len(env.Operations),
		"signers", len(env.Signers),
	)
	return env, nil
}

// finish checks ordering and sufficiency and assembles the transaction.
func (b *Builder) finish(env *Envelope, accounts map[string]*account.Account, ops []Operation, timeout time.Duration) (*Envelope, error) {
	if len(ops) == 0 {
		return nil, types.ValidationError{Field: "operations", Message: "nothing to do"}
	}
	platform, ok := accounts[b.cfg.Platform]
	if !ok {
		return nil, types.ValidationError{Field: "platform", Message: "platform account was not loaded"}
	}

	netFee := b.cfg.Schedule.NetworkFee(len(ops))
	if err := CheckTrustOrder(ops, accounts); err != nil {
		return nil, err
	}
	if err := CheckSufficiency(b.cfg.Platform, netFee, ops, accounts); err != nil {
		return nil, err
	}

	tx, err := assemble(b.cfg.Platform, platform.Sequence, ops, b.cfg.Schedule.BaseFeePerOperation, timeout)
	if err != nil {
		return nil, err
	}

	env.Source = b.cfg.Platform
	env.Sequence = platform.Sequence + 1
	env.Fee = netFee
	env.Operations = ops
	env.Timeout = timeout
	env.Signers = signers(b.cfg.Platform, ops)
	env.tx = tx
	return env, nil
}

func (b *Builder) load(ctx context.Context, keys ...string) (map[string]*account.Account, error) {
	nonEmpty := make([]string, 0, len(keys)+1)
	nonEmpty = append(nonEmpty, b.cfg.Platform)
	for _, k := range keys {
		if k != "" {
			nonEmpty = append(nonEmpty, k)
		}
	}
	return account.LoadAll(ctx, b.loader, nonEmpty...)
}

// payIn resolves the asset and money unit a payer settles in.
func (b *Builder) payIn(u types.Unit) (asset.Asset, types.Unit) {
	if u == types.UnitNative {
		return asset.Native, types.UnitNative
	}
	return b.cfg.PlatformAsset, types.UnitPlatform
}

func checkCredit(field string, a asset.Asset) error {
	if _, err := asset.New(a.Code, a.Issuer); err != nil {
		return types.ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}

// units parses an optional amount of as, defaulting to one whole unit.
func units(s string, as asset.Asset) (types.Money, error) {
	if s == "" {
		return as.Amount(types.One), nil
	}
	return types.ParseMoney(s, as.Unit())
}

func zeroQuote(unit types.Unit) fee.Quote {
	z := types.Zero(unit)
	return fee.Quote{Unit: unit, Price: z, PlatformFee: z, ReserveCharge: z, NetworkFee: z}
}

func requireTrust(acct *account.Account, as asset.Asset) error {
	if !acct.HasTrustline(as) {
		return fmt.Errorf("%w: %s does not trust %s", types.ErrMissingTrustline, acct.PublicKey, as)
	}
	return requireAuthorized(acct, as)
}

// requireAuthorized rejects an existing trustline the issuer has not
// authorized. A ChangeTrust cannot fix that, so it is never bootstrapped.
func requireAuthorized(acct *account.Account, as asset.Asset) error {
	if !acct.CanHold(as) {
		return fmt.Errorf("%w: trustline of %s to %s is not authorized", types.ErrMissingTrustline, acct.PublicKey, as)
	}
	return nil
}

// Issue: [mintFee?, fundStorage, CreateAccount(issuer), ChangeTrust(storage),
// Payment(issuer->storage, limit), SetOptions(issuer), ManageData(issuer), lock?]
func (b *Builder) issue(ctx context.Context, d IssueAsset) (*Envelope, error) {
	if err := asset.ValidateContentPointer(d.ContentPointer); err != nil {
		return nil, err
	}

	issuer, err := keypair.Random()
	if err != nil {
		return nil, fmt.Errorf("txbuild: generate issuer: %w", err)
	}
	gen := Generated{Issuer: issuer}

	storage := d.Storage
	if storage == "" {
		kp, err := keypair.Random()
		if err != nil {
			return nil, fmt.Errorf("txbuild: generate storage: %w", err)
		}
		gen.Storage = kp
		storage = kp.Address()
	}

	as, err := asset.New(d.Code, issuer.Address())
	if err != nil {
		return nil, err
	}
	limit, err := types.ParseMoney(d.Limit, as.Unit())
	if err != nil {
		return nil, err
	}

	accts, err := b.load(ctx, d.Storage, d.Requester)
	if err != nil {
		return nil, err
	}
	s := b.cfg.Schedule

	ops := make([]Operation, 0, 8)
	if d.Storage != "" {
		ops = append(ops, Payment{From: b.cfg.Platform, To: storage, Asset: asset.Native, Amount: s.DistributorFunding})
	} else {
		ops = append(ops, CreateAccount{From: b.cfg.Platform, Destination: storage, StartingBalance: s.DistributorFunding})
	}
	ops = append(ops,
		CreateAccount{From: b.cfg.Platform, Destination: issuer.Address(), StartingBalance: s.IssuerStartingBalance},
		ChangeTrust{Account: storage, Asset: as, Limit: limit},
		Payment{From: issuer.Address(), To: storage, Asset: as, Amount: limit},
		SetOptions{Account: issuer.Address(), HomeDomain: d.HomeDomain, EnableClawback: d.Clawback},
		ManageData{Account: issuer.Address(), Key: asset.ContentKey, Value: []byte(d.ContentPointer)},
	)
	if d.LockIssuer && !d.Clawback {
		ops = append(ops, SetOptions{Account: issuer.Address(), LockMaster: true})
	}

	count := len(ops)
	if d.Requester != "" {
		count++
	}
	networkFee := s.NetworkFee(count)
	funding, err := fee.Charge(ctx, b.conv, s.DistributorFunding, types.UnitPlatform)
	if err != nil {
		return nil, err
	}
	quote, err := s.Quote(ctx, b.conv, types.UnitPlatform, funding, types.Zero(types.UnitNative), networkFee)
	if err != nil {
		return nil, err
	}

	if d.Requester != "" {
		if err := requireTrust(accts[d.Requester], b.cfg.PlatformAsset); err != nil {
			return nil, err
		}
		mintFee := Payment{From: d.Requester, To: b.cfg.Platform, Asset: b.cfg.PlatformAsset, Amount: quote.Total()}
		ops = append([]Operation{mintFee}, ops...)
	}

	env := &Envelope{Kind: KindIssue, Asset: as, UserAccount: d.Requester, Generated: gen, Quote: quote}
	return b.finish(env, accts, ops, d.Timeout)
}

// Buy: [Payment(fee+reserve, buyer->platform), Payment(price, buyer->seller),
// seed?, ChangeTrust(buyer)?, Payment(units, storage->buyer)]
func (b *Builder) buy(ctx context.Context, d BuyAsset) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	payAsset, unit := b.payIn(d.PayIn)
	price, err := types.ParseMoney(d.Price, unit)
	if err != nil {
		return nil, err
	}
	amount, err := units(d.Amount, d.Asset)
	if err != nil {
		return nil, err
	}

	accts, err := b.load(ctx, d.Buyer, d.Seller, d.Storage)
	if err != nil {
		return nil, err
	}
	buyer := accts[d.Buyer]
	if err := requireTrust(buyer, payAsset); err != nil {
		return nil, err
	}

	delivery := []Operation{Payment{From: d.Storage, To: d.Buyer, Asset: d.Asset, Amount: amount}}
	boot, err := b.trust.Ensure(ctx, delivery, buyer, d.Asset, Payer{Account: buyer, Asset: payAsset, Unit: unit})
	if err != nil {
		return nil, err
	}
	quote, err := b.cfg.Schedule.Quote(ctx, b.conv, unit, price, types.Zero(types.UnitNative), types.Zero(types.UnitNative))
	if err != nil {
		return nil, err
	}
	quote.ReserveCharge = boot.ReserveCharge

	ops := make([]Operation, 0, 5)
	if fees := quote.Fees(); fees.IsPositive() {
		ops = append(ops, Payment{From: d.Buyer, To: b.cfg.Platform, Asset: payAsset, Amount: fees})
	}
	ops = append(ops, Payment{From: d.Buyer, To: d.Seller, Asset: payAsset, Amount: price})
	ops = append(ops, boot.Ops...)

	env := &Envelope{Kind: KindBuy, Asset: d.Asset, UserAccount: d.Buyer, Quote: quote}
	return b.finish(env, accts, ops, d.Timeout)
}

// Gift: [Payment(storage->recipient)], or a claimable balance when the
// recipient does not trust the asset yet.
func (b *Builder) gift(ctx context.Context, d GiftAsset) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	amount, err := units(d.Amount, d.Asset)
	if err != nil {
		return nil, err
	}
	accts, err := b.load(ctx, d.Storage, d.Recipient)
	if err != nil {
		return nil, err
	}

	var op Operation = Payment{From: d.Storage, To: d.Recipient, Asset: d.Asset, Amount: amount}
	if recipient := accts[d.Recipient]; !recipient.HasTrustline(d.Asset) {
		op = CreateClaimableBalance{From: d.Storage, Claimant: d.Recipient, Asset: d.Asset, Amount: amount}
	} else if err := requireAuthorized(recipient, d.Asset); err != nil {
		return nil, err
	}

	env := &Envelope{Kind: KindGift, Asset: d.Asset, Quote: zeroQuote(types.UnitPlatform)}
	return b.finish(env, accts, []Operation{op}, d.Timeout)
}

// Subscribe: [seed?, ChangeTrust(subscriber)?, Payment(units, storage->subscriber),
// Payment(price, subscriber->creator), Payment(fee+reserve, subscriber->platform)]
func (b *Builder) subscribe(ctx context.Context, d Subscribe) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	payAsset, unit := b.payIn(d.PayIn)
	price, err := types.ParseMoney(d.Price, unit)
	if err != nil {
		return nil, err
	}
	amount, err := units(d.Amount, d.Asset)
	if err != nil {
		return nil, err
	}

	accts, err := b.load(ctx, d.Subscriber, d.Creator, d.Storage)
	if err != nil {
		return nil, err
	}
	sub := accts[d.Subscriber]
	if err := requireTrust(sub, payAsset); err != nil {
		return nil, err
	}

	core := []Operation{
		Payment{From: d.Storage, To: d.Subscriber, Asset: d.Asset, Amount: amount},
		Payment{From: d.Subscriber, To: d.Creator, Asset: payAsset, Amount: price},
	}
	boot, err := b.trust.Ensure(ctx, core, sub, d.Asset, Payer{Account: sub, Asset: payAsset, Unit: unit})
	if err != nil {
		return nil, err
	}
	quote, err := b.cfg.Schedule.Quote(ctx, b.conv, unit, price, types.Zero(types.UnitNative), types.Zero(types.UnitNative))
	if err != nil {
		return nil, err
	}
	quote.ReserveCharge = boot.ReserveCharge

	ops := boot.Ops
	if fees := quote.Fees(); fees.IsPositive() {
		ops = append(ops, Payment{From: d.Subscriber, To: b.cfg.Platform, Asset: payAsset, Amount: fees})
	}

	env := &Envelope{Kind: KindSubscribe, Asset: d.Asset, UserAccount: d.Subscriber, Quote: quote}
	return b.finish(env, accts, ops, d.Timeout)
}

// Redeem: [seed?, ChangeTrust(user)?, Payment(units, storage->user)]. The
// platform covers the reserve.
func (b *Builder) redeem(ctx context.Context, d Redeem) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	amount, err := units(d.Amount, d.Asset)
	if err != nil {
		return nil, err
	}
	accts, err := b.load(ctx, d.User, d.Storage)
	if err != nil {
		return nil, err
	}

	delivery := []Operation{Payment{From: d.Storage, To: d.User, Asset: d.Asset, Amount: amount}}
	platform := accts[b.cfg.Platform]
	boot, err := b.trust.Ensure(ctx, delivery, accts[d.User], d.Asset,
		Payer{Account: platform, Asset: asset.Native, Unit: types.UnitNative})
	if err != nil {
		return nil, err
	}

	user := ""
	if boot.Opened {
		user = d.User
	}
	env := &Envelope{Kind: KindRedeem, Asset: d.Asset, UserAccount: user, Quote: zeroQuote(types.UnitNative)}
	return b.finish(env, accts, boot.Ops, d.Timeout)
}

// Clawback: [Clawback(holder)] or [ClawbackClaimableBalance(id)], sourced
// from the issuer.
func (b *Builder) clawback(ctx context.Context, d ClawbackAsset) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	if d.From == "" && d.BalanceID == "" {
		return nil, types.ValidationError{Field: "from", Message: "a holder or a balance id is required"}
	}

	accts, err := b.load(ctx, d.From)
	if err != nil {
		return nil, err
	}

	var op Operation
	if d.BalanceID != "" {
		op = ClawbackClaimableBalance{Issuer: d.Asset.Issuer, BalanceID: d.BalanceID}
	} else {
		holder := accts[d.From]
		bal, ok := holder.Balance(d.Asset)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not hold %s", types.ErrMissingTrustline, d.From, d.Asset)
		}
		if !bal.Clawback {
			return nil, fmt.Errorf("%w: trustline of %s to %s is not clawback enabled", types.ErrClawbackNotAuthorized, d.From, d.Asset)
		}
		amount := bal.Amount
		if d.Amount != "" {
			if amount, err = types.ParseMoney(d.Amount, d.Asset.Unit()); err != nil {
				return nil, err
			}
		}
		if amount.IsZero() {
			return nil, types.ValidationError{Field: "amount", Message: "holder balance is zero"}
		}
		op = Clawback{Issuer: d.Asset.Issuer, From: d.From, Asset: d.Asset, Amount: amount}
	}

	env := &Envelope{Kind: KindClawback, Asset: d.Asset, Quote: zeroQuote(types.UnitNative)}
	return b.finish(env, accts, []Operation{op}, d.Timeout)
}

// TrustlineOnly: [Payment(reserve charge, account->platform)?, seed?, ChangeTrust]
func (b *Builder) trustlineOnly(ctx context.Context, d TrustlineOnly) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	payAsset, unit := b.payIn(d.PayIn)

	accts, err := b.load(ctx, d.Account)
	if err != nil {
		return nil, err
	}
	acct := accts[d.Account]
	if acct.HasTrustline(d.Asset) {
		return nil, types.ValidationError{Field: "asset", Message: fmt.Sprintf("%s already trusts %s", d.Account, d.Asset)}
	}

	boot, err := b.trust.Ensure(ctx, nil, acct, d.Asset, Payer{Account: acct, Asset: payAsset, Unit: unit})
	if err != nil {
		return nil, err
	}

	ops := boot.Ops
	if boot.ReserveCharge.IsPositive() {
		charge := Payment{From: d.Account, To: b.cfg.Platform, Asset: payAsset, Amount: boot.ReserveCharge}
		ops = append([]Operation{charge}, ops...)
	}

	quote := zeroQuote(unit)
	quote.ReserveCharge = boot.ReserveCharge
	env := &Envelope{Kind: KindTrustline, Asset: d.Asset, UserAccount: d.Account, Quote: quote}
	return b.finish(env, accts, ops, d.Timeout)
}

// ClaimBalance: [seed?, ChangeTrust?, ClaimClaimableBalance]. The platform
// covers the reserve.
func (b *Builder) claim(ctx context.Context, d ClaimBalance) (*Envelope, error) {
	if err := checkCredit("asset", d.Asset); err != nil {
		return nil, err
	}
	accts, err := b.load(ctx, d.Claimant)
	if err != nil {
		return nil, err
	}

	claim := []Operation{ClaimClaimableBalance{Claimant: d.Claimant, BalanceID: d.BalanceID}}
	boot, err := b.trust.Ensure(ctx, claim, accts[d.Claimant], d.Asset,
		Payer{Account: accts[b.cfg.Platform], Asset: asset.Native, Unit: types.UnitNative})
	if err != nil {
		return nil, err
	}

	env := &Envelope{Kind: KindClaim, Asset: d.Asset, UserAccount: d.Claimant, Quote: zeroQuote(types.UnitNative)}
	return b.finish(env, accts, boot.Ops, d.Timeout)
}

// PlaceOffer: [ManageOffer(seller)]
func (b *Builder) offer(ctx context.Context, d PlaceOffer) (*Envelope, error) {
	if d.Selling.Equal(d.Buying) {
		return nil, types.ValidationError{Field: "buying", Message: "selling and buying must differ"}
	}
	for field, a := range map[string]asset.Asset{"selling": d.Selling, "buying": d.Buying} {
		if !a.IsNative() {
			if err := checkCredit(field, a); err != nil {
				return nil, err
			}
		}
	}
	amount, err := types.ParseMoney(d.Amount, d.Selling.Unit())
	if err != nil {
		return nil, err
	}
	accts, err := b.load(ctx, d.Seller)
	if err != nil {
		return nil, err
	}

	op := ManageOffer{Seller: d.Seller, Selling: d.Selling, Buying: d.Buying, Amount: amount, Price: d.Price, OfferID: d.OfferID}
	env := &Envelope{Kind: KindOffer, Asset: d.Selling, UserAccount: d.Seller, Quote: zeroQuote(types.UnitNative)}
	return b.finish(env, accts, []Operation{op}, d.Timeout)
}
