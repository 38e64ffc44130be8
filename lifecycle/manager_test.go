package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/intent"
	"github.com/xraph/mint/price"
	"github.com/xraph/mint/store/memory"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

const pointer = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) AssetIssued(context.Context, *asset.Record)      { r.add("issued") }
func (r *recorder) AssetActivated(context.Context, *asset.Record)   { r.add("activated") }
func (r *recorder) Redeemed(context.Context, *asset.Record, string) { r.add("redeemed") }
func (r *recorder) ClawedBack(context.Context, *asset.Record)       { r.add("clawed_back") }
func (r *recorder) SubscriptionActivated(context.Context, *subscription.Subscription) {
	r.add("subscribed")
}

// ledger serves funded accounts for any key, with overrides.
type ledger struct {
	mu        sync.Mutex
	overrides map[string]*account.Account
	calls     atomic.Int32
}

func (l *ledger) Load(_ context.Context, pk string) (*account.Account, error) {
	l.calls.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.overrides[pk]; ok {
		return a, nil
	}
	return account.New(pk, 1, bal(asset.Native, 10)), nil
}

func (l *ledger) set(pk string, bals ...account.Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[pk] = account.New(pk, 1, bals...)
}

func bal(as asset.Asset, units int64) account.Balance {
	return account.Balance{Asset: as, Amount: as.Amount(units * types.One), Authorized: true}
}

type harness struct {
	m        *Manager
	store    *memory.Store
	ledger   *ledger
	events   *recorder
	platform string
	token    asset.Asset
}

func newHarness(t *testing.T, lockIssuer bool) *harness {
	t.Helper()
	h := &harness{
		store:    memory.New(),
		ledger:   &ledger{overrides: map[string]*account.Account{}},
		events:   &recorder{},
		platform: keypair.MustRandom().Address(),
		token:    asset.MustNew("MINT", keypair.MustRandom().Address()),
	}
	h.ledger.set(h.platform, bal(asset.Native, 10_000), bal(h.token, 10_000))

	fixed, err := price.NewFixed("0.1", "0.25")
	require.NoError(t, err)
	b, err := txbuild.NewBuilder(txbuild.Config{
		Platform: h.platform, PlatformAsset: h.token, Schedule: fee.DefaultSchedule(),
	}, h.ledger, price.NewConverter(fixed), nil)
	require.NoError(t, err)

	h.m = NewManager(Config{Passphrase: network.TestNetworkPassphrase, LockIssuer: lockIssuer},
		h.store, custody.NewKeyring(h.store, custody.RandomVault()), b, h.events, nil)
	return h
}

func (h *harness) issue(t *testing.T, clawback bool) *Prepared {
	t.Helper()
	p, err := h.m.Issue(context.Background(), IssueRequest{
		CreatorID:      "creator-1",
		Code:           "ALICE",
		Limit:          "1000",
		HomeDomain:     "mint.example",
		ContentPointer: pointer,
		Clawback:       clawback,
	})
	require.NoError(t, err)
	return p
}

// active issues and confirms an asset whose storage holds 1000 units.
func (h *harness) active(t *testing.T, clawback bool) *asset.Record {
	t.Helper()
	p := h.issue(t, clawback)
	require.NoError(t, h.m.Confirm(context.Background(), p.Hash, 10))
	rec, err := h.store.GetAsset(context.Background(), p.Asset.ID)
	require.NoError(t, err)
	h.ledger.set(rec.StorageAccount, bal(asset.Native, 10), bal(rec.Asset(), 1000))
	return rec
}

func TestIssueRecordsPendingAsset(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	p := h.issue(t, false)

	assert.Equal(t, asset.StatePending, p.Asset.State)
	assert.Equal(t, p.Hash, p.Asset.IssuanceHash)
	assert.True(t, p.Asset.IssuerLocked)
	assert.False(t, p.Asset.ClawbackEnabled)
	assert.Equal(t, int64(1000*types.One), p.Asset.Limit.Amount)

	issuerKP, err := h.store.GetKeypairByPublicKey(ctx, p.Asset.Issuer)
	require.NoError(t, err)
	assert.Equal(t, custody.RoleIssuer, issuerKP.Role)
	assert.NotEmpty(t, issuerKP.SealedSecret)

	storageKP, err := h.store.GetKeypairByPublicKey(ctx, p.Asset.StorageAccount)
	require.NoError(t, err)
	assert.Equal(t, custody.RoleStorage, storageKP.Role)

	in, err := h.store.GetIntentByHash(ctx, p.Hash)
	require.NoError(t, err)
	assert.Equal(t, intent.KindIssue, in.Kind)
	assert.Equal(t, intent.StatusPending, in.Status)

	// Every signer but the platform is covered by a custodied key.
	var keyAddrs []string
	for _, k := range p.Keys {
		keyAddrs = append(keyAddrs, k.Address())
	}
	assert.ElementsMatch(t, p.Envelope.Signers[1:], keyAddrs)
	assert.Equal(t, []string{"issued"}, h.events.events)
}

func TestIssueUsesFreshIssuerEveryTime(t *testing.T) {
	h := newHarness(t, false)
	first := h.issue(t, false)
	h.ledger.set(first.Asset.StorageAccount, bal(asset.Native, 10))

	issuers := map[string]bool{first.Asset.Issuer: true}
	for range 3 {
		p := h.issue(t, false)
		assert.False(t, issuers[p.Asset.Issuer], "issuer reused")
		issuers[p.Asset.Issuer] = true
		assert.Equal(t, first.Asset.StorageAccount, p.Asset.StorageAccount)
	}

	recs, err := h.store.ListAssets(context.Background(), "creator-1", asset.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestConfirmIssueActivatesAndRetiresIssuer(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	p := h.issue(t, false)

	require.NoError(t, h.m.Confirm(ctx, p.Hash, 42))
	rec, err := h.store.GetAsset(ctx, p.Asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StateActive, rec.State)
	require.NotNil(t, rec.ActivatedAt)

	kp, err := h.store.GetKeypairByPublicKey(ctx, rec.Issuer)
	require.NoError(t, err)
	assert.True(t, kp.Retired)

	in, err := h.store.GetIntentByHash(ctx, p.Hash)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusConfirmed, in.Status)
	assert.Equal(t, int32(42), in.Ledger)

	// Confirming twice is a no-op, and unknown hashes are ignored.
	require.NoError(t, h.m.Confirm(ctx, p.Hash, 43))
	require.NoError(t, h.m.Confirm(ctx, "feed", 1))
	assert.Equal(t, []string{"issued", "activated"}, h.events.events)
}

func TestConfirmClawbackAssetKeepsIssuer(t *testing.T) {
	h := newHarness(t, true)
	rec := h.active(t, true)
	assert.False(t, rec.IssuerLocked)

	kp, err := h.store.GetKeypairByPublicKey(context.Background(), rec.Issuer)
	require.NoError(t, err)
	assert.False(t, kp.Retired)
}

func TestSalesRequireActiveAsset(t *testing.T) {
	h := newHarness(t, false)
	p := h.issue(t, false)

	_, err := h.m.Buy(context.Background(), BuyRequest{
		AssetID: p.Asset.ID, Buyer: keypair.MustRandom().Address(), Seller: keypair.MustRandom().Address(), Price: "1",
	})
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestBuy(t *testing.T) {
	h := newHarness(t, false)
	rec := h.active(t, false)
	buyer, seller := keypair.MustRandom().Address(), keypair.MustRandom().Address()
	h.ledger.set(buyer, bal(asset.Native, 5), bal(h.token, 50))
	h.ledger.set(seller, bal(asset.Native, 5), bal(h.token, 0))

	p, err := h.m.Buy(context.Background(), BuyRequest{AssetID: rec.ID, Buyer: buyer, Seller: seller, Price: "3"})
	require.NoError(t, err)
	require.Len(t, p.Keys, 1)
	assert.Equal(t, rec.StorageAccount, p.Keys[0].Address())
	assert.Nil(t, p.Intent)
}

func TestSubscribeLifecycle(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	rec := h.active(t, false)
	fan, creator := keypair.MustRandom().Address(), keypair.MustRandom().Address()
	h.ledger.set(fan, bal(asset.Native, 5), bal(h.token, 50))
	h.ledger.set(creator, bal(asset.Native, 5), bal(h.token, 0))

	p, err := h.m.Subscribe(ctx, SubscribeRequest{
		AssetID: rec.ID, Subscriber: fan, CreatorAccount: creator, Tier: "gold", Price: "4", Period: time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPending, p.Subscription.Status)
	assert.Equal(t, int64(4*types.One), p.Subscription.Price.Amount)

	fixedNow := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.m.now = func() time.Time { return fixedNow }
	require.NoError(t, h.m.Confirm(ctx, p.Hash, 7))

	sub, err := h.store.GetSubscription(ctx, p.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, fixedNow.Add(time.Hour), sub.CurrentPeriodEnd)

	// Renewal extends from the end of the current period.
	h.ledger.set(fan, bal(asset.Native, 5), bal(h.token, 50), bal(rec.Asset(), 1))
	renew, err := h.m.Subscribe(ctx, SubscribeRequest{
		AssetID: rec.ID, Subscriber: fan, CreatorAccount: creator, Price: "4", Renew: sub.ID,
	})
	require.NoError(t, err)
	require.NoError(t, h.m.Confirm(ctx, renew.Hash, 8))
	sub, err = h.store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(2*time.Hour), sub.CurrentPeriodEnd)
	assert.NotNil(t, sub.RenewedAt)

	_, err = h.m.Subscribe(ctx, SubscribeRequest{
		AssetID: rec.ID, Subscriber: creator, CreatorAccount: creator, Price: "4", Renew: sub.ID,
	})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRedeemCountsOnConfirm(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	rec := h.active(t, false)
	user := keypair.MustRandom().Address()

	p, err := h.m.Redeem(ctx, RedeemRequest{AssetID: rec.ID, User: user})
	require.NoError(t, err)
	assert.Equal(t, user, p.Intent.Source)

	require.NoError(t, h.m.Confirm(ctx, p.Hash, 9))
	got, err := h.store.GetAsset(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Redemptions)
	assert.Equal(t, rec.Limit, got.Limit)
	assert.Contains(t, h.events.events, "redeemed")
}

func TestClawbackRejectedWithoutFlag(t *testing.T) {
	h := newHarness(t, false)
	rec := h.active(t, false)
	before := h.ledger.calls.Load()

	_, err := h.m.Clawback(context.Background(), ClawbackRequest{AssetID: rec.ID, From: keypair.MustRandom().Address()})
	assert.ErrorIs(t, err, types.ErrClawbackNotAuthorized)
	assert.Equal(t, before, h.ledger.calls.Load())
}

func TestClawbackLifecycle(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	rec := h.active(t, true)
	holder := keypair.MustRandom().Address()
	line := bal(rec.Asset(), 3)
	line.Clawback = true
	h.ledger.set(holder, bal(asset.Native, 5), line)

	p, err := h.m.Clawback(ctx, ClawbackRequest{AssetID: rec.ID, From: holder})
	require.NoError(t, err)
	require.Len(t, p.Keys, 1)
	assert.Equal(t, rec.Issuer, p.Keys[0].Address())

	require.NoError(t, h.m.Confirm(ctx, p.Hash, 11))
	got, err := h.store.GetAsset(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StateClawedBack, got.State)
	assert.Equal(t, int64(1), got.Clawbacks)

	_, err = h.m.Gift(ctx, GiftRequest{AssetID: rec.ID, Recipient: holder})
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestFailIssueResetsAsset(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	p := h.issue(t, false)

	require.NoError(t, h.m.Fail(ctx, p.Hash, "tx_failed"))
	rec, err := h.store.GetAsset(ctx, p.Asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StateUninitialized, rec.State)

	kp, err := h.store.GetKeypairByPublicKey(ctx, rec.Issuer)
	require.NoError(t, err)
	assert.True(t, kp.Retired)

	in, err := h.store.GetIntentByHash(ctx, p.Hash)
	require.NoError(t, err)
	assert.Equal(t, intent.StatusFailed, in.Status)
	assert.Equal(t, "tx_failed", in.Reason)
}

func TestExpireIntents(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.issue(t, false)
	h.issue(t, false)

	n, err := h.m.ExpireIntents(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = h.m.ExpireIntents(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := h.store.ListPendingIntents(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTrustlineClaimOffer(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	rec := h.active(t, false)
	user := keypair.MustRandom().Address()

	p, err := h.m.Trustline(ctx, user, rec.Asset(), types.UnitNative, 0)
	require.NoError(t, err)
	assert.Empty(t, p.Keys)

	_, err = h.m.Claim(ctx, user, "00000000"+"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", rec.Asset(), 0)
	require.NoError(t, err)

	p, err = h.m.Offer(ctx, txbuild.PlaceOffer{
		Seller: rec.StorageAccount, Selling: rec.Asset(), Buying: asset.Native, Amount: "10", Price: "2",
	})
	require.NoError(t, err)
	require.Len(t, p.Keys, 1)
	assert.Equal(t, rec.StorageAccount, p.Keys[0].Address())
}
