// Package account provides immutable snapshots of ledger accounts.
package account

import (
	"context"
	"fmt"

	"github.com/stellar/go/protocols/horizon"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

// Balance is one asset holding of an account.
type Balance struct {
	Asset      asset.Asset `json:"asset"`
	Amount     types.Money `json:"amount"`
	Limit      types.Money `json:"limit"`
	Authorized bool        `json:"authorized"`
	Clawback   bool        `json:"clawback_enabled"`
}

// Account is a point-in-time snapshot. Builders load a fresh one for every
// envelope and never mutate it.
type Account struct {
	PublicKey     string `json:"public_key"`
	Sequence      int64  `json:"sequence"`
	SubentryCount int32  `json:"subentry_count"`

	balances map[string]Balance
}

// New builds a snapshot from balances. The native balance is implicit zero
// when absent.
func New(publicKey string, sequence int64, balances ...Balance) *Account {
	a := &Account{
		PublicKey: publicKey,
		Sequence:  sequence,
		balances:  make(map[string]Balance, len(balances)),
	}
	for _, b := range balances {
		if !b.Asset.IsNative() {
			a.SubentryCount++
		}
		a.balances[b.Asset.String()] = b
	}
	return a
}

// HasTrustline reports whether the account holds a trustline to a.
// The native asset is always trusted.
func (a *Account) HasTrustline(as asset.Asset) bool {
	if as.IsNative() {
		return true
	}
	_, ok := a.balances[as.String()]
	return ok
}

// CanHold reports whether the account can send and receive as: always for
// the native asset, only over an authorized trustline for credit assets.
func (a *Account) CanHold(as asset.Asset) bool {
	if as.IsNative() {
		return true
	}
	b, ok := a.balances[as.String()]
	return ok && b.Authorized
}

// NativeBalance returns the native holding.
func (a *Account) NativeBalance() types.Money {
	if b, ok := a.balances[asset.Native.String()]; ok {
		return b.Amount
	}
	return types.Zero(types.UnitNative)
}

// TokenBalance returns the holding of as, zero if untrusted.
func (a *Account) TokenBalance(as asset.Asset) types.Money {
	if b, ok := a.balances[as.String()]; ok {
		return b.Amount
	}
	return types.Zero(as.Unit())
}

// Balance returns the full balance line for as.
func (a *Account) Balance(as asset.Asset) (Balance, bool) {
	b, ok := a.balances[as.String()]
	return b, ok
}

// Balances returns every balance line in no particular order.
func (a *Account) Balances() []Balance {
	out := make([]Balance, 0, len(a.balances))
	for _, b := range a.balances {
		out = append(out, b)
	}
	return out
}

// Loader fetches account snapshots.
type Loader interface {
	Load(ctx context.Context, publicKey string) (*Account, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, publicKey string) (*Account, error)

func (f LoaderFunc) Load(ctx context.Context, publicKey string) (*Account, error) {
	return f(ctx, publicKey)
}

// LoadAll loads keys concurrently. Duplicate keys are loaded once.
func LoadAll(ctx context.Context, loader Loader, keys ...string) (map[string]*Account, error) {
	uniq := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		uniq[k] = struct{}{}
	}

	order := make([]string, 0, len(uniq))
	for k := range uniq {
		order = append(order, k)
	}
	results := make([]*Account, len(order))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range order {
		g.Go(func() error {
			acct, err := loader.Load(gctx, k)
			if err != nil {
				return fmt.Errorf("load %s: %w", k, err)
			}
			results[i] = acct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Account, len(order))
	for i, k := range order {
		out[k] = results[i]
	}
	return out, nil
}

// FromHorizon maps a ledger API account onto a snapshot.
func FromHorizon(h horizon.Account) (*Account, error) {
	seq, err := h.GetSequenceNumber()
	if err != nil {
		return nil, fmt.Errorf("account %s: sequence: %w", h.AccountID, err)
	}

	balances := make([]Balance, 0, len(h.Balances))
	for _, hb := range h.Balances {
		if hb.Asset.Type == "liquidity_pool_shares" {
			continue
		}
		as := asset.FromHorizon(hb.Asset.Type, hb.Asset.Code, hb.Asset.Issuer)
		amt, err := types.ParseMoney(hb.Balance, as.Unit())
		if err != nil {
			return nil, fmt.Errorf("account %s: balance %s: %w", h.AccountID, as, err)
		}
		b := Balance{Asset: as, Amount: amt, Authorized: true}
		if hb.Limit != "" {
			if lim, err := types.ParseMoney(hb.Limit, as.Unit()); err == nil {
				b.Limit = lim
			}
		}
		if hb.IsAuthorized != nil {
			b.Authorized = *hb.IsAuthorized
		}
		if hb.IsClawbackEnabled != nil {
			b.Clawback = *hb.IsClawbackEnabled
		}
		balances = append(balances, b)
	}

	acct := New(h.AccountID, seq, balances...)
	acct.SubentryCount = h.SubentryCount
	return acct, nil
}
