package txbuild

import (
	"fmt"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

type debitKey struct {
	account string
	asset   string
}

type debit struct {
	asset  asset.Asset
	amount types.Money
}

// CheckSufficiency verifies that, for every (source, asset) pair, the sum of
// the envelope's outgoing amounts does not exceed the source's balance
// before the transaction. Credits inside the same envelope are ignored.
//
// Accounts created by the envelope start with their starting balance and no
// trustlines. Issuers sending their own asset are not debited.
func CheckSufficiency(txSource string, networkFee types.Money, ops []Operation, accounts map[string]*account.Account) error {
	created := map[string]types.Money{}
	for _, op := range ops {
		if ca, ok := op.(CreateAccount); ok {
			created[ca.Destination] = ca.StartingBalance
		}
	}

	totals := map[debitKey]*debit{}
	order := []debitKey{}
	var overflow error
	add := func(src string, as asset.Asset, amt types.Money) {
		if src == "" {
			src = txSource
		}
		if overflow != nil || (!as.IsNative() && as.Issuer == src) {
			return
		}
		k := debitKey{src, as.String()}
		d, ok := totals[k]
		if !ok {
			d = &debit{asset: as, amount: types.Zero(amt.Unit)}
			totals[k] = d
			order = append(order, k)
		}
		sum, err := d.amount.CheckedAdd(types.Money{Amount: amt.Amount, Unit: d.amount.Unit})
		if err != nil {
			overflow = fmt.Errorf("debits of %s from %s: %w", as, src, err)
			return
		}
		d.amount = sum
	}

	add(txSource, asset.Native, networkFee)
	for _, op := range ops {
		switch o := op.(type) {
		case Payment:
			add(o.From, o.Asset, o.Amount)
		case CreateAccount:
			add(o.From, asset.Native, o.StartingBalance)
		case CreateClaimableBalance:
			add(o.From, o.Asset, o.Amount)
		case ManageOffer:
			add(o.Seller, o.Selling, o.Amount)
		case Clawback:
			add(o.From, o.Asset, o.Amount)
		}
	}

	if overflow != nil {
		return overflow
	}

	for _, k := range order {
		d := totals[k]
		if d.amount.IsZero() {
			continue
		}
		have, err := balanceOf(k.account, d.asset, accounts, created)
		if err != nil {
			return err
		}
		if have.Amount < d.amount.Amount {
			return types.InsufficientBalanceError{
				Account: k.account,
				Asset:   k.asset,
				Need:    types.Money{Amount: d.amount.Amount, Unit: have.Unit},
				Have:    have,
			}
		}
	}
	return nil
}

func balanceOf(addr string, as asset.Asset, accounts map[string]*account.Account, created map[string]types.Money) (types.Money, error) {
	if start, ok := created[addr]; ok {
		if as.IsNative() {
			return start, nil
		}
		return types.Money{}, fmt.Errorf("%w: new account %s cannot hold %s yet", types.ErrMissingTrustline, addr, as)
	}
	acct, ok := accounts[addr]
	if !ok {
		return types.Money{}, types.ValidationError{Field: "source", Message: fmt.Sprintf("account %s was not loaded", addr)}
	}
	if err := requireTrust(acct, as); err != nil {
		return types.Money{}, err
	}
	return acct.TokenBalance(as), nil
}

// CheckTrustOrder verifies that every credit-asset recipient either already
// holds an authorized trustline, is the issuer, or has a ChangeTrust for it
// earlier in the envelope.
func CheckTrustOrder(ops []Operation, accounts map[string]*account.Account) error {
	opened := map[debitKey]bool{}
	for i, op := range ops {
		var to string
		var as asset.Asset
		switch o := op.(type) {
		case ChangeTrust:
			opened[debitKey{o.Account, o.Asset.String()}] = true
			continue
		case Payment:
			to, as = o.To, o.Asset
		case ManageOffer:
			to, as = o.Seller, o.Buying
		default:
			continue
		}
		if as.IsNative() || as.Issuer == to || opened[debitKey{to, as.String()}] {
			continue
		}
		if acct, ok := accounts[to]; ok && acct.CanHold(as) {
			continue
		}
		return fmt.Errorf("%w: op %d sends %s to %s before any trustline", types.ErrMissingTrustline, i, as, to)
	}
	return nil
}
