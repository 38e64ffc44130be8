package txbuild

import (
	"context"
	"fmt"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/types"
)

// Payer is whoever covers the reserve of a new trustline.
type Payer struct {
	Account *account.Account
	Asset   asset.Asset // asset the payer pays in
	Unit    types.Unit  // money unit of Asset
}

// Bootstrap is the result of ensuring a trustline.
type Bootstrap struct {
	Ops           []Operation
	ReserveCharge types.Money // in the payer's unit
	Seeded        bool
	Opened        bool
}

// TrustlineManager decides whether a destination needs a trustline
// bootstrap before receiving an asset.
type TrustlineManager struct {
	platform string
	reserve  types.Money
	conv     fee.Converter
}

func NewTrustlineManager(platform string, reserve types.Money, conv fee.Converter) *TrustlineManager {
	return &TrustlineManager{platform: platform, reserve: reserve, conv: conv}
}

// Ensure returns ops unchanged when acct already trusts as. Otherwise it
// prepends ChangeTrust(as, source=acct), itself preceded by a native
// reserve seed from the platform when acct holds less than the reserve.
//
// An existing but unauthorized trustline fails with ErrMissingTrustline.
//
// The reserve is charged to payer only when a seed is inserted and the
// payer is not the platform.
func (m *TrustlineManager) Ensure(ctx context.Context, ops []Operation, acct *account.Account, as asset.Asset, payer Payer) (Bootstrap, error) {
	out := Bootstrap{Ops: ops, ReserveCharge: types.Zero(payer.Unit)}
	if acct.HasTrustline(as) {
		if err := requireAuthorized(acct, as); err != nil {
			return Bootstrap{}, err
		}
		return out, nil
	}

	prefix := make([]Operation, 0, 2)
	if acct.NativeBalance().LessThan(m.reserve) {
		prefix = append(prefix, Payment{
			From:   m.platform,
			To:     acct.PublicKey,
			Asset:  asset.Native,
			Amount: m.reserve,
		})
		out.Seeded = true
	}
	prefix = append(prefix, ChangeTrust{Account: acct.PublicKey, Asset: as})
	out.Opened = true
	out.Ops = append(prefix, ops...)

	if !out.Seeded || payer.Account == nil || payer.Account.PublicKey == m.platform {
		return out, nil
	}

	charge, err := fee.Charge(ctx, m.conv, m.reserve, payer.Unit)
	if err != nil {
		return Bootstrap{}, err
	}
	have := payer.Account.TokenBalance(payer.Asset).Amount
	if have < charge.Amount {
		return Bootstrap{}, fmt.Errorf("%w: %s needs %s %s to cover the trustline reserve, has %s",
			types.ErrInsufficientReserve, payer.Account.PublicKey, charge.String(), payer.Asset,
			types.Money{Amount: have, Unit: payer.Unit}.String())
	}
	out.ReserveCharge = charge
	return out, nil
}
