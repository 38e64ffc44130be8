// Package fee holds the platform's fee schedule and computes what a payer
// owes for a flow.
package fee

import (
	"context"

	"github.com/xraph/mint/types"
)

// Schedule is the set of fees and reserves a build draws from.
type Schedule struct {
	// BaseFeePerOperation is the network fee per operation, in stroops.
	BaseFeePerOperation int64 `json:"base_fee_per_operation"`
	// PlatformFeeFlat is charged once per paid flow, in platform tokens.
	PlatformFeeFlat types.Money `json:"platform_fee_flat"`
	// TrustlineReserve is the native amount that backs one new trustline.
	TrustlineReserve types.Money `json:"trustline_reserve"`
	// DistributorFunding seeds a creator's storage account at issuance.
	DistributorFunding types.Money `json:"distributor_funding"`
	// IssuerStartingBalance funds the fresh issuer account.
	IssuerStartingBalance types.Money `json:"issuer_starting_balance"`
}

// DefaultSchedule returns the production defaults.
func DefaultSchedule() Schedule {
	return Schedule{
		BaseFeePerOperation:   100,
		PlatformFeeFlat:       types.Platform(types.One),
		TrustlineReserve:      types.Native(types.One / 2),
		DistributorFunding:    types.Native(2 * types.One),
		IssuerStartingBalance: types.Native(2 * types.One),
	}
}

// NetworkFee is the native fee for a transaction of ops operations.
func (s Schedule) NetworkFee(ops int) types.Money {
	return types.Native(s.BaseFeePerOperation * int64(ops))
}

// Validate checks units and signs.
func (s Schedule) Validate() error {
	switch {
	case s.BaseFeePerOperation < 100:
		return types.ValidationError{Field: "base_fee_per_operation", Message: "must be at least 100 stroops"}
	case s.PlatformFeeFlat.Unit != types.UnitPlatform || s.PlatformFeeFlat.IsNegative():
		return types.ValidationError{Field: "platform_fee", Message: "must be a non-negative platform-token amount"}
	case s.TrustlineReserve.Unit != types.UnitNative || !s.TrustlineReserve.IsPositive():
		return types.ValidationError{Field: "trustline_reserve", Message: "must be a positive native amount"}
	case s.DistributorFunding.Unit != types.UnitNative || !s.DistributorFunding.IsPositive():
		return types.ValidationError{Field: "distributor_funding", Message: "must be a positive native amount"}
	case s.IssuerStartingBalance.Unit != types.UnitNative || !s.IssuerStartingBalance.IsPositive():
		return types.ValidationError{Field: "issuer_starting_balance", Message: "must be a positive native amount"}
	}
	return nil
}

// Converter is the subset of price.Converter a quote needs.
type Converter interface {
	Convert(ctx context.Context, m types.Money, to types.Unit, r types.Rounding) (types.Money, error)
}

// Quote is the itemised charge for one flow, in the payer's unit.
type Quote struct {
	Unit          types.Unit  `json:"unit"`
	Price         types.Money `json:"price"`
	PlatformFee   types.Money `json:"platform_fee"`
	ReserveCharge types.Money `json:"reserve_charge"`
	NetworkFee    types.Money `json:"network_fee"`
}

// Fees is everything the platform collects: platform fee, reserve charge
// and network fee.
func (q Quote) Fees() types.Money {
	return types.Sum(q.Unit, q.PlatformFee, q.ReserveCharge, q.NetworkFee)
}

// Total is the price plus fees. Schedule.Quote rejects quotes whose total
// would overflow.
func (q Quote) Total() types.Money {
	return q.Price.Add(q.Fees())
}

// Charge converts amount into unit, rounding up.
func Charge(ctx context.Context, conv Converter, amount types.Money, unit types.Unit) (types.Money, error) {
	if amount.IsZero() {
		return types.Zero(unit), nil
	}
	return conv.Convert(ctx, amount, unit, types.RoundCeil)
}

// Quote computes the charge for a payer paying in unit. price must already
// be in unit; reserve and networkFee are native and may be zero.
func (s Schedule) Quote(ctx context.Context, conv Converter, unit types.Unit, price, reserve, networkFee types.Money) (Quote, error) {
	if !price.IsZero() && price.Unit != unit {
		return Quote{}, types.ValidationError{Field: "price", Message: "price must be in the payer's unit " + string(unit)}
	}
	q := Quote{Unit: unit, Price: types.Money{Amount: price.Amount, Unit: unit}}

	var err error
	if q.PlatformFee, err = Charge(ctx, conv, s.PlatformFeeFlat, unit); err != nil {
		return Quote{}, err
	}
	if q.ReserveCharge, err = Charge(ctx, conv, reserve, unit); err != nil {
		return Quote{}, err
	}
	if q.NetworkFee, err = Charge(ctx, conv, networkFee, unit); err != nil {
		return Quote{}, err
	}
	if _, err := types.SumChecked(unit, q.Price, q.PlatformFee, q.ReserveCharge, q.NetworkFee); err != nil {
		return Quote{}, err
	}
	return q, nil
}
