package price

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/mint/types"
)

// Converter converts Money between USD, native and platform-token units.
// Every method takes the rounding explicitly: RoundCeil for amounts the
// platform receives, RoundFloor for amounts it pays out.
type Converter struct {
	provider Provider
}

func NewConverter(p Provider) *Converter {
	return &Converter{provider: p}
}

// ToNative converts a USD amount to native units.
func (c *Converter) ToNative(ctx context.Context, usd types.Money, r types.Rounding) (types.Money, error) {
	if err := expectUnit(usd, types.UnitUSD); err != nil {
		return types.Money{}, err
	}
	rate, err := c.provider.USDPerNative(ctx)
	if err != nil {
		return types.Money{}, err
	}
	return usd.ConvertInverse(rate, types.UnitNative, r), nil
}

// ToPlatformToken converts a native amount to platform-token units.
func (c *Converter) ToPlatformToken(ctx context.Context, native types.Money, r types.Rounding) (types.Money, error) {
	if err := expectUnit(native, types.UnitNative); err != nil {
		return types.Money{}, err
	}
	rate, err := c.provider.NativePerToken(ctx)
	if err != nil {
		return types.Money{}, err
	}
	return native.ConvertInverse(rate, types.UnitPlatform, r), nil
}

// FromPlatformToken converts a platform-token amount to native units.
func (c *Converter) FromPlatformToken(ctx context.Context, tokens types.Money, r types.Rounding) (types.Money, error) {
	if err := expectUnit(tokens, types.UnitPlatform); err != nil {
		return types.Money{}, err
	}
	rate, err := c.provider.NativePerToken(ctx)
	if err != nil {
		return types.Money{}, err
	}
	return tokens.Convert(rate, types.UnitNative, r), nil
}

// PlatformTokenPrice is the price of one platform token in native units.
func (c *Converter) PlatformTokenPrice(ctx context.Context) (decimal.Decimal, error) {
	return c.provider.NativePerToken(ctx)
}

// Convert routes m to the target unit through native.
func (c *Converter) Convert(ctx context.Context, m types.Money, to types.Unit, r types.Rounding) (types.Money, error) {
	if m.Unit == to {
		return m, nil
	}

	native := m
	var err error
	switch m.Unit {
	case types.UnitNative:
	case types.UnitUSD:
		native, err = c.ToNative(ctx, m, r)
	case types.UnitPlatform:
		native, err = c.FromPlatformToken(ctx, m, r)
	default:
		return types.Money{}, unsupported(m.Unit)
	}
	if err != nil {
		return types.Money{}, err
	}

	switch to {
	case types.UnitNative:
		return native, nil
	case types.UnitPlatform:
		return c.ToPlatformToken(ctx, native, r)
	case types.UnitUSD:
		rate, err := c.provider.USDPerNative(ctx)
		if err != nil {
			return types.Money{}, err
		}
		return native.Convert(rate, types.UnitUSD, r), nil
	default:
		return types.Money{}, unsupported(to)
	}
}

func expectUnit(m types.Money, u types.Unit) error {
	if m.Unit != u {
		return types.ValidationError{Field: "amount", Message: fmt.Sprintf("expected %s amount, got %s", u, m.Unit)}
	}
	return nil
}

func unsupported(u types.Unit) error {
	return types.ValidationError{Field: "unit", Message: fmt.Sprintf("no conversion for %s", u)}
}
