package price

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/mint/types"
)

// Mode selects the rate source. It is always an explicit configuration
// choice; a failed live lookup never falls back to fixed rates.
type Mode string

const (
	ModeLive  Mode = "live"
	ModeFixed Mode = "fixed"
)

// Provider supplies the two rates every conversion is built from.
type Provider interface {
	// USDPerNative is the price of one native unit in USD.
	USDPerNative(ctx context.Context) (decimal.Decimal, error)
	// NativePerToken is the price of one platform token in native units.
	NativePerToken(ctx context.Context) (decimal.Decimal, error)
}

// Live reads rates from feeds.
type Live struct {
	USD   Feed
	Token Feed
}

func (l *Live) USDPerNative(ctx context.Context) (decimal.Decimal, error) {
	return lookup(ctx, l.USD)
}

func (l *Live) NativePerToken(ctx context.Context) (decimal.Decimal, error) {
	return lookup(ctx, l.Token)
}

func lookup(ctx context.Context, f Feed) (decimal.Decimal, error) {
	if f == nil {
		return decimal.Zero, fmt.Errorf("%w: feed not configured", types.ErrPriceLookupFailed)
	}
	v, err := f.Price(ctx)
	if err != nil {
		if errors.Is(err, types.ErrPriceLookupFailed) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %s: %w", types.ErrPriceLookupFailed, f.Name(), err)
	}
	return v, nil
}

// Fixed returns configured constants.
type Fixed struct {
	USD   decimal.Decimal
	Token decimal.Decimal
}

// NewFixed parses decimal strings.
func NewFixed(usdPerNative, nativePerToken string) (*Fixed, error) {
	usd, err := decimal.NewFromString(usdPerNative)
	if err != nil || !usd.IsPositive() {
		return nil, types.ValidationError{Field: "price.usd_per_native", Message: fmt.Sprintf("invalid rate %q", usdPerNative)}
	}
	tok, err := decimal.NewFromString(nativePerToken)
	if err != nil || !tok.IsPositive() {
		return nil, types.ValidationError{Field: "price.native_per_token", Message: fmt.Sprintf("invalid rate %q", nativePerToken)}
	}
	return &Fixed{USD: usd, Token: tok}, nil
}

func (f *Fixed) USDPerNative(context.Context) (decimal.Decimal, error)   { return f.USD, nil }
func (f *Fixed) NativePerToken(context.Context) (decimal.Decimal, error) { return f.Token, nil }
