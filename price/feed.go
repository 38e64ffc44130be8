// Package price converts between USD, the native currency and the platform
// token using live or fixed exchange rates.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

// Feed returns a single exchange rate: quote units per one base unit.
type Feed interface {
	Name() string
	Price(ctx context.Context) (decimal.Decimal, error)
}

// CoinGecko reads the average market price of a coin in a fiat currency.
type CoinGecko struct {
	BaseURL  string
	APIKey   string
	Demo     bool
	CoinID   string
	Currency string
	Client   *http.Client
}

const (
	coinGeckoPro  = "https://pro-api.coingecko.com/api/v3"
	coinGeckoDemo = "https://api.coingecko.com/api/v3"
)

// NewCoinGecko returns a feed for USD per native unit.
func NewCoinGecko(apiKey string, demo bool) *CoinGecko {
	base := coinGeckoPro
	if demo || apiKey == "" {
		base = coinGeckoDemo
	}
	return &CoinGecko{
		BaseURL:  base,
		APIKey:   apiKey,
		Demo:     demo,
		CoinID:   "stellar",
		Currency: "usd",
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// Price queries /simple/price.
func (c *CoinGecko) Price(ctx context.Context) (decimal.Decimal, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/simple/price")
	if err != nil {
		return decimal.Zero, err
	}
	q := u.Query()
	q.Set("ids", c.CoinID)
	q.Set("vs_currencies", c.Currency)
	q.Set("precision", "full")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		if c.Demo {
			req.Header.Set("x-cg-demo-api-key", c.APIKey)
		} else {
			req.Header.Set("x-cg-pro-api-key", c.APIKey)
		}
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("coingecko: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: decode: %w", err)
	}
	p, ok := out[c.CoinID][c.Currency]
	if !ok || !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("coingecko: no %s/%s price", c.CoinID, c.Currency)
	}
	return p, nil
}

// TradeSource is satisfied by ledgerclient.Client.
type TradeSource interface {
	TradeAggregations(ctx context.Context, req horizonclient.TradeAggregationRequest) (horizon.TradeAggregationsPage, error)
}

// HorizonTrades reads the latest hourly average from the ledger's DEX.
// The result is Counter units per one Base unit.
type HorizonTrades struct {
	Source  TradeSource
	Base    asset.Asset
	Counter asset.Asset
}

func (h *HorizonTrades) Name() string {
	return "ledger-trades:" + h.Base.String() + "/" + h.Counter.String()
}

func (h *HorizonTrades) Price(ctx context.Context) (decimal.Decimal, error) {
	req := horizonclient.TradeAggregationRequest{
		Resolution: time.Hour,
		Order:      horizonclient.OrderDesc,
		Limit:      1,
	}
	req.BaseAssetType, req.BaseAssetCode, req.BaseAssetIssuer = tradeAsset(h.Base)
	req.CounterAssetType, req.CounterAssetCode, req.CounterAssetIssuer = tradeAsset(h.Counter)

	page, err := h.Source.TradeAggregations(ctx, req)
	if err != nil {
		return decimal.Zero, err
	}
	if len(page.Embedded.Records) == 0 {
		return decimal.Zero, fmt.Errorf("no trades for %s", h.Name())
	}
	avg, err := decimal.NewFromString(page.Embedded.Records[0].Average)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: average: %w", h.Name(), err)
	}
	if !avg.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: non-positive average", h.Name())
	}
	return avg, nil
}

func tradeAsset(a asset.Asset) (horizonclient.AssetType, string, string) {
	switch {
	case a.IsNative():
		return horizonclient.AssetTypeNative, "", ""
	case len(a.Code) <= 4:
		return horizonclient.AssetType4, a.Code, a.Issuer
	default:
		return horizonclient.AssetType12, a.Code, a.Issuer
	}
}

// Layered tries each feed in order, each behind its own circuit breaker.
// It fails closed when every feed fails.
type Layered struct {
	feeds    []Feed
	breakers []*gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewLayered wraps feeds in priority order.
func NewLayered(logger *slog.Logger, feeds ...Feed) *Layered {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Layered{feeds: feeds, logger: logger}
	for _, f := range feeds {
		l.breakers = append(l.breakers, gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "price-" + f.Name(),
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}))
	}
	return l
}

func (l *Layered) Name() string {
	names := make([]string, len(l.feeds))
	for i, f := range l.feeds {
		names[i] = f.Name()
	}
	return "layered(" + strings.Join(names, ",") + ")"
}

func (l *Layered) Price(ctx context.Context) (decimal.Decimal, error) {
	var errs types.MultiError
	for i, f := range l.feeds {
		v, err := l.breakers[i].Execute(func() (interface{}, error) {
			return f.Price(ctx)
		})
		if err == nil {
			return v.(decimal.Decimal), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			l.logger.Debug("price feed skipped, breaker open", "feed", f.Name())
		} else {
			l.logger.Warn("price feed failed", "feed", f.Name(), "error", err)
		}
		errs.Add(fmt.Errorf("%s: %w", f.Name(), err))
	}
	if !errs.HasErrors() {
		errs.Add(errors.New("no feeds configured"))
	}
	return decimal.Zero, fmt.Errorf("%w: %w", types.ErrPriceLookupFailed, errs)
}
