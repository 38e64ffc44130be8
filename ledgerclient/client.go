// Package ledgerclient wraps the ledger's HTTP API with per-call timeouts,
// a circuit breaker and Mint's error taxonomy.
package ledgerclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/types"
)

// Horizon is the subset of horizonclient.ClientInterface Mint uses.
// *horizonclient.Client satisfies it.
type Horizon interface {
	AccountDetail(request horizonclient.AccountRequest) (horizon.Account, error)
	SubmitTransactionXDR(transactionXdr string) (horizon.Transaction, error)
	ClaimableBalances(cbr horizonclient.ClaimableBalanceRequest) (horizon.ClaimableBalances, error)
	Transactions(request horizonclient.TransactionRequest) (horizon.TransactionsPage, error)
	TradeAggregations(request horizonclient.TradeAggregationRequest) (horizon.TradeAggregationsPage, error)
}

const badSeq = "tx_bad_seq"

// Submission is the ledger's acknowledgement of an accepted envelope.
type Submission struct {
	Hash   string `json:"hash"`
	Ledger int32  `json:"ledger"`
}

// ClaimableBalance is a pending deposit an account may claim.
type ClaimableBalance struct {
	ID      string `json:"id"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	Sponsor string `json:"sponsor"`
}

// Record is one transaction in an account's history.
type Record struct {
	Hash       string    `json:"hash"`
	Ledger     int32     `json:"ledger"`
	Source     string    `json:"source"`
	Operations int32     `json:"operations"`
	FeeCharged int64     `json:"fee_charged"`
	Successful bool      `json:"successful"`
	Memo       string    `json:"memo,omitempty"`
	ClosedAt   time.Time `json:"closed_at"`
	Cursor     string    `json:"cursor"`
}

// Page is a slice of history with the cursor to continue from.
type Page struct {
	Records []Record `json:"records"`
	Next    string   `json:"next"`
}

// Config tunes the client.
type Config struct {
	Timeout             time.Duration
	BreakerTimeout      time.Duration
	ConsecutiveFailures uint32
}

// DefaultConfig returns the defaults used when a field is zero.
func DefaultConfig() Config {
	return Config{
		Timeout:             15 * time.Second,
		BreakerTimeout:      30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Client is the single shared ledger adapter. It performs no retries.
type Client struct {
	h       Horizon
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New wraps h.
func New(h Horizon, cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{h: h, cfg: cfg, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ledger",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: reachable,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ledger circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// NewForURL builds a client over horizonclient for the given API root.
func NewForURL(url string, cfg Config, logger *slog.Logger) *Client {
	return New(&horizonclient.Client{HorizonURL: url}, cfg, logger)
}

// reachable treats answers from the ledger, including rejections and
// not-found, as healthy. Only transport failures trip the breaker.
func reachable(err error) bool {
	if err == nil {
		return true
	}
	if horizonclient.IsNotFoundError(err) || horizonclient.GetError(err) != nil {
		return true
	}
	return false
}

// Load implements account.Loader.
func (c *Client) Load(ctx context.Context, publicKey string) (*account.Account, error) {
	h, err := call(ctx, c, func() (horizon.Account, error) {
		return c.h.AccountDetail(horizonclient.AccountRequest{AccountID: publicKey})
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrAccountNotFound, publicKey)
		}
		return nil, err
	}
	return account.FromHorizon(h)
}

// Submit sends a signed envelope. A stale sequence number is reported as
// ErrSequenceConflict so the caller can rebuild.
func (c *Client) Submit(ctx context.Context, xdr string) (Submission, error) {
	tx, err := call(ctx, c, func() (horizon.Transaction, error) {
		return c.h.SubmitTransactionXDR(xdr)
	})
	if err != nil {
		return Submission{}, mapSubmitError(err)
	}
	return Submission{Hash: tx.Hash, Ledger: tx.Ledger}, nil
}

func mapSubmitError(err error) error {
	herr := horizonclient.GetError(err)
	if herr == nil {
		return err
	}
	codes, cerr := herr.ResultCodes()
	if cerr != nil || codes == nil {
		return types.LedgerRejectedError{ResultCode: herr.Problem.Title}
	}
	if codes.TransactionCode == badSeq {
		return fmt.Errorf("%w: %s", types.ErrSequenceConflict, badSeq)
	}
	return types.LedgerRejectedError{
		ResultCode:     codes.TransactionCode,
		OperationCodes: codes.OperationCodes,
	}
}

// ClaimableBalances lists balances claimable by claimant.
func (c *Client) ClaimableBalances(ctx context.Context, claimant string) ([]ClaimableBalance, error) {
	page, err := call(ctx, c, func() (horizon.ClaimableBalances, error) {
		return c.h.ClaimableBalances(horizonclient.ClaimableBalanceRequest{Claimant: claimant})
	})
	if err != nil {
		return nil, err
	}
	out := make([]ClaimableBalance, 0, len(page.Embedded.Records))
	for _, r := range page.Embedded.Records {
		out = append(out, ClaimableBalance{ID: r.BalanceID, Asset: r.Asset, Amount: r.Amount, Sponsor: r.Sponsor})
	}
	return out, nil
}

// TransactionHistory returns up to limit transactions for accountID, newest first.
func (c *Client) TransactionHistory(ctx context.Context, accountID, cursor string, limit uint) (Page, error) {
	res, err := call(ctx, c, func() (horizon.TransactionsPage, error) {
		return c.h.Transactions(horizonclient.TransactionRequest{
			ForAccount: accountID,
			Cursor:     cursor,
			Limit:      limit,
			Order:      horizonclient.OrderDesc,
		})
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return Page{}, fmt.Errorf("%w: %s", types.ErrAccountNotFound, accountID)
		}
		return Page{}, err
	}

	p := Page{Records: make([]Record, 0, len(res.Embedded.Records))}
	for _, t := range res.Embedded.Records {
		p.Records = append(p.Records, Record{
			Hash:       t.Hash,
			Ledger:     t.Ledger,
			Source:     t.Account,
			Operations: t.OperationCount,
			FeeCharged: t.FeeCharged,
			Successful: t.Successful,
			Memo:       t.Memo,
			ClosedAt:   t.LedgerCloseTime,
			Cursor:     t.PT,
		})
		p.Next = t.PT
	}
	return p, nil
}

// TradeAggregations exposes the trade aggregation endpoint for price feeds.
func (c *Client) TradeAggregations(ctx context.Context, req horizonclient.TradeAggregationRequest) (horizon.TradeAggregationsPage, error) {
	return call(ctx, c, func() (horizon.TradeAggregationsPage, error) {
		return c.h.TradeAggregations(req)
	})
}

type result[T any] struct {
	v   T
	err error
}

// call runs fn behind the breaker with the per-call timeout. The underlying
// HTTP client has no context support, so a timed-out call is abandoned.
func call[T any](ctx context.Context, c *Client, fn func() (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	v, err := c.breaker.Execute(func() (interface{}, error) {
		ch := make(chan result[T], 1)
		go func() {
			v, err := fn()
			ch <- result[T]{v, err}
		}()
		select {
		case r := <-ch:
			return r.v, r.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", types.ErrLedgerUnavailable, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("ledger call timed out", "timeout", c.cfg.Timeout)
			return zero, fmt.Errorf("%w: %v", types.ErrLedgerUnavailable, err)
		}
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
