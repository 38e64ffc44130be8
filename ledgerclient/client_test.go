package ledgerclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/base"
	"github.com/stellar/go/support/render/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/types"
)

type fakeHorizon struct {
	accountFn func(horizonclient.AccountRequest) (horizon.Account, error)
	submitFn  func(string) (horizon.Transaction, error)
	claimable horizon.ClaimableBalances
	txs       horizon.TransactionsPage
	calls     atomic.Int32
	delay     time.Duration
}

func (f *fakeHorizon) AccountDetail(r horizonclient.AccountRequest) (horizon.Account, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.accountFn(r)
}

func (f *fakeHorizon) SubmitTransactionXDR(x string) (horizon.Transaction, error) {
	f.calls.Add(1)
	return f.submitFn(x)
}

func (f *fakeHorizon) ClaimableBalances(horizonclient.ClaimableBalanceRequest) (horizon.ClaimableBalances, error) {
	return f.claimable, nil
}

func (f *fakeHorizon) Transactions(horizonclient.TransactionRequest) (horizon.TransactionsPage, error) {
	return f.txs, nil
}

func (f *fakeHorizon) TradeAggregations(horizonclient.TradeAggregationRequest) (horizon.TradeAggregationsPage, error) {
	return horizon.TradeAggregationsPage{}, nil
}

func rejected(txCode string, ops ...string) error {
	codes := map[string]interface{}{"transaction": txCode}
	if len(ops) > 0 {
		codes["operations"] = ops
	}
	return &horizonclient.Error{Problem: problem.P{
		Type:   "https://stellar.org/horizon-errors/transaction_failed",
		Title:  "Transaction Failed",
		Status: 400,
		Extras: map[string]interface{}{"result_codes": codes},
	}}
}

func notFound() error {
	return &horizonclient.Error{Problem: problem.P{
		Type:   "https://stellar.org/horizon-errors/not_found",
		Title:  "Resource Missing",
		Status: 404,
	}}
}

func TestLoadMapsAccount(t *testing.T) {
	f := &fakeHorizon{accountFn: func(r horizonclient.AccountRequest) (horizon.Account, error) {
		return horizon.Account{
			AccountID: r.AccountID,
			Sequence:  7,
			Balances:  []horizon.Balance{{Balance: "1.0000000", Asset: base.Asset{Type: "native"}}},
		}, nil
	}}
	c := New(f, Config{}, nil)

	a, err := c.Load(context.Background(), "GABC")
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.Sequence)
	assert.Equal(t, types.One, a.NativeBalance().Amount)
}

func TestLoadNotFound(t *testing.T) {
	f := &fakeHorizon{accountFn: func(horizonclient.AccountRequest) (horizon.Account, error) {
		return horizon.Account{}, notFound()
	}}
	c := New(f, Config{ConsecutiveFailures: 1}, nil)

	for range 3 {
		_, err := c.Load(context.Background(), "GABC")
		assert.ErrorIs(t, err, types.ErrAccountNotFound)
	}
	assert.Equal(t, int32(3), f.calls.Load(), "not-found must not trip the breaker")
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		code   string
	}{
		{"bad sequence", rejected("tx_bad_seq"), types.ErrSequenceConflict, ""},
		{"op failure", rejected("tx_failed", "op_underfunded"), types.ErrLedgerRejected, "tx_failed"},
		{"insufficient fee", rejected("tx_insufficient_fee"), types.ErrLedgerRejected, "tx_insufficient_fee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeHorizon{submitFn: func(string) (horizon.Transaction, error) {
				return horizon.Transaction{}, tt.err
			}}
			_, err := New(f, Config{}, nil).Submit(context.Background(), "AAAA")
			require.ErrorIs(t, err, tt.target)

			var rej types.LedgerRejectedError
			if tt.code != "" {
				require.True(t, errors.As(err, &rej))
				assert.Equal(t, tt.code, rej.ResultCode)
			}
		})
	}
}

func TestSubmitReportsOperationCodes(t *testing.T) {
	f := &fakeHorizon{submitFn: func(string) (horizon.Transaction, error) {
		return horizon.Transaction{}, rejected("tx_failed", "op_success", "op_no_trust")
	}}
	_, err := New(f, Config{}, nil).Submit(context.Background(), "AAAA")

	var rej types.LedgerRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, []string{"op_success", "op_no_trust"}, rej.OperationCodes)
}

func TestSubmitSuccess(t *testing.T) {
	f := &fakeHorizon{submitFn: func(string) (horizon.Transaction, error) {
		return horizon.Transaction{Hash: "deadbeef", Ledger: 99}, nil
	}}
	sub, err := New(f, Config{}, nil).Submit(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, Submission{Hash: "deadbeef", Ledger: 99}, sub)
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	f := &fakeHorizon{submitFn: func(string) (horizon.Transaction, error) {
		return horizon.Transaction{}, errors.New("connection refused")
	}}
	c := New(f, Config{ConsecutiveFailures: 2, BreakerTimeout: time.Minute}, nil)

	for range 2 {
		_, err := c.Submit(context.Background(), "AAAA")
		require.Error(t, err)
	}
	_, err := c.Submit(context.Background(), "AAAA")
	assert.ErrorIs(t, err, types.ErrLedgerUnavailable)
	assert.Equal(t, int32(2), f.calls.Load(), "open breaker must not reach the ledger")
}

func TestCallTimeout(t *testing.T) {
	f := &fakeHorizon{
		delay: 200 * time.Millisecond,
		accountFn: func(horizonclient.AccountRequest) (horizon.Account, error) {
			return horizon.Account{}, nil
		},
	}
	c := New(f, Config{Timeout: 10 * time.Millisecond}, nil)

	_, err := c.Load(context.Background(), "GABC")
	assert.ErrorIs(t, err, types.ErrLedgerUnavailable)
}

func TestClaimableBalancesAndHistory(t *testing.T) {
	f := &fakeHorizon{}
	f.claimable.Embedded.Records = []horizon.ClaimableBalance{
		{BalanceID: "00000000abc", Asset: "ART:GISSUER", Amount: "1.0000000"},
	}
	f.txs.Embedded.Records = []horizon.Transaction{
		{Hash: "h1", PT: "c1", Successful: true},
		{Hash: "h2", PT: "c2"},
	}
	c := New(f, Config{}, nil)

	cbs, err := c.ClaimableBalances(context.Background(), "GABC")
	require.NoError(t, err)
	require.Len(t, cbs, 1)
	assert.Equal(t, "00000000abc", cbs[0].ID)

	page, err := c.TransactionHistory(context.Background(), "GABC", "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "c2", page.Next)
}
