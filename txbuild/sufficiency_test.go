package txbuild

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

func TestCheckSufficiencyRejectsOverflowingDebits(t *testing.T) {
	token := asset.MustNew("MINT", addr())
	src, dst := addr(), addr()
	accounts := map[string]*account.Account{
		src: account.New(src, 1, native(1), holding(token, 1)),
	}
	half := token.Amount(math.MaxInt64/2 + 1)
	ops := []Operation{
		Payment{From: src, To: dst, Asset: token, Amount: half},
		Payment{From: src, To: dst, Asset: token, Amount: half},
	}

	err := CheckSufficiency(src, types.Native(200), ops, accounts)
	require.ErrorIs(t, err, types.ErrValidation)
	assert.NotErrorIs(t, err, types.ErrInsufficientBalance)

	// The network fee counts against the same native total.
	ops = []Operation{Payment{From: src, To: dst, Asset: asset.Native, Amount: types.Native(math.MaxInt64)}}
	err = CheckSufficiency(src, types.Native(100), ops, accounts)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCheckSufficiencyAtExactBalance(t *testing.T) {
	token := asset.MustNew("MINT", addr())
	src, dst := addr(), addr()
	accounts := map[string]*account.Account{
		src: account.New(src, 1, native(1), holding(token, 3)),
	}
	ops := []Operation{
		Payment{From: src, To: dst, Asset: token, Amount: token.Amount(2 * types.One)},
		Payment{From: src, To: dst, Asset: token, Amount: token.Amount(types.One)},
	}
	require.NoError(t, CheckSufficiency(src, types.Native(200), ops, accounts))

	ops = append(ops, Payment{From: src, To: dst, Asset: token, Amount: token.Amount(1)})
	var ib types.InsufficientBalanceError
	require.ErrorAs(t, CheckSufficiency(src, types.Native(200), ops, accounts), &ib)
	assert.Equal(t, 3*types.One+1, ib.Need.Amount)
}

func TestCheckSufficiencyUnauthorizedSource(t *testing.T) {
	token := asset.MustNew("MINT", addr())
	src, dst := addr(), addr()
	frozen := holding(token, 10)
	frozen.Authorized = false
	accounts := map[string]*account.Account{src: account.New(src, 1, native(1), frozen)}

	ops := []Operation{Payment{From: src, To: dst, Asset: token, Amount: token.Amount(types.One)}}
	err := CheckSufficiency(src, types.Native(100), ops, accounts)
	assert.ErrorIs(t, err, types.ErrMissingTrustline)
}

func TestCheckTrustOrderUnauthorizedRecipient(t *testing.T) {
	token := asset.MustNew("MINT", addr())
	src, dst := addr(), addr()
	frozen := holding(token, 0)
	frozen.Authorized = false
	accounts := map[string]*account.Account{
		src: account.New(src, 1, native(1), holding(token, 10)),
		dst: account.New(dst, 1, native(1), frozen),
	}
	ops := []Operation{Payment{From: src, To: dst, Asset: token, Amount: token.Amount(types.One)}}
	assert.ErrorIs(t, CheckTrustOrder(ops, accounts), types.ErrMissingTrustline)

	accounts[dst] = account.New(dst, 1, native(1), holding(token, 0))
	assert.NoError(t, CheckTrustOrder(ops, accounts))
}
