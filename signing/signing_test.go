package signing

import (
	"context"
	"errors"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/account"
	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/price"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

type setup struct {
	platform *keypair.Full
	user     *keypair.Full
	env      *txbuild.Envelope
	coord    *Coordinator
}

// newSetup builds a trustline envelope that needs the platform and user
// signatures.
func newSetup(t *testing.T, resolver IdentityResolver) *setup {
	t.Helper()
	platform := keypair.MustRandom()
	user := keypair.MustRandom()
	token := asset.MustNew("MINT", keypair.MustRandom().Address())
	creator := asset.MustNew("ALICE", keypair.MustRandom().Address())

	accts := map[string]*account.Account{
		platform.Address(): account.New(platform.Address(), 10,
			account.Balance{Asset: asset.Native, Amount: types.Native(100 * types.One)},
			account.Balance{Asset: token, Amount: token.Amount(100 * types.One), Authorized: true}),
		user.Address(): account.New(user.Address(), 1,
			account.Balance{Asset: asset.Native, Amount: types.Native(5 * types.One)}),
	}
	loader := account.LoaderFunc(func(_ context.Context, pk string) (*account.Account, error) {
		if a, ok := accts[pk]; ok {
			return a, nil
		}
		return nil, types.ErrAccountNotFound
	})
	fixed, err := price.NewFixed("0.1", "0.5")
	require.NoError(t, err)

	b, err := txbuild.NewBuilder(txbuild.Config{
		Platform: platform.Address(), PlatformAsset: token, Schedule: fee.DefaultSchedule(),
	}, loader, price.NewConverter(fixed), nil)
	require.NoError(t, err)

	env, err := b.Build(context.Background(), txbuild.TrustlineOnly{Account: user.Address(), Asset: creator, PayIn: types.UnitNative})
	require.NoError(t, err)
	require.Equal(t, []string{platform.Address(), user.Address()}, env.Signers)

	signer, err := NewSeedSigner(platform.Seed())
	require.NoError(t, err)
	return &setup{
		platform: platform,
		user:     user,
		env:      env,
		coord:    NewCoordinator(network.TestNetworkPassphrase, signer, resolver, nil),
	}
}

func TestSignAnonymousLeavesUserUnsigned(t *testing.T) {
	s := newSetup(t, nil)
	signed, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{s.platform}, Anonymous{})
	require.NoError(t, err)

	r, err := s.coord.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, []string{s.platform.Address()}, r.Signed)
	assert.Equal(t, []string{s.user.Address()}, r.Missing)
	assert.False(t, r.Complete())

	// The input envelope is untouched.
	r, err = s.coord.Verify(s.env)
	require.NoError(t, err)
	assert.Len(t, r.Missing, 2)
}

func TestSignByIdentity(t *testing.T) {
	var resolved []string
	s := newSetup(t, nil)
	s.coord.identities = ResolverFunc(func(_ context.Context, email string) (string, error) {
		resolved = append(resolved, email)
		return s.user.Seed(), nil
	})

	signed, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{s.platform}, ByIdentity{Email: "fan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fan@example.com"}, resolved)

	r, err := s.coord.Verify(signed)
	require.NoError(t, err)
	assert.True(t, r.Complete())
	assert.Len(t, signed.Tx().Signatures(), 2)
}

func TestSignByIdentityMismatch(t *testing.T) {
	other := keypair.MustRandom()
	s := newSetup(t, ResolverFunc(func(context.Context, string) (string, error) { return other.Seed(), nil }))

	_, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{s.platform}, ByIdentity{Email: "fan@example.com"})
	assert.ErrorIs(t, err, types.ErrSigningFailed)
}

func TestSignByIdentityResolverError(t *testing.T) {
	calls := 0
	s := newSetup(t, ResolverFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("identity service down")
	}))

	_, err := s.coord.Sign(context.Background(), s.env, nil, ByIdentity{Email: "fan@example.com"})
	assert.ErrorIs(t, err, types.ErrSigningFailed)
	assert.Equal(t, 1, calls)
}

func TestSignByAdmin(t *testing.T) {
	s := newSetup(t, nil)
	signed, err := s.coord.Sign(context.Background(), s.env, nil, ByAdmin{})
	require.NoError(t, err)

	// The platform key only matches the platform signer.
	r, err := s.coord.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, []string{s.platform.Address()}, r.Signed)
	assert.Equal(t, []string{s.user.Address()}, r.Missing)
}

func TestSignSkipsUnrelatedKeys(t *testing.T) {
	s := newSetup(t, nil)
	stranger := keypair.MustRandom()
	signed, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{stranger, s.platform, s.platform}, Anonymous{})
	require.NoError(t, err)
	assert.Len(t, signed.Tx().Signatures(), 1)
}

func TestSignNothingToSign(t *testing.T) {
	s := newSetup(t, nil)
	out, err := s.coord.Sign(context.Background(), s.env, nil, Anonymous{})
	require.NoError(t, err)
	assert.Same(t, s.env, out)
}

type psychic struct{}

func (psychic) signWith() {}

func TestSignUnsupportedInstruction(t *testing.T) {
	s := newSetup(t, nil)
	_, err := s.coord.Sign(context.Background(), s.env, nil, psychic{})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSignByIdentityRequiresEmail(t *testing.T) {
	calls := 0
	s := newSetup(t, ResolverFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("unreachable")
	}))

	_, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{s.platform}, ByIdentity{})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Zero(t, calls)
}

func TestSignNilIsAnonymous(t *testing.T) {
	s := newSetup(t, nil)
	signed, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{s.platform}, nil)
	require.NoError(t, err)

	r, err := s.coord.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, []string{s.user.Address()}, r.Missing)
}

func TestVerifyWrongNetwork(t *testing.T) {
	s := newSetup(t, nil)
	signed, err := s.coord.Sign(context.Background(), s.env, []*keypair.Full{s.platform}, Anonymous{})
	require.NoError(t, err)

	other := NewCoordinator(network.PublicNetworkPassphrase, nil, nil, nil)
	r, err := other.Verify(signed)
	require.NoError(t, err)
	assert.Len(t, r.Missing, 2)
}

func TestNewSeedSigner(t *testing.T) {
	_, err := NewSeedSigner("not a seed")
	assert.ErrorIs(t, err, types.ErrValidation)

	kp := keypair.MustRandom()
	s, err := NewSeedSigner(kp.Seed())
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), s.Address())
}
