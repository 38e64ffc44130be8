package custody

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/types"
)

type fakeStore struct {
	mu  sync.Mutex
	kps map[string]*Keypair
}

func newFakeStore() *fakeStore { return &fakeStore{kps: map[string]*Keypair{}} }

func (f *fakeStore) CreateKeypair(_ context.Context, kp *Keypair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kps[kp.PublicKey]; ok {
		return types.ErrAlreadyExists
	}
	f.kps[kp.PublicKey] = kp
	return nil
}

func (f *fakeStore) GetKeypair(_ context.Context, kpID id.KeypairID) (*Keypair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, kp := range f.kps {
		if kp.ID.String() == kpID.String() {
			return kp, nil
		}
	}
	return nil, types.ErrKeypairNotFound
}

func (f *fakeStore) GetKeypairByPublicKey(_ context.Context, pk string) (*Keypair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kp, ok := f.kps[pk]; ok {
		return kp, nil
	}
	return nil, types.ErrKeypairNotFound
}

func (f *fakeStore) ListKeypairs(_ context.Context, owner string, role Role) ([]*Keypair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Keypair
	for _, kp := range f.kps {
		if kp.OwnerID == owner && kp.Role == role {
			out = append(out, kp)
		}
	}
	return out, nil
}

func (f *fakeStore) RetireKeypair(_ context.Context, pk string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kp, ok := f.kps[pk]
	if !ok {
		return types.ErrKeypairNotFound
	}
	kp.Retired = true
	return nil
}

func TestVaultSealOpen(t *testing.T) {
	v := RandomVault()
	sealed, err := v.Seal([]byte("SBSECRET"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "SBSECRET")

	out, err := v.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "SBSECRET", string(out))

	again, err := v.Seal([]byte("SBSECRET"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestVaultOpenRejectsTampering(t *testing.T) {
	v := RandomVault()
	sealed, err := v.Seal([]byte("seed"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = v.Open(sealed)
	assert.Error(t, err)

	_, err = v.Open([]byte("short"))
	assert.Error(t, err)

	other := RandomVault()
	good, err := v.Seal([]byte("seed"))
	require.NoError(t, err)
	_, err = other.Open(good)
	assert.Error(t, err)
}

func TestNewVaultKeySize(t *testing.T) {
	_, err := NewVault(make([]byte, 16))
	assert.True(t, errors.Is(err, types.ErrValidation))

	v, err := NewVaultFromBase64(base64.StdEncoding.EncodeToString(make([]byte, KeySize)))
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = NewVaultFromBase64("not base64!")
	assert.Error(t, err)
}

func TestKeyringGenerateAndOpen(t *testing.T) {
	ctx := context.Background()
	ring := NewKeyring(newFakeStore(), RandomVault())

	rec, full, err := ring.Generate(ctx, RoleIssuer, "creator-1")
	require.NoError(t, err)
	assert.Equal(t, full.Address(), rec.PublicKey)
	assert.NotContains(t, string(rec.SealedSecret), full.Seed())

	opened, err := ring.Full(ctx, rec.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, full.Seed(), opened.Seed())
}

func TestKeyringRetiredKeyRefused(t *testing.T) {
	ctx := context.Background()
	ring := NewKeyring(newFakeStore(), RandomVault())

	rec, _, err := ring.Generate(ctx, RoleIssuer, "creator-1")
	require.NoError(t, err)
	require.NoError(t, ring.Retire(ctx, rec.PublicKey))

	_, err = ring.Full(ctx, rec.PublicKey)
	assert.ErrorIs(t, err, types.ErrKeyRetired)
}

func TestKeyringStorage(t *testing.T) {
	ctx := context.Background()
	ring := NewKeyring(newFakeStore(), RandomVault())

	_, err := ring.Storage(ctx, "creator-1")
	assert.ErrorIs(t, err, types.ErrKeypairNotFound)

	rec, _, err := ring.Generate(ctx, RoleStorage, "creator-1")
	require.NoError(t, err)
	_, _, err = ring.Generate(ctx, RoleIssuer, "creator-1")
	require.NoError(t, err)

	got, err := ring.Storage(ctx, "creator-1")
	require.NoError(t, err)
	assert.Equal(t, rec.PublicKey, got.PublicKey)
}

func TestKeyringImport(t *testing.T) {
	ctx := context.Background()
	ring := NewKeyring(newFakeStore(), RandomVault())

	_, full, err := ring.Generate(ctx, RoleEscrow, "owner")
	require.NoError(t, err)

	other := NewKeyring(newFakeStore(), RandomVault())
	rec, err := other.Import(ctx, RoleIssuer, "creator-9", full)
	require.NoError(t, err)
	assert.Equal(t, RoleIssuer, rec.Role)
	assert.NotContains(t, string(rec.SealedSecret), full.Seed())

	opened, err := other.Full(ctx, full.Address())
	require.NoError(t, err)
	assert.Equal(t, full.Seed(), opened.Seed())
}
