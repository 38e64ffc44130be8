// Package custody keeps the secrets of platform-generated accounts sealed at
// rest and hands out signing keys for the duration of a single call.
package custody

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/stellar/go/keypair"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/types"
)

const (
	KeySize   = 32
	nonceSize = 24
)

var errOpen = errors.New("mint: cannot open sealed secret")

// Vault seals secret seeds with a symmetric key.
type Vault struct {
	key [KeySize]byte
}

// NewVault creates a vault from a 32-byte key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, types.ValidationError{Field: "vault_key", Message: fmt.Sprintf("must be %d bytes, got %d", KeySize, len(key))}
	}
	v := &Vault{}
	copy(v.key[:], key)
	return v, nil
}

// NewVaultFromBase64 decodes a standard base64 key.
func NewVaultFromBase64(encoded string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, types.ValidationError{Field: "vault_key", Message: err.Error()}
	}
	return NewVault(key)
}

// RandomVault creates a vault with a fresh random key. Secrets sealed by it
// cannot be opened after the process exits.
func RandomVault() *Vault {
	v := &Vault{}
	if _, err := io.ReadFull(rand.Reader, v.key[:]); err != nil {
		panic(err)
	}
	return v
}

// Seal encrypts plaintext as nonce || box.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("custody: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &v.key), nil
}

// Open decrypts a value produced by Seal.
func (v *Vault) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return nil, errOpen
	}
	return out, nil
}

// Keyring combines a keypair store with a vault.
type Keyring struct {
	store Store
	vault *Vault
}

func NewKeyring(store Store, vault *Vault) *Keyring {
	return &Keyring{store: store, vault: vault}
}

// Generate creates a random keypair, seals its seed and persists it.
// The full keypair is returned for use in the current call only.
func (k *Keyring) Generate(ctx context.Context, role Role, ownerID string) (*Keypair, *keypair.Full, error) {
	full, err := keypair.Random()
	if err != nil {
		return nil, nil, fmt.Errorf("custody: generate: %w", err)
	}
	rec, err := k.Import(ctx, role, ownerID, full)
	if err != nil {
		return nil, nil, err
	}
	return rec, full, nil
}

// Import seals and persists a keypair generated elsewhere.
func (k *Keyring) Import(ctx context.Context, role Role, ownerID string, full *keypair.Full) (*Keypair, error) {
	sealed, err := k.vault.Seal([]byte(full.Seed()))
	if err != nil {
		return nil, err
	}
	rec := &Keypair{
		Entity:       types.NewEntity(),
		ID:           id.NewKeypairID(),
		Role:         role,
		OwnerID:      ownerID,
		PublicKey:    full.Address(),
		SealedSecret: sealed,
	}
	if err := k.store.CreateKeypair(ctx, rec); err != nil {
		return nil, fmt.Errorf("custody: store keypair: %w", err)
	}
	return rec, nil
}

// Full opens the secret for publicKey. Retired keys are refused.
func (k *Keyring) Full(ctx context.Context, publicKey string) (*keypair.Full, error) {
	rec, err := k.store.GetKeypairByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	if rec.Retired {
		return nil, fmt.Errorf("%w: %s", types.ErrKeyRetired, publicKey)
	}
	seed, err := k.vault.Open(rec.SealedSecret)
	if err != nil {
		return nil, err
	}
	full, err := keypair.ParseFull(string(seed))
	if err != nil {
		return nil, fmt.Errorf("custody: parse seed: %w", err)
	}
	if full.Address() != publicKey {
		return nil, fmt.Errorf("custody: sealed seed does not match %s", publicKey)
	}
	return full, nil
}

// Storage returns the creator's storage keypair, or ErrKeypairNotFound.
func (k *Keyring) Storage(ctx context.Context, ownerID string) (*Keypair, error) {
	kps, err := k.store.ListKeypairs(ctx, ownerID, RoleStorage)
	if err != nil {
		return nil, err
	}
	for _, kp := range kps {
		if !kp.Retired {
			return kp, nil
		}
	}
	return nil, types.ErrKeypairNotFound
}

// Retire marks the key unusable.
func (k *Keyring) Retire(ctx context.Context, publicKey string) error {
	return k.store.RetireKeypair(ctx, publicKey)
}
