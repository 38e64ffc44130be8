// Package signing attaches signatures to built envelopes. Local keys sign
// immediately; the user-owned account is signed according to SignWith.
package signing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stellar/go/keypair"

	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

// SignWith is the signing instruction for the user-owned account. It is
// one of Anonymous, ByIdentity or ByAdmin; a nil SignWith is Anonymous.
type SignWith interface {
	signWith()
}

// Anonymous leaves the user account unsigned so the caller can hand the
// envelope to an external wallet.
type Anonymous struct{}

// ByIdentity signs with the secret the identity service holds for Email.
type ByIdentity struct {
	Email string
}

// ByAdmin signs with the platform key.
type ByAdmin struct{}

func (Anonymous) signWith()  {}
func (ByIdentity) signWith() {}
func (ByAdmin) signWith()    {}

// IdentityResolver returns the secret seed held for an identity.
type IdentityResolver interface {
	ResolveSecret(ctx context.Context, email string) (string, error)
}

// ResolverFunc adapts a function to IdentityResolver.
type ResolverFunc func(ctx context.Context, email string) (string, error)

func (f ResolverFunc) ResolveSecret(ctx context.Context, email string) (string, error) {
	return f(ctx, email)
}

// PlatformSigner holds the platform key.
type PlatformSigner interface {
	Address() string
	Keypair() *keypair.Full
}

// SeedSigner is a PlatformSigner backed by a secret seed.
type SeedSigner struct {
	kp *keypair.Full
}

// NewSeedSigner parses seed.
func NewSeedSigner(seed string) (*SeedSigner, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, types.ValidationError{Field: "platform_secret", Message: "invalid secret seed"}
	}
	return &SeedSigner{kp: kp}, nil
}

func (s *SeedSigner) Address() string        { return s.kp.Address() }
func (s *SeedSigner) Keypair() *keypair.Full { return s.kp }

// Report lists which required signers have signed.
type Report struct {
	Signed  []string `json:"signed"`
	Missing []string `json:"missing"`
}

// Complete reports whether every required signer has signed.
func (r Report) Complete() bool { return len(r.Missing) == 0 }

// Coordinator signs and verifies envelopes for one network.
type Coordinator struct {
	passphrase string
	platform   PlatformSigner
	identities IdentityResolver
	logger     *slog.Logger
}

// NewCoordinator creates a coordinator. identities may be nil when no
// identity-backed signing is used.
func NewCoordinator(passphrase string, platform PlatformSigner, identities IdentityResolver, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{passphrase: passphrase, platform: platform, identities: identities, logger: logger}
}

// Passphrase returns the network passphrase signatures are bound to.
func (c *Coordinator) Passphrase() string { return c.passphrase }

// Sign returns a copy of env signed by every key in local that is a
// required signer, plus the user account as selected by with. Keys that
// are not required signers are skipped.
func (c *Coordinator) Sign(ctx context.Context, env *txbuild.Envelope, local []*keypair.Full, with SignWith) (*txbuild.Envelope, error) {
	if env == nil || env.Tx() == nil {
		return nil, fmt.Errorf("%w: envelope has no transaction", types.ErrSigningFailed)
	}

	var keys []*keypair.Full
	seen := map[string]bool{}
	add := func(kp *keypair.Full) {
		if kp == nil || seen[kp.Address()] || !env.RequiresSigner(kp.Address()) {
			return
		}
		seen[kp.Address()] = true
		keys = append(keys, kp)
	}
	for _, kp := range local {
		add(kp)
	}

	if user := env.UserAccount; user != "" && !seen[user] {
		kp, err := c.userKey(ctx, user, with)
		if err != nil {
			return nil, err
		}
		add(kp)
	}

	if len(keys) == 0 {
		return env, nil
	}
	signed, err := env.Tx().Sign(c.passphrase, keys...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSigningFailed, err)
	}

	c.logger.Debug("envelope signed", "kind", env.Kind, "source", env.Source, "signatures", len(signed.Signatures()))
	return env.WithTx(signed), nil
}

func (c *Coordinator) userKey(ctx context.Context, user string, with SignWith) (*keypair.Full, error) {
	switch w := with.(type) {
	case nil, Anonymous:
		return nil, nil
	case ByAdmin:
		if c.platform == nil {
			return nil, fmt.Errorf("%w: no platform signer configured", types.ErrSigningFailed)
		}
		return c.platform.Keypair(), nil
	case ByIdentity:
		if w.Email == "" {
			return nil, types.ValidationError{Field: "sign_with.email", Message: "identity email is required"}
		}
		if c.identities == nil {
			return nil, fmt.Errorf("%w: no identity resolver configured", types.ErrSigningFailed)
		}
		secret, err := c.identities.ResolveSecret(ctx, w.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve identity: %w", types.ErrSigningFailed, err)
		}
		kp, err := keypair.ParseFull(secret)
		if err != nil {
			return nil, fmt.Errorf("%w: identity secret is not a valid seed", types.ErrSigningFailed)
		}
		if kp.Address() != user {
			return nil, fmt.Errorf("%w: identity key %s does not match account %s", types.ErrSigningFailed, kp.Address(), user)
		}
		return kp, nil
	default:
		return nil, types.ValidationError{Field: "sign_with", Message: fmt.Sprintf("unsupported signing instruction %T", with)}
	}
}

// Verify checks the envelope's signatures against its required signers.
func (c *Coordinator) Verify(env *txbuild.Envelope) (Report, error) {
	if env == nil || env.Tx() == nil {
		return Report{}, types.ValidationError{Field: "envelope", Message: "envelope has no transaction"}
	}
	hash, err := env.RawHash(c.passphrase)
	if err != nil {
		return Report{}, fmt.Errorf("signing: hash: %w", err)
	}

	sigs := env.Tx().Signatures()
	var r Report
	for _, addr := range env.Signers {
		kp, err := keypair.ParseAddress(addr)
		if err != nil {
			return Report{}, types.ValidationError{Field: "signers", Message: fmt.Sprintf("invalid signer %s", addr)}
		}
		hint := kp.Hint()
		ok := false
		for _, s := range sigs {
			if s.Hint == hint && kp.Verify(hash[:], s.Signature) == nil {
				ok = true
				break
			}
		}
		if ok {
			r.Signed = append(r.Signed, addr)
		} else {
			r.Missing = append(r.Missing, addr)
		}
	}
	return r, nil
}
