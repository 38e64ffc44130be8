package custody

import (
	"time"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/types"
)

// Role describes what a custodied keypair is used for.
type Role string

const (
	RoleIssuer  Role = "issuer"  // Issues exactly one asset
	RoleStorage Role = "storage" // Per-creator distributor account
	RoleEscrow  Role = "escrow"
)

// Keypair is a custodied account key. The secret is only ever persisted
// sealed by a Vault.
type Keypair struct {
	types.Entity
	ID           id.KeypairID `json:"id"`
	Role         Role         `json:"role"`
	OwnerID      string       `json:"owner_id"`
	PublicKey    string       `json:"public_key"`
	SealedSecret []byte       `json:"-"`
	Retired      bool         `json:"retired"`
	RetiredAt    *time.Time   `json:"retired_at,omitempty"`
}
