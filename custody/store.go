package custody

import (
	"context"

	"github.com/xraph/mint/id"
)

type Store interface {
	CreateKeypair(ctx context.Context, kp *Keypair) error
	GetKeypair(ctx context.Context, kpID id.KeypairID) (*Keypair, error)
	GetKeypairByPublicKey(ctx context.Context, publicKey string) (*Keypair, error)
	ListKeypairs(ctx context.Context, ownerID string, role Role) ([]*Keypair, error)
	RetireKeypair(ctx context.Context, publicKey string) error
}
