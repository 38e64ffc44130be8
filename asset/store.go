package asset

import (
	"context"

	"github.com/xraph/mint/id"
)

// Store persists issued asset records.
type Store interface {
	CreateAsset(ctx context.Context, r *Record) error
	GetAsset(ctx context.Context, assetID id.AssetID) (*Record, error)
	GetAssetByCode(ctx context.Context, code, issuer string) (*Record, error)
	ListAssets(ctx context.Context, creatorID string, opts ListOpts) ([]*Record, error)
	UpdateAsset(ctx context.Context, r *Record) error
}

type ListOpts struct {
	State  State
	Limit  int
	Offset int
}
