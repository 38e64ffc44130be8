package intent

import (
	"context"
	"time"
)

type Store interface {
	CreateIntent(ctx context.Context, in *Intent) error
	GetIntentByHash(ctx context.Context, hash string) (*Intent, error)
	UpdateIntent(ctx context.Context, in *Intent) error
	ListPendingIntents(ctx context.Context, before time.Time) ([]*Intent, error)
}
