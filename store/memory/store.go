package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/intent"
	"github.com/xraph/mint/store"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/types"
)

var _ store.Store = (*Store)(nil)

// Store keeps every entity in maps guarded by one lock. Values are copied
// in and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	// Asset storage, keyed by ID
	assets map[string]*asset.Record

	// Keypair storage, keyed by public key
	keypairs map[string]*custody.Keypair

	// Subscription storage
	subscriptions map[string]*subscription.Subscription

	// Vanity storage, keyed by slug
	vanities map[string]*subscription.Vanity

	// Intent storage, keyed by tx hash
	intents map[string]*intent.Intent
}

func New() *Store {
	return &Store{
		assets:        make(map[string]*asset.Record),
		keypairs:      make(map[string]*custody.Keypair),
		subscriptions: make(map[string]*subscription.Subscription),
		vanities:      make(map[string]*subscription.Vanity),
		intents:       make(map[string]*intent.Intent),
	}
}

// Asset Store implementation
func (s *Store) CreateAsset(_ context.Context, r *asset.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[r.ID.String()]; exists {
		return types.ErrAlreadyExists
	}
	for _, existing := range s.assets {
		if existing.Code == r.Code && existing.Issuer == r.Issuer {
			return types.ErrAlreadyExists
		}
	}
	cp := *r
	s.assets[r.ID.String()] = &cp
	return nil
}

func (s *Store) GetAsset(_ context.Context, assetID id.AssetID) (*asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.assets[assetID.String()]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, types.ErrAssetNotFound
}

func (s *Store) GetAssetByCode(_ context.Context, code, issuer string) (*asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.assets {
		if r.Code == code && r.Issuer == issuer {
			cp := *r
			return &cp, nil
		}
	}
	return nil, types.ErrAssetNotFound
}

func (s *Store) ListAssets(_ context.Context, creatorID string, opts asset.ListOpts) ([]*asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*asset.Record, 0)
	for _, r := range s.assets {
		if creatorID != "" && r.CreatorID != creatorID {
			continue
		}
		if opts.State != "" && r.State != opts.State {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *asset.Record) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateAsset(_ context.Context, r *asset.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[r.ID.String()]; !exists {
		return types.ErrAssetNotFound
	}
	cp := *r
	s.assets[r.ID.String()] = &cp
	return nil
}

// Keypair Store implementation
func (s *Store) CreateKeypair(_ context.Context, kp *custody.Keypair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keypairs[kp.PublicKey]; exists {
		return types.ErrAlreadyExists
	}
	cp := *kp
	s.keypairs[kp.PublicKey] = &cp
	return nil
}

func (s *Store) GetKeypair(_ context.Context, kpID id.KeypairID) (*custody.Keypair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, kp := range s.keypairs {
		if kp.ID.String() == kpID.String() {
			cp := *kp
			return &cp, nil
		}
	}
	return nil, types.ErrKeypairNotFound
}

func (s *Store) GetKeypairByPublicKey(_ context.Context, publicKey string) (*custody.Keypair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if kp, ok := s.keypairs[publicKey]; ok {
		cp := *kp
		return &cp, nil
	}
	return nil, types.ErrKeypairNotFound
}

func (s *Store) ListKeypairs(_ context.Context, ownerID string, role custody.Role) ([]*custody.Keypair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*custody.Keypair, 0)
	for _, kp := range s.keypairs {
		if kp.OwnerID == ownerID && (role == "" || kp.Role == role) {
			cp := *kp
			result = append(result, &cp)
		}
	}
	slices.SortFunc(result, func(a, b *custody.Keypair) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return result, nil
}

func (s *Store) RetireKeypair(_ context.Context, publicKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, ok := s.keypairs[publicKey]
	if !ok {
		return types.ErrKeypairNotFound
	}
	if kp.Retired {
		return nil
	}
	now := time.Now().UTC()
	kp.Retired = true
	kp.RetiredAt = &now
	kp.UpdatedAt = now
	return nil
}

// Subscription Store implementation
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; exists {
		return types.ErrAlreadyExists
	}
	cp := *sub
	s.subscriptions[sub.ID.String()] = &cp
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, types.ErrSubscriptionNotFound
}

func (s *Store) ListSubscriptions(_ context.Context, fanAccount string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if fanAccount != "" && sub.FanAccount != fanAccount {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		if opts.CreatorID != "" && sub.CreatorID != opts.CreatorID {
			continue
		}
		cp := *sub
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *subscription.Subscription) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; !exists {
		return types.ErrSubscriptionNotFound
	}
	cp := *sub
	s.subscriptions[sub.ID.String()] = &cp
	return nil
}

func (s *Store) ListDueSubscriptions(_ context.Context, before time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.Due(before) {
			cp := *sub
			result = append(result, &cp)
		}
	}
	slices.SortFunc(result, func(a, b *subscription.Subscription) int {
		return a.CurrentPeriodEnd.Compare(b.CurrentPeriodEnd)
	})
	return result, nil
}

// Vanity Store implementation
func (s *Store) CreateVanity(_ context.Context, v *subscription.Vanity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vanities[v.Slug]; exists {
		return types.ErrAlreadyExists
	}
	cp := *v
	s.vanities[v.Slug] = &cp
	return nil
}

func (s *Store) GetVanity(_ context.Context, slug string) (*subscription.Vanity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.vanities[slug]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, types.ErrVanityNotFound
}

func (s *Store) UpdateVanity(_ context.Context, v *subscription.Vanity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vanities[v.Slug]; !exists {
		return types.ErrVanityNotFound
	}
	cp := *v
	s.vanities[v.Slug] = &cp
	return nil
}

func (s *Store) ListDueVanities(_ context.Context, before time.Time) ([]*subscription.Vanity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Vanity, 0)
	for _, v := range s.vanities {
		if v.Due(before) {
			cp := *v
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Intent Store implementation
func (s *Store) CreateIntent(_ context.Context, in *intent.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intents[in.Hash]; exists {
		return types.ErrAlreadyExists
	}
	cp := *in
	s.intents[in.Hash] = &cp
	return nil
}

func (s *Store) GetIntentByHash(_ context.Context, hash string) (*intent.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if in, ok := s.intents[hash]; ok {
		cp := *in
		return &cp, nil
	}
	return nil, types.ErrIntentNotFound
}

func (s *Store) UpdateIntent(_ context.Context, in *intent.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intents[in.Hash]; !exists {
		return types.ErrIntentNotFound
	}
	cp := *in
	s.intents[in.Hash] = &cp
	return nil
}

func (s *Store) ListPendingIntents(_ context.Context, before time.Time) ([]*intent.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*intent.Intent, 0)
	for _, in := range s.intents {
		if in.Status == intent.StatusPending && in.CreatedBefore(before) {
			cp := *in
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// page applies offset/limit; a zero limit means no limit.
func page[T any](result []T, offset, limit int) []T {
	start := offset
	if start > len(result) {
		start = len(result)
	}
	end := start + limit
	if limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end]
}
