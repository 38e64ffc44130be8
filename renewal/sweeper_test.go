package renewal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/id"
	"github.com/xraph/mint/store/memory"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/types"
)

type events struct {
	mu       sync.Mutex
	subs     []string
	vanities []string
}

func (e *events) SubscriptionExpired(_ context.Context, sub *subscription.Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, sub.ID.String())
}

func (e *events) VanityExpired(_ context.Context, v *subscription.Vanity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vanities = append(e.vanities, v.Slug)
}

type revoker struct {
	calls []id.SubscriptionID
	skip  bool
	err   error
}

func (r *revoker) Revoke(_ context.Context, sub *subscription.Subscription) (bool, error) {
	r.calls = append(r.calls, sub.ID)
	if r.err != nil {
		return false, r.err
	}
	return !r.skip, nil
}

type expirer struct {
	cutoff time.Time
	n      int
}

func (x *expirer) ExpireIntents(_ context.Context, cutoff time.Time) (int, error) {
	x.cutoff = cutoff
	return x.n, nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *memory.Store) (lapsed, current id.SubscriptionID) {
	t.Helper()
	ctx := context.Background()
	mk := func(end time.Time, status subscription.Status) id.SubscriptionID {
		sub := &subscription.Subscription{
			Entity:           types.NewEntity(),
			ID:               id.NewSubscriptionID(),
			FanAccount:       "GFAN",
			Status:           status,
			Period:           24 * time.Hour,
			CurrentPeriodEnd: end,
		}
		require.NoError(t, s.CreateSubscription(ctx, sub))
		return sub.ID
	}
	lapsed = mk(now.Add(-time.Minute), subscription.StatusActive)
	current = mk(now.Add(time.Hour), subscription.StatusActive)
	mk(now.Add(-time.Hour), subscription.StatusPending)

	for slug, exp := range map[string]time.Time{"old": now.Add(-time.Hour), "fresh": now.Add(time.Hour)} {
		require.NoError(t, s.CreateVanity(ctx, &subscription.Vanity{
			Entity:    types.NewEntity(),
			ID:        id.NewVanityID(),
			Slug:      slug,
			OwnerID:   "creator",
			Status:    subscription.StatusActive,
			ExpiresAt: exp,
		}))
	}
	return lapsed, current
}

func newSweeper(s Store, x IntentExpirer, r Revoker, ev Events) *Sweeper {
	sw := New(Config{IntentTTL: 15 * time.Minute}, s, x, r, ev, nil)
	sw.now = func() time.Time { return now }
	return sw
}

func TestSweepExpiresDueRecords(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lapsed, current := seed(t, s)
	ev := &events{}
	rv := &revoker{}
	x := &expirer{n: 3}

	res, err := newSweeper(s, x, rv, ev).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Subscriptions: 1, Vanities: 1, Intents: 3, Revoked: 1}, res)

	got, err := s.GetSubscription(ctx, lapsed)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, got.Status)

	got, err = s.GetSubscription(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, got.Status)

	v, err := s.GetVanity(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, v.Status)

	assert.Equal(t, []string{lapsed.String()}, ev.subs)
	assert.Equal(t, []string{"old"}, ev.vanities)
	assert.Equal(t, now.Add(-15*time.Minute), x.cutoff)
	assert.Equal(t, []id.SubscriptionID{lapsed}, rv.calls)
}

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s)
	sw := newSweeper(s, nil, nil, nil)

	_, err := sw.Sweep(ctx)
	require.NoError(t, err)
	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSweepRevokeFailureKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lapsed, _ := seed(t, s)
	rv := &revoker{err: errors.New("horizon down")}

	res, err := newSweeper(s, nil, rv, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Subscriptions)
	assert.Zero(t, res.Revoked)

	got, err := s.GetSubscription(ctx, lapsed)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, got.Status)
}

func TestSweepCountsOnlyEffectiveRevokes(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s)
	rv := &revoker{skip: true}

	res, err := newSweeper(s, nil, rv, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Subscriptions)
	assert.Len(t, rv.calls, 1)
	assert.Zero(t, res.Revoked)
}

func TestSweepExpiresCanceledAtPeriodEnd(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, current := seed(t, s)

	sub, err := s.GetSubscription(ctx, current)
	require.NoError(t, err)
	canceledAt := now.Add(-time.Hour)
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = &canceledAt
	require.NoError(t, s.UpdateSubscription(ctx, sub))

	rv := &revoker{}
	sw := newSweeper(s, nil, rv, nil)

	// Still inside the paid period.
	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Subscriptions)
	assert.NotContains(t, rv.calls, current)

	sw.now = func() time.Time { return now.Add(2 * time.Hour) }
	res, err = sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Subscriptions: 1, Vanities: 1, Revoked: 1}, res)
	assert.Contains(t, rv.calls, current)

	got, err := s.GetSubscription(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, got.Status)
}

func TestSweepWithoutTTLSkipsIntents(t *testing.T) {
	x := &expirer{n: 5}
	sw := New(Config{}, memory.New(), x, nil, nil, nil)
	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Intents)
	assert.True(t, x.cutoff.IsZero())
}

func TestStartStop(t *testing.T) {
	sw := New(Config{Schedule: "@every 1h"}, memory.New(), nil, nil, nil, nil)
	require.NoError(t, sw.Start(context.Background()))
	assert.Error(t, sw.Start(context.Background()))
	sw.Stop()
	sw.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	sw := New(Config{Schedule: "whenever"}, memory.New(), nil, nil, nil, nil)
	assert.Error(t, sw.Start(context.Background()))
}
