package plugin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/subscription"
)

type counting struct {
	name     string
	issued   atomic.Int32
	redeemed atomic.Int32
	expired  atomic.Int32
	fail     bool
}

func (c *counting) Name() string { return c.name }

func (c *counting) OnAssetIssued(context.Context, *asset.Record) error {
	c.issued.Add(1)
	if c.fail {
		return errors.New("boom")
	}
	return nil
}

func (c *counting) OnRedeemed(_ context.Context, _ *asset.Record, user string) error {
	if user != "" {
		c.redeemed.Add(1)
	}
	return nil
}

func (c *counting) OnSubscriptionExpired(context.Context, *subscription.Subscription) error {
	c.expired.Add(1)
	return nil
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnAssetActivated(ctx context.Context, _ *asset.Record) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&counting{name: "a"}))
	assert.Error(t, r.Register(&counting{name: "a"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("b"))
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&counting{})
	assert.Equal(t, []string{"OnAssetIssued", "OnRedeemed", "OnSubscriptionExpired"}, got)
}

func TestEmitDispatchesAndSwallowsErrors(t *testing.T) {
	r := NewRegistry()
	ok := &counting{name: "ok"}
	bad := &counting{name: "bad", fail: true}
	require.NoError(t, r.Register(bad))
	require.NoError(t, r.Register(ok))

	ctx := context.Background()
	rec := &asset.Record{Code: "FAN"}
	ev := r.Events()
	ev.AssetIssued(ctx, rec)
	ev.Redeemed(ctx, rec, "GUSER")
	ev.SubscriptionExpired(ctx, &subscription.Subscription{})
	ev.VanityExpired(ctx, &subscription.Vanity{}) // no subscribers

	assert.Equal(t, int32(1), ok.issued.Load())
	assert.Equal(t, int32(1), bad.issued.Load())
	assert.Equal(t, int32(1), ok.redeemed.Load())
	assert.Equal(t, int32(1), ok.expired.Load())
}

func TestHookTimeout(t *testing.T) {
	r := NewRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(slow{}))

	start := time.Now()
	r.EmitAssetActivated(context.Background(), &asset.Record{})
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
