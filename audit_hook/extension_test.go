package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

func capture() (*[]*AuditEvent, RecorderFunc) {
	var events []*AuditEvent
	return &events, func(_ context.Context, evt *AuditEvent) error {
		events = append(events, evt)
		return nil
	}
}

func TestAssetEventsCarryResourceID(t *testing.T) {
	events, rec := capture()
	ext := New(rec)

	r := &asset.Record{ID: id.NewAssetID(), Code: "FAN", Issuer: "GISSUER", CreatorID: "creator-1"}
	require.NoError(t, ext.OnAssetIssued(context.Background(), r))
	require.NoError(t, ext.OnRedeemed(context.Background(), r, "GUSER"))

	require.Len(t, *events, 2)
	issued := (*events)[0]
	assert.Equal(t, ActionAssetIssued, issued.Action)
	assert.Equal(t, ResourceAsset, issued.Resource)
	assert.Equal(t, r.ID.String(), issued.ResourceID)
	assert.Equal(t, "FAN", issued.Metadata["code"])

	redeemed := (*events)[1]
	assert.Equal(t, CategoryCustody, redeemed.Category)
	assert.Equal(t, "GUSER", redeemed.Metadata["user"])
}

func TestSubmissionFailureRecordsReason(t *testing.T) {
	events, rec := capture()
	ext := New(rec)

	env := &txbuild.Envelope{Kind: txbuild.KindBuy, Source: "GSOURCE", Sequence: 42}
	err := types.ErrSequenceConflict
	require.NoError(t, ext.OnSubmissionFailed(context.Background(), env, err))

	require.Len(t, *events, 1)
	evt := (*events)[0]
	assert.Equal(t, OutcomeFailure, evt.Outcome)
	assert.Equal(t, SeverityError, evt.Severity)
	assert.Equal(t, err.Error(), evt.Reason)
	assert.Equal(t, "buy", evt.Metadata["kind"])
}

func TestDisabledActionsAreSkipped(t *testing.T) {
	events, rec := capture()
	ext := New(rec, WithDisabledActions(ActionVanityExpired))

	ctx := context.Background()
	require.NoError(t, ext.OnVanityExpired(ctx, &subscription.Vanity{Slug: "old"}))
	require.NoError(t, ext.OnSubscriptionExpired(ctx, &subscription.Subscription{FanAccount: "GFAN"}))

	require.Len(t, *events, 1)
	assert.Equal(t, ActionSubscriptionExpired, (*events)[0].Action)
}

func TestEnabledActionsOnly(t *testing.T) {
	events, rec := capture()
	ext := New(rec, WithEnabledActions(ActionAssetClawedBack))

	ctx := context.Background()
	r := &asset.Record{Code: "FAN"}
	require.NoError(t, ext.OnAssetActivated(ctx, r))
	require.NoError(t, ext.OnClawedBack(ctx, r))

	require.Len(t, *events, 1)
	assert.Equal(t, SeverityWarning, (*events)[0].Severity)
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("backend down")
	}))
	assert.NoError(t, ext.OnAssetActivated(context.Background(), &asset.Record{}))
}

func TestCategoryFilter(t *testing.T) {
	events, rec := capture()
	ext := New(rec, WithCategories(CategoryCustody))

	ctx := context.Background()
	r := &asset.Record{ID: id.NewAssetID(), Code: "FAN"}
	require.NoError(t, ext.OnAssetIssued(ctx, r))
	require.NoError(t, ext.OnRedeemed(ctx, r, "GUSER"))
	require.NoError(t, ext.OnClawedBack(ctx, r))

	require.Len(t, *events, 2)
	assert.Equal(t, ActionAssetRedeemed, (*events)[0].Action)
	assert.Equal(t, ActionAssetClawedBack, (*events)[1].Action)
}

func TestFailuresOnly(t *testing.T) {
	events, rec := capture()
	ext := New(rec, WithFailuresOnly())

	ctx := context.Background()
	env := &txbuild.Envelope{Kind: txbuild.KindGift, Source: "GPLATFORM"}
	require.NoError(t, ext.OnEnvelopeBuilt(ctx, env))
	require.NoError(t, ext.OnSubmissionFailed(ctx, env, types.ErrLedgerUnavailable))

	require.Len(t, *events, 1)
	assert.Equal(t, ActionSubmissionFailed, (*events)[0].Action)
}
