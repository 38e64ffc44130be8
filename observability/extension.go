// Package observability provides a metrics extension for Mint that records
// envelope and lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/plugin"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
	"github.com/xraph/mint/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnEnvelopeBuilt         = (*MetricsExtension)(nil)
	_ plugin.OnEnvelopeSubmitted     = (*MetricsExtension)(nil)
	_ plugin.OnSubmissionFailed      = (*MetricsExtension)(nil)
	_ plugin.OnAssetIssued           = (*MetricsExtension)(nil)
	_ plugin.OnAssetActivated        = (*MetricsExtension)(nil)
	_ plugin.OnRedeemed              = (*MetricsExtension)(nil)
	_ plugin.OnClawedBack            = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionActivated = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired   = (*MetricsExtension)(nil)
	_ plugin.OnVanityExpired         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide envelope and lifecycle metrics.
// Register it as a Mint plugin.
type MetricsExtension struct {
	factory MetricFactory

	// Envelope metrics
	EnvelopesBuilt     Counter
	EnvelopeOps        Histogram
	EnvelopeFee        Histogram
	EnvelopesSubmitted Counter
	SubmitLatency      Histogram

	// Submission failures
	SubmissionFailed  Counter
	SequenceConflicts Counter
	LedgerRejected    Counter
	LedgerUnavailable Counter
	PreflightRejected Counter

	// Asset metrics
	AssetIssued    Counter
	AssetActivated Counter
	Redemptions    Counter
	Clawbacks      Counter

	// Subscription metrics
	SubscriptionActivated Counter
	SubscriptionExpired   Counter
	VanityExpired         Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		EnvelopesBuilt:     factory.Counter("mint.envelope.built"),
		EnvelopeOps:        factory.Histogram("mint.envelope.operations"),
		EnvelopeFee:        factory.Histogram("mint.envelope.fee_stroops"),
		EnvelopesSubmitted: factory.Counter("mint.envelope.submitted"),
		SubmitLatency:      factory.Histogram("mint.envelope.submit.latency_ms"),

		SubmissionFailed:  factory.Counter("mint.submission.failed"),
		SequenceConflicts: factory.Counter("mint.submission.sequence_conflict"),
		LedgerRejected:    factory.Counter("mint.submission.rejected"),
		LedgerUnavailable: factory.Counter("mint.submission.unavailable"),
		PreflightRejected: factory.Counter("mint.submission.preflight"),

		AssetIssued:    factory.Counter("mint.asset.issued"),
		AssetActivated: factory.Counter("mint.asset.activated"),
		Redemptions:    factory.Counter("mint.asset.redeemed"),
		Clawbacks:      factory.Counter("mint.asset.clawed_back"),

		SubscriptionActivated: factory.Counter("mint.subscription.activated"),
		SubscriptionExpired:   factory.Counter("mint.subscription.expired"),
		VanityExpired:         factory.Counter("mint.vanity.expired"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Envelope hooks
// ──────────────────────────────────────────────────

// OnEnvelopeBuilt implements plugin.OnEnvelopeBuilt.
func (m *MetricsExtension) OnEnvelopeBuilt(_ context.Context, env *txbuild.Envelope) error {
	m.EnvelopesBuilt.Inc()
	m.EnvelopeOps.Observe(float64(len(env.Operations)))
	m.EnvelopeFee.Observe(float64(env.Fee.Amount))
	return nil
}

// OnEnvelopeSubmitted implements plugin.OnEnvelopeSubmitted.
func (m *MetricsExtension) OnEnvelopeSubmitted(_ context.Context, _ *txbuild.Envelope, _ string, _ int32, elapsed time.Duration) error {
	m.EnvelopesSubmitted.Inc()
	m.SubmitLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnSubmissionFailed implements plugin.OnSubmissionFailed.
func (m *MetricsExtension) OnSubmissionFailed(_ context.Context, _ *txbuild.Envelope, err error) error {
	m.SubmissionFailed.Inc()
	switch {
	case errors.Is(err, types.ErrSequenceConflict):
		m.SequenceConflicts.Inc()
	case errors.Is(err, types.ErrLedgerUnavailable):
		m.LedgerUnavailable.Inc()
	case errors.Is(err, types.ErrLedgerRejected):
		m.LedgerRejected.Inc()
	default:
		m.PreflightRejected.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Asset lifecycle hooks
// ──────────────────────────────────────────────────

// OnAssetIssued implements plugin.OnAssetIssued.
func (m *MetricsExtension) OnAssetIssued(_ context.Context, _ *asset.Record) error {
	m.AssetIssued.Inc()
	return nil
}

// OnAssetActivated implements plugin.OnAssetActivated.
func (m *MetricsExtension) OnAssetActivated(_ context.Context, _ *asset.Record) error {
	m.AssetActivated.Inc()
	return nil
}

// OnRedeemed implements plugin.OnRedeemed.
func (m *MetricsExtension) OnRedeemed(_ context.Context, _ *asset.Record, _ string) error {
	m.Redemptions.Inc()
	return nil
}

// OnClawedBack implements plugin.OnClawedBack.
func (m *MetricsExtension) OnClawedBack(_ context.Context, _ *asset.Record) error {
	m.Clawbacks.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated implements plugin.OnSubscriptionActivated.
func (m *MetricsExtension) OnSubscriptionActivated(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionActivated.Inc()
	return nil
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (m *MetricsExtension) OnSubscriptionExpired(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionExpired.Inc()
	return nil
}

// OnVanityExpired implements plugin.OnVanityExpired.
func (m *MetricsExtension) OnVanityExpired(_ context.Context, _ *subscription.Vanity) error {
	m.VanityExpired.Inc()
	return nil
}
