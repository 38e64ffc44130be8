// Package audithook bridges Mint lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/plugin"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/txbuild"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnEnvelopeBuilt         = (*Extension)(nil)
	_ plugin.OnEnvelopeSubmitted     = (*Extension)(nil)
	_ plugin.OnSubmissionFailed      = (*Extension)(nil)
	_ plugin.OnAssetIssued           = (*Extension)(nil)
	_ plugin.OnAssetActivated        = (*Extension)(nil)
	_ plugin.OnRedeemed              = (*Extension)(nil)
	_ plugin.OnClawedBack            = (*Extension)(nil)
	_ plugin.OnSubscriptionActivated = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired   = (*Extension)(nil)
	_ plugin.OnVanityExpired         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly. Callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Mint lifecycle events to an audit trail backend.
type Extension struct {
	recorder   Recorder
	enabled    map[string]bool // nil = all enabled
	categories map[string]bool // nil = all categories
	failures   bool
	logger     *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Envelope hooks
// ──────────────────────────────────────────────────

// OnEnvelopeBuilt implements plugin.OnEnvelopeBuilt.
func (e *Extension) OnEnvelopeBuilt(ctx context.Context, env *txbuild.Envelope) error {
	return e.record(ctx, ActionEnvelopeBuilt, SeverityInfo, OutcomeSuccess,
		ResourceEnvelope, env.Source, CategoryTransaction, nil,
		"kind", string(env.Kind),
		"sequence", env.Sequence,
		"operations", len(env.Operations),
		"fee", env.Fee.Amount,
	)
}

// OnEnvelopeSubmitted implements plugin.OnEnvelopeSubmitted.
func (e *Extension) OnEnvelopeSubmitted(ctx context.Context, env *txbuild.Envelope, hash string, ledger int32, elapsed time.Duration) error {
	return e.record(ctx, ActionEnvelopeSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceEnvelope, hash, CategoryTransaction, nil,
		"kind", string(env.Kind),
		"source", env.Source,
		"ledger", ledger,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnSubmissionFailed implements plugin.OnSubmissionFailed.
func (e *Extension) OnSubmissionFailed(ctx context.Context, env *txbuild.Envelope, err error) error {
	return e.record(ctx, ActionSubmissionFailed, SeverityError, OutcomeFailure,
		ResourceEnvelope, env.Source, CategoryTransaction, err,
		"kind", string(env.Kind),
		"sequence", env.Sequence,
	)
}

// ──────────────────────────────────────────────────
// Asset lifecycle hooks
// ──────────────────────────────────────────────────

// OnAssetIssued implements plugin.OnAssetIssued.
func (e *Extension) OnAssetIssued(ctx context.Context, rec *asset.Record) error {
	return e.record(ctx, ActionAssetIssued, SeverityInfo, OutcomeSuccess,
		ResourceAsset, rec.ID.String(), CategoryIssuance, nil,
		"code", rec.Code,
		"issuer", rec.Issuer,
		"creator_id", rec.CreatorID,
	)
}

// OnAssetActivated implements plugin.OnAssetActivated.
func (e *Extension) OnAssetActivated(ctx context.Context, rec *asset.Record) error {
	return e.record(ctx, ActionAssetActivated, SeverityInfo, OutcomeSuccess,
		ResourceAsset, rec.ID.String(), CategoryIssuance, nil,
		"code", rec.Code,
		"issuer", rec.Issuer,
		"issuer_locked", rec.IssuerLocked,
		"tx_hash", rec.IssuanceHash,
	)
}

// OnRedeemed implements plugin.OnRedeemed.
func (e *Extension) OnRedeemed(ctx context.Context, rec *asset.Record, user string) error {
	return e.record(ctx, ActionAssetRedeemed, SeverityInfo, OutcomeSuccess,
		ResourceAsset, rec.ID.String(), CategoryCustody, nil,
		"code", rec.Code,
		"user", user,
	)
}

// OnClawedBack implements plugin.OnClawedBack.
func (e *Extension) OnClawedBack(ctx context.Context, rec *asset.Record) error {
	return e.record(ctx, ActionAssetClawedBack, SeverityWarning, OutcomeSuccess,
		ResourceAsset, rec.ID.String(), CategoryCustody, nil,
		"code", rec.Code,
		"issuer", rec.Issuer,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated implements plugin.OnSubscriptionActivated.
func (e *Extension) OnSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionActivated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"fan", sub.FanAccount,
		"creator_id", sub.CreatorID,
		"tier", sub.Tier,
		"period_end", sub.CurrentPeriodEnd,
	)
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionExpired, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"fan", sub.FanAccount,
		"creator_id", sub.CreatorID,
	)
}

// OnVanityExpired implements plugin.OnVanityExpired.
func (e *Extension) OnVanityExpired(ctx context.Context, v *subscription.Vanity) error {
	return e.record(ctx, ActionVanityExpired, SeverityInfo, OutcomeSuccess,
		ResourceVanity, v.ID.String(), CategorySubscription, nil,
		"slug", v.Slug,
		"owner_id", v.OwnerID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}
	if e.categories != nil && !e.categories[category] {
		return nil
	}
	if e.failures && outcome != OutcomeFailure {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
