package audithook

// Action constants for audit events.
const (
	// Envelope actions
	ActionEnvelopeBuilt     = "envelope.built"
	ActionEnvelopeSubmitted = "envelope.submitted"
	ActionSubmissionFailed  = "submission.failed"

	// Asset actions
	ActionAssetIssued     = "asset.issued"
	ActionAssetActivated  = "asset.activated"
	ActionAssetRedeemed   = "asset.redeemed"
	ActionAssetClawedBack = "asset.clawed_back"

	// Subscription actions
	ActionSubscriptionActivated = "subscription.activated"
	ActionSubscriptionExpired   = "subscription.expired"
	ActionVanityExpired         = "vanity.expired"
)

// Resource constants for audit events.
const (
	ResourceEnvelope     = "envelope"
	ResourceAsset        = "asset"
	ResourceSubscription = "subscription"
	ResourceVanity       = "vanity"
)

// Category constants for audit events.
const (
	CategoryTransaction  = "transaction"
	CategoryIssuance     = "issuance"
	CategoryCustody      = "custody"
	CategorySubscription = "subscription"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
