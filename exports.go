package mint

import (
	"github.com/xraph/mint/lifecycle"
	"github.com/xraph/mint/signing"
	"github.com/xraph/mint/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Unit is re-exported from types package.
type Unit = types.Unit

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export units
const (
	UnitNative   = types.UnitNative
	UnitPlatform = types.UnitPlatform
	UnitUSD      = types.UnitUSD
)

// Re-export Money constructors
var (
	Native     = types.Native
	Platform   = types.Platform
	USD        = types.USD
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMoney = types.ParseMoney
)

// Re-export Entity constructor
var NewEntity = types.NewEntity

// Flow requests, re-exported from the lifecycle package.
type (
	IssueRequest     = lifecycle.IssueRequest
	BuyRequest       = lifecycle.BuyRequest
	GiftRequest      = lifecycle.GiftRequest
	SubscribeRequest = lifecycle.SubscribeRequest
	RedeemRequest    = lifecycle.RedeemRequest
	ClawbackRequest  = lifecycle.ClawbackRequest
)

// SignWith selects how the user account of an envelope is signed.
type SignWith = signing.SignWith

// Signing instructions, re-exported from the signing package.
type (
	Anonymous  = signing.Anonymous
	ByIdentity = signing.ByIdentity
	ByAdmin    = signing.ByAdmin
)
