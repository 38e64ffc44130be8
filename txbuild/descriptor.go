package txbuild

import (
	"time"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

// Kind names the flow an envelope implements.
type Kind string

const (
	KindIssue     Kind = "issue"
	KindBuy       Kind = "buy"
	KindGift      Kind = "gift"
	KindSubscribe Kind = "subscribe"
	KindRedeem    Kind = "redeem"
	KindClawback  Kind = "clawback"
	KindTrustline Kind = "trustline"
	KindClaim     Kind = "claim"
	KindOffer     Kind = "offer"
)

// Descriptor describes one flow to build. Amounts are decimal strings with
// at most 7 fractional digits.
type Descriptor interface {
	Kind() Kind
}

// IssueAsset creates a creator asset in a single envelope. A fresh issuer
// keypair is generated for every build; the storage keypair is generated
// when Storage is empty.
type IssueAsset struct {
	CreatorID      string `validate:"required"`
	Code           string `validate:"required,asset_code"`
	Limit          string `validate:"required,amount7"`
	HomeDomain     string `validate:"required,max=32"`
	ContentPointer string `validate:"required,max=64"`
	Storage        string `validate:"stellar_address"`
	// Requester pays the mint fee in platform tokens when set.
	Requester  string `validate:"stellar_address"`
	Clawback   bool
	LockIssuer bool
	Timeout    time.Duration
}

// BuyAsset sells one unit (or Amount) of a creator asset.
type BuyAsset struct {
	Buyer   string      `validate:"required,stellar_address"`
	Seller  string      `validate:"required,stellar_address"`
	Storage string      `validate:"required,stellar_address"`
	Asset   asset.Asset `validate:"required"`
	Price   string      `validate:"required,amount7"`
	PayIn   types.Unit  `validate:"omitempty,oneof=platform native"`
	Amount  string      `validate:"amount7"`
	Timeout time.Duration
}

// GiftAsset sends a creator asset from storage without charging anyone.
type GiftAsset struct {
	Storage   string      `validate:"required,stellar_address"`
	Recipient string      `validate:"required,stellar_address"`
	Asset     asset.Asset `validate:"required"`
	Amount    string      `validate:"amount7"`
	Timeout   time.Duration
}

// Subscribe unlocks a creator tier for a fan.
type Subscribe struct {
	Subscriber string      `validate:"required,stellar_address"`
	Creator    string      `validate:"required,stellar_address"`
	Storage    string      `validate:"required,stellar_address"`
	Asset      asset.Asset `validate:"required"`
	Price      string      `validate:"required,amount7"`
	PayIn      types.Unit  `validate:"omitempty,oneof=platform native"`
	Amount     string      `validate:"amount7"`
	Timeout    time.Duration
}

// Redeem delivers a unit of asset from storage to a user, at the
// platform's cost.
type Redeem struct {
	User    string      `validate:"required,stellar_address"`
	Storage string      `validate:"required,stellar_address"`
	Asset   asset.Asset `validate:"required"`
	Amount  string      `validate:"amount7"`
	Timeout time.Duration
}

// ClawbackAsset reclaims a holder's balance or an unclaimed deposit.
// Authorized must reflect the flag recorded at issuance.
type ClawbackAsset struct {
	Asset      asset.Asset `validate:"required"`
	Authorized bool
	From       string `validate:"stellar_address"`
	Amount     string `validate:"amount7"`
	BalanceID  string
	Timeout    time.Duration
}

// TrustlineOnly opens a trustline, charging the reserve to Account unless
// the account is the platform.
type TrustlineOnly struct {
	Account string      `validate:"required,stellar_address"`
	Asset   asset.Asset `validate:"required"`
	PayIn   types.Unit  `validate:"omitempty,oneof=platform native"`
	Timeout time.Duration
}

// ClaimBalance claims a deposit, opening the trustline first if needed.
type ClaimBalance struct {
	Claimant  string      `validate:"required,stellar_address"`
	BalanceID string      `validate:"required"`
	Asset     asset.Asset `validate:"required"`
	Timeout   time.Duration
}

// PlaceOffer lists Amount of Selling on the DEX at Price units of Buying.
type PlaceOffer struct {
	Seller  string `validate:"required,stellar_address"`
	Selling asset.Asset
	Buying  asset.Asset
	Amount  string `validate:"required,amount7"`
	Price   string `validate:"required"`
	OfferID int64
	Timeout time.Duration
}

func (IssueAsset) Kind() Kind    { return KindIssue }
func (BuyAsset) Kind() Kind      { return KindBuy }
func (GiftAsset) Kind() Kind     { return KindGift }
func (Subscribe) Kind() Kind     { return KindSubscribe }
func (Redeem) Kind() Kind        { return KindRedeem }
func (ClawbackAsset) Kind() Kind { return KindClawback }
func (TrustlineOnly) Kind() Kind { return KindTrustline }
func (ClaimBalance) Kind() Kind  { return KindClaim }
func (PlaceOffer) Kind() Kind    { return KindOffer }
