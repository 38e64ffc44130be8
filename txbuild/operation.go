package txbuild

import (
	"fmt"

	stellarprice "github.com/stellar/go/price"
	"github.com/stellar/go/txnbuild"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/types"
)

// Operation is one step of an envelope. The set of variants is closed.
//
// Source returns the account the operation acts on, or "" when it runs as
// the transaction source.
type Operation interface {
	Source() string
	Name() string
	build() (txnbuild.Operation, error)
}

// Payment moves Amount of Asset from From to To.
type Payment struct {
	From   string
	To     string
	Asset  asset.Asset
	Amount types.Money
}

// ChangeTrust opens a trustline on Account. A zero Limit means the maximum.
type ChangeTrust struct {
	Account string
	Asset   asset.Asset
	Limit   types.Money
}

// CreateAccount funds a new account from From.
type CreateAccount struct {
	From            string
	Destination     string
	StartingBalance types.Money
}

// SetOptions configures an issuer account.
type SetOptions struct {
	Account        string
	HomeDomain     string
	EnableClawback bool
	LockMaster     bool
}

// ManageData writes a data entry on Account.
type ManageData struct {
	Account string
	Key     string
	Value   []byte
}

// ManageOffer places or updates a sell offer on the ledger DEX.
type ManageOffer struct {
	Seller  string
	Selling asset.Asset
	Buying  asset.Asset
	Amount  types.Money
	Price   string
	OfferID int64
}

// ClaimClaimableBalance claims a deposit for Claimant.
type ClaimClaimableBalance struct {
	Claimant  string
	BalanceID string
}

// ClawbackClaimableBalance reclaims an unclaimed deposit of an issuer's asset.
type ClawbackClaimableBalance struct {
	Issuer    string
	BalanceID string
}

// Clawback reclaims Amount of Asset from a holder.
type Clawback struct {
	Issuer string
	From   string
	Asset  asset.Asset
	Amount types.Money
}

// CreateClaimableBalance deposits Amount for Claimant to claim later.
type CreateClaimableBalance struct {
	From     string
	Claimant string
	Asset    asset.Asset
	Amount   types.Money
}

func (o Payment) Source() string                  { return o.From }
func (o ChangeTrust) Source() string              { return o.Account }
func (o CreateAccount) Source() string            { return o.From }
func (o SetOptions) Source() string               { return o.Account }
func (o ManageData) Source() string               { return o.Account }
func (o ManageOffer) Source() string              { return o.Seller }
func (o ClaimClaimableBalance) Source() string    { return o.Claimant }
func (o ClawbackClaimableBalance) Source() string { return o.Issuer }
func (o Clawback) Source() string                 { return o.Issuer }
func (o CreateClaimableBalance) Source() string   { return o.From }

func (Payment) Name() string                  { return "payment" }
func (ChangeTrust) Name() string              { return "change_trust" }
func (CreateAccount) Name() string            { return "create_account" }
func (SetOptions) Name() string               { return "set_options" }
func (ManageData) Name() string               { return "manage_data" }
func (ManageOffer) Name() string              { return "manage_offer" }
func (ClaimClaimableBalance) Name() string    { return "claim_claimable_balance" }
func (ClawbackClaimableBalance) Name() string { return "clawback_claimable_balance" }
func (Clawback) Name() string                 { return "clawback" }
func (CreateClaimableBalance) Name() string   { return "create_claimable_balance" }

func (o Payment) build() (txnbuild.Operation, error) {
	return &txnbuild.Payment{
		Destination:   o.To,
		Amount:        o.Amount.String(),
		Asset:         o.Asset.ToTxnbuild(),
		SourceAccount: o.From,
	}, nil
}

func (o ChangeTrust) build() (txnbuild.Operation, error) {
	line, err := o.Asset.ToChangeTrust()
	if err != nil {
		return nil, err
	}
	limit := txnbuild.MaxTrustlineLimit
	if !o.Limit.IsZero() {
		limit = o.Limit.String()
	}
	return &txnbuild.ChangeTrust{Line: line, Limit: limit, SourceAccount: o.Account}, nil
}

func (o CreateAccount) build() (txnbuild.Operation, error) {
	return &txnbuild.CreateAccount{
		Destination:   o.Destination,
		Amount:        o.StartingBalance.String(),
		SourceAccount: o.From,
	}, nil
}

func (o SetOptions) build() (txnbuild.Operation, error) {
	op := &txnbuild.SetOptions{SourceAccount: o.Account}
	if o.HomeDomain != "" {
		op.HomeDomain = txnbuild.NewHomeDomain(o.HomeDomain)
	}
	if o.EnableClawback {
		op.SetFlags = []txnbuild.AccountFlag{txnbuild.AuthRevocable, txnbuild.AuthClawbackEnabled}
	}
	if o.LockMaster {
		op.MasterWeight = txnbuild.NewThreshold(0)
	}
	return op, nil
}

func (o ManageData) build() (txnbuild.Operation, error) {
	return &txnbuild.ManageData{Name: o.Key, Value: o.Value, SourceAccount: o.Account}, nil
}

func (o ManageOffer) build() (txnbuild.Operation, error) {
	p, err := stellarprice.Parse(o.Price)
	if err != nil {
		return nil, types.ValidationError{Field: "price", Message: fmt.Sprintf("invalid offer price %q", o.Price)}
	}
	return &txnbuild.ManageSellOffer{
		Selling:       o.Selling.ToTxnbuild(),
		Buying:        o.Buying.ToTxnbuild(),
		Amount:        o.Amount.String(),
		Price:         p,
		OfferID:       o.OfferID,
		SourceAccount: o.Seller,
	}, nil
}

func (o ClaimClaimableBalance) build() (txnbuild.Operation, error) {
	return &txnbuild.ClaimClaimableBalance{BalanceID: o.BalanceID, SourceAccount: o.Claimant}, nil
}

func (o ClawbackClaimableBalance) build() (txnbuild.Operation, error) {
	return &txnbuild.ClawbackClaimableBalance{BalanceID: o.BalanceID, SourceAccount: o.Issuer}, nil
}

func (o Clawback) build() (txnbuild.Operation, error) {
	return &txnbuild.Clawback{
		From:          o.From,
		Amount:        o.Amount.String(),
		Asset:         o.Asset.ToTxnbuild(),
		SourceAccount: o.Issuer,
	}, nil
}

func (o CreateClaimableBalance) build() (txnbuild.Operation, error) {
	return &txnbuild.CreateClaimableBalance{
		Amount:        o.Amount.String(),
		Asset:         o.Asset.ToTxnbuild(),
		Destinations:  []txnbuild.Claimant{txnbuild.NewClaimant(o.Claimant, nil)},
		SourceAccount: o.From,
	}, nil
}
