// Package asset defines ledger assets and the records Mint keeps for the
// creator assets it issues.
package asset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"

	"github.com/xraph/mint/types"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,12}$`)

// Asset is either the native currency (zero value) or a credit asset
// identified by code and issuer. Two assets are equal iff code and issuer
// match exactly.
type Asset struct {
	Code   string `json:"code,omitempty"`
	Issuer string `json:"issuer,omitempty"`
}

// Native is the ledger's native currency.
var Native = Asset{}

// New validates and returns a credit asset.
func New(code, issuer string) (Asset, error) {
	if !ValidCode(code) {
		return Asset{}, types.ValidationError{Field: "asset.code", Message: fmt.Sprintf("invalid asset code %q", code)}
	}
	if !strkey.IsValidEd25519PublicKey(issuer) {
		return Asset{}, types.ValidationError{Field: "asset.issuer", Message: fmt.Sprintf("invalid issuer %q", issuer)}
	}
	return Asset{Code: code, Issuer: issuer}, nil
}

// MustNew is like New but panics on error.
func MustNew(code, issuer string) Asset {
	a, err := New(code, issuer)
	if err != nil {
		panic(err)
	}
	return a
}

// Parse reads the canonical form produced by String: "native" or "CODE:ISSUER".
func Parse(s string) (Asset, error) {
	if s == "native" || s == "" {
		return Native, nil
	}
	code, issuer, ok := strings.Cut(s, ":")
	if !ok {
		return Asset{}, types.ValidationError{Field: "asset", Message: fmt.Sprintf("malformed asset %q", s)}
	}
	return New(code, issuer)
}

// ValidCode reports whether code is a valid 1-12 character alphanumeric asset code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// IsNative reports whether a is the native currency.
func (a Asset) IsNative() bool { return a.Code == "" && a.Issuer == "" }

// Equal reports whether two assets have identical code and issuer.
func (a Asset) Equal(b Asset) bool { return a.Code == b.Code && a.Issuer == b.Issuer }

// String returns the canonical form, used as the balance key of account snapshots.
func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.Code + ":" + a.Issuer
}

// Unit returns the money unit for amounts of this asset.
func (a Asset) Unit() types.Unit {
	if a.IsNative() {
		return types.UnitNative
	}
	return types.Unit(a.String())
}

// Amount creates a Money value of this asset.
func (a Asset) Amount(stroops int64) types.Money {
	return types.Money{Amount: stroops, Unit: a.Unit()}
}

// ToTxnbuild converts to the transaction builder's asset type.
func (a Asset) ToTxnbuild() txnbuild.Asset {
	if a.IsNative() {
		return txnbuild.NativeAsset{}
	}
	return txnbuild.CreditAsset{Code: a.Code, Issuer: a.Issuer}
}

// ToChangeTrust converts to the asset type used by trustline operations.
func (a Asset) ToChangeTrust() (txnbuild.ChangeTrustAsset, error) {
	if a.IsNative() {
		return nil, types.ValidationError{Field: "asset", Message: "cannot trust the native asset"}
	}
	return txnbuild.CreditAsset{Code: a.Code, Issuer: a.Issuer}.ToChangeTrustAsset()
}

// FromHorizon maps a ledger API asset triple onto an Asset.
func FromHorizon(assetType, code, issuer string) Asset {
	if assetType == "native" {
		return Native
	}
	return Asset{Code: code, Issuer: issuer}
}
