package txbuild

import (
	"fmt"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/fee"
	"github.com/xraph/mint/types"
)

// Generated holds keypairs created during a build. They exist only in
// memory until the caller seals them into custody.
type Generated struct {
	Issuer  *keypair.Full
	Storage *keypair.Full
}

// Envelope is a built transaction plus the metadata needed to sign,
// submit and account for it.
type Envelope struct {
	Kind       Kind
	Source     string
	Sequence   int64
	Fee        types.Money
	Operations []Operation
	Timeout    time.Duration // zero means no expiry

	Asset       asset.Asset
	UserAccount string
	Signers     []string
	Generated   Generated
	Quote       fee.Quote

	tx *txnbuild.Transaction
}

// Tx returns the underlying transaction, including any signatures.
func (e *Envelope) Tx() *txnbuild.Transaction { return e.tx }

// XDR encodes the transaction for submission or hand-off to a wallet.
func (e *Envelope) XDR() (string, error) {
	if e.tx == nil {
		return "", fmt.Errorf("txbuild: envelope has no transaction")
	}
	return e.tx.Base64()
}

// Hash returns the hex transaction hash for the network.
func (e *Envelope) Hash(passphrase string) (string, error) {
	if e.tx == nil {
		return "", fmt.Errorf("txbuild: envelope has no transaction")
	}
	return e.tx.HashHex(passphrase)
}

// RawHash returns the 32-byte transaction hash signatures cover.
func (e *Envelope) RawHash(passphrase string) ([32]byte, error) {
	if e.tx == nil {
		return [32]byte{}, fmt.Errorf("txbuild: envelope has no transaction")
	}
	return e.tx.Hash(passphrase)
}

// WithTx returns a copy of e carrying tx. Signing produces a new
// transaction value, so envelopes are never mutated in place.
func (e *Envelope) WithTx(tx *txnbuild.Transaction) *Envelope {
	cp := *e
	cp.tx = tx
	return &cp
}

// RequiresSigner reports whether address must sign.
func (e *Envelope) RequiresSigner(address string) bool {
	for _, s := range e.Signers {
		if s == address {
			return true
		}
	}
	return false
}

// FromXDR wraps an externally signed transaction so it can be submitted.
// Only the source and signers are recovered.
func FromXDR(b64 string) (*Envelope, error) {
	generic, err := txnbuild.TransactionFromXDR(b64)
	if err != nil {
		return nil, types.ValidationError{Field: "xdr", Message: err.Error()}
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, types.ValidationError{Field: "xdr", Message: "fee bump transactions are not supported"}
	}
	src := tx.SourceAccount()
	env := &Envelope{
		Source:   src.AccountID,
		Sequence: src.Sequence,
		Fee:      types.Native(tx.BaseFee() * int64(len(tx.Operations()))),
		tx:       tx,
	}
	env.Signers = []string{src.AccountID}
	for _, op := range tx.Operations() {
		if s := op.GetSourceAccount(); s != "" && !env.RequiresSigner(s) {
			env.Signers = append(env.Signers, s)
		}
	}
	return env, nil
}

// assemble converts ops into a transaction on top of source.
func assemble(sourceID string, seq int64, ops []Operation, baseFee int64, timeout time.Duration) (*txnbuild.Transaction, error) {
	converted := make([]txnbuild.Operation, 0, len(ops))
	for i, op := range ops {
		tbo, err := op.build()
		if err != nil {
			return nil, fmt.Errorf("txbuild: op %d %s: %w", i, op.Name(), err)
		}
		converted = append(converted, tbo)
	}

	bounds := txnbuild.NewInfiniteTimeout()
	if timeout > 0 {
		bounds = txnbuild.NewTimeout(int64(timeout / time.Second))
	}

	acct := txnbuild.NewSimpleAccount(sourceID, seq)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &acct,
		IncrementSequenceNum: true,
		Operations:           converted,
		BaseFee:              baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: bounds},
	})
	if err != nil {
		return nil, fmt.Errorf("txbuild: assemble: %w", err)
	}
	return tx, nil
}

// signers returns the tx source followed by each distinct op source.
func signers(source string, ops []Operation) []string {
	out := []string{source}
	seen := map[string]bool{source: true}
	for _, op := range ops {
		s := op.Source()
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
