package asset

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/xraph/mint/types"
)

// ContentKey is the issuer data entry that points at the asset's content.
const ContentKey = "ipfshash"

// ValidateContentPointer checks that p is a CID short enough for a ledger
// data entry.
func ValidateContentPointer(p string) error {
	if len(p) > 64 {
		return types.ValidationError{Field: "content_pointer", Message: "longer than 64 bytes"}
	}
	if _, err := cid.Decode(p); err != nil {
		return types.ValidationError{Field: "content_pointer", Message: fmt.Sprintf("not a CID: %v", err)}
	}
	return nil
}

// ContentCID derives a CIDv1 (raw codec, sha2-256) for data.
func ContentCID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("asset: hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}
