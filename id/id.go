// Package id defines the TypeID identifiers of Mint records.
//
// An ID is "prefix_suffix" where the prefix names the record kind and the
// suffix is a UUIDv7, so IDs of one kind sort by creation time. Only the
// prefixes listed here are accepted by Parse.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix is the record kind encoded in an ID.
type Prefix string

const (
	PrefixAsset        Prefix = "ast" // creator asset
	PrefixKeypair      Prefix = "kp"  // custodied keypair
	PrefixSubscription Prefix = "sub" // fan subscription
	PrefixVanity       Prefix = "van" // vanity URL
	PrefixIntent       Prefix = "int" // envelope intent
)

var known = map[Prefix]bool{
	PrefixAsset:        true,
	PrefixKeypair:      true,
	PrefixSubscription: true,
	PrefixVanity:       true,
	PrefixIntent:       true,
}

// ID identifies a Mint record. The zero value is Nil and stores as NULL.
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the zero ID.
var Nil ID

// Aliases document which kind a field holds. They do not enforce it; the
// Parse* helpers do.
type (
	AssetID        = ID
	KeypairID      = ID
	SubscriptionID = ID
	VanityID       = ID
	IntentID       = ID
)

// New returns a fresh ID of the given kind. It panics on a prefix typeid
// rejects, which only a programming error can produce.
func New(p Prefix) ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", p, err))
	}
	return ID{tid: tid, set: true}
}

func NewAssetID() ID        { return New(PrefixAsset) }
func NewKeypairID() ID      { return New(PrefixKeypair) }
func NewSubscriptionID() ID { return New(PrefixSubscription) }
func NewVanityID() ID       { return New(PrefixVanity) }
func NewIntentID() ID       { return New(PrefixIntent) }

// Parse reads an ID of any Mint kind.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	if !known[Prefix(tid.Prefix())] {
		return Nil, fmt.Errorf("id: parse %q: unknown prefix %q", s, tid.Prefix())
	}
	return ID{tid: tid, set: true}, nil
}

func parseAs(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if v.Prefix() != want {
		return Nil, fmt.Errorf("id: %q is a %q id, want %q", s, v.Prefix(), want)
	}
	return v, nil
}

func ParseAssetID(s string) (ID, error)        { return parseAs(s, PrefixAsset) }
func ParseKeypairID(s string) (ID, error)      { return parseAs(s, PrefixKeypair) }
func ParseSubscriptionID(s string) (ID, error) { return parseAs(s, PrefixSubscription) }
func ParseVanityID(s string) (ID, error)       { return parseAs(s, PrefixVanity) }
func ParseIntentID(s string) (ID, error)       { return parseAs(s, PrefixIntent) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the kind of i, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.set }

// MarshalText implements encoding.TextMarshaler. Nil encodes as empty text.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	v, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Value implements driver.Valuer. Nil stores as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}
