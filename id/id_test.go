package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/mint/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"AssetID", id.NewAssetID, "ast_"},
		{"KeypairID", id.NewKeypairID, "kp_"},
		{"SubscriptionID", id.NewSubscriptionID, "sub_"},
		{"VanityID", id.NewVanityID, "van_"},
		{"IntentID", id.NewIntentID, "int_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixAsset)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixAsset {
		t.Errorf("expected prefix %q, got %q", id.PrefixAsset, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"AssetID", id.NewAssetID, id.ParseAssetID},
		{"KeypairID", id.NewKeypairID, id.ParseKeypairID},
		{"SubscriptionID", id.NewSubscriptionID, id.ParseSubscriptionID},
		{"VanityID", id.NewVanityID, id.ParseVanityID},
		{"IntentID", id.NewIntentID, id.ParseIntentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseAssetID rejects kp_", id.NewKeypairID().String(), id.ParseAssetID},
		{"ParseKeypairID rejects sub_", id.NewSubscriptionID().String(), id.ParseKeypairID},
		{"ParseSubscriptionID rejects van_", id.NewVanityID().String(), id.ParseSubscriptionID},
		{"ParseVanityID rejects int_", id.NewIntentID().String(), id.ParseVanityID},
		{"ParseIntentID rejects ast_", id.NewAssetID().String(), id.ParseIntentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseRejectsForeignPrefix(t *testing.T) {
	for _, in := range []string{
		"plan_01h2xcejqtf2nbrexx3vqjhp41",
		"01h2xcejqtf2nbrexx3vqjhp41",
		"ast_not-a-suffix",
	} {
		if _, err := id.Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestScanAcceptsBytes(t *testing.T) {
	original := id.NewVanityID()

	var scanned id.ID
	if err := scanned.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	if err := scanned.Scan(""); err != nil || !scanned.IsNil() {
		t.Errorf("Scan(\"\") = %v, nil=%v; want Nil", err, scanned.IsNil())
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewAssetID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewIntentID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}

	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewKeypairID()
	b := id.NewKeypairID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewKeypairID() calls returned the same ID: %q", a.String())
	}
}
