package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		amount  int64
		unit    Unit
		display string
	}{
		{"Native", Native(20_000_000), 20_000_000, UnitNative, "2.0000000"},
		{"Platform", Platform(5_000_000), 5_000_000, UnitPlatform, "0.5000000"},
		{"USD", USD(1), 1, UnitUSD, "0.0000001"},
		{"Zero native", Zero(UnitNative), 0, UnitNative, "0.0000000"},
		{"Negative", Native(-15_000_000), -15_000_000, UnitNative, "-1.5000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Unit != tt.unit {
				t.Errorf("Unit: got %s, want %s", tt.money.Unit, tt.unit)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"2", 20_000_000, false},
		{"0.5", 5_000_000, false},
		{"1000", 10_000_000_000, false},
		{"0.0000001", 1, false},
		{" 12.3456789 ", 123_456_789, false},
		{"1.00000000", 10_000_000, false},
		{"1.23456789", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"922337203685.4775808", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in, UnitNative)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.in, got)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Amount != tt.want {
				t.Errorf("got %d, want %d", got.Amount, tt.want)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return Native(100).Add(Native(200)) }, Native(300)},
		{"Subtract", func() Money { return Native(500).Subtract(Native(200)) }, Native(300)},
		{"Multiply", func() Money { return Native(100).Multiply(3) }, Native(300)},
		{"Negate", func() Money { return Native(100).Negate() }, Native(-100)},
		{"Relabel", func() Money { return Native(100).In(UnitPlatform) }, Platform(100)},
		{"Complex", func() Money {
			return Native(1000).Add(Native(500)).Multiply(2).Subtract(Native(1000))
		}, Native(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyUnitMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for unit mismatch")
		}
	}()

	_ = Native(100).Add(Platform(100))
}

func TestMoneyConvertRounding(t *testing.T) {
	// 2 native at 0.3 native per token is 6.666... tokens.
	rate := decimal.NewFromInt(1).Div(decimal.RequireFromString("0.3"))
	two := Native(2 * One)

	tests := []struct {
		name     string
		rounding Rounding
		want     int64
	}{
		{"ceil", RoundCeil, 66_666_667},
		{"floor", RoundFloor, 66_666_666},
		{"half up", RoundHalfUp, 66_666_667},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := two.Convert(rate, UnitPlatform, tt.rounding)
			if got.Amount != tt.want {
				t.Errorf("got %d, want %d", got.Amount, tt.want)
			}
			if got.Unit != UnitPlatform {
				t.Errorf("unit: got %s, want %s", got.Unit, UnitPlatform)
			}
		})
	}
}

func TestMoneyConvertExact(t *testing.T) {
	got := Native(20_000_000).Convert(decimal.NewFromInt(2), UnitPlatform, RoundCeil)
	if got.Amount != 40_000_000 {
		t.Errorf("got %d, want 40000000", got.Amount)
	}
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", Native(100), Native(100), false, false, true},
		{"Less", Native(50), Native(100), true, false, false},
		{"Greater", Native(200), Native(100), false, true, false},
		{"Zero equal", Native(0), Zero(UnitNative), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(Platform(25_000_000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"amount":25000000,"unit":"platform","display":"2.5000000"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(Platform(25_000_000)) {
		t.Errorf("got %v", back)
	}
}

func TestSum(t *testing.T) {
	got := Sum(UnitNative, Native(1), Native(2), Native(3))
	if !got.Equal(Native(6)) {
		t.Errorf("got %v, want 6 stroops", got)
	}
	if !Sum(UnitPlatform).Equal(Zero(UnitPlatform)) {
		t.Error("empty sum should be zero")
	}
}

func TestCheckedAdd(t *testing.T) {
	got, err := Native(math.MaxInt64 - 1).CheckedAdd(Native(1))
	if err != nil || got.Amount != math.MaxInt64 {
		t.Fatalf("got %v, %v; want max", got, err)
	}

	_, err = Native(math.MaxInt64).CheckedAdd(Native(1))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("overflow: got %v, want ErrValidation", err)
	}
	_, err = Native(math.MinInt64).CheckedAdd(Native(-1))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("underflow: got %v, want ErrValidation", err)
	}
}

func TestSumChecked(t *testing.T) {
	price := MustParseMoney("922337203685.4775807", UnitPlatform)
	if _, err := SumChecked(UnitPlatform, price, Platform(One)); !errors.Is(err, ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}

	got, err := SumChecked(UnitNative, Native(1), Native(2))
	if err != nil || !got.Equal(Native(3)) {
		t.Errorf("got %v, %v; want 3 stroops", got, err)
	}
}

func TestErrorTypes(t *testing.T) {
	var err error = InsufficientBalanceError{Account: "GA", Asset: "native", Need: Native(2), Have: Native(1)}
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Error("InsufficientBalanceError should match ErrInsufficientBalance")
	}

	err = LedgerRejectedError{ResultCode: "tx_failed", OperationCodes: []string{"op_underfunded"}}
	if !errors.Is(err, ErrLedgerRejected) {
		t.Error("LedgerRejectedError should match ErrLedgerRejected")
	}
	if err.Error() != "mint: ledger rejected transaction: tx_failed [op_underfunded]" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	var multi MultiError
	multi.Add(nil)
	multi.Add(ErrPriceLookupFailed)
	if !errors.Is(multi, ErrPriceLookupFailed) {
		t.Error("MultiError should unwrap to its members")
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := Native(123_456_789)
	for i := 0; i < b.N; i++ {
		_ = m.String()
	}
}

func BenchmarkParseMoney(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseMoney("12.3456789", UnitNative)
	}
}
