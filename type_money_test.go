package taxlot

import (
	"encoding/json"
	"testing"
)

func TestMoney_Round(t *testing.T) {
	tests := []struct {
		in   Money
		want Money
	}{
		{USD(1.005), USD(1.01)},
		{USD(-1.005), USD(-1.01)},
		{USD(16.666666), USD(16.67)},
		{M(1234.5678, "JPY"), M(1235, "JPY")},
		{M(1.2345, "KWD"), M(1.235, "KWD")},
		{M(1.2345, "XYZ"), M(1.23, "XYZ")},
	}
	for _, tt := range tests {
		if got := tt.in.Round(); !got.Equal(tt.want) {
			t.Errorf("%v.Round() = %v, want %v", tt.in.Decimal(), got.Decimal(), tt.want.Decimal())
		}
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{USD(1234.5), "$1,234.50"},
		{M(3, "XYZ"), "3.00 XYZ"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := USD(0.001).SignedString(); got != "-" {
		t.Errorf("SignedString() of less than a cent = %q, want %q", got, "-")
	}
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(USD(12.345))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if want := `{"amount":12.345,"currency":"USD"}`; string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
	var got Money
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !got.Equal(USD(12.345)) {
		t.Errorf("json.Unmarshal() = %v, want %v", got, USD(12.345))
	}
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("USD + EUR did not panic")
		}
	}()
	USD(1).Add(M(1, "EUR"))
}

func TestAccountingMethod_Text(t *testing.T) {
	for _, m := range []AccountingMethod{FIFO, LIFO, SpecificLot, AverageCost} {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatalf("%v.MarshalText() error = %v", m, err)
		}
		var got AccountingMethod
		if err := got.UnmarshalText(text); err != nil || got != m {
			t.Errorf("UnmarshalText(%s) = %v, %v, want %v", text, got, err, m)
		}
	}
	if _, err := ParseAccountingMethod("hifo"); err == nil {
		t.Errorf("ParseAccountingMethod(hifo): want an error")
	}
}
