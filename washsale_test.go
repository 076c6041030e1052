package taxlot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetectWashSales(t *testing.T) {
	txs := washScenario("2024-06-15")
	_, sales, err := Replay("AAPL", txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if want := USD(-5000); !sales[0].RealizedGain.Equal(want) {
		t.Fatalf("RealizedGain = %v, want %v", sales[0].RealizedGain, want)
	}

	got := DetectWashSales("AAPL", sales, txs)
	want := []WashSaleFlag{{
		SaleID:         "s1",
		Ticker:         "AAPL",
		SaleDate:       day("2024-06-01"),
		Loss:           USD(5000),
		PurchaseID:     "b2",
		PurchaseDate:   day("2024-06-15"),
		PurchaseShares: Q(100),
		PurchasePrice:  USD(110),
		DisallowedLoss: USD(5000),
	}}
	if diff := cmp.Diff(want, got, cmpOpts); diff != "" {
		t.Errorf("DetectWashSales() mismatch (-want +got):\n%s", diff)
	}
	if !sales[0].RealizedGain.Equal(USD(-5000)) {
		t.Errorf("DetectWashSales() modified the sale: %v", sales[0].RealizedGain)
	}
}

func TestDetectWashSales_OutsideWindow(t *testing.T) {
	txs := washScenario("2024-08-01")
	_, sales, err := Replay("AAPL", txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if got := DetectWashSales("AAPL", sales, txs); len(got) != 0 {
		t.Errorf("DetectWashSales() = %v, want no flag", got)
	}
}

func TestDetectWashSales_ReplacementValueBound(t *testing.T) {
	txs := []Transaction{
		NewBuy("b1", "AAPL", day("2024-01-01"), Q(100), USD(150)),
		NewBuy("b2", "AAPL", day("2024-05-20"), Q(10), USD(90)),
		NewSell("s1", "AAPL", day("2024-06-01"), Q(100), USD(100)),
		NewBuy("b3", "AAPL", day("2024-07-01"), Q(1), USD(95)),
		NewBuy("b4", "AAPL", day("2024-07-02"), Q(1), USD(95)),
	}
	_, sales, err := Replay("AAPL", txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	got := DetectWashSales("AAPL", sales, txs)
	// b2 is 12 days before, b3 30 days after, b4 31 days after.
	if len(got) != 2 {
		t.Fatalf("DetectWashSales() = %d flags, want 2: %v", len(got), got)
	}
	if got[0].PurchaseID != "b2" || !got[0].DisallowedLoss.Equal(USD(900)) {
		t.Errorf("flag[0] = %s disallowing %v, want b2 disallowing 900", got[0].PurchaseID, got[0].DisallowedLoss)
	}
	if got[1].PurchaseID != "b3" || !got[1].DisallowedLoss.Equal(USD(95)) {
		t.Errorf("flag[1] = %s disallowing %v, want b3 disallowing 95", got[1].PurchaseID, got[1].DisallowedLoss)
	}
	if d := got[0].DaysFromSale(); d != -12 {
		t.Errorf("DaysFromSale() = %d, want -12", d)
	}
}

func TestDetectWashSales_SoldLotIsNotReplacement(t *testing.T) {
	txs := []Transaction{
		NewBuy("b1", "AAPL", day("2024-05-20"), Q(100), USD(150)),
		NewSell("s1", "AAPL", day("2024-06-01"), Q(100), USD(100)),
	}
	_, sales, err := Replay("AAPL", txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if !sales[0].IsLoss() {
		t.Fatalf("RealizedGain = %v, want a loss", sales[0].RealizedGain)
	}
	if got := DetectWashSales("AAPL", sales, txs); len(got) != 0 {
		t.Errorf("DetectWashSales() = %v, want no flag", got)
	}

	// s1 only takes from b1, so b2 inside the window still counts.
	txs = []Transaction{
		NewBuy("b1", "AAPL", day("2024-05-20"), Q(100), USD(150)),
		NewBuy("b2", "AAPL", day("2024-05-25"), Q(10), USD(140)),
		NewSell("s1", "AAPL", day("2024-06-01"), Q(50), USD(100)),
	}
	_, sales, err = Replay("AAPL", txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	got := DetectWashSales("AAPL", sales, txs)
	if len(got) != 1 || got[0].PurchaseID != "b2" {
		t.Errorf("DetectWashSales() = %v, want one flag for b2", got)
	}
}

func TestDetectWashSales_GainsAndOtherKinds(t *testing.T) {
	txs := []Transaction{
		NewBuy("b1", "AAPL", day("2024-01-01"), Q(10), USD(100)),
		NewSell("s1", "AAPL", day("2024-06-01"), Q(5), USD(120)),
		NewRights("r1", "AAPL", day("2024-06-02"), Q(5), USD(50)),
		NewSell("s2", "AAPL", day("2024-06-03"), Q(1), USD(90)),
	}
	_, sales, err := Replay("AAPL", txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	// s1 is a gain, s2 a loss with only a rights issue in its window.
	if got := DetectWashSales("AAPL", sales, txs); len(got) != 0 {
		t.Errorf("DetectWashSales() = %v, want no flag", got)
	}
}

func TestInWashWindow(t *testing.T) {
	sold := day("2024-03-01")
	tests := []struct {
		purchased string
		want      bool
	}{
		{"2024-01-30", false},
		{"2024-01-31", true},
		{"2024-02-29", true},
		{"2024-03-01", false},
		{"2024-03-02", true},
		{"2024-03-31", true},
		{"2024-04-01", false},
	}
	for _, tt := range tests {
		if got := InWashWindow(sold, day(tt.purchased)); got != tt.want {
			t.Errorf("InWashWindow(%v, %v) = %v, want %v", sold, tt.purchased, got, tt.want)
		}
	}
}
