package taxlot

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompute(t *testing.T) {
	txs := []Transaction{
		NewBuy("b1", "AAPL", day("2024-01-01"), Q(100), USD(150)),
		NewBuy("m1", "MSFT", day("2024-01-02"), Q(10), USD(300)),
		NewSell("s1", "AAPL", day("2024-06-01"), Q(100), USD(100)),
		NewDividend("m2", "MSFT", day("2024-06-10"), USD(7.5)),
		NewBuy("b2", "AAPL", day("2024-06-15"), Q(100), USD(110)),
		NewSell("m3", "MSFT", day("2025-02-01"), Q(4), USD(350)),
	}
	book, err := Compute(txs, FIFO, nil)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if diff := cmp.Diff([]string{"AAPL", "MSFT"}, book.Tickers()); diff != "" {
		t.Errorf("Tickers() mismatch (-want +got):\n%s", diff)
	}
	if got := book.Position("AAPL"); !got.Equal(Q(100)) {
		t.Errorf("Position(AAPL) = %v, want 100", got)
	}
	if got := book.Position("MSFT"); !got.Equal(Q(6)) {
		t.Errorf("Position(MSFT) = %v, want 6", got)
	}
	if got := len(book.AllSales()); got != 2 {
		t.Errorf("len(AllSales()) = %d, want 2", got)
	}
	if got := len(book.WashSales()); got != 1 {
		t.Errorf("len(WashSales()) = %d, want 1", got)
	}
	if diff := cmp.Diff([]int{2024, 2025}, book.Years()); diff != "" {
		t.Errorf("Years() mismatch (-want +got):\n%s", diff)
	}

	r := book.Report(2024)
	if r.Method != FIFO {
		t.Errorf("Report().Method = %v, want %v", r.Method, FIFO)
	}
	if want := USD(-5000); !r.ShortTermGain.Equal(want) {
		t.Errorf("Report(2024).ShortTermGain = %v, want %v", r.ShortTermGain, want)
	}
	if want := USD(7.5); !r.DividendIncome.Equal(want) {
		t.Errorf("Report(2024).DividendIncome = %v, want %v", r.DividendIncome, want)
	}
	if want := USD(200); !book.Report(2025).LongTermGain.Equal(want) {
		t.Errorf("Report(2025).LongTermGain = %v, want %v", book.Report(2025).LongTermGain, want)
	}
}

func TestCompute_MatchesReplay(t *testing.T) {
	txs := []Transaction{
		NewBuy("a1", "AAPL", day("2024-01-01"), Q(10), USD(100)),
		NewBuy("g1", "GOOG", day("2024-01-01"), Q(10), USD(100)),
		NewBuy("a2", "AAPL", day("2024-01-02"), Q(10), USD(110)),
		NewSell("g2", "GOOG", day("2024-01-03"), Q(3), USD(105)),
		NewSell("a3", "AAPL", day("2024-01-03"), Q(13), USD(120)),
	}
	book, err := Compute(txs, LIFO, nil)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	for _, ticker := range book.Tickers() {
		open, sales, err := Replay(ticker, ByTicker(txs, ticker), LIFO, nil)
		if err != nil {
			t.Fatalf("Replay(%s) error = %v", ticker, err)
		}
		if diff := cmp.Diff(open, book.Lots(ticker), cmpOpts); diff != "" {
			t.Errorf("Lots(%s) mismatch (-replay +book):\n%s", ticker, diff)
		}
		if diff := cmp.Diff(sales, book.Sales(ticker), cmpOpts); diff != "" {
			t.Errorf("Sales(%s) mismatch (-replay +book):\n%s", ticker, diff)
		}
	}
}

func TestCompute_Errors(t *testing.T) {
	tests := []struct {
		name string
		txs  []Transaction
		want error
	}{
		{
			name: "oversold ticker",
			txs: []Transaction{
				NewBuy("a1", "AAPL", day("2024-01-01"), Q(10), USD(100)),
				NewBuy("g1", "GOOG", day("2024-01-01"), Q(10), USD(100)),
				NewSell("g2", "GOOG", day("2024-01-03"), Q(11), USD(105)),
			},
			want: ErrInsufficientLots,
		},
		{
			name: "duplicate id across tickers",
			txs: []Transaction{
				NewBuy("x", "AAPL", day("2024-01-01"), Q(10), USD(100)),
				NewBuy("x", "GOOG", day("2024-01-01"), Q(10), USD(100)),
			},
			want: ErrMalformedTransaction,
		},
		{
			name: "two currencies",
			txs: []Transaction{
				NewBuy("a1", "AAPL", day("2024-01-01"), Q(10), USD(100)),
				NewBuy("s1", "SAP", day("2024-01-01"), Q(10), M(100, "EUR")),
			},
			want: ErrMalformedTransaction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.txs, FIFO, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compute() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := Compute(tests[0].txs, FIFO, nil)
	if err == nil || !strings.Contains(err.Error(), "GOOG") {
		t.Errorf("Compute() error = %v, want it to name GOOG", err)
	}
}
