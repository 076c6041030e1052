package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/etnz/taxlot"
)

func day(s string) taxlot.Date { return taxlot.MustParse(s) }

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "taxlot.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Transactions(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if err := s.Append(ctx,
		taxlot.NewBuy("b1", "AAPL", day("2024-01-01"), taxlot.Q(100), taxlot.USD(150)),
		taxlot.NewBuy("m1", "MSFT", day("2024-01-05"), taxlot.Q(10), taxlot.USD(300)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	// an older MSFT date is fine once AAPL moved on: ordering is per ticker.
	if err := s.Append(ctx,
		taxlot.NewSell("s1", "AAPL", day("2024-06-01"), taxlot.Q(100), taxlot.USD(100)),
		taxlot.NewBuy("b2", "AAPL", day("2024-06-15"), taxlot.Q(100), taxlot.USD(110)),
		taxlot.NewDividend("m2", "MSFT", day("2024-03-01"), taxlot.USD(7.5)),
	); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	aapl, err := s.Transactions(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	var ids []string
	for _, tx := range aapl {
		ids = append(ids, tx.ID)
	}
	if want := []string{"b1", "s1", "b2"}; len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] || ids[2] != want[2] {
		t.Errorf("Transactions(AAPL) = %v, want %v", ids, want)
	}
	if !aapl[1].Price.Equal(taxlot.USD(100)) || !aapl[1].Shares.Equal(taxlot.Q(100)) {
		t.Errorf("Transactions(AAPL)[1] = %+v, want a sale of 100 at 100", aapl[1])
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len(All()) = %d, want 5", len(all))
	}
	book, err := taxlot.Compute(all, taxlot.FIFO, nil)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got := len(book.WashSales()); got != 1 {
		t.Errorf("len(WashSales()) = %d, want 1", got)
	}
}

func TestStore_AppendErrors(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if err := s.Append(ctx, taxlot.NewBuy("b1", "AAPL", day("2024-02-01"), taxlot.Q(1), taxlot.USD(1))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	tests := []struct {
		name string
		txs  []taxlot.Transaction
		want error
	}{
		{"duplicate id", []taxlot.Transaction{taxlot.NewSell("b1", "AAPL", day("2024-03-01"), taxlot.Q(1), taxlot.USD(1))}, taxlot.ErrMalformedTransaction},
		{"older than the log", []taxlot.Transaction{taxlot.NewSell("s1", "AAPL", day("2024-01-01"), taxlot.Q(1), taxlot.USD(1))}, taxlot.ErrInvalidDateOrdering},
		{"unordered batch", []taxlot.Transaction{
			taxlot.NewBuy("b2", "MSFT", day("2024-05-01"), taxlot.Q(1), taxlot.USD(1)),
			taxlot.NewBuy("b3", "MSFT", day("2024-04-01"), taxlot.Q(1), taxlot.USD(1)),
		}, taxlot.ErrInvalidDateOrdering},
		{"invalid", []taxlot.Transaction{taxlot.NewSplit("x1", "AAPL", day("2024-03-01"), "")}, taxlot.ErrMalformedTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Append(ctx, tt.txs...); !errors.Is(err, tt.want) {
				t.Errorf("Append() error = %v, want %v", err, tt.want)
			}
		})
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(All()) = %d after rejected appends, want 1", len(all))
	}
}

func TestStore_Reports(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if _, err := s.Report(ctx, 2024, taxlot.FIFO); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report() of an empty store error = %v, want %v", err, ErrNotFound)
	}

	txs := []taxlot.Transaction{
		taxlot.NewBuy("b1", "AAPL", day("2024-01-01"), taxlot.Q(100), taxlot.USD(150)),
		taxlot.NewSell("s1", "AAPL", day("2024-06-01"), taxlot.Q(100), taxlot.USD(100)),
		taxlot.NewBuy("b2", "AAPL", day("2024-06-15"), taxlot.Q(100), taxlot.USD(110)),
	}
	if err := s.Append(ctx, txs...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	book, err := taxlot.Compute(txs, taxlot.LIFO, nil)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	want := book.Report(2024)
	if err := s.SaveReport(ctx, want); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := s.SaveReport(ctx, want); err != nil {
		t.Fatalf("SaveReport() twice error = %v", err)
	}

	got, err := s.Report(ctx, 2024, taxlot.LIFO)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if got.Year != 2024 || got.Method != taxlot.LIFO || !got.TotalGain.Equal(want.TotalGain) || len(got.WashSaleFlags) != 1 {
		t.Errorf("Report() = %+v, want %+v", got, want)
	}
	if _, err := s.Report(ctx, 2024, taxlot.FIFO); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report(FIFO) error = %v, want %v", err, ErrNotFound)
	}

	if err := s.Append(ctx, taxlot.NewDividend("d1", "AAPL", day("2024-07-01"), taxlot.USD(1))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := s.Report(ctx, 2024, taxlot.LIFO); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report() after Append error = %v, want %v", err, ErrNotFound)
	}
}
