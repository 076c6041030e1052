package taxlot

import (
	"fmt"
	"iter"
	"slices"
)

// Ledger is an append-only transaction log.
//
// In a Ledger every transaction is valid, IDs are unique and dates never go
// backward.
type Ledger struct {
	transactions []Transaction
	ids          map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{ids: make(map[string]struct{})}
}

// NewLedgerFrom creates a ledger holding txs, or returns the first error
// Append would return.
func NewLedgerFrom(txs []Transaction) (*Ledger, error) {
	l := NewLedger()
	if err := l.Append(txs...); err != nil {
		return nil, err
	}
	return l, nil
}

// Append appends transactions to the ledger. Nothing is appended unless all
// of txs are accepted.
func (l *Ledger) Append(txs ...Transaction) error {
	last := l.NewestTransactionDate()
	seen := make(map[string]struct{}, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
		if _, dup := l.ids[tx.ID]; dup {
			return tx.malformed("duplicate id")
		}
		if _, dup := seen[tx.ID]; dup {
			return tx.malformed("duplicate id")
		}
		seen[tx.ID] = struct{}{}
		prev := last
		if i > 0 {
			prev = txs[i-1].Date
		}
		if !prev.IsZero() && tx.Date.Before(prev) {
			return &InvalidDateOrderingError{ID: tx.ID, Date: tx.Date, Previous: prev}
		}
	}
	for id := range seen {
		l.ids[id] = struct{}{}
	}
	l.transactions = append(l.transactions, txs...)
	return nil
}

// Len returns the number of transactions in the ledger.
func (l *Ledger) Len() int { return len(l.transactions) }

// All returns a copy of the ledger's transactions.
func (l *Ledger) All() []Transaction { return slices.Clone(l.transactions) }

// Transactions returns an iterator that yields each transaction accepted by
// all filters, in log order.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			accept := true
			for _, filter := range filters {
				if !filter(tx) {
					accept = false
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// OnTicker is a Transactions filter that keeps transactions on ticker.
func OnTicker(ticker string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Ticker == ticker }
}

// InYear is a Transactions filter that keeps transactions dated in year.
func InYear(year int) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Date.Year() == year }
}

// Tickers returns the tickers in the ledger in order of first appearance.
func (l *Ledger) Tickers() []string { return Tickers(l.transactions) }

// OldestTransactionDate returns the date of the earliest transaction in the
// ledger, or the zero Date if it is empty.
func (l *Ledger) OldestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[0].Date
}

// NewestTransactionDate returns the date of the latest transaction in the
// ledger, or the zero Date if it is empty.
func (l *Ledger) NewestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[len(l.transactions)-1].Date
}

// Replay folds the transactions of a single ticker, in order, into the lots
// still open at the end and the allocation of every sale.
//
// Buys and rights open a lot, sells are resolved with method (selections are
// looked up by sale ID for SpecificLot), and every other kind leaves the lots
// untouched. The whole log is checked before anything is replayed, including
// that it uses a single currency, and the first error aborts the replay.
//
// Replay is a pure function of its inputs.
func Replay(ticker string, txs []Transaction, method AccountingMethod, selections Selections) ([]Lot, []SaleAllocation, error) {
	seen := make(map[string]struct{}, len(txs))
	var currency string
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, nil, err
		}
		if c := tx.currency(); c != "" {
			if currency == "" {
				currency = c
			}
			if c != currency {
				return nil, nil, tx.malformed("currency %s differs from the log currency %s", c, currency)
			}
		}
		if tx.Ticker != ticker {
			return nil, nil, tx.malformed("ticker %q in the log of %q", tx.Ticker, ticker)
		}
		if _, dup := seen[tx.ID]; dup {
			return nil, nil, tx.malformed("duplicate id")
		}
		seen[tx.ID] = struct{}{}
	}
	if err := CheckOrdering(txs); err != nil {
		return nil, nil, err
	}

	var open []Lot
	var sales []SaleAllocation
	for _, tx := range txs {
		switch {
		case tx.Kind.acquires():
			open = append(open, Lot{
				ID:        tx.ID,
				Ticker:    tx.Ticker,
				Acquired:  tx.Date,
				Original:  tx.Shares,
				Basis:     tx.Price,
				Remaining: tx.Shares,
			})
		case tx.Kind == KindSell:
			sale, err := Resolve(method, open, SaleOf(tx), selections[tx.ID])
			if err != nil {
				return nil, nil, err
			}
			if open, err = consume(open, sale); err != nil {
				return nil, nil, err
			}
			sales = append(sales, sale)
		}
	}
	return open, sales, nil
}

// consume removes the shares allocated by sale from the open lots and drops
// exhausted lots. After an AverageCost sale the surviving lots carry the
// blended basis.
func consume(open []Lot, sale SaleAllocation) ([]Lot, error) {
	res := slices.Clone(open)
	for _, a := range sale.Allocations {
		i := slices.IndexFunc(res, func(l Lot) bool { return l.ID == a.LotID })
		if i < 0 || res[i].Remaining.LessThan(a.Shares) {
			return nil, fmt.Errorf("sale %q: allocation of %s shares from lot %q does not fit the open lots", sale.SaleID, a.Shares, a.LotID)
		}
		res[i].Remaining = res[i].Remaining.Sub(a.Shares)
	}
	if sale.Method == AverageCost && len(sale.Allocations) > 0 {
		for i := range res {
			res[i].Basis = sale.Allocations[0].Basis
		}
	}
	return slices.DeleteFunc(res, func(l Lot) bool { return l.Remaining.IsZero() }), nil
}
