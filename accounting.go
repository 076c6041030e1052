package taxlot

import (
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Book holds everything derived from a transaction log under one accounting
// method: the open lots, the sale allocations and the wash sale flags of
// every ticker.
//
// A Book is computed once and never changes; a new log means a new Book.
type Book struct {
	Method       AccountingMethod
	transactions []Transaction
	tickers      []string
	lots         map[string][]Lot
	sales        map[string][]SaleAllocation
	flags        map[string][]WashSaleFlag
}

// tickerBook is the result of replaying a single ticker.
type tickerBook struct {
	lots  []Lot
	sales []SaleAllocation
	flags []WashSaleFlag
}

// Compute replays a whole transaction log, all tickers mixed, using method.
//
// Tickers are independent, they are replayed concurrently. The first failing
// ticker fails the whole computation.
func Compute(txs []Transaction, method AccountingMethod, selections Selections) (*Book, error) {
	if err := checkLog(txs); err != nil {
		return nil, err
	}

	tickers := Tickers(txs)
	results := make([]tickerBook, len(tickers))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ticker := range tickers {
		g.Go(func() error {
			history := ByTicker(txs, ticker)
			lots, sales, err := Replay(ticker, history, method, selections)
			if err != nil {
				return fmt.Errorf("replay %s: %w", ticker, err)
			}
			results[i] = tickerBook{lots: lots, sales: sales, flags: DetectWashSales(ticker, sales, history)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Book{
		Method:       method,
		transactions: slices.Clone(txs),
		tickers:      tickers,
		lots:         make(map[string][]Lot, len(tickers)),
		sales:        make(map[string][]SaleAllocation, len(tickers)),
		flags:        make(map[string][]WashSaleFlag, len(tickers)),
	}
	for i, ticker := range tickers {
		b.lots[ticker] = results[i].lots
		b.sales[ticker] = results[i].sales
		b.flags[ticker] = results[i].flags
	}
	return b, nil
}

// checkLog checks what no single ticker replay can: ids are unique across the
// log, and a single currency is used.
func checkLog(txs []Transaction) error {
	ids := make(map[string]struct{}, len(txs))
	var currency string
	for _, tx := range txs {
		if _, dup := ids[tx.ID]; dup {
			return tx.malformed("duplicate id")
		}
		ids[tx.ID] = struct{}{}
		for _, m := range []Money{tx.Price, tx.Amount, tx.Fees} {
			c := m.Currency()
			if c == "" {
				continue
			}
			if currency == "" {
				currency = c
			}
			if c != currency {
				return tx.malformed("currency %s differs from the log currency %s", c, currency)
			}
		}
	}
	return nil
}

// Tickers returns the tickers of the log in order of first appearance.
func (b *Book) Tickers() []string { return slices.Clone(b.tickers) }

// Transactions returns the log the book was computed from.
func (b *Book) Transactions() []Transaction { return slices.Clone(b.transactions) }

// Lots returns the lots of ticker still open at the end of the log.
func (b *Book) Lots(ticker string) []Lot { return slices.Clone(b.lots[ticker]) }

// Position returns the open shares of ticker at the end of the log.
func (b *Book) Position(ticker string) Quantity { return OpenShares(b.lots[ticker]) }

// Sales returns the sale allocations of ticker, in log order.
func (b *Book) Sales(ticker string) []SaleAllocation { return slices.Clone(b.sales[ticker]) }

// AllSales returns every sale allocation, grouped by ticker.
func (b *Book) AllSales() []SaleAllocation {
	var res []SaleAllocation
	for _, t := range b.tickers {
		res = append(res, b.sales[t]...)
	}
	return res
}

// WashSales returns every wash sale flag, grouped by ticker.
func (b *Book) WashSales() []WashSaleFlag {
	var res []WashSaleFlag
	for _, t := range b.tickers {
		res = append(res, b.flags[t]...)
	}
	return res
}

// Years returns, in increasing order, the years with at least one sale or
// dividend.
func (b *Book) Years() []int {
	var years []int
	for _, s := range b.AllSales() {
		years = append(years, s.Date.Year())
	}
	for _, tx := range b.transactions {
		if tx.Kind == KindDividend {
			years = append(years, tx.Date.Year())
		}
	}
	slices.Sort(years)
	return slices.Compact(years)
}

// Report aggregates the tax year report for year.
func (b *Book) Report(year int) TaxYearReport {
	r := Aggregate(b.AllSales(), b.transactions, b.WashSales(), year)
	r.Method = b.Method
	return r
}
