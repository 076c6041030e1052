package taxlot

import (
	"github.com/google/go-cmp/cmp"
)

// day is a helper for tests to write dates as strings.
func day(s string) Date { return MustParse(s) }

// cmpOpts compares values by amount, not by representation.
var cmpOpts = cmp.Options{
	cmp.Comparer(func(a, b Money) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b Quantity) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b Date) bool { return a == b }),
}

// washScenario is the classic wash sale: a loss sale with a replacement
// purchase two weeks later.
func washScenario(replacement string) []Transaction {
	return []Transaction{
		NewBuy("b1", "AAPL", day("2024-01-01"), Q(100), USD(150)),
		NewSell("s1", "AAPL", day("2024-06-01"), Q(100), USD(100)),
		NewBuy("b2", "AAPL", day(replacement), Q(100), USD(110)),
	}
}

// twoLots opens 10 shares at 100 and 10 shares at 120 a month later.
func twoLots() []Lot {
	return []Lot{
		{ID: "b1", Ticker: "AAPL", Acquired: day("2024-01-01"), Original: Q(10), Basis: USD(100), Remaining: Q(10)},
		{ID: "b2", Ticker: "AAPL", Acquired: day("2024-02-01"), Original: Q(10), Basis: USD(120), Remaining: Q(10)},
	}
}
