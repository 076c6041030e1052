package taxlot

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind is a typed string identifying the kind of a transaction.
type Kind string

// Transaction kinds.
const (
	KindBuy             Kind = "buy"
	KindSell            Kind = "sell"
	KindDividend        Kind = "dividend"
	KindSplit           Kind = "split"
	KindSpinoff         Kind = "spinoff"
	KindMerger          Kind = "merger"
	KindRights          Kind = "rights"
	KindReturnOfCapital Kind = "return_of_capital"
	KindFee             Kind = "fee"
	KindInterest        Kind = "interest"
)

// Kinds lists every transaction kind.
var Kinds = []Kind{
	KindBuy, KindSell, KindDividend, KindSplit, KindSpinoff,
	KindMerger, KindRights, KindReturnOfCapital, KindFee, KindInterest,
}

// ParseKind parses a transaction kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(Kinds, k) {
		return "", fmt.Errorf("unknown transaction kind: %q", s)
	}
	return k, nil
}

// trades reports whether transactions of this kind carry shares and a price.
func (k Kind) trades() bool { return k == KindBuy || k == KindSell || k == KindRights }

// acquires reports whether transactions of this kind open a lot.
func (k Kind) acquires() bool { return k == KindBuy || k == KindRights }

// Transaction is an immutable record of a single event on a security.
//
// Which optional fields are set depends on the Kind: Shares and Price are set
// for buy, sell and rights only; SplitRatio for split only; NewTicker for
// spinoff and merger only. Use the New* constructors, or call Validate on
// records built by hand or decoded from storage. Corrections are new
// transactions, never edits.
type Transaction struct {
	ID         string
	Ticker     string
	Kind       Kind
	Date       Date
	Shares     Quantity // number of shares traded.
	Price      Money    // price per share.
	Amount     Money    // signed cash effect: negative when cash leaves the account.
	Fees       Money
	Notes      string
	SplitRatio string // "new:old", e.g. "2:1".
	NewTicker  string // ticker received in a spinoff or merger.
}

// What returns the kind of the transaction.
func (t Transaction) What() Kind { return t.Kind }

// When returns the date of the transaction.
func (t Transaction) When() Date { return t.Date }

// Value returns shares × price.
func (t Transaction) Value() Money { return t.Price.Mul(t.Shares) }

func newTrade(kind Kind, id, ticker string, on Date, shares Quantity, price Money) Transaction {
	tx := Transaction{ID: id, Ticker: ticker, Kind: kind, Date: on, Shares: shares, Price: price}
	tx.Amount = tx.Value()
	if kind.acquires() {
		tx.Amount = tx.Amount.Neg()
	}
	return tx
}

// NewBuy creates a purchase of shares at a price per share.
func NewBuy(id, ticker string, on Date, shares Quantity, price Money) Transaction {
	return newTrade(KindBuy, id, ticker, on, shares, price)
}

// NewSell creates a sale of shares at a price per share.
func NewSell(id, ticker string, on Date, shares Quantity, price Money) Transaction {
	return newTrade(KindSell, id, ticker, on, shares, price)
}

// NewRights creates the exercise of subscription rights, acquiring shares at
// a price per share.
func NewRights(id, ticker string, on Date, shares Quantity, price Money) Transaction {
	return newTrade(KindRights, id, ticker, on, shares, price)
}

// NewDividend creates a dividend payment of a total amount.
func NewDividend(id, ticker string, on Date, amount Money) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindDividend, Date: on, Amount: amount}
}

// NewInterest creates an interest payment of a total amount.
func NewInterest(id, ticker string, on Date, amount Money) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindInterest, Date: on, Amount: amount}
}

// NewReturnOfCapital creates a return of capital of a total amount.
func NewReturnOfCapital(id, ticker string, on Date, amount Money) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindReturnOfCapital, Date: on, Amount: amount}
}

// NewFee creates a fee charged on a security. The amount is the fee itself,
// the cash effect is recorded as its negation.
func NewFee(id, ticker string, on Date, fee Money) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindFee, Date: on, Amount: fee.Abs().Neg(), Fees: fee.Abs()}
}

// NewSplit creates a split with a ratio like "2:1".
func NewSplit(id, ticker string, on Date, ratio string) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindSplit, Date: on, SplitRatio: ratio}
}

// NewSpinoff creates a spinoff of newTicker from ticker.
func NewSpinoff(id, ticker string, on Date, newTicker string) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindSpinoff, Date: on, NewTicker: newTicker}
}

// NewMerger creates a merger of ticker into newTicker.
func NewMerger(id, ticker string, on Date, newTicker string) Transaction {
	return Transaction{ID: id, Ticker: ticker, Kind: KindMerger, Date: on, NewTicker: newTicker}
}

// WithFees returns a copy of t charged with fees. For trades the fees are
// taken out of the cash effect.
func (t Transaction) WithFees(fees Money) Transaction {
	t.Fees = fees
	if t.Kind.trades() {
		t.Amount = t.Amount.Sub(fees)
	}
	return t
}

// WithNotes returns a copy of t with notes.
func (t Transaction) WithNotes(notes string) Transaction {
	t.Notes = notes
	return t
}

// malformed is a shortcut to build a MalformedTransactionError.
func (t Transaction) malformed(format string, args ...any) error {
	return &MalformedTransactionError{ID: t.ID, Kind: t.Kind, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that the fields set on t are exactly the ones its kind
// requires.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return t.malformed("missing id")
	}
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return t.malformed("%v", err)
	}
	if t.Ticker == "" {
		return t.malformed("missing ticker")
	}
	if t.Date.IsZero() {
		return t.malformed("missing date")
	}

	hasPrice := t.Price.Currency() != "" || !t.Price.IsZero()
	if t.Kind.trades() {
		if !t.Shares.IsPositive() {
			return t.malformed("shares must be positive, got %s", t.Shares)
		}
		if !hasPrice {
			return t.malformed("missing price per share")
		}
		if t.Price.IsNegative() {
			return t.malformed("price per share must not be negative, got %s", t.Price)
		}
	} else {
		if !t.Shares.IsZero() {
			return t.malformed("unexpected shares")
		}
		if hasPrice {
			return t.malformed("unexpected price per share")
		}
	}

	if t.Kind == KindSplit {
		if t.SplitRatio == "" {
			return t.malformed("missing split ratio")
		}
		if _, _, err := ParseSplitRatio(t.SplitRatio); err != nil {
			return t.malformed("%v", err)
		}
	} else if t.SplitRatio != "" {
		return t.malformed("unexpected split ratio")
	}

	if t.Kind == KindSpinoff || t.Kind == KindMerger {
		if t.NewTicker == "" {
			return t.malformed("missing new ticker")
		}
	} else if t.NewTicker != "" {
		return t.malformed("unexpected new ticker")
	}

	if t.Fees.IsNegative() {
		return t.malformed("fees must not be negative, got %s", t.Fees)
	}
	if c := t.currency(); c != "" {
		for _, m := range []Money{t.Price, t.Amount, t.Fees} {
			if m.Currency() != "" && m.Currency() != c {
				return t.malformed("currency %s differs from %s", m.Currency(), c)
			}
		}
	}
	return nil
}

// ParseSplitRatio parses a ratio "new:old" like "2:1" or "3:2".
func ParseSplitRatio(s string) (num, den int64, err error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid split ratio %q, want \"new:old\"", s)
	}
	num, err = strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	if err != nil || num <= 0 {
		return 0, 0, fmt.Errorf("invalid split ratio %q: numerator must be a positive integer", s)
	}
	den, err = strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if err != nil || den <= 0 {
		return 0, 0, fmt.Errorf("invalid split ratio %q: denominator must be a positive integer", s)
	}
	return num, den, nil
}

// ByTicker returns the transactions on ticker, in their original order.
func ByTicker(txs []Transaction, ticker string) []Transaction {
	var res []Transaction
	for _, tx := range txs {
		if tx.Ticker == ticker {
			res = append(res, tx)
		}
	}
	return res
}

// Tickers returns the tickers in order of first appearance.
func Tickers(txs []Transaction) []string {
	var res []string
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if _, ok := seen[tx.Ticker]; !ok {
			seen[tx.Ticker] = struct{}{}
			res = append(res, tx.Ticker)
		}
	}
	return res
}

// SortTransactions sorts txs by date. The sort is stable: transactions on the
// same day keep their relative order. The engine itself never sorts, callers
// use this to prepare a log.
func SortTransactions(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return a.Date.time().Compare(b.Date.time())
	})
}

// CheckOrdering returns an InvalidDateOrderingError for the first transaction
// dated before its predecessor.
func CheckOrdering(txs []Transaction) error {
	for i := 1; i < len(txs); i++ {
		if txs[i].Date.Before(txs[i-1].Date) {
			return &InvalidDateOrderingError{ID: txs[i].ID, Date: txs[i].Date, Previous: txs[i-1].Date}
		}
	}
	return nil
}
