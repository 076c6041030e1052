package taxlot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// amountCmd reads a money value written as two fields.
type amountCmd struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountCmd) Money() Money {
	return M(a.Amount, a.Currency)
}

// transactionCmd has every field a ledger line can hold.
type transactionCmd struct {
	ID        string           `json:"id"`
	Date      Date             `json:"date"`
	Kind      Kind             `json:"kind"`
	Ticker    string           `json:"ticker"`
	Shares    Quantity         `json:"shares"`
	Price     *decimal.Decimal `json:"price"`
	Amount    *decimal.Decimal `json:"amount"`
	Currency  string           `json:"currency"`
	Fees      decimal.Decimal  `json:"fees"`
	Ratio     string           `json:"ratio"`
	NewTicker string           `json:"new_ticker"`
	Notes     string           `json:"notes"`
}

// transaction builds the transaction described by c. Amounts of trades and
// fees are derived, never read.
func (c transactionCmd) transaction() Transaction {
	currency := c.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	tx := Transaction{
		ID:         c.ID,
		Ticker:     c.Ticker,
		Kind:       c.Kind,
		Date:       c.Date,
		Shares:     c.Shares,
		Notes:      c.Notes,
		SplitRatio: c.Ratio,
		NewTicker:  c.NewTicker,
	}
	if c.Price != nil {
		tx.Price = M(*c.Price, currency)
	}
	fees := M(c.Fees, currency)
	switch {
	case c.Kind.trades():
		tx.Amount = newTrade(c.Kind, tx.ID, tx.Ticker, tx.Date, tx.Shares, tx.Price).Amount
	case c.Kind == KindFee:
		tx.Amount, tx.Fees = fees.Neg(), fees
		return tx
	case c.Amount != nil:
		tx.Amount = M(*c.Amount, currency)
	}
	if !fees.IsZero() {
		tx = tx.WithFees(fees)
	}
	return tx
}

// paysAmount reports whether the amount of a transaction of this kind is
// written in the ledger.
func (k Kind) paysAmount() bool {
	return k == KindDividend || k == KindInterest || k == KindReturnOfCapital
}

// currency returns the currency the transaction's money values are in.
func (t Transaction) currency() string {
	for _, m := range []Money{t.Price, t.Amount, t.Fees} {
		if c := m.Currency(); c != "" {
			return c
		}
	}
	return ""
}

// MarshalJSON writes the transaction as a single ledger line with a stable
// key order.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", t.ID)
	w.Append("date", t.Date)
	w.Append("kind", t.Kind)
	w.Append("ticker", t.Ticker)
	if t.Kind.trades() {
		w.Append("shares", t.Shares)
		w.Append("price", t.Price.Decimal())
	}
	if t.Kind.paysAmount() {
		w.Append("amount", t.Amount.Decimal())
	}
	w.Optional("currency", t.currency())
	if !t.Fees.IsZero() {
		w.Append("fees", t.Fees.Decimal())
	}
	w.Optional("ratio", t.SplitRatio)
	w.Optional("new_ticker", t.NewTicker)
	w.Optional("notes", t.Notes)
	return w.MarshalJSON()
}

// UnmarshalJSON reads a ledger line. The transaction is not validated.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var c transactionCmd
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*t = c.transaction()
	return nil
}

// DecodeTransactions reads a JSONL stream of transactions, one per line, and
// validates each of them. Empty lines are skipped. Errors name the line.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(lineBytes, &tx); err != nil {
			return nil, &MalformedTransactionError{Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return txs, nil
}

// DecodeLedger reads a JSONL stream into a Ledger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	txs, err := DecodeTransactions(r)
	if err != nil {
		return nil, err
	}
	return NewLedgerFrom(txs)
}

// EncodeTransaction writes tx as a single JSONL line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction %q: %w", tx.ID, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// EncodeTransactions writes txs in JSONL format, in order.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	for _, tx := range txs {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}

// EncodeLedger writes the ledger in JSONL format.
func EncodeLedger(w io.Writer, l *Ledger) error {
	return EncodeTransactions(w, l.transactions)
}

// DecodeSelections reads a JSONL stream of specific lot selections, like
//
//	{"sale":"s1","lot":"b1","shares":10}
//
// Selections of a sale keep their order in the stream.
func DecodeSelections(r io.Reader) (Selections, error) {
	selections := make(Selections)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		var sel Selection
		if err := json.Unmarshal(lineBytes, &sel); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if sel.Sale == "" || sel.Lot == "" {
			return nil, fmt.Errorf("line %d: selection needs a sale and a lot", line)
		}
		selections.Add(sel)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return selections, nil
}

// EncodeSelections writes selections in JSONL format, sorted by sale.
func EncodeSelections(w io.Writer, selections Selections) error {
	for _, sale := range selections.Sales() {
		for _, sel := range selections[sale] {
			data, err := json.Marshal(sel)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("failed to write selection: %w", err)
			}
		}
	}
	return nil
}
