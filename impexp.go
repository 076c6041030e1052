package taxlot

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldMap tells ImportJSON where to find transaction fields in a foreign
// JSON document.
//
// Records selects the records in the document, every other path is evaluated
// on a single record. An empty path means the field is absent.
type FieldMap struct {
	Records   string
	ID        string
	Ticker    string
	Kind      string
	Date      string
	Shares    string
	Price     string
	Amount    string
	Currency  string
	Fees      string
	Ratio     string
	NewTicker string
	Notes     string

	// Kinds maps foreign kind names, compared case insensitively, to kinds.
	// Names missing from it are parsed as kinds.
	Kinds map[string]Kind
}

// DefaultFieldMap reads an array of rows named like the ledger columns, as
// exported from a transactions table.
var DefaultFieldMap = FieldMap{
	Records:   "$[*]",
	ID:        "$.id",
	Ticker:    "$.ticker",
	Kind:      "$.type",
	Date:      "$.date",
	Shares:    "$.shares",
	Price:     "$.price",
	Amount:    "$.amount",
	Currency:  "$.currency",
	Fees:      "$.fees",
	Ratio:     "$.split_ratio",
	NewTicker: "$.new_ticker",
	Notes:     "$.notes",
}

// ImportJSON reads a JSON document from r and maps every record selected by
// m.Records onto a transaction. Records without an id get a random one.
//
// Every transaction is validated, the first invalid one stops the import.
func ImportJSON(r io.Reader, m FieldMap) ([]Transaction, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("cannot parse import document: %w", err)
	}

	records := []any{doc}
	if m.Records != "" {
		v, err := jsonpath.Get(m.Records, doc)
		if err != nil {
			return nil, fmt.Errorf("cannot select records with %q: %w", m.Records, err)
		}
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("records %q: not a list: %v", m.Records, v)
		}
		records = list
	}

	txs := make([]Transaction, 0, len(records))
	for i, rec := range records {
		tx, err := m.transaction(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// transaction maps a single record.
func (m FieldMap) transaction(rec any) (Transaction, error) {
	var c transactionCmd
	var err error
	str := func(path string) string {
		if err != nil {
			return ""
		}
		var s string
		s, err = m.str(path, rec)
		return s
	}
	num := func(path string) *decimal.Decimal {
		if err != nil {
			return nil
		}
		var d *decimal.Decimal
		d, err = m.num(path, rec)
		return d
	}

	c.ID = str(m.ID)
	c.Ticker = str(m.Ticker)
	kind := str(m.Kind)
	date := str(m.Date)
	shares := num(m.Shares)
	c.Price = num(m.Price)
	c.Amount = num(m.Amount)
	c.Currency = str(m.Currency)
	fees := num(m.Fees)
	c.Ratio = str(m.Ratio)
	c.NewTicker = str(m.NewTicker)
	c.Notes = str(m.Notes)
	if err != nil {
		return Transaction{}, err
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if k, ok := m.lookupKind(kind); ok {
		c.Kind = k
	} else {
		c.Kind = Kind(strings.ToLower(kind))
	}
	if date != "" {
		// timestamps are cut to their day.
		day, _, _ := strings.Cut(date, "T")
		if c.Date, err = ParseDate(day); err != nil {
			return Transaction{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
	}
	if shares != nil {
		c.Shares = Q(*shares)
	}
	if fees != nil {
		c.Fees = *fees
	}
	return c.transaction(), nil
}

func (m FieldMap) lookupKind(name string) (Kind, bool) {
	for k, v := range m.Kinds {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// get evaluates path on rec. Paths that match nothing are absent, not errors.
func (m FieldMap) get(path string, rec any) (any, bool) {
	if path == "" {
		return nil, false
	}
	v, err := jsonpath.Get(path, rec)
	if err != nil {
		return nil, false
	}
	// jsonpath may return a list of a single answer: keep the first one.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, v != nil
}

func (m FieldMap) str(path string, rec any) (string, error) {
	v, ok := m.get(path, rec)
	if !ok {
		return "", nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%s: not a string: %v", path, v)
	}
}

func (m FieldMap) num(path string, rec any) (*decimal.Decimal, error) {
	v, ok := m.get(path, rec)
	if !ok {
		return nil, nil
	}
	var s string
	switch v := v.(type) {
	case json.Number:
		s = v.String()
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		s = v
	case float64:
		d := decimal.NewFromFloat(v)
		return &d, nil
	default:
		return nil, fmt.Errorf("%s: not a number: %v", path, v)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}
