package taxlot

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of them,
// so callers can branch with errors.Is and extract details with errors.As.
var (
	ErrMalformedTransaction = errors.New("malformed transaction")
	ErrInsufficientLots     = errors.New("insufficient lots")
	ErrAmbiguousSpecificLot = errors.New("ambiguous specific lot")
	ErrInvalidDateOrdering  = errors.New("invalid date ordering")
)

// MalformedTransactionError is returned when a transaction's fields do not
// match what its kind requires.
type MalformedTransactionError struct {
	ID     string
	Kind   Kind
	Reason string
}

func (e *MalformedTransactionError) Error() string {
	return fmt.Sprintf("transaction %q (%s): %s", e.ID, e.Kind, e.Reason)
}

func (e *MalformedTransactionError) Unwrap() error { return ErrMalformedTransaction }

// InsufficientLotsError is returned when a sale asks for more shares than are
// open for the ticker.
type InsufficientLotsError struct {
	ID        string // the sell transaction
	Ticker    string
	Requested Quantity
	Available Quantity
}

// Shortfall is the number of shares missing to fill the sale.
func (e *InsufficientLotsError) Shortfall() Quantity { return e.Requested.Sub(e.Available) }

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("transaction %q: cannot sell %s %s, only %s open (short by %s)",
		e.ID, e.Requested, e.Ticker, e.Available, e.Shortfall())
}

func (e *InsufficientLotsError) Unwrap() error { return ErrInsufficientLots }

// AmbiguousSpecificLotError is returned when a SpecificLot sale has no
// selection, or a selection that does not exactly cover the sale.
type AmbiguousSpecificLotError struct {
	ID     string // the sell transaction
	Reason string
}

func (e *AmbiguousSpecificLotError) Error() string {
	return fmt.Sprintf("transaction %q: specific lot selection: %s", e.ID, e.Reason)
}

func (e *AmbiguousSpecificLotError) Unwrap() error { return ErrAmbiguousSpecificLot }

// InvalidDateOrderingError is returned when a transaction is dated before the
// one preceding it in the log.
type InvalidDateOrderingError struct {
	ID       string
	Date     Date
	Previous Date // date of the preceding transaction
}

func (e *InvalidDateOrderingError) Error() string {
	return fmt.Sprintf("transaction %q dated %s comes after a transaction dated %s", e.ID, e.Date, e.Previous)
}

func (e *InvalidDateOrderingError) Unwrap() error { return ErrInvalidDateOrdering }
