package taxlot

import "fmt"

// AccountingMethod selects which lots a sale consumes.
type AccountingMethod int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO AccountingMethod = iota
	// LIFO (Last-In, First-Out) consumes the newest lots first.
	LIFO
	// SpecificLot consumes exactly the lots the caller designates for each sale.
	SpecificLot
	// AverageCost sells at the blended cost of all open lots, and reduces every
	// open lot in proportion to its size.
	AverageCost
)

func (m AccountingMethod) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case SpecificLot:
		return "specific"
	case AverageCost:
		return "average"
	default:
		return "unknown"
	}
}

// ParseAccountingMethod parses a string into an AccountingMethod.
func ParseAccountingMethod(s string) (AccountingMethod, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "specific", "specific-lot":
		return SpecificLot, nil
	case "average", "average-cost":
		return AverageCost, nil
	default:
		return 0, fmt.Errorf("unknown accounting method: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m AccountingMethod) MarshalText() ([]byte, error) {
	if m < FIFO || m > AverageCost {
		return nil, fmt.Errorf("unknown accounting method: %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AccountingMethod) UnmarshalText(text []byte) error {
	v, err := ParseAccountingMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
