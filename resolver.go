package taxlot

import (
	"fmt"
	"maps"
	"slices"
)

// Sale is the part of a sell transaction the resolver needs.
type Sale struct {
	ID     string
	Ticker string
	Date   Date
	Shares Quantity
	Price  Money // per share.
}

// SaleOf extracts the Sale from a sell transaction.
func SaleOf(tx Transaction) Sale {
	return Sale{ID: tx.ID, Ticker: tx.Ticker, Date: tx.Date, Shares: tx.Shares, Price: tx.Price}
}

// Selection directs a SpecificLot sale to take Shares from lot Lot.
type Selection struct {
	Sale   string   `json:"sale"`
	Lot    string   `json:"lot"`
	Shares Quantity `json:"shares"`
}

// Selections maps a sale ID to its lot selections, in the order they apply.
type Selections map[string][]Selection

// Add appends s to the selections of its sale.
func (s Selections) Add(sel Selection) { s[sel.Sale] = append(s[sel.Sale], sel) }

// Sales returns the IDs of the sales with a selection, sorted.
func (s Selections) Sales() []string { return slices.Sorted(maps.Keys(s)) }

// Resolve matches sale against the open lots using method and returns how the
// shares are allocated. The open lots are left untouched.
//
// selection is only used by SpecificLot and must cover the sale exactly.
func Resolve(method AccountingMethod, open []Lot, sale Sale, selection []Selection) (SaleAllocation, error) {
	if !sale.Shares.IsPositive() {
		return SaleAllocation{}, &MalformedTransactionError{ID: sale.ID, Kind: KindSell, Reason: fmt.Sprintf("shares must be positive, got %s", sale.Shares)}
	}
	for _, l := range open {
		if c := l.Basis.Currency(); c != "" && sale.Price.Currency() != "" && c != sale.Price.Currency() {
			return SaleAllocation{}, &MalformedTransactionError{ID: sale.ID, Kind: KindSell, Reason: fmt.Sprintf("currency %s differs from lot %s currency %s", sale.Price.Currency(), l.ID, c)}
		}
	}
	if available := OpenShares(open); available.LessThan(sale.Shares) {
		return SaleAllocation{}, &InsufficientLotsError{ID: sale.ID, Ticker: sale.Ticker, Requested: sale.Shares, Available: available}
	}

	var allocations []Allocation
	switch method {
	case FIFO:
		allocations = consumeInOrder(firstIn(open), sale.Shares)
	case LIFO:
		allocations = consumeInOrder(lastIn(open), sale.Shares)
	case SpecificLot:
		var err error
		if allocations, err = consumeSelection(open, sale, selection); err != nil {
			return SaleAllocation{}, err
		}
	case AverageCost:
		allocations = consumeProportionally(open, sale.Shares)
	default:
		return SaleAllocation{}, fmt.Errorf("unsupported accounting method %v", method)
	}
	return newSaleAllocation(sale, method, allocations), nil
}

// firstIn returns the lots oldest first. Lots acquired the same day keep their
// ledger order.
func firstIn(open []Lot) []Lot {
	res := slices.Clone(open)
	slices.SortStableFunc(res, func(a, b Lot) int { return a.Acquired.time().Compare(b.Acquired.time()) })
	return res
}

// lastIn returns the lots newest first. Lots acquired the same day are taken
// in reverse ledger order.
func lastIn(open []Lot) []Lot {
	res := slices.Clone(open)
	slices.Reverse(res)
	slices.SortStableFunc(res, func(a, b Lot) int { return b.Acquired.time().Compare(a.Acquired.time()) })
	return res
}

// consumeInOrder takes shares from lots in the given order, each lot being
// exhausted before moving to the next.
func consumeInOrder(lots []Lot, shares Quantity) []Allocation {
	var res []Allocation
	left := shares
	for _, l := range lots {
		if !left.IsPositive() {
			break
		}
		if !l.Remaining.IsPositive() {
			continue
		}
		take := l.Remaining.Min(left)
		res = append(res, Allocation{LotID: l.ID, Shares: take, Basis: l.Basis, Acquired: l.Acquired})
		left = left.Sub(take)
	}
	return res
}

// consumeSelection takes exactly the shares listed in selection.
func consumeSelection(open []Lot, sale Sale, selection []Selection) ([]Allocation, error) {
	ambiguous := func(format string, args ...any) error {
		return &AmbiguousSpecificLotError{ID: sale.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if len(selection) == 0 {
		return nil, ambiguous("no lot selected")
	}

	byID := make(map[string]Lot, len(open))
	for _, l := range open {
		byID[l.ID] = l
	}

	var res []Allocation
	var total Quantity
	used := make(map[string]Quantity)
	for _, sel := range selection {
		l, ok := byID[sel.Lot]
		if !ok {
			return nil, ambiguous("lot %q is not open", sel.Lot)
		}
		if !sel.Shares.IsPositive() {
			return nil, ambiguous("lot %q: shares must be positive, got %s", sel.Lot, sel.Shares)
		}
		used[sel.Lot] = used[sel.Lot].Add(sel.Shares)
		if used[sel.Lot].GreaterThan(l.Remaining) {
			return nil, ambiguous("lot %q: %s shares selected, only %s remain", sel.Lot, used[sel.Lot], l.Remaining)
		}
		res = append(res, Allocation{LotID: l.ID, Shares: sel.Shares, Basis: l.Basis, Acquired: l.Acquired})
		total = total.Add(sel.Shares)
	}
	if !total.Equal(sale.Shares) {
		return nil, ambiguous("selection covers %s shares, sale is %s", total, sale.Shares)
	}
	return res, nil
}

// consumeProportionally takes shares from every lot in proportion to its
// remaining shares, all at the blended basis.
//
// Proportional takes are truncated to the share precision, and the residue is
// taken from the last lots first so that the takes add up to shares exactly.
func consumeProportionally(open []Lot, shares Quantity) []Allocation {
	total := OpenShares(open)
	blended := BlendedBasis(open)

	var res []Allocation
	var room []Quantity // shares each allocation can still grow by.
	var taken Quantity
	for _, l := range open {
		if !l.Remaining.IsPositive() {
			continue
		}
		take := l.Remaining
		if !shares.Equal(total) {
			take = l.Remaining.Mul(shares).Div(total).truncate().Min(l.Remaining)
		}
		res = append(res, Allocation{LotID: l.ID, Shares: take, Basis: blended, Acquired: l.Acquired})
		room = append(room, l.Remaining.Sub(take))
		taken = taken.Add(take)
	}

	residue := shares.Sub(taken)
	for i := len(res) - 1; i >= 0 && !residue.IsZero(); i-- {
		var delta Quantity
		if residue.IsPositive() {
			delta = room[i].Min(residue)
		} else {
			delta = res[i].Shares.Min(residue.Neg()).Neg()
		}
		res[i].Shares = res[i].Shares.Add(delta)
		residue = residue.Sub(delta)
	}

	return slices.DeleteFunc(res, func(a Allocation) bool { return a.Shares.IsZero() })
}
