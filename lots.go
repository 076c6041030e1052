package taxlot

// LongTermDays is the holding period, in calendar days, above which a gain is
// long term. It approximates the "more than one year" rule.
const LongTermDays = 365

// Lot is a still open acquisition of shares. A lot is created by a buy (or
// rights) transaction and shares its ID. Only Remaining, and under
// AverageCost the Basis, changes as sales consume it.
type Lot struct {
	ID        string   `json:"id"`
	Ticker    string   `json:"ticker"`
	Acquired  Date     `json:"acquired"`
	Original  Quantity `json:"original"`  // shares acquired.
	Basis     Money    `json:"basis"`     // cost basis per share.
	Remaining Quantity `json:"remaining"` // shares still open.
}

// CostBasis returns the cost basis of the remaining shares.
func (l Lot) CostBasis() Money { return l.Basis.Mul(l.Remaining) }

// OpenShares returns the total remaining shares in lots.
func OpenShares(lots []Lot) Quantity {
	var total Quantity
	for _, l := range lots {
		total = total.Add(l.Remaining)
	}
	return total
}

// BlendedBasis returns the average cost basis per share across lots, weighted
// by remaining shares. It is zero when no share is open.
func BlendedBasis(lots []Lot) Money {
	var cost Money
	for _, l := range lots {
		cost = cost.Add(l.CostBasis())
	}
	total := OpenShares(lots)
	if total.IsZero() {
		return cost
	}
	return cost.Div(total)
}

// Allocation is the part of a sale taken from one lot.
type Allocation struct {
	LotID    string   `json:"lot"`
	Shares   Quantity `json:"shares"`
	Basis    Money    `json:"basis"` // cost basis per share of the shares taken.
	Acquired Date     `json:"acquired"`
}

// CostBasis returns the exact cost basis of the shares taken.
func (a Allocation) CostBasis() Money { return a.Basis.Mul(a.Shares) }

// HoldingDays returns the number of calendar days the shares were held when
// sold on 'sold'.
func (a Allocation) HoldingDays(sold Date) int { return sold.DaysSince(a.Acquired) }

// LongTerm reports whether shares sold on 'sold' were held long term.
func (a Allocation) LongTerm(sold Date) bool { return a.HoldingDays(sold) > LongTermDays }

// SaleAllocation is the resolution of one sell transaction against lots.
//
// Proceeds, CostBasis and RealizedGain are rounded to the currency's minor
// unit, and RealizedGain is always Proceeds - CostBasis.
type SaleAllocation struct {
	SaleID       string           `json:"sale"`
	Ticker       string           `json:"ticker"`
	Date         Date             `json:"date"`
	Shares       Quantity         `json:"shares"`
	Price        Money            `json:"price"` // sale price per share.
	Method       AccountingMethod `json:"method"`
	Allocations  []Allocation     `json:"allocations"`
	Proceeds     Money            `json:"proceeds"`
	CostBasis    Money            `json:"cost_basis"`
	RealizedGain Money            `json:"realized_gain"`
}

// IsLoss reports whether the sale realized a loss.
func (s SaleAllocation) IsLoss() bool { return s.RealizedGain.IsNegative() }

// Taken returns the total shares taken from lots.
func (s SaleAllocation) Taken() Quantity {
	var total Quantity
	for _, a := range s.Allocations {
		total = total.Add(a.Shares)
	}
	return total
}

// gain returns the exact, unrounded gain made on allocation a.
func (s SaleAllocation) gain(a Allocation) Money {
	return s.Price.Mul(a.Shares).Sub(a.CostBasis())
}

// newSaleAllocation computes the totals of a sale resolved into allocations.
func newSaleAllocation(sale Sale, method AccountingMethod, allocations []Allocation) SaleAllocation {
	cost := M(0, sale.Price.Currency())
	for _, a := range allocations {
		cost = cost.Add(a.CostBasis())
	}
	proceeds := sale.Price.Mul(sale.Shares).Round()
	cost = cost.Round()
	return SaleAllocation{
		SaleID:       sale.ID,
		Ticker:       sale.Ticker,
		Date:         sale.Date,
		Shares:       sale.Shares,
		Price:        sale.Price,
		Method:       method,
		Allocations:  allocations,
		Proceeds:     proceeds,
		CostBasis:    cost,
		RealizedGain: proceeds.Sub(cost),
	}
}
