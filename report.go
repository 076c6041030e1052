package taxlot

// TaxYearReport aggregates the sales and dividends of one calendar year.
//
// Wash sale flags are listed but never netted against the gains.
type TaxYearReport struct {
	Year           int              `json:"year"`
	Method         AccountingMethod `json:"method"`
	ShortTermGain  Money            `json:"short_term_gain"`
	LongTermGain   Money            `json:"long_term_gain"`
	TotalGain      Money            `json:"total_gain"`
	DividendIncome Money            `json:"dividend_income"`
	Proceeds       Money            `json:"proceeds"`
	CostBasis      Money            `json:"cost_basis"`
	DisallowedLoss Money            `json:"disallowed_loss"` // sum of the flags, for information.
	Sales          []SaleGain       `json:"sales"`
	WashSaleFlags  []WashSaleFlag   `json:"wash_sale_flags"`
}

// SaleGain is a sale's contribution to a report.
type SaleGain struct {
	SaleID    string   `json:"sale"`
	Ticker    string   `json:"ticker"`
	Date      Date     `json:"date"`
	Shares    Quantity `json:"shares"`
	Proceeds  Money    `json:"proceeds"`
	CostBasis Money    `json:"cost_basis"`
	ShortTerm Money    `json:"short_term"`
	LongTerm  Money    `json:"long_term"`
}

// Gain returns the total gain of the sale.
func (s SaleGain) Gain() Money { return s.ShortTerm.Add(s.LongTerm) }

// Aggregate builds the report for year out of the sale allocations, the
// dividend transactions in txs and the wash sale flags.
//
// Each allocation is classified by its own holding period, so a single sale
// can contribute to both terms. Gains are summed exactly and rounded once.
func Aggregate(sales []SaleAllocation, txs []Transaction, flags []WashSaleFlag, year int) TaxYearReport {
	cur := reportCurrency(sales, txs)
	zero := M(0, cur)
	r := TaxYearReport{
		Year:           year,
		ShortTermGain:  zero,
		LongTermGain:   zero,
		DividendIncome: zero,
		Proceeds:       zero,
		CostBasis:      zero,
		DisallowedLoss: zero,
	}

	for _, sale := range sales {
		if sale.Date.Year() != year {
			continue
		}
		row := SaleGain{
			SaleID:    sale.SaleID,
			Ticker:    sale.Ticker,
			Date:      sale.Date,
			Shares:    sale.Shares,
			Proceeds:  sale.Proceeds,
			CostBasis: sale.CostBasis,
			ShortTerm: zero,
			LongTerm:  zero,
		}
		for _, a := range sale.Allocations {
			if a.LongTerm(sale.Date) {
				row.LongTerm = row.LongTerm.Add(sale.gain(a))
			} else {
				row.ShortTerm = row.ShortTerm.Add(sale.gain(a))
			}
		}
		r.ShortTermGain = r.ShortTermGain.Add(row.ShortTerm)
		r.LongTermGain = r.LongTermGain.Add(row.LongTerm)
		r.Proceeds = r.Proceeds.Add(sale.Proceeds)
		r.CostBasis = r.CostBasis.Add(sale.CostBasis)

		row.ShortTerm = row.ShortTerm.Round()
		row.LongTerm = row.LongTerm.Round()
		r.Sales = append(r.Sales, row)
	}

	for _, tx := range txs {
		if tx.Kind == KindDividend && tx.Date.Year() == year {
			r.DividendIncome = r.DividendIncome.Add(tx.Amount)
		}
	}

	for _, f := range flags {
		if f.SaleDate.Year() == year {
			r.WashSaleFlags = append(r.WashSaleFlags, f)
			r.DisallowedLoss = r.DisallowedLoss.Add(f.DisallowedLoss)
		}
	}

	r.ShortTermGain = r.ShortTermGain.Round()
	r.LongTermGain = r.LongTermGain.Round()
	r.TotalGain = r.ShortTermGain.Add(r.LongTermGain)
	r.DividendIncome = r.DividendIncome.Round()
	return r
}

// reportCurrency returns the currency of the first priced record, or
// DefaultCurrency.
func reportCurrency(sales []SaleAllocation, txs []Transaction) string {
	for _, s := range sales {
		if c := s.Price.Currency(); c != "" {
			return c
		}
	}
	for _, tx := range txs {
		if c := tx.Amount.Currency(); c != "" {
			return c
		}
	}
	return DefaultCurrency
}
