package taxlot

// WashSaleWindowDays is the number of calendar days, before and after a loss
// sale, in which a purchase of the same ticker makes it a wash sale.
const WashSaleWindowDays = 30

// WashSaleFlag marks a loss sale with a replacement purchase inside the wash
// sale window. It never changes the sale it annotates.
type WashSaleFlag struct {
	SaleID         string   `json:"sale"`
	Ticker         string   `json:"ticker"`
	SaleDate       Date     `json:"sale_date"`
	Loss           Money    `json:"loss"`            // realized loss of the sale, as a positive amount.
	PurchaseID     string   `json:"purchase"`
	PurchaseDate   Date     `json:"purchase_date"`
	PurchaseShares Quantity `json:"purchase_shares"`
	PurchasePrice  Money    `json:"purchase_price"`
	DisallowedLoss Money    `json:"disallowed_loss"` // lesser of Loss and the replacement shares' value.
}

// DaysFromSale returns the signed number of days between the sale and the
// replacement purchase.
func (f WashSaleFlag) DaysFromSale() int { return f.PurchaseDate.DaysSince(f.SaleDate) }

// InWashWindow reports whether a purchase on 'purchased' falls in the wash
// sale window of a sale on 'sold'. The sale date itself is excluded.
func InWashWindow(sold, purchased Date) bool {
	days := purchased.DaysSince(sold)
	return days != 0 && days >= -WashSaleWindowDays && days <= WashSaleWindowDays
}

// DetectWashSales flags every loss sale in sales against every buy of ticker
// in txs dated inside its window. A sale matched by several purchases gets
// one flag per purchase, and their disallowed losses are not capped as a
// whole. A buy that opened a lot the sale itself consumed is the shares sold,
// not a replacement, and is skipped.
//
// Flags come in sale order, then purchase order.
func DetectWashSales(ticker string, sales []SaleAllocation, txs []Transaction) []WashSaleFlag {
	var flags []WashSaleFlag
	for _, sale := range sales {
		if sale.Ticker != ticker || !sale.IsLoss() {
			continue
		}
		loss := sale.RealizedGain.Abs()
		sold := make(map[string]bool, len(sale.Allocations))
		for _, a := range sale.Allocations {
			sold[a.LotID] = true
		}
		for _, tx := range txs {
			if tx.Ticker != ticker || tx.Kind != KindBuy || !InWashWindow(sale.Date, tx.Date) || sold[tx.ID] {
				continue
			}
			replacement := tx.Price.Mul(tx.Shares)
			flags = append(flags, WashSaleFlag{
				SaleID:         sale.SaleID,
				Ticker:         ticker,
				SaleDate:       sale.Date,
				Loss:           loss,
				PurchaseID:     tx.ID,
				PurchaseDate:   tx.Date,
				PurchaseShares: tx.Shares,
				PurchasePrice:  tx.Price,
				DisallowedLoss: loss.Min(replacement).Round(),
			})
		}
	}
	return flags
}
