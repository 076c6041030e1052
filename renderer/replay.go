package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/taxlot"
)

// ReplayMarkdown renders, for each ticker of the book, its open lots and the
// allocation of its sales.
func ReplayMarkdown(book *taxlot.Book) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Lots\n\n")
	fmt.Fprintf(&b, "Method: %s\n\n", book.Method)

	for _, ticker := range book.Tickers() {
		fmt.Fprintf(&b, "## %s\n\n", ticker)
		fmt.Fprintf(&b, "Position: %s\n\n", book.Position(ticker))
		lots := book.Lots(ticker)
		ConditionalBlock(&b, func(w io.Writer) bool {
			fmt.Fprint(w, "### Open Lots\n\n")
			fmt.Fprintln(w, "| Lot | Acquired | Shares | Remaining | Basis | Cost Basis |")
			fmt.Fprintln(w, "|:---|:---|---:|---:|---:|---:|")
			for _, l := range lots {
				fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
					cell(l.ID), l.Acquired, l.Original, l.Remaining, l.Basis, l.CostBasis().Round())
			}
			fmt.Fprintln(w)
			return len(lots) > 0
		})

		sales := book.Sales(ticker)
		ConditionalBlock(&b, func(w io.Writer) bool {
			fmt.Fprint(w, "### Sales\n\n")
			fmt.Fprintln(w, "| Sale | Date | Lot | Shares | Basis | Held | Term |")
			fmt.Fprintln(w, "|:---|:---|:---|---:|---:|---:|:---|")
			for _, s := range sales {
				for _, a := range s.Allocations {
					term := "short"
					if a.LongTerm(s.Date) {
						term = "long"
					}
					fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %dd | %s |\n",
						cell(s.SaleID), s.Date, cell(a.LotID), a.Shares, a.Basis, a.HoldingDays(s.Date), term)
				}
				fmt.Fprintf(w, "| **%s** | | | **%s** | | | **%s** |\n",
					cell(s.SaleID), s.Shares, s.RealizedGain.SignedString())
			}
			fmt.Fprintln(w)
			return len(sales) > 0
		})
	}
	return b.String()
}

// Transaction renders a transaction to a single line.
func Transaction(tx taxlot.Transaction) string {
	switch tx.Kind {
	case taxlot.KindBuy:
		return fmt.Sprintf("%s: bought %s %s at %s", tx.Date, tx.Shares, tx.Ticker, tx.Price)
	case taxlot.KindSell:
		return fmt.Sprintf("%s: sold %s %s at %s", tx.Date, tx.Shares, tx.Ticker, tx.Price)
	case taxlot.KindRights:
		return fmt.Sprintf("%s: received %s %s rights at %s", tx.Date, tx.Shares, tx.Ticker, tx.Price)
	case taxlot.KindDividend, taxlot.KindInterest, taxlot.KindReturnOfCapital:
		return fmt.Sprintf("%s: %s of %s from %s", tx.Date, tx.Kind, tx.Amount, tx.Ticker)
	case taxlot.KindFee:
		return fmt.Sprintf("%s: fee of %s on %s", tx.Date, tx.Fees, tx.Ticker)
	case taxlot.KindSplit:
		return fmt.Sprintf("%s: %s split %s", tx.Date, tx.Ticker, tx.SplitRatio)
	case taxlot.KindSpinoff, taxlot.KindMerger:
		return fmt.Sprintf("%s: %s %s into %s", tx.Date, tx.Ticker, tx.Kind, tx.NewTicker)
	default:
		return fmt.Sprintf("%s: %s %s", tx.Date, tx.Kind, tx.Ticker)
	}
}
