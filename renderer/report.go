package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/taxlot"
)

// ReportMarkdown renders a tax year report.
func ReportMarkdown(r taxlot.TaxYearReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tax Report %d\n\n", r.Year)
	fmt.Fprintf(&b, "Method: %s\n\n", r.Method)

	fmt.Fprint(&b, "## Summary\n\n")
	fmt.Fprintln(&b, "| | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Short-term gain | %s |\n", r.ShortTermGain.SignedString())
	fmt.Fprintf(&b, "| Long-term gain | %s |\n", r.LongTermGain.SignedString())
	fmt.Fprintf(&b, "| **Total gain** | **%s** |\n", r.TotalGain.SignedString())
	fmt.Fprintf(&b, "| Dividend income | %s |\n", r.DividendIncome.SignedString())
	fmt.Fprintf(&b, "| Proceeds | %s |\n", r.Proceeds)
	fmt.Fprintf(&b, "| Cost basis | %s |\n", r.CostBasis)
	fmt.Fprintln(&b)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Sales\n\n")
		fmt.Fprintln(w, "| Date | Sale | Ticker | Shares | Proceeds | Cost Basis | Short-term | Long-term |")
		fmt.Fprintln(w, "|:---|:---|:---|---:|---:|---:|---:|---:|")
		for _, s := range r.Sales {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				s.Date, cell(s.SaleID), cell(s.Ticker), s.Shares,
				s.Proceeds, s.CostBasis,
				s.ShortTerm.SignedString(), s.LongTerm.SignedString(),
			)
		}
		fmt.Fprintln(w)
		return len(r.Sales) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Wash Sales\n\n")
		writeWashSales(w, r.WashSaleFlags)
		fmt.Fprintf(w, "\nDisallowed loss: %s (not netted against the gains above)\n", r.DisallowedLoss)
		return len(r.WashSaleFlags) > 0
	})

	return b.String()
}

// WashSalesMarkdown renders the wash sale flags of a book.
func WashSalesMarkdown(flags []taxlot.WashSaleFlag) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Wash Sales\n\n")
	if len(flags) == 0 {
		fmt.Fprintln(&b, "No loss sale has a replacement purchase within 30 days.")
		return b.String()
	}
	writeWashSales(&b, flags)
	return b.String()
}

func writeWashSales(w io.Writer, flags []taxlot.WashSaleFlag) {
	fmt.Fprintln(w, "| Sale | Date | Ticker | Loss | Purchase | Date | Days | Shares | Price | Disallowed |")
	fmt.Fprintln(w, "|:---|:---|:---|---:|:---|:---|---:|---:|---:|---:|")
	for _, f := range flags {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %+d | %s | %s | %s |\n",
			cell(f.SaleID), f.SaleDate, cell(f.Ticker), f.Loss,
			cell(f.PurchaseID), f.PurchaseDate, f.DaysFromSale(),
			f.PurchaseShares, f.PurchasePrice, f.DisallowedLoss,
		)
	}
}
