package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/renderer"
	"github.com/etnz/taxlot/store"
	"github.com/google/subcommands"
)

type dbCmd struct {
	year int
}

func (*dbCmd) Name() string     { return "db" }
func (*dbCmd) Synopsis() string { return "push the ledger into the database, or report from it" }
func (*dbCmd) Usage() string {
	return `tlx db push
tlx db -y <year> report

  push: appends the ledger transactions missing from the database.
  report: reports a tax year on the transactions of the database. Reports
  are saved in the database until new transactions are pushed.
`
}

func (c *dbCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "y", 0, "Tax year to report on")
}

func (c *dbCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	s, err := store.Open(ctx, DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	switch f.Arg(0) {
	case "push":
		n, err := push(ctx, s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Pushed %d transactions into %s\n", n, DBPath())
	case "report":
		if c.year == 0 {
			fmt.Fprintln(os.Stderr, "Error: missing -y")
			return subcommands.ExitUsageError
		}
		method, err := Method()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing accounting method: %v\n", err)
			return subcommands.ExitUsageError
		}
		report, err := storedReport(ctx, s, c.year, method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.ReportMarkdown(report))
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// push appends the ledger transactions missing from s, and returns how many.
func push(ctx context.Context, s *store.Store) (int, error) {
	txs, err := DecodeLedger()
	if err != nil {
		return 0, err
	}
	stored, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(stored))
	for _, tx := range stored {
		known[tx.ID] = true
	}
	var missing []taxlot.Transaction
	for _, tx := range txs {
		if !known[tx.ID] {
			missing = append(missing, tx)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.Append(ctx, missing...); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// storedReport returns the report saved in s, or computes and saves it.
func storedReport(ctx context.Context, s *store.Store, year int, method taxlot.AccountingMethod) (taxlot.TaxYearReport, error) {
	report, err := s.Report(ctx, year, method)
	if !errors.Is(err, store.ErrNotFound) {
		return report, err
	}
	txs, err := s.All(ctx)
	if err != nil {
		return report, err
	}
	book, err := taxlot.Compute(txs, method, nil)
	if err != nil {
		return report, err
	}
	report = book.Report(year)
	if err := s.SaveReport(ctx, report); err != nil {
		log.Printf("cannot save %d report: %v", year, err)
	}
	return report, nil
}
