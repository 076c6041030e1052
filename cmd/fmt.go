package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlot"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	outputFile string
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `tlx fmt [-o <file>]

  Validates and formats the ledger file. This command reads all transactions,
  validates them, sorts them by date, keeping the order of transactions on the
  same day, and writes them back in a canonical JSONL format.
  By default, it formats the ledger in-place.

Usage Examples:
# Writes to the default ledger file.
$ tlx fmt

`
}

func (p *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.outputFile, "o", "", "Write the formatted ledger to this file instead")
}

func (p *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	txs, err := DecodeLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	taxlot.SortTransactions(txs)
	if _, err := taxlot.NewLedgerFrom(txs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	if p.outputFile != "" {
		out, err := os.Create(p.outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer out.Close()
		if err := taxlot.EncodeTransactions(out, txs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Formatted ledger %q into %q.\n", LedgerPath(), p.outputFile)
		return subcommands.ExitSuccess
	}

	if err := EncodeLedger(txs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Formatted ledger %q.\n", LedgerPath())
	return subcommands.ExitSuccess
}
