package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/taxlot"
	"github.com/google/subcommands"
)

type importCmd struct {
	mapFile string
	dryRun  bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a JSON export" }
func (*importCmd) Usage() string {
	return `tlx import [-map <fieldmap.json>] [-n] <file.json | ->

  Imports the records of a JSON document, like a database export, into the
  ledger. The ledger is then sorted by date and validated before being written.

  The field map gives a JSONPath for each transaction field:

    {"Records": "$.rows[*]", "Ticker": "$.symbol", "Kind": "$.action",
     "Kinds": {"BOUGHT": "buy", "SOLD": "sell"}}

  Missing fields use the default map, reading an array of rows with the
  columns id, ticker, type, date, shares, price, amount, currency, fees,
  split_ratio, new_ticker and notes.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mapFile, "map", "", "JSON file with the field map")
	f.BoolVar(&c.dryRun, "n", false, "Print the imported transactions instead of writing the ledger")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	m, err := c.fieldMap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	var r io.Reader = os.Stdin
	if name := f.Arg(0); name != "-" {
		in, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer in.Close()
		r = in
	}
	imported, err := taxlot.ImportJSON(r, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	taxlot.SortTransactions(imported)

	if c.dryRun {
		if err := taxlot.EncodeTransactions(os.Stdout, imported); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	txs, err := DecodeLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	txs = append(txs, imported...)
	taxlot.SortTransactions(txs)
	if _, err := taxlot.NewLedgerFrom(txs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: imported transactions do not fit the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := EncodeLedger(txs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d transactions into %s\n", len(imported), LedgerPath())
	return subcommands.ExitSuccess
}

// fieldMap reads the field map file over the default map.
func (c *importCmd) fieldMap() (taxlot.FieldMap, error) {
	m := taxlot.DefaultFieldMap
	if c.mapFile == "" {
		return m, nil
	}
	data, err := os.ReadFile(c.mapFile)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("invalid field map %q: %w", c.mapFile, err)
	}
	return m, nil
}
