// Package cmd implements the tlx command line application, a tax lot
// accounting tool working on a JSONL ledger file.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&replayCmd{}, "reports")
	c.Register(&reportCmd{}, "reports")
	c.Register(&washCmd{}, "reports")

	for _, kind := range addKinds {
		c.Register(&addCmd{kind: kind}, "transactions")
	}
	c.Register(&importCmd{}, "transactions")
	c.Register(&fmtCmd{}, "transactions")

	c.Register(&dbCmd{}, "storage")
	c.Register(&serveCmd{}, "storage")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	ledgerFile     = flag.String("ledger-file", "", "Path to the ledger file (JSONL format). Defaults to $"+EnvLedgerFile+" or transactions.jsonl")
	selectionsFile = flag.String("selections-file", "", "Path to the specific lot selections file (JSONL format). Defaults to $"+EnvSelectionsFile+" or selections.jsonl")
	methodName     = flag.String("method", "", "Accounting method (fifo, lifo, specific, average). Defaults to $"+EnvMethod+" or fifo")
	dbFile         = flag.String("db", "", "Path to the sqlite database. Defaults to $"+EnvDB+" or taxlot.db")
	Verbose        = flag.Bool("v", false, "Print verbose logs. Defaults to $"+EnvVerbose)
)

// LoadEnv loads a .env file from the working directory, if any, into the
// environment. Variables already set are not overridden.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning, cannot load .env file: %v", err)
	}
}

// SetupLogs discards logs unless verbose logs were asked for.
func SetupLogs() {
	if !IsVerbose() {
		log.SetOutput(io.Discard)
	}
}

// setting returns the flag value, or the environment variable, or the default.
func setting(flagValue, env, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func LedgerPath() string     { return setting(*ledgerFile, EnvLedgerFile, "transactions.jsonl") }
func SelectionsPath() string { return setting(*selectionsFile, EnvSelectionsFile, "selections.jsonl") }
func DBPath() string         { return setting(*dbFile, EnvDB, "taxlot.db") }

// IsVerbose tells whether -v or TAXLOT_VERBOSE asked for verbose logs.
func IsVerbose() bool {
	if *Verbose {
		return true
	}
	v, _ := strconv.ParseBool(os.Getenv(EnvVerbose))
	return v
}

// Method returns the accounting method selected by -method or TAXLOT_METHOD.
func Method() (taxlot.AccountingMethod, error) {
	return taxlot.ParseAccountingMethod(setting(*methodName, EnvMethod, "fifo"))
}

// DecodeLedger reads the transactions of the ledger file. A missing file is
// an empty ledger.
func DecodeLedger() ([]taxlot.Transaction, error) {
	f, err := os.Open(LedgerPath())
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning, ledger %q does not exist, using an empty ledger instead", LedgerPath())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	txs, err := taxlot.DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding ledger %q: %w", LedgerPath(), err)
	}
	return txs, nil
}

// EncodeLedger replaces the ledger file with txs.
func EncodeLedger(txs []taxlot.Transaction) error {
	f, err := os.OpenFile(LedgerPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error opening ledger file %q for writing: %w", LedgerPath(), err)
	}
	if err := taxlot.EncodeTransactions(f, txs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DecodeSelections reads the selections file. A missing file means no
// selection.
func DecodeSelections() (taxlot.Selections, error) {
	f, err := os.Open(SelectionsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	selections, err := taxlot.DecodeSelections(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding selections %q: %w", SelectionsPath(), err)
	}
	return selections, nil
}

// computeBook replays the ledger file with the selected method.
func computeBook() (*taxlot.Book, error) {
	method, err := Method()
	if err != nil {
		return nil, err
	}
	txs, err := DecodeLedger()
	if err != nil {
		return nil, err
	}
	selections, err := DecodeSelections()
	if err != nil {
		return nil, err
	}
	log.Printf("replaying %d transactions with %s", len(txs), method)
	return taxlot.Compute(txs, method, selections)
}

// printMarkdown prints md styled for the terminal, or raw if it cannot be
// styled.
func printMarkdown(md string) {
	out, err := renderer.Terminal(md, 120)
	if err != nil {
		log.Printf("cannot style output: %v", err)
		out = md
	}
	fmt.Print(out)
}

// writeOutput writes md to path as an HTML page, or prints it.
func writeOutput(path, title, md string) error {
	if path == "" {
		printMarkdown(md)
		return nil
	}
	page, err := renderer.HTMLPage(title, md)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		return fmt.Errorf("cannot write %q: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Written %s\n", path)
	return nil
}
