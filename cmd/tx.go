package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// addKinds are the kinds with a subcommand appending them to the ledger.
var addKinds = []taxlot.Kind{
	taxlot.KindBuy,
	taxlot.KindSell,
	taxlot.KindRights,
	taxlot.KindDividend,
	taxlot.KindInterest,
	taxlot.KindReturnOfCapital,
	taxlot.KindFee,
	taxlot.KindSplit,
	taxlot.KindSpinoff,
	taxlot.KindMerger,
}

var addSynopsis = map[taxlot.Kind]string{
	taxlot.KindBuy:             "purchase shares, opening a lot",
	taxlot.KindSell:            "sell shares, consuming lots",
	taxlot.KindRights:          "receive shares from a rights issue, opening a lot",
	taxlot.KindDividend:        "receive a dividend",
	taxlot.KindInterest:        "receive interest",
	taxlot.KindReturnOfCapital: "receive a return of capital",
	taxlot.KindFee:             "pay a fee on a security",
	taxlot.KindSplit:           "record a stock split",
	taxlot.KindSpinoff:         "record a spinoff into a new ticker",
	taxlot.KindMerger:          "record a merger into a new ticker",
}

// addCmd appends a transaction of its kind to the ledger.
type addCmd struct {
	kind taxlot.Kind

	id        string
	date      string
	ticker    string
	shares    string
	price     string
	amount    string
	currency  string
	fees      string
	ratio     string
	newTicker string
	memo      string
}

func (c *addCmd) Name() string     { return string(c.kind) }
func (c *addCmd) Synopsis() string { return addSynopsis[c.kind] }
func (c *addCmd) Usage() string {
	var args string
	switch c.kind {
	case taxlot.KindBuy, taxlot.KindSell, taxlot.KindRights:
		args = "-q <shares> -p <price>"
	case taxlot.KindSplit:
		args = "-ratio <new:old>"
	case taxlot.KindSpinoff, taxlot.KindMerger:
		args = "-into <ticker>"
	default:
		args = "-a <amount>"
	}
	return fmt.Sprintf(`tlx %s -s <ticker> [-d <date>] %s [-c <currency>] [-fees <fees>] [-id <id>] [-m <memo>]

  Appends a %s transaction to the ledger. The ledger must stay in date order.
`, c.kind, args, c.kind)
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id, a random one by default")
	f.StringVar(&c.date, "d", taxlot.Today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.StringVar(&c.currency, "c", taxlot.DefaultCurrency, "Currency of prices and amounts")
	f.StringVar(&c.fees, "fees", "", "Fees paid")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
	switch c.kind {
	case taxlot.KindBuy, taxlot.KindSell, taxlot.KindRights:
		f.StringVar(&c.shares, "q", "", "Number of shares")
		f.StringVar(&c.price, "p", "", "Price per share")
	case taxlot.KindSplit:
		f.StringVar(&c.ratio, "ratio", "", "Split ratio, new shares for old shares, like 2:1")
	case taxlot.KindSpinoff, taxlot.KindMerger:
		f.StringVar(&c.newTicker, "into", "", "The new ticker")
	default:
		f.StringVar(&c.amount, "a", "", "Amount")
	}
}

func (c *addCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tx, err := c.transaction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := appendTransaction(tx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Appended %s to %s\n", renderer.Transaction(tx), LedgerPath())
	return subcommands.ExitSuccess
}

// transaction builds the transaction from the flags.
func (c *addCmd) transaction() (taxlot.Transaction, error) {
	var tx taxlot.Transaction
	if c.ticker == "" {
		return tx, fmt.Errorf("missing ticker")
	}
	day, err := taxlot.ParseDate(c.date)
	if err != nil {
		return tx, fmt.Errorf("cannot parse date: %w", err)
	}
	id := c.id
	if id == "" {
		id = uuid.NewString()
	}

	switch c.kind {
	case taxlot.KindBuy, taxlot.KindSell, taxlot.KindRights:
		shares, err := taxlot.ParseQuantity(c.shares)
		if err != nil {
			return tx, fmt.Errorf("cannot parse shares %q: %w", c.shares, err)
		}
		price, err := taxlot.ParseMoney(c.price, c.currency)
		if err != nil {
			return tx, fmt.Errorf("cannot parse price %q: %w", c.price, err)
		}
		switch c.kind {
		case taxlot.KindBuy:
			tx = taxlot.NewBuy(id, c.ticker, day, shares, price)
		case taxlot.KindSell:
			tx = taxlot.NewSell(id, c.ticker, day, shares, price)
		default:
			tx = taxlot.NewRights(id, c.ticker, day, shares, price)
		}
	case taxlot.KindSplit:
		tx = taxlot.NewSplit(id, c.ticker, day, c.ratio)
	case taxlot.KindSpinoff:
		tx = taxlot.NewSpinoff(id, c.ticker, day, c.newTicker)
	case taxlot.KindMerger:
		tx = taxlot.NewMerger(id, c.ticker, day, c.newTicker)
	default:
		amount, err := taxlot.ParseMoney(c.amount, c.currency)
		if err != nil {
			return tx, fmt.Errorf("cannot parse amount %q: %w", c.amount, err)
		}
		switch c.kind {
		case taxlot.KindDividend:
			tx = taxlot.NewDividend(id, c.ticker, day, amount)
		case taxlot.KindInterest:
			tx = taxlot.NewInterest(id, c.ticker, day, amount)
		case taxlot.KindReturnOfCapital:
			tx = taxlot.NewReturnOfCapital(id, c.ticker, day, amount)
		default:
			tx = taxlot.NewFee(id, c.ticker, day, amount)
		}
	}

	if c.fees != "" && c.kind != taxlot.KindFee {
		fees, err := taxlot.ParseMoney(c.fees, c.currency)
		if err != nil {
			return tx, fmt.Errorf("cannot parse fees %q: %w", c.fees, err)
		}
		tx = tx.WithFees(fees)
	}
	if c.memo != "" {
		tx = tx.WithNotes(c.memo)
	}
	return tx, tx.Validate()
}

// appendTransaction appends tx to the ledger file, if the ledger accepts it.
func appendTransaction(tx taxlot.Transaction) error {
	txs, err := DecodeLedger()
	if err != nil {
		return err
	}
	ledger, err := taxlot.NewLedgerFrom(txs)
	if err != nil {
		return fmt.Errorf("invalid ledger %q: %w", LedgerPath(), err)
	}
	if err := ledger.Append(tx); err != nil {
		return err
	}

	// Open the file in append mode, creating it if it doesn't exist.
	f, err := os.OpenFile(LedgerPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening ledger file %q: %w", LedgerPath(), err)
	}
	if err := taxlot.EncodeTransaction(f, tx); err != nil {
		f.Close()
		return fmt.Errorf("error writing to ledger file %q: %w", LedgerPath(), err)
	}
	return f.Close()
}
