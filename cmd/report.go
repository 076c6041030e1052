package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/renderer"
	"github.com/fsnotify/fsnotify"
	"github.com/google/subcommands"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	year  int
	html  string
	watch bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "tax year report of realized gains and dividends" }
func (*reportCmd) Usage() string {
	return `tlx report [-y <year>] [-html <file>] [-watch]

  Replays the ledger and reports the short and long term gains, the dividend
  income and the wash sales of a tax year. Defaults to the latest year with a
  transaction.

  With -watch, the report is printed again each time the ledger or the
  selections file changes.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "y", 0, "Tax year to report on")
	f.StringVar(&c.html, "html", "", "Write the report as an HTML page to this file")
	f.BoolVar(&c.watch, "watch", false, "Report again on each change of the ledger")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := Method(); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing accounting method: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := c.report(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !c.watch {
			return subcommands.ExitFailure
		}
	}
	if !c.watch {
		return subcommands.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	err := watchFiles(ctx, []string{LedgerPath(), SelectionsPath()}, func() {
		if err := c.report(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *reportCmd) report() error {
	book, err := computeBook()
	if err != nil {
		return fmt.Errorf("cannot compute lots: %w", err)
	}
	year := c.year
	if year == 0 {
		years := book.Years()
		if len(years) == 0 {
			return fmt.Errorf("ledger %q is empty", LedgerPath())
		}
		year = years[len(years)-1]
	}
	md := renderer.ReportMarkdown(book.Report(year))
	return writeOutput(c.html, "Tax Report "+strconv.Itoa(year), md)
}

// watchFiles calls onChange after each change of one of files, until ctx is
// done. onChange runs on the calling goroutine, so calls never overlap and
// changes made during a call trigger a single later call. Directories are watched so that files replaced by editors keep being
// watched.
func watchFiles(ctx context.Context, files []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			log.Printf("Warning: failed to watch %s: %v", file, err)
		}
	}

	// editors often write files in multiple steps
	const debounceDelay = 100 * time.Millisecond
	var debounce *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Printf("%s changed", event.Name)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// replayCmd holds the flags for the 'replay' subcommand.
type replayCmd struct {
	html string
}

func (*replayCmd) Name() string     { return "replay" }
func (*replayCmd) Synopsis() string { return "open lots and sale allocations per ticker" }
func (*replayCmd) Usage() string {
	return `tlx replay [-html <file>]

  Replays the ledger and shows, for each ticker, the lots still open and the
  lots each sale was taken from.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.html, "html", "", "Write the replay as an HTML page to this file")
}

func (c *replayCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	book, err := computeBook()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing lots: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := writeOutput(c.html, "Lots", renderer.ReplayMarkdown(book)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// washCmd holds the flags for the 'wash' subcommand.
type washCmd struct {
	year int
}

func (*washCmd) Name() string     { return "wash" }
func (*washCmd) Synopsis() string { return "loss sales with a replacement purchase within 30 days" }
func (*washCmd) Usage() string {
	return `tlx wash [-y <year>]

  Lists the loss sales with a purchase of the same ticker 30 days before or
  after the sale. The losses are not adjusted.
`
}

func (c *washCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "y", 0, "Only list sales of this year")
}

func (c *washCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	book, err := computeBook()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing lots: %v\n", err)
		return subcommands.ExitFailure
	}
	var flags []taxlot.WashSaleFlag
	for _, w := range book.WashSales() {
		if c.year == 0 || w.SaleDate.Year() == c.year {
			flags = append(flags, w)
		}
	}
	printMarkdown(renderer.WashSalesMarkdown(flags))
	return subcommands.ExitSuccess
}
