package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/subcommands"
)

func TestReportHTML(t *testing.T) {
	dir := withFiles(t, washLedger)
	out := filepath.Join(dir, "report.html")
	c := &reportCmd{}
	if status := c.Execute(context.Background(), newFlagSet(t, c, "-html", out)); status != subcommands.ExitSuccess {
		t.Fatalf("Execute() = %v, want success", status)
	}
	page := readFile(t, out)
	for _, want := range []string{"<title>Tax Report 2024</title>", "-$5,000.00", "Wash Sales"} {
		if !strings.Contains(page, want) {
			t.Errorf("report does not contain %q:\n%s", want, page)
		}
	}
}

func TestReportErrors(t *testing.T) {
	withFiles(t, `{"id":"s1","date":"2024-06-01","kind":"sell","ticker":"AAPL","shares":1,"price":1}
`)
	c := &reportCmd{}
	if status := c.Execute(context.Background(), newFlagSet(t, c, "-html", os.DevNull)); status != subcommands.ExitFailure {
		t.Errorf("Execute() on an oversold ledger = %v, want failure", status)
	}

	*methodName = "hifo"
	if status := c.Execute(context.Background(), newFlagSet(t, c)); status != subcommands.ExitUsageError {
		t.Errorf("Execute() with an unknown method = %v, want usage error", status)
	}
}

func TestReplayHTML(t *testing.T) {
	dir := withFiles(t, washLedger)
	out := filepath.Join(dir, "lots.html")
	c := &replayCmd{}
	if status := c.Execute(context.Background(), newFlagSet(t, c, "-html", out)); status != subcommands.ExitSuccess {
		t.Fatalf("Execute() = %v, want success", status)
	}
	if page := readFile(t, out); !strings.Contains(page, "<h2>AAPL</h2>") {
		t.Errorf("replay does not list AAPL:\n%s", page)
	}
}

func TestWatchFiles(t *testing.T) {
	dir := withFiles(t, washLedger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, []string{LedgerPath()}, func() { changed <- struct{}{} })
	}()
	// let the watcher start
	time.Sleep(200 * time.Millisecond)

	writeFile(t, dir, "other.jsonl", "ignored")
	writeFile(t, dir, "transactions.jsonl", washLedger)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported after writing the ledger")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watchFiles() error = %v", err)
	}
}

func TestWatchFiles_ChangesDuringRender(t *testing.T) {
	dir := withFiles(t, washLedger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running, overlaps, calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, []string{LedgerPath()}, func() {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(300 * time.Millisecond)
			calls.Add(1)
			running.Add(-1)
		})
	}()
	// let the watcher start
	time.Sleep(200 * time.Millisecond)

	// the second and third writes land while the first render is running
	writeFile(t, dir, "transactions.jsonl", washLedger)
	time.Sleep(200 * time.Millisecond)
	writeFile(t, dir, "transactions.jsonl", washLedger)
	time.Sleep(150 * time.Millisecond)
	writeFile(t, dir, "transactions.jsonl", washLedger)

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("watchFiles() error = %v", err)
	}
	if n := calls.Load(); n < 2 {
		t.Errorf("onChange called %d times, want at least 2", n)
	}
	if n := overlaps.Load(); n != 0 {
		t.Errorf("onChange overlapped %d times", n)
	}
}
