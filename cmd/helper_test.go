package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const washLedger = `{"id":"b1","date":"2024-01-01","kind":"buy","ticker":"AAPL","shares":100,"price":150,"currency":"USD"}
{"id":"s1","date":"2024-06-01","kind":"sell","ticker":"AAPL","shares":100,"price":100,"currency":"USD"}
{"id":"b2","date":"2024-06-15","kind":"buy","ticker":"AAPL","shares":100,"price":110,"currency":"USD"}
`

// withFiles points the global flags at files of a temporary directory, the
// ledger holding content, and returns the directory.
func withFiles(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	ledger := filepath.Join(dir, "transactions.jsonl")
	if content != "" {
		if err := os.WriteFile(ledger, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write ledger: %v", err)
		}
	}
	set := func(p *string, v string) {
		old := *p
		*p = v
		t.Cleanup(func() { *p = old })
	}
	set(ledgerFile, ledger)
	set(selectionsFile, filepath.Join(dir, "selections.jsonl"))
	set(dbFile, filepath.Join(dir, "taxlot.db"))
	set(methodName, "")
	return dir
}

func readLedger(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(LedgerPath())
	if err != nil {
		t.Fatalf("Failed to read ledger: %v", err)
	}
	return string(data)
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

// newFlagSet returns the flags of a command parsed from args.
func newFlagSet(t *testing.T, c interface{ SetFlags(*flag.FlagSet) }, args ...string) *flag.FlagSet {
	t.Helper()
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%q) error = %v", args, err)
	}
	return f
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}
