package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExtensionMechanism(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("extensions are tested with a shell script")
	}
	dir := withFiles(t, "")
	*methodName = "lifo"

	// tlx-hello writes the environment it receives into the file named by
	// its first argument.
	script := `#!/bin/sh
{
  echo "` + EnvLedgerFile + `=$` + EnvLedgerFile + `"
  echo "` + EnvMethod + `=$` + EnvMethod + `"
  echo "` + EnvDB + `=$` + EnvDB + `"
} > "$1"
exit 3
`
	if err := os.WriteFile(filepath.Join(dir, "tlx-hello"), []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write tlx-hello: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out := filepath.Join(dir, "env.txt")
	found, code := RunExtension("hello", []string{out})
	if !found || code != 3 {
		t.Fatalf("RunExtension(hello) = %v, %d, want true, 3", found, code)
	}

	got := readFile(t, out)
	for _, want := range []string{
		EnvLedgerFile + "=" + LedgerPath(),
		EnvMethod + "=lifo",
		EnvDB + "=" + DBPath(),
	} {
		if !strings.Contains(got, want) {
			t.Errorf("extension environment does not contain %q:\n%s", want, got)
		}
	}
}

func TestExtensionNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if found, _ := RunExtension("nope", nil); found {
		t.Errorf("RunExtension(nope) found an extension")
	}
}
