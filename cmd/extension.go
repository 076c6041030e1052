package cmd

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

const (
	EnvLedgerFile     = "TAXLOT_LEDGER_FILE"
	EnvSelectionsFile = "TAXLOT_SELECTIONS_FILE"
	EnvMethod         = "TAXLOT_METHOD"
	EnvDB             = "TAXLOT_DB"
	EnvVerbose        = "TAXLOT_VERBOSE"
)

// RunExtension attempts to find and execute an external tlx-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found or executed.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "tlx-" + subcommand

	// Look for the external command in PATH
	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		log.Printf("External command %q not found in PATH: %v", externalCmdName, err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				return true, status.ExitStatus()
			}
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv passes the resolved global flags to extensions.
func extensionEnv() []string {
	method := setting(*methodName, EnvMethod, "fifo")
	return []string{
		EnvLedgerFile + "=" + LedgerPath(),
		EnvSelectionsFile + "=" + SelectionsPath(),
		EnvMethod + "=" + method,
		EnvDB + "=" + DBPath(),
		EnvVerbose + "=" + strconv.FormatBool(IsVerbose()),
	}
}
