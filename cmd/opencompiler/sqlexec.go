package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/opencompiler/internal/sqldriver"
)

// sqlExecCmd is the run command of the sql language profile. It executes a
// generated driver file against a fresh in-memory database, printing rows
// to stdout.
var sqlExecCmd = &cobra.Command{
	Use:    "sql-exec <driver-file>",
	Short:  "Execute a generated SQL driver file",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runSQLExec,
}

func init() {
	rootCmd.AddCommand(sqlExecCmd)
}

func runSQLExec(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading driver: %w", err)
	}
	d, err := sqldriver.Parse(data)
	if err != nil {
		return err
	}
	if err := sqldriver.Exec(cmd.Context(), d, os.Stdout); err != nil {
		// Exec has already printed the error where the user sees it.
		os.Exit(1)
	}
	return nil
}
