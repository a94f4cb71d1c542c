// Package cli wires the studio_pm command tree. Every command prints a JSON
// envelope to stdout so output stays scriptable; logs go to stderr.
package cli

import (
	"encoding/json"
	"fmt"

	"studio_pm/internal/app"

	"github.com/spf13/cobra"
)

// envelope is the uniform command result shape.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{Success: true, Data: data})
}

func printError(cmd *cobra.Command, err error) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(envelope{Success: false, Error: err.Error()})
}

// NewRootCmd builds the full command tree against one App.
func NewRootCmd(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:           "studio_pm",
		Short:         "Interior design project management from the command line",
		Long:          "studio_pm manages design projects end to end: the master item list,\nFFE/SPEC splits, budgets, vendor price requests, and Asana task boards.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newProjectsCmd(a),
		newTasksCmd(a),
		newBudgetCmd(a),
		newItemsCmd(a),
		newRoomsCmd(a),
		newSplitCmd(a),
		newEmailCmd(a),
		newSettingsCmd(a),
		newValidateCmd(a),
	)

	return root
}

// Execute runs the command tree. Errors come back as JSON envelopes on
// stdout plus a non-nil error for the exit code.
func Execute(a *app.App) error {
	root := NewRootCmd(a)
	if err := root.Execute(); err != nil {
		printError(root, err)
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
