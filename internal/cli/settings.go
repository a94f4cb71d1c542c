package cli

import (
	"fmt"

	"studio_pm/internal/app"
	"studio_pm/internal/projects"

	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write persisted settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [key]",
			Short: "Show one setting, or all keys when none is given",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 0 {
					all := make(map[string]string)
					for _, key := range a.Settings.Keys() {
						all[key] = a.Settings.Get(key)
					}
					return printJSON(cmd, all)
				}
				value := a.Settings.Get(args[0])
				if value == "" {
					return fmt.Errorf("setting %q is not set", args[0])
				}
				return printJSON(cmd, map[string]string{args[0]: value})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.Settings.Set(args[0], args[1]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]string{args[0]: args[1]})
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.Settings.Delete(args[0]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]string{"deleted": args[0]})
			},
		},
	)
	return cmd
}

// newValidateCmd checks the stored credentials against the live services.
func newValidateCmd(a *app.App) *cobra.Command {
	var projectID int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Verify spreadsheet access and the Asana token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			result := make(map[string]string)

			store, err := a.ProjectStore(ctx)
			if err != nil {
				return err
			}
			title, err := store.Title(ctx)
			if err != nil {
				return fmt.Errorf("spreadsheet access failed: %w", err)
			}
			result["spreadsheet"] = title

			client, err := a.AsanaClient()
			if err != nil {
				return err
			}
			if projectID > 0 {
				project, err := projects.NewService(store).GetByID(ctx, projectID)
				if err != nil {
					return err
				}
				name, err := client.ValidateCredentials(ctx, project.AsanaProjectID)
				if err != nil {
					return fmt.Errorf("asana token check failed: %w", err)
				}
				result["asana"] = name
			} else {
				result["asana"] = "token present; pass --project to verify board access"
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().IntVar(&projectID, "project", 0, "also confirm access to this project's Asana board")
	return cmd
}
