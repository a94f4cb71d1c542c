package cli

import (
	"studio_pm/internal/app"
	"studio_pm/internal/budget"

	"github.com/spf13/cobra"
)

func newBudgetCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Budget views over the master item list",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show per-room budget totals",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				store, err := a.ProjectStore(ctx)
				if err != nil {
					return err
				}
				data, err := budget.NewService(store).Data(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, data)
			},
		},
		&cobra.Command{
			Use:   "rollup",
			Short: "Roll SPEC sheet actuals up into the budget columns",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				store, err := a.ProjectStore(ctx)
				if err != nil {
					return err
				}
				result, err := budget.NewService(store).SummarizeSpecIntoBudget(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			},
		},
	)
	return cmd
}
