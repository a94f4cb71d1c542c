package cli

import (
	"studio_pm/internal/app"
	"studio_pm/internal/splitter"

	"github.com/spf13/cobra"
)

func newSplitCmd(a *app.App) *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Rebuild the FFE and SPEC sheets from the master item list",
		Long:  "Rereads the master item list, rebuilds every target sheet from\nscratch according to its SPEC/FFE flag, and feeds the pricing sheet\nfrom the fresh FFE data. Target layouts come from the split config\nfile when one is given, otherwise the built-in defaults.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				configFile = a.SplitConfig
			}
			cfg, err := splitter.LoadConfig(configFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := a.ProjectStore(ctx)
			if err != nil {
				return err
			}
			result, err := splitter.NewService(store, cfg).Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "split layout config (YAML)")
	return cmd
}
