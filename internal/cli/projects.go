package cli

import (
	"fmt"

	"studio_pm/internal/app"
	"studio_pm/internal/projects"

	"github.com/spf13/cobra"
)

func newProjectsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage the project register",
	}
	cmd.AddCommand(newProjectsListCmd(a), newProjectsAddCmd(a), newProjectsUpdateCmd(a))
	return cmd
}

func newProjectsListCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.ProjectStore(ctx)
			if err != nil {
				return err
			}
			list, err := projects.NewService(store).List(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}
}

// projectFlags binds the writable Project fields onto a command.
func projectFlags(cmd *cobra.Command, p *projects.Project) {
	cmd.Flags().StringVar(&p.Name, "name", "", "project name")
	cmd.Flags().StringVar(&p.Client, "client", "", "client name")
	cmd.Flags().StringVar(&p.ClientEmail, "client-email", "", "client email")
	cmd.Flags().StringVar(&p.ClientAddress, "address", "", "client address")
	cmd.Flags().StringVar(&p.Status, "status", "", "project status")
	cmd.Flags().StringVar(&p.AsanaProjectID, "asana-project", "", "Asana project id")
	cmd.Flags().StringVar(&p.SheetID, "sheet-id", "", "project spreadsheet id")
	cmd.Flags().StringVar(&p.FolderID, "folder-id", "", "drive folder id")
	cmd.Flags().StringVar(&p.Color, "color", "", "calendar color for timeline views")
	cmd.Flags().StringVar(&p.Architect, "architect", "", "architect name")
	cmd.Flags().StringVar(&p.ArchitectEmail, "architect-email", "", "architect email")
	cmd.Flags().StringVar(&p.Contractor, "contractor", "", "contractor name")
	cmd.Flags().StringVar(&p.ContractorEmail, "contractor-email", "", "contractor email")
}

func newProjectsAddCmd(a *app.App) *cobra.Command {
	var p projects.Project
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project to the register",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.Name == "" {
				return fmt.Errorf("--name is required")
			}
			ctx := cmd.Context()
			store, err := a.ProjectStore(ctx)
			if err != nil {
				return err
			}
			svc := projects.NewService(store)
			id, err := svc.Add(ctx, p)
			if err != nil {
				return err
			}
			added, err := svc.GetByID(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, added)
		},
	}
	projectFlags(cmd, &p)
	return cmd
}

func newProjectsUpdateCmd(a *app.App) *cobra.Command {
	var p projects.Project
	var id int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a registered project in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id <= 0 {
				return fmt.Errorf("--id is required")
			}
			ctx := cmd.Context()
			store, err := a.ProjectStore(ctx)
			if err != nil {
				return err
			}
			svc := projects.NewService(store)
			current, err := svc.GetByID(ctx, id)
			if err != nil {
				return err
			}
			merged := mergeProject(*current, p, cmd)
			if err := svc.Update(ctx, id, merged); err != nil {
				return err
			}
			updated, err := svc.GetByID(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, updated)
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "project id (row ordinal)")
	projectFlags(cmd, &p)
	return cmd
}

// mergeProject overlays only the flags the user actually set, so an update
// never blanks fields by omission.
func mergeProject(current, edits projects.Project, cmd *cobra.Command) projects.Project {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("name") {
		current.Name = edits.Name
	}
	if set("client") {
		current.Client = edits.Client
	}
	if set("client-email") {
		current.ClientEmail = edits.ClientEmail
	}
	if set("address") {
		current.ClientAddress = edits.ClientAddress
	}
	if set("status") {
		current.Status = edits.Status
	}
	if set("asana-project") {
		current.AsanaProjectID = edits.AsanaProjectID
	}
	if set("sheet-id") {
		current.SheetID = edits.SheetID
	}
	if set("folder-id") {
		current.FolderID = edits.FolderID
	}
	if set("color") {
		current.Color = edits.Color
	}
	if set("architect") {
		current.Architect = edits.Architect
	}
	if set("architect-email") {
		current.ArchitectEmail = edits.ArchitectEmail
	}
	if set("contractor") {
		current.Contractor = edits.Contractor
	}
	if set("contractor-email") {
		current.ContractorEmail = edits.ContractorEmail
	}
	return current
}
