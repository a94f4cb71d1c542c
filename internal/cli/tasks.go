package cli

import (
	"fmt"

	"studio_pm/internal/app"
	"studio_pm/internal/asana"
	"studio_pm/internal/projects"
	"studio_pm/internal/tasks"

	"github.com/spf13/cobra"
)

func newTasksCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with a project's Asana tasks",
	}
	cmd.AddCommand(newTasksListCmd(a), newTasksGanttCmd(a), newTasksCreateCmd(a))
	return cmd
}

// resolveAsanaProject maps a local project id to its linked Asana project.
func resolveAsanaProject(cmd *cobra.Command, a *app.App, projectID int) (*projects.Project, error) {
	ctx := cmd.Context()
	store, err := a.ProjectStore(ctx)
	if err != nil {
		return nil, err
	}
	project, err := projects.NewService(store).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AsanaProjectID == "" {
		return nil, fmt.Errorf("project %q has no linked Asana project", project.Name)
	}
	return project, nil
}

func newTasksListCmd(a *app.App) *cobra.Command {
	var projectID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a project's open tasks grouped by section",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID <= 0 {
				return fmt.Errorf("--project is required")
			}
			project, err := resolveAsanaProject(cmd, a, projectID)
			if err != nil {
				return err
			}
			client, err := a.AsanaClient()
			if err != nil {
				return err
			}
			board, err := tasks.NewService(client).ForProject(cmd.Context(), project.AsanaProjectID)
			if err != nil {
				return err
			}
			return printJSON(cmd, board)
		},
	}
	cmd.Flags().IntVar(&projectID, "project", 0, "project id")
	return cmd
}

func newTasksGanttCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "gantt",
		Short: "Flatten dated tasks across all projects into one timeline",
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
			client, err := a.AsanaClient()
			if err != nil {
				return err
			}
			timeline, err := tasks.NewService(client).ForGantt(ctx, list)
			if err != nil {
				return err
			}
			return printJSON(cmd, timeline)
		},
	}
}

func newTasksCreateCmd(a *app.App) *cobra.Command {
	var projectID int
	var task asana.NewTask
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task on a project's Asana board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID <= 0 {
				return fmt.Errorf("--project is required")
			}
			if task.Name == "" {
				return fmt.Errorf("--name is required")
			}
			project, err := resolveAsanaProject(cmd, a, projectID)
			if err != nil {
				return err
			}
			client, err := a.AsanaClient()
			if err != nil {
				return err
			}
			created, err := tasks.NewService(client).Create(cmd.Context(), project.AsanaProjectID, task)
			if err != nil {
				return err
			}
			a.NotifyClient().NotifyTaskCreated(cmd.Context(), created.Name, created.URL)
			return printJSON(cmd, created)
		},
	}
	cmd.Flags().IntVar(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&task.Name, "name", "", "task name")
	cmd.Flags().StringVar(&task.Notes, "notes", "", "task description")
	cmd.Flags().StringVar(&task.DueOn, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&task.Section, "section", "", "board section to file the task under")
	cmd.Flags().StringVar(&task.Assignee, "assignee", "", "assignee email")
	return cmd
}
