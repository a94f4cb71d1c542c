package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"studio_pm/internal/app"
	"studio_pm/internal/items"
	"studio_pm/internal/settings"

	"github.com/spf13/cobra"
)

// itemsService wires the master-list service against both spreadsheets.
func itemsService(cmd *cobra.Command, a *app.App) (*items.Service, error) {
	ctx := cmd.Context()
	store, err := a.ProjectStore(ctx)
	if err != nil {
		return nil, err
	}
	data, err := a.DataStore(ctx)
	if err != nil {
		return nil, err
	}
	return items.NewService(store, data), nil
}

func newItemsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Read and edit the master item list",
	}
	cmd.AddCommand(newItemsListCmd(a), newItemsSaveCmd(a), newItemsSelectionCmd(a), newItemsSummaryCmd(a))
	return cmd
}

func newItemsListCmd(a *app.App) *cobra.Command {
	var rooms []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List master list items, optionally filtered by room",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			data, err := svc.Data(cmd.Context(), rooms)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().StringSliceVar(&rooms, "rooms", nil, "only these rooms")
	return cmd
}

func newItemsSaveCmd(a *app.App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a batch of item edits to the master list",
		Long:  "Reads a JSON array of items from --file (or stdin with --file -)\nand applies updates and appends as one batch. The whole batch is\nrejected when any item is missing a room or description.",
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := readItemBatch(file)
			if err != nil {
				return err
			}
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			updated, appended := 0, 0
			for _, item := range batch {
				if item.RowNumber > 0 {
					updated++
				} else {
					appended++
				}
			}
			result, err := svc.SaveToMasterList(cmd.Context(), batch)
			if err != nil {
				return err
			}
			project := a.Settings.GetWithDefault(settings.KeyProjectName, "project")
			a.NotifyClient().NotifyMasterListSaved(cmd.Context(), project, updated, appended, result.BackupTable)
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "JSON file of items, - for stdin")
	return cmd
}

func readItemBatch(file string) ([]items.Item, error) {
	var raw []byte
	var err error
	if file == "-" || file == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read item batch: %w", err)
	}
	var batch []items.Item
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse item batch: %w", err)
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("item batch is empty")
	}
	return batch, nil
}

func newItemsSelectionCmd(a *app.App) *cobra.Command {
	var rooms []string
	cmd := &cobra.Command{
		Use:   "selection",
		Short: "Build the item picker view for the selected rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			data, err := svc.SelectionData(cmd.Context(), rooms)
			if err != nil {
				return err
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().StringSliceVar(&rooms, "rooms", nil, "rooms to build the picker for; defaults to the saved selection")
	return cmd
}

func newItemsSummaryCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show project totals at a glance",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			summary, err := svc.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}

func newRoomsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage the shared room and category lists",
	}
	cmd.AddCommand(newRoomsListCmd(a), newRoomsAddCmd(a), newRoomsSelectCmd(a), newRoomsCategoriesCmd(a))
	return cmd
}

func newRoomsListCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the known rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			rooms, err := svc.Rooms(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, rooms)
		},
	}
}

func newRoomsAddCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a room to the shared list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			added, err := svc.AddRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, added)
		},
	}
}

func newRoomsSelectCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "select [room ...]",
		Short: "Save the working room selection; no args shows the current one",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				selected, err := svc.SelectedRooms(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, selected)
			}
			if err := svc.SaveSelectedRooms(cmd.Context(), args); err != nil {
				return err
			}
			return printJSON(cmd, args)
		},
	}
}

func newRoomsCategoriesCmd(a *app.App) *cobra.Command {
	var room, category string
	var remove bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show or edit room-to-category assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := itemsService(cmd, a)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if room != "" {
				if category == "" {
					return fmt.Errorf("--category is required with --room")
				}
				if err := svc.UpdateRoomCategory(ctx, room, category, !remove); err != nil {
					return err
				}
			} else if category != "" || remove {
				return fmt.Errorf("--room is required")
			}
			assignments, err := svc.RoomCategories(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, assignments)
		},
	}
	cmd.Flags().StringVar(&room, "room", "", "room to edit")
	cmd.Flags().StringVar(&category, "category", "", "item category to assign")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the assignment instead of adding it")
	return cmd
}
