package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/todoboard/internal/board"
	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/ui"
)

var listsCmd = &cobra.Command{
	Use:     "lists",
	Short:   "List todo lists with their task counts",
	GroupID: "lists",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lists, err := svc.Lists(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing lists: %w", err)
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, lists)
		}
		printListsTable(out, lists)
		return nil
	},
}

func printListsTable(w io.Writer, lists []model.TodoListSummary) {
	if len(lists) == 0 {
		fmt.Fprintln(w, "No lists yet. Create one with: td create-list <name>")
		return
	}
	rows := make([][]string, 0, len(lists))
	for _, l := range lists {
		rows = append(rows, []string{l.ID, l.Name, strconv.Itoa(l.ItemCount), formatTime(l.UpdatedAt)})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "NAME", "TASKS", "UPDATED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

var showCmd = &cobra.Command{
	Use:     "show <list-id>",
	Short:   "Show a list and its tasks",
	GroupID: "lists",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFlag, _ := cmd.Flags().GetString("status")
		search, _ := cmd.Flags().GetString("search")
		filter, err := board.ParseStatusFilter(statusFlag)
		if err != nil {
			return err
		}
		if err := model.ValidateID("list_id", args[0]); err != nil {
			return err
		}

		detail, err := svc.ListDetail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading list %s: %w", args[0], err)
		}
		state := board.State{SelectedListID: detail.ID, StatusFilter: filter, SearchTerm: search}
		filtered := *detail
		filtered.Items = board.FilterItems(detail.Items, state)

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, filtered)
		}
		printDetail(out, detail, filtered.Items)
		return nil
	},
}

func printDetail(w io.Writer, detail *model.TodoListDetail, items []model.TodoItem) {
	fmt.Fprintln(w, ui.RenderBold(detail.Name))
	if desc := model.Deref(detail.Description); desc != "" {
		fmt.Fprintln(w, desc)
	}
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("%s • %d tasks", detail.ID, len(detail.Items))))
	fmt.Fprintln(w)

	if len(items) == 0 {
		fmt.Fprintln(w, "No tasks match the current filters.")
	} else {
		rows := make([][]string, 0, len(items))
		for i := range items {
			item := &items[i]
			due := ""
			if item.DueDate != nil {
				due = item.DueDate.Local().Format("2006-01-02")
			}
			rows = append(rows, []string{
				item.ID,
				item.Title,
				item.Status.Label(),
				strings.Join(item.TagNames(), ", "),
				due,
			})
		}
		fmt.Fprintln(w, renderTable([]string{"ID", "TITLE", "STATUS", "TAGS", "DUE"}, rows, nil))
	}

	tags := board.TagSummary(detail.Items)
	if len(tags) == 0 {
		return
	}
	parts := make([]string, len(tags))
	for i, tc := range tags {
		parts[i] = fmt.Sprintf("#%s %d", tc.Name, tc.Count)
	}
	fmt.Fprintf(w, "\n%s: %s\n", ui.RenderMuted("Tags"), strings.Join(parts, "  "))
}

var createListCmd = &cobra.Command{
	Use:     "create-list <name>",
	Short:   "Create a todo list",
	GroupID: "lists",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := model.CreateListInput{Name: args[0]}
		if cmd.Flags().Changed("description") {
			desc, _ := cmd.Flags().GetString("description")
			in.Description = &desc
		}
		list, err := svc.CreateList(cmd.Context(), in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, list)
		}
		fmt.Fprintf(out, "%s Created list %s\n", ui.RenderSuccess("✓"), list.ID)
		printListTable(out, list)
		return nil
	},
}

var renameListCmd = &cobra.Command{
	Use:     "rename-list <list-id>",
	Short:   "Change a list's name or description",
	GroupID: "lists",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := model.UpdateListInput{ListID: args[0]}
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			in.Name = &name
		}
		if cmd.Flags().Changed("description") {
			desc, _ := cmd.Flags().GetString("description")
			in.Description = &desc
		}
		if in.Name == nil && in.Description == nil {
			return fmt.Errorf("nothing to update: pass --name or --description")
		}

		list, err := svc.UpdateList(cmd.Context(), in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, list)
		}
		fmt.Fprintf(out, "%s Updated list %s\n", ui.RenderSuccess("✓"), list.ID)
		printListTable(out, list)
		return nil
	},
}

var deleteListCmd = &cobra.Command{
	Use:     "delete-list <list-id>...",
	Short:   "Delete lists and all of their tasks",
	GroupID: "lists",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		deleted := make([]string, 0, len(args))
		for _, id := range args {
			if err := svc.DeleteList(cmd.Context(), id); err != nil {
				return fmt.Errorf("deleting list %s: %w", id, err)
			}
			deleted = append(deleted, id)
			if !jsonOutput {
				fmt.Fprintf(out, "%s Deleted list %s\n", ui.RenderSuccess("✓"), id)
			}
		}
		if jsonOutput {
			return printJSON(out, map[string][]string{"deleted": deleted})
		}
		return nil
	},
}

func init() {
	showCmd.Flags().StringP("status", "s", "", "filter by status (all, todo, in_progress, blocked, done)")
	showCmd.Flags().String("search", "", "match title, description, notes or tags")

	createListCmd.Flags().StringP("description", "d", "", "list description")

	renameListCmd.Flags().String("name", "", "new name")
	renameListCmd.Flags().StringP("description", "d", "", "new description (empty clears it)")
}
