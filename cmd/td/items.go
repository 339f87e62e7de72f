package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/ui"
)

// parseDue accepts an RFC 3339 timestamp or a bare date, read as midnight
// local time.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t, nil
}

func parseStatus(s string) (model.Status, error) {
	st := model.Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status %q (must be todo, in_progress, blocked or done)", s)
	}
	return st, nil
}

// itemFields holds the optional item flags shared by add and update.
type itemFields struct {
	Description *string
	Notes       *string
	DueDate     *time.Time
	Status      *model.Status
	Position    *int
}

func readItemFields(flags *pflag.FlagSet) (itemFields, error) {
	var f itemFields
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		f.Description = &v
	}
	if flags.Changed("notes") {
		v, _ := flags.GetString("notes")
		f.Notes = &v
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		due, err := parseDue(v)
		if err != nil {
			return f, err
		}
		f.DueDate = &due
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		st, err := parseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	if flags.Changed("position") {
		v, _ := flags.GetInt("position")
		f.Position = &v
	}
	return f, nil
}

func addItemFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("description", "d", "", "task description")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().String("due", "", "due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringP("status", "s", "", "status (todo, in_progress, blocked, done)")
	cmd.Flags().Int("position", 0, "position within the list")
	cmd.Flags().StringP("tags", "t", "", `comma-separated tags, e.g. "docs, writing"`)
}

var addCmd = &cobra.Command{
	Use:     "add <list-id> <title>",
	Short:   "Add a task to a list",
	GroupID: "items",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := readItemFields(cmd.Flags())
		if err != nil {
			return err
		}
		tags, _ := cmd.Flags().GetString("tags")
		in := model.CreateItemInput{
			ListID:      args[0],
			Title:       args[1],
			Description: fields.Description,
			Notes:       fields.Notes,
			DueDate:     fields.DueDate,
			Status:      fields.Status,
			Position:    fields.Position,
			Tags:        model.ParseTags(tags),
		}

		item, err := svc.CreateItem(cmd.Context(), in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, item)
		}
		fmt.Fprintf(out, "%s Added task %s\n", ui.RenderSuccess("✓"), item.ID)
		printItemTable(out, item)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <item-id>",
	Short:   "Update a task",
	GroupID: "items",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := readItemFields(cmd.Flags())
		if err != nil {
			return err
		}
		listID, _ := cmd.Flags().GetString("list")
		in := model.UpdateItemInput{
			ItemID:      args[0],
			ListID:      listID,
			Description: fields.Description,
			Notes:       fields.Notes,
			DueDate:     fields.DueDate,
			Status:      fields.Status,
			Position:    fields.Position,
		}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			in.Title = &title
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetString("tags")
			in.Tags = model.ParseTags(tags)
			if in.Tags == nil {
				in.Tags = []string{}
			}
		}

		item, err := svc.UpdateItem(cmd.Context(), in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, item)
		}
		fmt.Fprintf(out, "%s Updated task %s\n", ui.RenderSuccess("✓"), item.ID)
		printItemTable(out, item)
		return nil
	},
}

var cycleCmd = &cobra.Command{
	Use:     "cycle <list-id> <item-id>",
	Short:   "Advance a task to its next status",
	Long:    "Advance a task through todo, in progress, blocked and done, wrapping back to todo.",
	GroupID: "items",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := svc.CycleStatus(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, item)
		}
		fmt.Fprintf(out, "%s %s is now %s\n", ui.RenderSuccess("✓"), item.Title, ui.RenderStatus(item.Status))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <list-id> <item-id>",
	Short:   "Remove a task from a list",
	GroupID: "items",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.DeleteItem(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]string{"deleted": args[1]})
		}
		fmt.Fprintf(out, "%s Removed task %s\n", ui.RenderSuccess("✓"), args[1])
		return nil
	},
}

func init() {
	addItemFlags(addCmd)

	addItemFlags(updateCmd)
	updateCmd.Flags().String("list", "", "list the task belongs to (refreshes only that list)")
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().Lookup("tags").Usage = `replace tags with a comma-separated set ("" clears them)`
}
