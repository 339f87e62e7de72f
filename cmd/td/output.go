package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alfredjeanlab/todoboard/internal/model"
	"github.com/alfredjeanlab/todoboard/internal/ui"
)

const timeLayout = "2006-01-02 15:04"

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printListTable(w io.Writer, list *model.TodoList) {
	fmt.Fprintf(w, "ID:          %s\n", list.ID)
	fmt.Fprintf(w, "Name:        %s\n", list.Name)
	if desc := model.Deref(list.Description); desc != "" {
		fmt.Fprintf(w, "Description: %s\n", desc)
	}
	fmt.Fprintf(w, "Created At:  %s\n", list.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "Updated At:  %s\n", list.UpdatedAt.Local().Format(timeLayout))
}

func printItemTable(w io.Writer, item *model.TodoItem) {
	fmt.Fprintf(w, "ID:          %s\n", item.ID)
	fmt.Fprintf(w, "List:        %s\n", item.ListID)
	fmt.Fprintf(w, "Title:       %s\n", item.Title)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderStatus(item.Status))
	fmt.Fprintf(w, "Position:    %d\n", item.Position)
	if desc := model.Deref(item.Description); desc != "" {
		fmt.Fprintf(w, "Description: %s\n", desc)
	}
	if notes := model.Deref(item.Notes); notes != "" {
		fmt.Fprintf(w, "Notes:       %s\n", notes)
	}
	if item.DueDate != nil {
		fmt.Fprintf(w, "Due:         %s\n", item.DueDate.Local().Format(timeLayout))
	}
	if names := item.TagNames(); len(names) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Updated At:  %s\n", item.UpdatedAt.Local().Format(timeLayout))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}
