package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/todoboard/internal/config"
	"github.com/alfredjeanlab/todoboard/internal/ui"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named todo service remotes",
	GroupID: "system",
	// Remote subcommands only touch the remotes file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + strings.Repeat("*", len(token)-8)
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		token, _ := cmd.Flags().GetString("token")
		natsURL, _ := cmd.Flags().GetString("nats")
		desc, _ := cmd.Flags().GetString("description")

		path, err := config.RemotesPath()
		if err != nil {
			return err
		}
		r := config.Remote{URL: url, Token: token, NATSURL: natsURL, Description: desc}
		if err := config.AddRemote(cmd.Context(), path, name, r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", name, url)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.RemotesPath()
		if err != nil {
			return err
		}
		if err := config.RemoveRemote(cmd.Context(), path, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.RemotesPath()
		if err != nil {
			return err
		}
		remotes, err := config.LoadRemotes(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, remotes)
		}
		if len(remotes.Remotes) == 0 {
			fmt.Fprintln(out, "no remotes configured")
			return nil
		}

		names := make([]string, 0, len(remotes.Remotes))
		for name := range remotes.Remotes {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			r := remotes.Remotes[name]
			marker := ""
			if name == remotes.Active {
				marker = "*"
			}
			rows = append(rows, []string{marker, name, r.URL, r.NATSURL, maskToken(r.Token)})
		}
		fmt.Fprintln(out, renderTable([]string{"", "NAME", "URL", "EVENTS", "TOKEN"}, rows, nil))
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.RemotesPath()
		if err != nil {
			return err
		}
		if err := config.UseRemote(cmd.Context(), path, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", args[0])
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [<name>]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.RemotesPath()
		if err != nil {
			return err
		}
		remotes, err := config.LoadRemotes(path)
		if err != nil {
			return err
		}

		name := remotes.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; specify a name or run 'td remote use <name>'")
		}
		r, ok := remotes.Remotes[name]
		if !ok {
			return fmt.Errorf("%w: %q", config.ErrRemoteNotFound, name)
		}

		out := cmd.OutOrStdout()
		active := ""
		if name == remotes.Active {
			active = ui.RenderAccent(" (active)")
		}
		fmt.Fprintf(out, "name:        %s%s\n", name, active)
		fmt.Fprintf(out, "url:         %s\n", r.URL)
		if r.Description != "" {
			fmt.Fprintf(out, "description: %s\n", r.Description)
		}
		if r.Token != "" {
			fmt.Fprintf(out, "token:       %s\n", maskToken(r.Token))
		}
		if r.NATSURL != "" {
			fmt.Fprintf(out, "nats_url:    %s\n", r.NATSURL)
		}
		return nil
	},
}

func init() {
	remoteAddCmd.Flags().String("token", "", "bearer token for authentication")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for change events")
	remoteAddCmd.Flags().StringP("description", "d", "", "what this remote is for")

	remoteCmd.AddCommand(remoteAddCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteUseCmd)
	remoteCmd.AddCommand(remoteShowCmd)
}
