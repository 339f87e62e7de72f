package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/todoboard/internal/config"
	"github.com/alfredjeanlab/todoboard/internal/export"
	"github.com/alfredjeanlab/todoboard/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the todo service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := todoClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := printJSON(out, map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Health: %s\n", status)
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

// exportDestinations returns the destinations named by --output and the
// export settings in c.
func exportDestinations(ctx context.Context, c *config.Config, output string) ([]export.Destination, error) {
	var dests []export.Destination
	if output != "" {
		dests = append(dests, export.NewFileDestination(output))
	}
	if c.ExportS3Bucket != "" {
		s3, err := export.NewS3Destination(ctx, c.ExportS3Bucket, c.ExportS3Key, c.ExportS3Region, c.ExportS3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("configuring S3 export: %w", err)
		}
		dests = append(dests, s3)
	}
	if c.ExportGitRepo != "" {
		dests = append(dests, export.NewGitDestination(c.ExportGitRepo, c.ExportGitFile, c.ExportGitBranch))
	}
	return dests, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every list and its tasks as JSONL",
	Long: `Export every list and its tasks as JSONL.

The snapshot is written to --output and to the S3 bucket or git repository
configured with TODOBOARD_EXPORT_S3_BUCKET and TODOBOARD_EXPORT_GIT_REPO.
With no destination it is printed to stdout. --every keeps exporting on an
interval until interrupted.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		every, _ := cmd.Flags().GetDuration("every")
		ctx := cmd.Context()

		dests, err := exportDestinations(ctx, cfg, output)
		if err != nil {
			return err
		}
		if len(dests) == 0 {
			if every > 0 {
				return fmt.Errorf("--every needs --output or a configured export destination")
			}
			return export.ExportJSONL(ctx, todoClient, cmd.OutOrStdout())
		}

		sched := export.NewScheduler(todoClient, dests, every, logger)
		if every > 0 {
			sched.Start(ctx)
			<-ctx.Done()
			sched.Stop()
			return nil
		}

		snap, deliveries, err := sched.RunOnce(ctx)
		if snap == nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range deliveries {
			switch {
			case d.Err != nil:
				fmt.Fprintf(out, "%s %v\n", ui.RenderError("✗"), d.Err)
			case d.Changed:
				fmt.Fprintf(out, "%s Exported %s to %s\n", ui.RenderSuccess("✓"), snap.Summary(), d.Destination)
			default:
				fmt.Fprintf(out, "%s %s is up to date\n", ui.RenderSuccess("✓"), d.Destination)
			}
		}
		return err
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write the export to this file")
	exportCmd.Flags().Duration("every", 0, "export repeatedly at this interval")
}
