package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mixdown/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage conversion jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversion jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				records, err := client.ListJobs(cmd.Context(), statusFilters...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						strconv.FormatInt(record.ID, 10),
						record.Status,
						fmt.Sprintf("%d%%", record.Progress),
						jobLabel(record),
						artifactSize(record),
						humanize.Time(record.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Progress", "Title", "Size", "Created"},
					rows,
					0, 2, 4,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one conversion job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				record, err := client.GetJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("job #%d not found", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job #%d\n", record.ID)
				fmt.Fprintf(out, "  Source:    %s\n", record.SourceURL)
				if record.Title != "" {
					fmt.Fprintf(out, "  Title:     %s\n", record.Title)
				}
				fmt.Fprintf(out, "  Status:    %s (%d%%)\n", record.Status, record.Progress)
				if record.ArtifactName != "" {
					fmt.Fprintf(out, "  Artifact:  %s (%s)\n", record.ArtifactName, humanize.Bytes(uint64(record.ArtifactSize)))
				}
				if record.ErrorDetail != "" {
					fmt.Fprintf(out, "  Error:     %s\n", record.ErrorDetail)
				}
				fmt.Fprintf(out, "  Created:   %s\n", record.CreatedAt.Local().Format(time.RFC1123))
				fmt.Fprintf(out, "  Updated:   %s\n", record.UpdatedAt.Local().Format(time.RFC1123))
				if record.CompletedAt != nil {
					fmt.Fprintf(out, "  Completed: %s\n", record.CompletedAt.Local().Format(time.RFC1123))
				}
				return nil
			})
		},
	}
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> [id...]",
		Short: "Remove jobs and their stored artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					existed, err := client.DeleteJob(cmd.Context(), id)
					if err != nil {
						return err
					}
					if existed {
						fmt.Fprintf(out, "Removed job #%d\n", id)
					} else {
						fmt.Fprintf(out, "Job #%d was already gone\n", id)
					}
				}
				return nil
			})
		},
	}
}

func jobLabel(record api.JobPayload) string {
	if record.Title != "" {
		return record.Title
	}
	return record.SourceURL
}

func artifactSize(record api.JobPayload) string {
	if record.ArtifactSize <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(record.ArtifactSize))
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}

func parseJobIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, value := range raw {
		id, err := parseJobID(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
