package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixdown/internal/api"
	"mixdown/internal/submit"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> [url...]",
		Short: "Submit one or more media URLs for conversion",
		Long: fmt.Sprintf(
			"Submit media URLs for MP3 conversion. Multiple URLs are submitted as a\nsingle batch of up to %d entries; the batch is accepted or rejected as a whole.",
			submit.BulkMax,
		),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					record, err := client.Submit(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Queued conversion as job #%d\n", record.ID)
					return nil
				}

				records, err := client.SubmitBulk(cmd.Context(), args)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued %d conversions:\n", len(records))
				for _, record := range records {
					fmt.Fprintf(out, "  job #%d  %s\n", record.ID, record.SourceURL)
				}
				return nil
			})
		},
	}
}
