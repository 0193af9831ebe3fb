package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"mixdown/internal/api"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <id> [id...]",
		Short: "Download completed conversion artifacts",
		Long: "Download the MP3 for a single completed job, or a ZIP archive bundling\n" +
			"the artifacts of several jobs. Jobs without a completed artifact are\n" +
			"skipped from bundles.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				var (
					body io.ReadCloser
					name string
				)
				if len(ids) == 1 {
					body, name, err = client.Download(cmd.Context(), ids[0])
					if name == "" {
						name = fmt.Sprintf("audio-%s.mp3", strconv.FormatInt(ids[0], 10))
					}
				} else {
					body, name, err = client.DownloadBundle(cmd.Context(), ids)
					if name == "" {
						name = "mixdown-bundle.zip"
					}
				}
				if err != nil {
					return err
				}
				defer body.Close()

				target := filepath.Join(outputDir, filepath.Base(name))
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create %s: %w", target, err)
				}
				written, err := io.Copy(file, body)
				if closeErr := file.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					_ = os.Remove(target)
					return fmt.Errorf("write %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", target, written)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to save the download into")
	return cmd
}
