package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"mixdown/internal/api"
	"mixdown/internal/job"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintln(out, renderStatusLine("Daemon", okness(status.Running), yesNo(status.Running), colorize))
				fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Store backend", statusInfo, status.StoreBackend, colorize))
				fmt.Fprintln(out, renderStatusLine("Artifact dir", statusInfo, status.ArtifactDir, colorize))
				fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

				for _, name := range job.AllStatuses() {
					count := status.JobCounts[string(name)]
					kind := statusInfo
					if name == job.StatusFailed && count > 0 {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(titleCase(string(name)), kind, fmt.Sprintf("%d", count), colorize))
				}

				for _, dep := range status.Dependencies {
					message := "available"
					kind := statusOK
					if !dep.Available {
						message = dep.Detail
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
				}
				return nil
			})
		},
	}
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 16

func okness(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusWarn
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", message)
	if !colorize {
		return line
	}
	switch kind {
	case statusOK:
		return ansiGreen + line + ansiReset
	case statusWarn:
		return ansiYellow + line + ansiReset
	default:
		return ansiBlue + line + ansiReset
	}
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
