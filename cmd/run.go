package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/teemow/propertyinbox/internal/organizer"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process mail once and print the run summary",
		Long: `Run the organizer once: enumerate unprocessed listing mail, file the
attachments, generate reports and label the messages. The run summary is
printed to stdout as JSON. The command fails only when candidate messages
could not be listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			summary, runErr := a.Run(ctx, organizer.TriggerCLI)
			if summary != nil {
				if err := writeSummary(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	return cmd
}

func writeSummary(w io.Writer, summary *organizer.RunSummary) error {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
