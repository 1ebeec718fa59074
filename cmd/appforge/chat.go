package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/appforge"
	"github.com/hupe1980/appforge/stream"
)

func newChatCommand(c *cli) *cobra.Command {
	var (
		jsonOutput bool
		sessionID  string
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the coordinator and stream the events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message must not be empty")
			}

			cfg, err := c.load()
			if err != nil {
				return err
			}

			app, err := appforge.New(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var out stream.Sink = newTextPrinter(cmd.OutOrStdout())
			if jsonOutput {
				out = stream.NewJSONWriter(cmd.OutOrStdout())
			}

			return runChat(ctx, app, sessionID, message, out)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print events as JSON lines")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (random when empty)")

	return cmd
}

func runChat(ctx context.Context, app *appforge.App, sessionID, message string, out stream.Sink) error {
	_, events, err := app.Runner().Run(ctx, sessionID, message)
	if err != nil {
		return err
	}

	var writeErr error
	for ev := range events {
		if writeErr != nil {
			continue
		}
		writeErr = out.Send(ctx, ev)
	}

	return writeErr
}
