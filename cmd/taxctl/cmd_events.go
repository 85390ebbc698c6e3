package main

import (
	"context"
	"encoding/json"
	"fmt"

	"corp-tax-agent-be/pkg/events"
	pktNats "corp-tax-agent-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	eventsType    string
	eventsDurable string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect pipeline events relayed to NATS",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print pipeline events as they arrive (needs NATS_URL)",
	RunE:  runEventsTail,
}

func init() {
	eventsTailCmd.Flags().StringVar(&eventsType, "type", "", "only this event type, e.g. STAGE_ENTERED")
	eventsTailCmd.Flags().StringVar(&eventsDurable, "durable", "", "durable consumer name; empty only shows new events")
	eventsCmd.AddCommand(eventsTailCmd)
}

func runEventsTail(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	if cfg.App.NatsURL == "" {
		return fmt.Errorf("NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	subject := pktNats.Subject(">")
	if eventsType != "" {
		subject = pktNats.Subject(eventsType)
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	err = sub.Subscribe(ctx, subject, eventsDurable, func(_ context.Context, e events.Event) error {
		payload, err := json.Marshal(e.Payload())
		if err != nil {
			return err
		}
		color.New(color.FgCyan).Fprintf(out, "%s ", e.Timestamp().Format("15:04:05.000"))
		color.New(color.Bold).Fprintf(out, "%-20s", e.EventType())
		fmt.Fprintf(out, " %s\n", payload)
		return nil
	})
	if err != nil {
		return err
	}

	color.New(color.Faint).Fprintf(out, "Tailing %s, Ctrl-C to stop.\n", subject)
	<-ctx.Done()
	return nil
}
