package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/events"
	"fintrack/internal/logger"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect transaction events on the message broker",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print transactions.saved events as they arrive",
	Long: `Consume the AMQP_QUEUE queue and print every transactions.saved event until
interrupted or --timeout expires. Consumed messages are acknowledged.`,
	Args: cobra.NoArgs,
	RunE: runEventsTail,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}

func runEventsTail(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("events")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return fmt.Errorf("events tail needs AMQP_URL")
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	pub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("failed to connect to the message broker: %w", err)
	}
	defer pub.Close()

	asJSON := jsonOutput(cmd)
	err = pub.Consume(ctx, func(m *events.TransactionsSaved) error {
		if asJSON {
			return printJSON(cmd.OutOrStdout(), m)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %d transactions  total %.2f  %s\n",
			m.OccurredAt.Format("2006-01-02 15:04:05"), m.Count, m.Total, m.Confirmation)
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
