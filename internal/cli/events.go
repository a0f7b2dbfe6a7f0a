package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/antrag-worker/internal/mq"
)

// NewEventsCmd создаёт группу команд событий outcome'ов.
func NewEventsCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect job outcome events in RabbitMQ",
	}

	cmd.AddCommand(newEventsTailCmd(envFn, outputFn))

	return cmd
}

func newEventsTailCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Consume and print job outcome events",
		Long: `Consumes events from the ` + string(mq.QueueJobOutcomes) + ` queue and prints them.
Consumed events are acknowledged and removed from the queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()

			conn, err := env.Broker()
			if err != nil {
				return err
			}
			if err := mq.SetupTopology(cmd.Context(), conn); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			seen := 0
			consumer := mq.NewConsumer(conn, nil, mq.ConsumerConfig{
				Queue: mq.QueueJobOutcomes,
				Handler: func(_ context.Context, msg *mq.Message) error {
					ev, err := mq.ParsePayload[mq.OutcomeEvent](msg)
					if err != nil {
						return err
					}
					out.Line(formatEvent(msg, ev), ev)

					seen++
					if limit > 0 && seen >= limit {
						cancel()
					}
					return nil
				},
			})

			err = consumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after N events (0 = until interrupted)")

	return cmd
}

func formatEvent(msg *mq.Message, ev mq.OutcomeEvent) string {
	line := fmt.Sprintf("%s  %-9s %-40s job=%d instance=%d",
		msg.Timestamp.Format("15:04:05"), ev.Outcome, ev.TaskType, ev.JobKey, ev.ProcessInstanceKey)
	if ev.Fault != "" {
		line += fmt.Sprintf(" fault=%s retries=%d", ev.Fault, ev.Retries)
	}
	if ev.ErrorCode != "" {
		line += " code=" + ev.ErrorCode
	}
	if ev.ErrorMessage != "" {
		line += fmt.Sprintf(" %q", ev.ErrorMessage)
	}
	return line
}
