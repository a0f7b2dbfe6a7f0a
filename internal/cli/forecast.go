package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewForecastCmd создаёт группу команд сервиса прогнозов.
func NewForecastCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Query the carbon forecast service",
	}

	cmd.AddCommand(newForecastBestStartCmd(envFn, outputFn))

	return cmd
}

func newForecastBestStartCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "best-start",
		Short: "Compute the optimal start time for a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()

			resolver, err := env.Resolver()
			if err != nil {
				return err
			}

			start, err := resolver.Resolve(cmd.Context(), window)
			if err != nil {
				return err
			}

			out.Record([][2]string{
				{"Region", resolver.Region()},
				{"Window", strconv.Itoa(window) + "m"},
				{"Best start", start.BestStart},
				{"UTC", start.UTC.Format(time.RFC3339)},
				{"Value", strconv.FormatFloat(start.Value, 'f', -1, 64)},
			}, start)
			return nil
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "Window size in minutes (0 = point forecast)")

	return cmd
}
