// Antrag CLI — операторский инструмент для worker'а заявок.
//
// Использование:
//
//	antrag [--json] [--env-file PATH] [--dry-run] <command> <subcommand> [flags]
//
// Команды:
//
//	workers   Каталог task type'ов
//	forecast  Оптимальное время старта по прогнозу
//	message   Публикация correlated messages
//	events    События outcome'ов из RabbitMQ
//	journal   Журнал outcome'ов из Postgres
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/shaiso/antrag-worker/internal/cli"
	"github.com/shaiso/antrag-worker/internal/config"
	"github.com/shaiso/antrag-worker/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var envFile string
	var jsonOutput bool
	var dryRun bool
	var env *cli.Env

	rootCmd := &cobra.Command{
		Use:           "antrag",
		Short:         "Antrag CLI — operator tool for the application job worker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			logger := telemetry.NewLogger(os.Stderr, "text", max(telemetry.LogLevel(), slog.LevelWarn))
			env = cli.NewEnv(cfg, dryRun, logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env if present)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Use an in-memory engine instead of Zeebe")

	envFn := func() *cli.Env { return env }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewWorkersCmd(outputFn),
		cli.NewForecastCmd(envFn, outputFn),
		cli.NewMessageCmd(envFn, outputFn),
		cli.NewEventsCmd(envFn, outputFn),
		cli.NewJournalCmd(envFn, outputFn),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if env != nil {
		env.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
