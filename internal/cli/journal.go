package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/antrag-worker/internal/repo"
)

// NewJournalCmd создаёт группу команд журнала outcome'ов.
func NewJournalCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the job outcome journal",
	}

	cmd.AddCommand(newJournalListCmd(envFn, outputFn))

	return cmd
}

func newJournalListCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	var filter repo.ListFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent job outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()

			journal, err := env.Journal(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := journal.ListRecent(cmd.Context(), filter)
			if err != nil {
				return err
			}

			headers := []string{"RECORDED", "TASK TYPE", "JOB", "OUTCOME", "FAULT", "RETRIES", "VARIABLES"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.RecordedAt.Format(time.RFC3339),
					e.TaskType,
					strconv.FormatInt(e.JobKey, 10),
					string(e.Outcome),
					dashIfEmpty(string(e.Fault)),
					strconv.Itoa(e.Retries),
					dashIfEmpty(strings.Join(e.Variables, ",")),
				}
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.TaskType, "task-type", "", "Only this task type")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum entries (default 50)")

	return cmd
}
