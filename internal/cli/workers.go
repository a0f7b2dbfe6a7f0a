package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/antrag-worker/internal/handlers"
)

// workerInfo — строка каталога для JSON-вывода.
type workerInfo struct {
	TaskType    string   `json:"task_type"`
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Required    []string `json:"required,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// NewWorkersCmd создаёт команду вывода каталога task type'ов.
func NewWorkersCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "List task types served by the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			catalog := handlers.Catalog()
			infos := make([]workerInfo, len(catalog))
			rows := make([][]string, len(catalog))
			for i, b := range catalog {
				infos[i] = workerInfo{
					TaskType:    b.TaskType,
					Kind:        string(b.Kind),
					Description: b.Description,
					Required:    b.Required,
					Message:     b.Message,
				}
				rows[i] = []string{
					b.TaskType,
					string(b.Kind),
					dashIfEmpty(strings.Join(b.Required, ",")),
					dashIfEmpty(b.Message),
				}
			}

			out.Print([]string{"TASK TYPE", "KIND", "REQUIRED", "MESSAGE"}, rows, infos)
			return nil
		},
	}
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
