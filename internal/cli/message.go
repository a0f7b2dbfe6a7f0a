package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// ErrInvalidVar — --var не в формате name=value.
var ErrInvalidVar = errors.New("invalid variable")

// publishResult — результат публикации для вывода.
type publishResult struct {
	Message domain.CorrelationMessage `json:"message"`
	DryRun  bool                      `json:"dry_run"`
}

// NewMessageCmd создаёт группу команд для correlated messages.
func NewMessageCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Publish correlated messages",
	}

	cmd.AddCommand(newMessagePublishCmd(envFn, outputFn))

	return cmd
}

func newMessagePublishCmd(envFn func() *Env, outputFn func() *Output) *cobra.Command {
	var (
		key  string
		ttl  time.Duration
		vars []string
	)

	cmd := &cobra.Command{
		Use:   "publish NAME",
		Short: "Publish a message to the engine",
		Example: `  antrag message publish Message_0mrwobu --key 4711 --var rejected=true
  antrag --dry-run message publish Message_AntragOnline --key 4711 --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()
			out := outputFn()

			variables, err := parseVars(vars)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("ttl") {
				ttl = env.Config().MessageTTL
			}

			pub, err := env.Publisher(ttl)
			if err != nil {
				return err
			}

			msg := domain.CorrelationMessage{
				Name:           args[0],
				CorrelationKey: key,
				TimeToLive:     pub.TTL(),
				Variables:      variables,
			}
			if err := pub.PublishMessage(cmd.Context(), msg); err != nil {
				return err
			}

			if env.DryRun() {
				out.Success(fmt.Sprintf("Dry run: message %s not sent", msg.Name))
			} else {
				out.Success(fmt.Sprintf("Message published: %s", msg.Name))
			}
			out.Record([][2]string{
				{"Name", msg.Name},
				{"Correlation key", dashIfEmpty(msg.CorrelationKey)},
				{"TTL", msg.TimeToLive.String()},
				{"Variables", strconv.Itoa(len(variables))},
			}, publishResult{Message: msg, DryRun: env.DryRun()})
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Correlation key")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Message time to live (default: MESSAGE_TTL)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Message variable name=value (repeatable)")

	return cmd
}

// parseVars разбирает список name=value.
// Значения true/false становятся bool, числа — float64 (как после JSON).
func parseVars(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q, want name=value", ErrInvalidVar, pair)
		}
		value, err := parseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidVar, name, err)
		}
		vars[name] = value
	}
	return vars, nil
}

// parseValue разбирает значение переменной. NaN, Inf и числа вне
// диапазона float64 отклоняются: в JSON их не передать.
func parseValue(raw string) (any, error) {
	if raw == "true" || raw == "false" {
		return raw == "true", nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return nil, fmt.Errorf("number %q is out of range", raw)
	case err != nil:
		return raw, nil
	case math.IsNaN(f) || math.IsInf(f, 0):
		return nil, fmt.Errorf("non-finite number %q", raw)
	}
	return f, nil
}
