package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shaiso/antrag-worker/internal/domain"
)

// ZeebeConfig — параметры подключения к Zeebe gateway.
type ZeebeConfig struct {
	// GatewayAddress — адрес gateway (host:port).
	GatewayAddress string

	// OAuth (Camunda SaaS / Identity). Если ClientID пустой,
	// подключение идёт без credentials provider.
	ClientID               string
	ClientSecret           string
	AuthorizationServerURL string
	Audience               string

	// Plaintext — без TLS (локальная разработка).
	Plaintext bool
}

// Zeebe — Client поверх Zeebe Go client (gRPC).
type Zeebe struct {
	client zbc.Client
	logger *slog.Logger
}

// NewZeebe подключается к Zeebe gateway.
func NewZeebe(cfg ZeebeConfig, logger *slog.Logger) (*Zeebe, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := &zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.Plaintext,
	}

	if cfg.ClientID != "" {
		provider, err := zbc.NewOAuthCredentialsProvider(&zbc.OAuthProviderConfig{
			ClientID:               cfg.ClientID,
			ClientSecret:           cfg.ClientSecret,
			AuthorizationServerURL: cfg.AuthorizationServerURL,
			Audience:               cfg.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("create oauth credentials provider: %w", err)
		}
		clientCfg.CredentialsProvider = provider
	}

	client, err := zbc.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	logger.Info("zeebe client created",
		"gateway", cfg.GatewayAddress,
		"oauth", cfg.ClientID != "",
		"plaintext", cfg.Plaintext,
	)

	return &Zeebe{client: client, logger: logger}, nil
}

// ActivateJobs реализует Client.
func (z *Zeebe) ActivateJobs(ctx context.Context, req ActivateRequest) ([]domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cmd := z.client.NewActivateJobsCommand().
		JobType(req.TaskType).
		MaxJobsToActivate(int32(req.MaxJobs))
	if req.LockTimeout > 0 {
		cmd = cmd.Timeout(req.LockTimeout)
	}
	if req.WorkerName != "" {
		cmd = cmd.WorkerName(req.WorkerName)
	}
	if len(req.FetchVariables) > 0 {
		cmd = cmd.FetchVariables(req.FetchVariables...)
	}

	activated, err := cmd.Send(ctx)
	if err != nil {
		return nil, classifyError("activate jobs", err)
	}

	jobs := make([]domain.Job, 0, len(activated))
	for _, j := range activated {
		jobs = append(jobs, toDomainJob(j))
	}
	return jobs, nil
}

// CompleteJob реализует Client.
func (z *Zeebe) CompleteJob(ctx context.Context, key int64, vars map[string]any) error {
	step := z.client.NewCompleteJobCommand().JobKey(key)

	if len(vars) == 0 {
		_, err := step.Send(ctx)
		return classifyError("complete job", err)
	}

	cmd, err := step.VariablesFromMap(vars)
	if err != nil {
		return fmt.Errorf("%w: encode variables: %v", ErrInvalidRequest, err)
	}

	_, err = cmd.Send(ctx)
	return classifyError("complete job", err)
}

// FailJob реализует Client.
func (z *Zeebe) FailJob(ctx context.Context, key int64, retries int, message string) error {
	_, err := z.client.NewFailJobCommand().
		JobKey(key).
		Retries(int32(max(retries, 0))).
		ErrorMessage(message).
		Send(ctx)
	return classifyError("fail job", err)
}

// ThrowError реализует Client.
func (z *Zeebe) ThrowError(ctx context.Context, key int64, code, message string) error {
	_, err := z.client.NewThrowErrorCommand().
		JobKey(key).
		ErrorCode(code).
		ErrorMessage(message).
		Send(ctx)
	return classifyError("throw error", err)
}

// PublishMessage реализует Client.
func (z *Zeebe) PublishMessage(ctx context.Context, msg domain.CorrelationMessage) error {
	cmd := z.client.NewPublishMessageCommand().
		MessageName(msg.Name).
		CorrelationKey(msg.CorrelationKey).
		TimeToLive(msg.TimeToLive)
	if msg.MessageID != "" {
		cmd = cmd.MessageId(msg.MessageID)
	}

	if len(msg.Variables) > 0 {
		withVars, err := cmd.VariablesFromMap(msg.Variables)
		if err != nil {
			return fmt.Errorf("%w: encode message variables: %v", ErrInvalidRequest, err)
		}
		cmd = withVars
	}

	_, err := cmd.Send(ctx)
	return classifyError("publish message", err)
}

// Close реализует Client.
func (z *Zeebe) Close() error {
	return z.client.Close()
}

// toDomainJob переводит job из gRPC-представления в доменное.
func toDomainJob(j entities.Job) domain.Job {
	job := domain.Job{
		Key:                j.GetKey(),
		Type:               j.GetType(),
		Retries:            int(j.GetRetries()),
		ProcessInstanceKey: j.GetProcessInstanceKey(),
		BpmnProcessID:      j.GetBpmnProcessId(),
		ElementID:          j.GetElementId(),
		Worker:             j.GetWorker(),
	}
	if deadline := j.GetDeadline(); deadline > 0 {
		job.Deadline = time.UnixMilli(deadline)
	}
	if vars := j.GetVariables(); vars != "" {
		job.Variables = json.RawMessage(vars)
	}
	return job
}

// classifyError переводит gRPC-статус в ошибки пакета.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %s", op, ErrJobNotFound, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidRequest, st.Message())
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
