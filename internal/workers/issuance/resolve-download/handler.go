package resolvedownload

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"docverify/internal/common/camunda"
	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/issuance"
)

const TaskType = "resolve-download"

type Handler struct {
	config    *Config
	resolver  *issuance.Resolver
	validator camunda.InputValidator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Resolver  *issuance.Resolver
	Validator camunda.InputValidator
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("%s: download resolver is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:    cfg,
		resolver:  opts.Resolver,
		validator: opts.Validator,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.validator, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.FromError(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute publishes the issued document of an approved case and returns a
// time-limited link to it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, apperrors.NewInvalidInputError("caseId is required")
	}
	expiry := h.config.LinkExpiry
	if input.ExpirySeconds > 0 {
		expiry = time.Duration(input.ExpirySeconds) * time.Second
	}

	dl, err := h.resolver.Deliver(ctx, input.CaseID, expiry)
	if err != nil {
		return nil, err
	}
	return &Output{
		CaseID:         input.CaseID,
		VerificationID: dl.Artifact.VerificationID,
		Source:         string(dl.Artifact.Source),
		Filename:       dl.Artifact.Filename,
		ContentType:    dl.Artifact.ContentType,
		Size:           len(dl.Artifact.Data),
		Locator:        dl.Locator,
		URL:            dl.URL,
		ExpiresAt:      dl.ExpiresAt,
	}, nil
}
