package evaluatedocument

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
	"docverify/internal/common/payload"
	"docverify/internal/decision"
	"docverify/internal/decision/identity"
	"docverify/internal/lifecycle"
)

const TaskType = "evaluate-document"

type Handler struct {
	config    *Config
	engine    lifecycle.Evaluator
	documents *payload.Source
	validator camunda.InputValidator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Engine    lifecycle.Evaluator
	Documents *payload.Source
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
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: decision engine is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:    cfg,
		engine:    opts.Engine,
		documents: opts.Documents,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	data, err := h.documents.Bytes(ctx, input.Document)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.config.MaxFileSize {
		return nil, apperrors.NewFileTooLargeError(int64(len(data)), h.config.MaxFileSize)
	}

	record, err := h.engine.Evaluate(ctx, decision.Input{
		Image:    data,
		Declared: identity.Declared{FullName: input.FullName, IDNumber: input.IDNumber},
		CaseID:   input.CaseID,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("document evaluated", map[string]interface{}{
		"verdict":     record.Verdict,
		"confidence":  record.PercentConfidence,
		"aiProcessed": record.AIProcessed,
	})

	return &Output{
		Verdict:           string(record.Verdict),
		PercentConfidence: record.PercentConfidence,
		QualityScore:      record.QualityScore,
		AIProcessed:       record.AIProcessed,
		Simulation:        record.Simulation,
		IdentityScore:     record.IdentityMatch.Score,
		IdentityMatch:     record.IdentityMatch.IsMatch,
		IdentityExpired:   record.IdentityMatch.IsExpired,
		Issues:            lifecycle.DocumentIssues(record),
		Record:            record.ToMap(),
	}, nil
}
