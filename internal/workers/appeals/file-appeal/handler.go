package fileappeal

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
	"docverify/internal/lifecycle"
)

const TaskType = "file-appeal"

type Handler struct {
	config    *Config
	manager   *lifecycle.Manager
	documents *payload.Source
	validator camunda.InputValidator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Manager   *lifecycle.Manager
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
	if opts.Manager == nil {
		return nil, fmt.Errorf("%s: lifecycle manager is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:    cfg,
		manager:   opts.Manager,
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

// Execute files the appeal. An attached document is evaluated and added to
// the case, but the case keeps its status until an officer acts.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, apperrors.NewInvalidInputError("caseId is required")
	}

	req := lifecycle.AppealRequest{
		CaseID:    input.CaseID,
		CitizenID: input.CitizenID,
		Reason:    input.Reason,
	}
	if input.Document != nil {
		data, err := h.documents.Bytes(ctx, *input.Document)
		if err != nil {
			return nil, err
		}
		req.Document = &lifecycle.Upload{
			Filename:    input.Document.Filename,
			ContentType: input.Document.ContentType,
			Data:        data,
		}
	}

	res, err := h.manager.FileAppeal(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Output{
		AppealID:            res.Appeal.ID,
		CaseID:              res.Appeal.CaseID,
		Status:              string(res.Appeal.Status),
		ReevaluationVerdict: res.Appeal.ReevaluationVerdict,
	}
	if res.Record != nil {
		out.Record = res.Record.ToMap()
	}
	return out, nil
}
