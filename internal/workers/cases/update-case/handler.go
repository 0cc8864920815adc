package updatecase

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
	"docverify/internal/lifecycle"
	"docverify/internal/models"
)

const TaskType = "update-case"

type Handler struct {
	config    *Config
	manager   *lifecycle.Manager
	validator camunda.InputValidator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Manager   *lifecycle.Manager
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

// Execute applies the update. Moving to pending_irembo or stage central
// forwards the case; approving or sending issues its document.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, apperrors.NewInvalidInputError("caseId is required")
	}

	u := lifecycle.CaseUpdate{
		Feedback:        input.Feedback,
		OfficerID:       input.OfficerID,
		Notes:           input.Notes,
		ExpectedVersion: input.ExpectedVersion,
	}
	if input.Status != nil {
		s := models.CaseStatus(*input.Status)
		u.Status = &s
	}
	if input.Stage != nil {
		s := models.Stage(*input.Stage)
		u.Stage = &s
	}

	res, err := h.manager.ApplyUpdate(ctx, input.CaseID, u)
	if err != nil {
		return nil, err
	}

	c := res.Case
	out := &Output{
		CaseID:        c.ID,
		Status:        string(c.Status),
		Stage:         string(c.Stage),
		Feedback:      c.Feedback,
		LocalFeedback: c.LocalFeedback,
		OfficerID:     c.OfficerID,
		Version:       c.Version,
	}
	if res.Issued != nil {
		out.Issued = true
		out.IssuedDocumentID = res.Issued.ID
		out.VerificationID = res.Issued.VerificationID
		out.DownloadLocator = res.Issued.DownloadLocator
		h.logger.Info("document issued", map[string]interface{}{
			"caseId":         c.ID,
			"issuedId":       res.Issued.ID,
			"verificationId": res.Issued.VerificationID,
		})
	}
	return out, nil
}
