package submitdocuments

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

const TaskType = "submit-documents"

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

// Execute decodes every attached document, evaluates them and opens the case.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Documents) > h.config.MaxDocuments {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("at most %d documents per submission, got %d", h.config.MaxDocuments, len(input.Documents)))
	}

	sub := lifecycle.Submission{
		Citizen:      input.Citizen,
		DocumentType: input.DocumentType,
		Description:  input.Description,
	}
	for _, doc := range input.Documents {
		data, err := h.documents.Bytes(ctx, doc)
		if err != nil {
			return nil, err
		}
		sub.Documents = append(sub.Documents, lifecycle.Upload{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Data:        data,
		})
	}

	res, err := h.manager.Submit(ctx, sub)
	if err != nil {
		return nil, err
	}
	c := res.Case

	position, err := h.manager.QueuePosition(ctx, c)
	if err != nil {
		h.logger.Warn("queue position unavailable", map[string]interface{}{"caseId": c.ID, "error": err.Error()})
	}

	verdicts := make([]map[string]interface{}, 0, len(res.Records))
	for _, r := range res.Records {
		verdicts = append(verdicts, r.ToMap())
	}

	h.logger.Info("application submitted", map[string]interface{}{
		"caseId":     c.ID,
		"verdict":    c.Verdict,
		"confidence": c.Confidence,
		"documents":  len(c.Documents),
	})

	return &Output{
		CaseID:          c.ID,
		Status:          string(c.Status),
		Stage:           string(c.Stage),
		Priority:        string(c.Priority),
		Verdict:         string(c.Verdict),
		Confidence:      c.Confidence,
		RegistryMatch:   c.RegistryMatch,
		RegistryBoosted: c.RegistryBoosted,
		Feedback:        c.Feedback,
		QueuePosition:   position,
		DocumentCount:   len(c.Documents),
		Verdicts:        verdicts,
	}, nil
}
