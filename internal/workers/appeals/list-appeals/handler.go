package listappeals

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

const TaskType = "list-appeals"

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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var out *Output
	if input.AppealID != "" {
		a, err := h.manager.GetAppeal(ctx, input.AppealID)
		if err != nil {
			return nil, err
		}
		out = &Output{Items: []*models.Appeal{a}, Total: 1, Page: 1, PerPage: 1}
	} else {
		page := models.Page{Number: input.Page, PerPage: input.PerPage}
		if page.PerPage == 0 {
			page.PerPage = h.config.DefaultPerPage
		}
		list, err := h.manager.ListAppeals(ctx, models.AppealFilter{
			CitizenID: input.CitizenID,
			Status:    models.AppealStatus(input.Status),
		}, page)
		if err != nil {
			return nil, err
		}
		out = &Output{Items: list.Items, Total: list.Total, Page: list.Page, PerPage: list.PerPage}
	}
	if out.Items == nil {
		out.Items = []*models.Appeal{}
	}

	if input.IncludeStatistics {
		stats, err := h.manager.AppealStatistics(ctx)
		if err != nil {
			return nil, err
		}
		out.Statistics = stats
	}
	return out, nil
}
