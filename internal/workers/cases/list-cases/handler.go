package listcases

import (
	"context"
	"errors"
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
	"docverify/internal/search"
)

const TaskType = "list-cases"

type Handler struct {
	config    *Config
	manager   *lifecycle.Manager
	searcher  Searcher
	validator camunda.InputValidator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Manager   *lifecycle.Manager
	Searcher  Searcher
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
		searcher:  opts.Searcher,
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

const (
	SourceStore  = "store"
	SourceSearch = "search"
)

// Searcher runs full-text queries against the case index.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.SearchResult, error)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID != "" {
		view, err := h.manager.GetCase(ctx, input.CaseID)
		if err != nil {
			return nil, err
		}
		return &Output{Items: []CaseSummary{summarize(*view)}, Total: 1, Page: 1, PerPage: 1, Source: SourceStore}, nil
	}

	filter, err := parseFilter(input)
	if err != nil {
		return nil, err
	}
	page := models.Page{Number: input.Page, PerPage: input.PerPage}
	if page.PerPage == 0 {
		page.PerPage = h.config.DefaultPerPage
	}

	if input.Query != "" && h.searcher != nil {
		return h.search(ctx, input.Query, filter, page.Normalize())
	}

	list, err := h.manager.ListCases(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	out := &Output{Items: make([]CaseSummary, 0, len(list.Items)), Total: list.Total, Page: list.Page, PerPage: list.PerPage, Source: SourceStore}
	for _, v := range list.Items {
		out.Items = append(out.Items, summarize(v))
	}
	return out, nil
}

// search resolves index hits against the primary store so status and queue
// position are current. Hits for cases no longer stored are dropped.
func (h *Handler) search(ctx context.Context, text string, filter models.CaseFilter, page models.Page) (*Output, error) {
	res, err := h.searcher.Search(ctx, search.Query{Text: text, Filter: filter, Page: page})
	if err != nil {
		return nil, err
	}
	out := &Output{Items: make([]CaseSummary, 0, len(res.Items)), Total: res.Total, Page: page.Number, PerPage: page.PerPage, Source: SourceSearch}
	for _, hit := range res.Items {
		view, err := h.manager.GetCase(ctx, hit.ID)
		if errors.Is(err, apperrors.ErrNotFound) {
			h.logger.Warn("indexed case missing from store", map[string]interface{}{"caseId": hit.ID})
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, summarize(*view))
	}
	return out, nil
}

func parseFilter(input *Input) (models.CaseFilter, error) {
	f := models.CaseFilter{
		Kind:         models.CaseKind(input.Kind),
		CitizenID:    input.CitizenID,
		DocumentType: input.DocumentType,
		Status:       models.CaseStatus(input.Status),
	}
	if f.Kind != "" && f.Kind != models.KindApplication && f.Kind != models.KindDocumentRequest {
		return f, apperrors.NewInvalidInputError("unknown case kind " + input.Kind)
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, apperrors.NewInvalidInputError("unknown status " + input.Status)
	}
	return f, nil
}

func summarize(v lifecycle.CaseView) CaseSummary {
	out := CaseSummary{
		ID:            v.ID,
		Kind:          string(v.Kind),
		CitizenName:   v.Citizen.FullName,
		CitizenID:     v.Citizen.IDNumber,
		DocumentType:  v.DocumentType,
		Status:        string(v.Status),
		Stage:         string(v.Stage),
		Priority:      string(v.Priority),
		Verdict:       string(v.Verdict),
		Confidence:    v.Confidence,
		RegistryMatch: v.RegistryMatch,
		Feedback:      v.Feedback,
		DocumentCount: len(v.Documents),
		QueuePosition: v.QueuePosition,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
	if latest := v.LatestVerdict(); latest != nil {
		out.LatestVerdict = latest.ToMap()
	}
	return out
}
