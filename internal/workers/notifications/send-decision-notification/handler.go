package senddecisionnotification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"docverify/internal/common/camunda"
	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/common/validation"
	"docverify/internal/lifecycle"
	"docverify/internal/models"
)

const TaskType = "send-decision-notification"

type Handler struct {
	config    *Config
	manager   *lifecycle.Manager
	email     EmailSender
	sms       SMSSender
	validator camunda.InputValidator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
	now       func() time.Time
}

type HandlerOptions struct {
	Config    *Config
	Manager   *lifecycle.Manager
	Email     EmailSender
	SMS       SMSSender
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
		email:     opts.Email,
		sms:       opts.SMS,
		validator: opts.Validator,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
		now:       time.Now,
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

// EmailSender delivers plain-text email, e.g. through SES.
type EmailSender interface {
	SendText(ctx context.Context, from, to, subject, body string) (string, error)
}

// SMSSender delivers SMS, e.g. through SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, senderID, message string) (string, error)
}

// Execute tells the citizen about a decision on their case or appeal on
// every requested channel. It fails only when some channel was attempted
// and none succeeded.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CaseID == "" {
		return nil, apperrors.NewInvalidInputError("caseId is required")
	}
	kind := input.Type
	if kind == "" {
		kind = TypeCaseDecided
	}
	if kind != TypeCaseDecided && kind != TypeAppealResolved {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown notification type %q", input.Type))
	}
	channels := input.Channels
	if len(channels) == 0 {
		channels = []string{ChannelEmail, ChannelSMS}
	}

	view, err := h.manager.GetCase(ctx, input.CaseID)
	if err != nil {
		return nil, err
	}
	msg, err := h.compose(ctx, kind, view.Case, input.AppealID)
	if err != nil {
		return nil, err
	}

	out := &Output{CaseID: view.ID, Notifications: make([]models.Notification, 0, len(channels))}
	var lastErr error
	lastChannel := ""
	for _, ch := range channels {
		n := models.Notification{
			ID:      uuid.NewString(),
			CaseID:  view.ID,
			Type:    kind,
			Channel: ch,
			Payload: map[string]interface{}{"status": string(view.Status)},
		}
		var sendErr error
		switch ch {
		case ChannelEmail:
			n.Recipient = view.Citizen.Email
			sendErr = h.sendEmail(ctx, &n, msg)
		case ChannelSMS:
			n.Recipient = view.Citizen.Phone
			sendErr = h.sendSMS(ctx, &n, msg)
		default:
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown channel %q", ch))
		}
		if sendErr != nil {
			lastErr, lastChannel = sendErr, ch
			h.logger.Warn("notification delivery failed", map[string]interface{}{
				"caseId":  view.ID,
				"channel": ch,
				"error":   sendErr.Error(),
			})
		}
		if n.Status == StatusSent {
			out.Sent++
		}
		out.Notifications = append(out.Notifications, n)
	}

	if lastErr != nil && out.Sent == 0 {
		return nil, apperrors.NewNotificationFailedError(lastChannel, lastErr)
	}
	return out, nil
}

func (h *Handler) sendEmail(ctx context.Context, n *models.Notification, msg message) error {
	switch {
	case !h.config.EmailEnabled || h.email == nil:
		n.Status = StatusDisabled
		return nil
	case !validation.ValidateEmail(n.Recipient):
		n.Status = StatusSkipped
		return nil
	}
	id, err := h.email.SendText(ctx, h.config.FromEmail, n.Recipient, msg.Subject, msg.Body)
	if err != nil {
		n.Status = StatusFailed
		return err
	}
	n.Status = StatusSent
	n.SentAt = h.now().UTC().Format(time.RFC3339)
	n.Payload["messageId"] = id
	return nil
}

func (h *Handler) sendSMS(ctx context.Context, n *models.Notification, msg message) error {
	switch {
	case !h.config.SMSEnabled || h.sms == nil:
		n.Status = StatusDisabled
		return nil
	case !validation.ValidatePhone(n.Recipient):
		n.Status = StatusSkipped
		return nil
	}
	id, err := h.sms.SendSMS(ctx, n.Recipient, h.config.SenderID, msg.SMS)
	if err != nil {
		n.Status = StatusFailed
		return err
	}
	n.Status = StatusSent
	n.SentAt = h.now().UTC().Format(time.RFC3339)
	n.Payload["messageId"] = id
	return nil
}

func (h *Handler) compose(ctx context.Context, kind string, c *models.Case, appealID string) (message, error) {
	docType := strings.ReplaceAll(c.DocumentType, "_", " ")

	if kind == TypeAppealResolved {
		if appealID == "" {
			return message{}, apperrors.NewInvalidInputError("appealId is required for appeal notifications")
		}
		a, err := h.manager.GetAppeal(ctx, appealID)
		if err != nil {
			return message{}, err
		}
		if a.Status == models.AppealPending {
			return message{}, apperrors.NewInvalidStateError("appeal", a.ID, string(a.Status))
		}
		body := fmt.Sprintf("Dear %s,\n\nYour appeal %s concerning %s application %s has been %s.",
			c.Citizen.FullName, a.ID, docType, c.ID, a.Status)
		if a.Notes != "" {
			body += "\n\nReviewer notes: " + a.Notes
		}
		return message{
			Subject: fmt.Sprintf("Appeal %s %s", a.ID, a.Status),
			Body:    body,
			SMS:     fmt.Sprintf("Your appeal %s for application %s was %s.", a.ID, c.ID, a.Status),
		}, nil
	}

	if !c.Status.IsTerminal() {
		return message{}, apperrors.NewInvalidStateError("case", c.ID, string(c.Status))
	}
	outcome := "approved"
	if c.Status == models.StatusRejected {
		outcome = "rejected"
	}
	body := fmt.Sprintf("Dear %s,\n\nYour %s application %s has been %s.", c.Citizen.FullName, docType, c.ID, outcome)
	sms := fmt.Sprintf("Your %s application %s was %s.", docType, c.ID, outcome)
	if c.Status.IsIssued() {
		doc, err := h.manager.GetIssuedDocument(ctx, c.ID)
		if err != nil {
			return message{}, err
		}
		body += fmt.Sprintf("\n\nVerification ID: %s", doc.VerificationID)
		sms += " Verification ID: " + doc.VerificationID
	}
	if c.Feedback != "" {
		body += "\n\nFeedback: " + c.Feedback
	}
	return message{
		Subject: fmt.Sprintf("Application %s %s", c.ID, outcome),
		Body:    body,
		SMS:     sms,
	}, nil
}
