// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"docverify/internal/common/config"
	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/observability"
)

// InputValidator checks raw job variables for a task type.
type InputValidator interface {
	Validate(taskType string, input interface{}) error
}

// DecodeVariables validates the job variables against the task's schema and
// unmarshals them into out. v may be nil.
func DecodeVariables(job entities.Job, taskType string, v InputValidator, out interface{}) error {
	if v != nil {
		vars, err := job.GetVariablesAsMap()
		if err != nil {
			return apperrors.NewInvalidInputError(fmt.Sprintf("job variables are not a JSON object: %v", err))
		}
		if err := v.Validate(taskType, vars); err != nil {
			return err
		}
	}
	if err := json.Unmarshal([]byte(job.Variables), out); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("failed to create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("failed to send complete job command: %w", err)
	}
	return nil
}

// StartWorker opens a job worker for taskType. Every job is traced and its
// duration recorded through obs.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, obs *observability.Observability, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(observe(taskType, handler, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

func observe(taskType string, handler worker.JobHandler, obs *observability.Observability) worker.JobHandler {
	if obs == nil {
		return handler
	}
	return func(client worker.JobClient, job entities.Job) {
		ctx, span := obs.StartJobSpan(context.Background(), taskType, job.Key, job.ProcessInstanceKey)
		defer span.End()

		start := time.Now()
		handler(client, job)
		obs.RecordJobProcessed(ctx, taskType)
		obs.RecordJobDuration(ctx, taskType, time.Since(start))
	}
}
