// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

var ErrActivityNotFound = errors.New("activity not found")

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes the registry as indented JSON and stamps LastUpdated.
func SaveRegistry(reg *ActivityRegistry, path string) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, taskType)
}

func (r *ActivityRegistry) FindByID(id string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
}

// Validate checks required fields, unique ids and task types, and that every
// declared schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if taskTypes[activity.TaskType] {
			return fmt.Errorf("duplicate task type: %s", activity.TaskType)
		}
		taskTypes[activity.TaskType] = true

		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
		if _, err := activity.TimeoutDuration(); err != nil {
			return fmt.Errorf("activity %s has invalid timeout %q: %w", activity.ID, activity.Timeout, err)
		}
		if activity.Retries < 0 {
			return fmt.Errorf("activity %s has negative retries", activity.ID)
		}
		for name, schema := range map[string]map[string]interface{}{"inputSchema": activity.InputSchema, "outputSchema": activity.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				return fmt.Errorf("activity %s has invalid %s: %w", activity.ID, name, err)
			}
		}
	}
	return nil
}
