// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"docverify/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "set-schema":
		err = runSetSchema(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID (e.g., case.lifecycle.update)")
	displayName := fs.String("displayName", "", "Display Name (e.g., Update Case)")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "", "Category (e.g., cases)")
	taskType := fs.String("taskType", "", "Zeebe task type (e.g., update-case)")
	version := fs.String("version", "1.0.0", "Version")
	status := fs.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")
	fs.Parse(args)

	if *id == "" || *displayName == "" || *category == "" || *taskType == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, category and taskType are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}
	if _, err := reg.FindByID(*id); err == nil {
		return fmt.Errorf("activity with ID %s already exists", *id)
	}

	reg.Activities = append(reg.Activities, registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		InputSchema:          map[string]interface{}{},
		OutputSchema:         map[string]interface{}{},
		ErrorCodes:           []string{},
		Timeout:              "30s",
		Workflows:            []string{},
		Tags:                 []string{},
	})
	if err := registry.SaveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID to update")
	field := fs.String("field", "", "Field to update (status, version, etc.)")
	value := fs.String("value", "", "New value for the field")
	fs.Parse(args)

	if *id == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("id, field and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, err := reg.FindByID(*id)
	if err != nil {
		return err
	}

	switch *field {
	case "status":
		activity.ImplementationStatus = *value
	case "version":
		activity.Version = *value
	case "displayName":
		activity.DisplayName = *value
	case "description":
		activity.Description = *value
	case "category":
		activity.Category = *value
	case "taskType":
		activity.TaskType = *value
	case "timeout":
		activity.Timeout = *value
	case "retries":
		retries, err := strconv.Atoi(*value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	if err := registry.SaveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

// runSetSchema replaces an activity's input or output schema with the JSON
// document in -file. The registry is validated before it is written.
func runSetSchema(args []string) error {
	fs := flag.NewFlagSet("set-schema", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID")
	kind := fs.String("kind", "input", "Schema to replace (input or output)")
	file := fs.String("file", "", "JSON schema file")
	fs.Parse(args)

	if *id == "" || *file == "" {
		fs.Usage()
		return fmt.Errorf("id and file are required")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, err := reg.FindByID(*id)
	if err != nil {
		return err
	}
	switch *kind {
	case "input":
		activity.InputSchema = schema
	case "output":
		activity.OutputSchema = schema
	default:
		return fmt.Errorf("kind must be input or output, got %q", *kind)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	if err := registry.SaveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Replaced %s schema of %s\n", *kind, *id)
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activities := append([]registry.Activity(nil), reg.Activities...)
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].Category != activities[j].Category {
			return activities[i].Category < activities[j].Category
		}
		return activities[i].TaskType < activities[j].TaskType
	})
	for _, a := range activities {
		fmt.Printf("%-14s %-28s %-10s %s\n", a.Category, a.TaskType, a.ImplementationStatus, a.DisplayName)
	}
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add         Add a new activity to the registry
  update      Update an existing activity's field
  set-schema  Replace an activity's input or output schema from a JSON file
  list        List activities by category
  validate    Validate the registry file and compile every schema
  help        Show this help message

Examples:
  registry-updater add -id case.lifecycle.update -displayName "Update Case" -category cases -taskType update-case
  registry-updater update -id case.lifecycle.update -field status -value completed
  registry-updater set-schema -id case.lifecycle.update -kind input -file update-case.schema.json
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
`)
}
