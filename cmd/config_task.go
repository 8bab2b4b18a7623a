package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"hourgrid/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	configTaskAddID          int64
	configTaskAddProject     string
	configTaskAddDescription string
	configTaskAddCustRef     string
)

var configTaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage pinned tasks.",
	Long: `Pinned tasks are always shown as grid rows, even in months without hours on them.`,
}

var configTaskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Pin a task in the active config.",
	Example: `
  # Pin a task by id with a label
  hourgrid config task add --id 4711 --project "Internal" --description "Meetings"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		task := config.PinnedTask{
			TaskID:             configTaskAddID,
			Project:            strings.TrimSpace(configTaskAddProject),
			Description:        strings.TrimSpace(configTaskAddDescription),
			CustRefDescription: strings.TrimSpace(configTaskAddCustRef),
		}
		return updateConfigFile(func(content []byte) ([]byte, error) {
			return appendTaskToConfigYAML(content, task)
		}, fmt.Sprintf("Pinned task %d", task.TaskID))
	},
}

var configTaskRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Unpin a task from the active config.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
		if err != nil || taskID <= 0 {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		return updateConfigFile(func(content []byte) ([]byte, error) {
			return removeTaskFromConfigYAML(content, taskID)
		}, fmt.Sprintf("Unpinned task %d", taskID))
	},
}

func updateConfigFile(edit func([]byte) ([]byte, error), message string) error {
	configPath, err := resolveConfigEditPath(cfgFile, viper.ConfigFileUsed())
	if err != nil {
		return err
	}
	if _, err := ensureConfigFileWithTemplate(configPath); err != nil {
		return err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config %q: %w", configPath, err)
	}
	updated, err := edit(content)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, updated, 0o600); err != nil {
		return fmt.Errorf("write config %q: %w", configPath, err)
	}

	fmt.Printf("%s in %s\n", message, configPath)
	return nil
}

func appendTaskToConfigYAML(content []byte, task config.PinnedTask) ([]byte, error) {
	if task.TaskID <= 0 {
		return nil, fmt.Errorf("task id must be > 0")
	}
	if task.Description == "" && task.CustRefDescription == "" {
		return nil, fmt.Errorf("description or cust-ref is required")
	}

	doc, tasks, err := decodeTasks(content)
	if err != nil {
		return nil, err
	}
	for _, existing := range tasks {
		if taskIDOf(existing) == task.TaskID {
			return nil, fmt.Errorf("task %d is already pinned", task.TaskID)
		}
	}

	entry := map[string]any{
		"task_id":     task.TaskID,
		"project":     task.Project,
		"description": task.Description,
	}
	if task.CustRefDescription != "" {
		entry["cust_ref_description"] = task.CustRefDescription
	}
	doc["tasks"] = append(tasks, entry)
	return encodeValidated(doc)
}

func removeTaskFromConfigYAML(content []byte, taskID int64) ([]byte, error) {
	doc, tasks, err := decodeTasks(content)
	if err != nil {
		return nil, err
	}

	kept := make([]any, 0, len(tasks))
	for _, existing := range tasks {
		if taskIDOf(existing) != taskID {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(tasks) {
		return nil, fmt.Errorf("task %d is not pinned", taskID)
	}
	doc["tasks"] = kept
	return encodeValidated(doc)
}

func decodeTasks(content []byte) (map[string]any, []any, error) {
	doc := map[string]any{}
	if strings.TrimSpace(string(content)) != "" {
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	raw, exists := doc["tasks"]
	if !exists || raw == nil {
		return doc, []any{}, nil
	}
	tasks, ok := raw.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("config key %q must be a list", "tasks")
	}
	return doc, tasks, nil
}

func taskIDOf(raw any) int64 {
	entry, ok := raw.(map[string]any)
	if !ok {
		return 0
	}
	switch id := entry["task_id"].(type) {
	case int:
		return int64(id)
	case int64:
		return id
	case float64:
		return int64(id)
	default:
		return 0
	}
}

func encodeValidated(doc map[string]any) ([]byte, error) {
	updated, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal updated config yaml: %w", err)
	}
	if _, err := config.ValidateYAMLContent(updated); err != nil {
		return nil, fmt.Errorf("updated config is invalid: %w", err)
	}
	return updated, nil
}

func init() {
	configCmd.AddCommand(configTaskCmd)
	configTaskCmd.AddCommand(configTaskAddCmd)
	configTaskCmd.AddCommand(configTaskRemoveCmd)

	configTaskAddCmd.Flags().Int64Var(&configTaskAddID, "id", 0, "WebOffice task id")
	configTaskAddCmd.Flags().StringVar(&configTaskAddProject, "project", "", "Project name shown in the grid")
	configTaskAddCmd.Flags().StringVar(&configTaskAddDescription, "description", "", "Task description shown in the grid")
	configTaskAddCmd.Flags().StringVar(&configTaskAddCustRef, "cust-ref", "", "Customer reference description, preferred over description")

	_ = configTaskAddCmd.MarkFlagRequired("id")
}
