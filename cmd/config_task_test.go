package cmd

import (
	"strings"
	"testing"

	"hourgrid/config"
)

const taskConfigYAML = `weboffice:
  url: "https://weboffice.example.com/"
sync:
  strategy: "batch"
tasks:
  - task_id: 42
    project: "Internal"
    description: "Meetings"
`

func TestAppendTaskToConfigYAML_AppendsTask(t *testing.T) {
	t.Parallel()

	updated, err := appendTaskToConfigYAML([]byte(taskConfigYAML), config.PinnedTask{
		TaskID:             7,
		Project:            "Alpha",
		CustRefDescription: "REF-7",
	})
	if err != nil {
		t.Fatalf("append task failed: %v", err)
	}

	cfg, err := config.ValidateYAMLContent(updated)
	if err != nil {
		t.Fatalf("updated yaml should validate: %v", err)
	}
	if cfg.Sync.Strategy != "batch" {
		t.Fatalf("expected other keys to survive, got strategy %q", cfg.Sync.Strategy)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(cfg.Tasks))
	}
	last := cfg.Tasks[1]
	if last.TaskID != 7 || last.Project != "Alpha" || last.CustRefDescription != "REF-7" {
		t.Fatalf("unexpected last task: %+v", last)
	}
}

func TestAppendTaskToConfigYAML_EmptyConfig(t *testing.T) {
	t.Parallel()

	updated, err := appendTaskToConfigYAML(nil, config.PinnedTask{TaskID: 1, Description: "Support"})
	if err != nil {
		t.Fatalf("append task failed: %v", err)
	}
	cfg, err := config.ValidateYAMLContent(updated)
	if err != nil {
		t.Fatalf("updated yaml should validate: %v", err)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0].Description != "Support" {
		t.Fatalf("unexpected tasks: %+v", cfg.Tasks)
	}
}

func TestAppendTaskToConfigYAML_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task config.PinnedTask
		want string
	}{
		{name: "duplicate", task: config.PinnedTask{TaskID: 42, Description: "Again"}, want: "already pinned"},
		{name: "missing id", task: config.PinnedTask{Description: "No id"}, want: "task id"},
		{name: "missing label", task: config.PinnedTask{TaskID: 9}, want: "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := appendTaskToConfigYAML([]byte(taskConfigYAML), tt.task)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRemoveTaskFromConfigYAML(t *testing.T) {
	t.Parallel()

	updated, err := removeTaskFromConfigYAML([]byte(taskConfigYAML), 42)
	if err != nil {
		t.Fatalf("remove task failed: %v", err)
	}
	cfg, err := config.ValidateYAMLContent(updated)
	if err != nil {
		t.Fatalf("updated yaml should validate: %v", err)
	}
	if len(cfg.Tasks) != 0 {
		t.Fatalf("expected no pinned tasks, got %+v", cfg.Tasks)
	}

	if _, err := removeTaskFromConfigYAML([]byte(taskConfigYAML), 99); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}
