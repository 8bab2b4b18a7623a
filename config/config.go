package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyWebOfficeURL          = "weboffice.url"
	KeyWebOfficeTokenFile    = "weboffice.token_file"
	KeySyncStrategy          = "sync.strategy"
	KeyImportWorkFromHome    = "import.work_from_home"
	KeyImportWorkFromHomeAt  = "import.work_from_home_start"
	KeyImportTypeOfWorkIndex = "import.type_of_work_index"
	KeyDisplayWeekend        = "display.weekend"
	KeyLogFile               = "log.file"
	KeyLogLevel              = "log.level"
	KeyLogMaxSizeMB          = "log.max_size_mb"
	KeyLogMaxBackups         = "log.max_backups"
	KeyCacheDB               = "cache.db"
	KeyTasks                 = "tasks"
)

const (
	StrategySequential = "sequential"
	StrategyBatch      = "batch"
)

type Config struct {
	WebOffice WebOfficeConfig `mapstructure:"weboffice" validate:"required"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Import    ImportConfig    `mapstructure:"import"`
	Display   DisplayConfig   `mapstructure:"display"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Tasks     []PinnedTask    `mapstructure:"tasks"`
}

type WebOfficeConfig struct {
	URL       string `mapstructure:"url" validate:"required,url"`
	TokenFile string `mapstructure:"token_file"`
}

type SyncConfig struct {
	Strategy string `mapstructure:"strategy"`
}

type ImportConfig struct {
	WorkFromHome      bool     `mapstructure:"work_from_home"`
	WorkFromHomeStart *float64 `mapstructure:"work_from_home_start" validate:"omitempty,gte=0,lt=24"`
	TypeOfWorkIndex   *int     `mapstructure:"type_of_work_index" validate:"omitempty,gte=0"`
}

type DisplayConfig struct {
	Weekend bool `mapstructure:"weekend"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

type CacheConfig struct {
	DB string `mapstructure:"db"`
}

// PinnedTask is a task that is always shown in the grid, even before it has hours.
type PinnedTask struct {
	TaskID             int64  `mapstructure:"task_id" yaml:"task_id"`
	Project            string `mapstructure:"project" yaml:"project"`
	Description        string `mapstructure:"description" yaml:"description"`
	CustRefDescription string `mapstructure:"cust_ref_description" yaml:"cust_ref_description,omitempty"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# hourgrid configuration
weboffice:
  url: "https://weboffice.example.com/"
  token_file: ""

sync:
  # sequential: one backend call per cell; batch: one call for all cells
  strategy: "sequential"

import:
  work_from_home: true
  work_from_home_start: 8

display:
  weekend: false

log:
  file: ""
  level: "info"

cache:
  db: "./hourgrid.db"

tasks: []
`
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateStrategy(cfg.Sync.Strategy); err != nil {
		return nil, err
	}
	if err := validateTasks(cfg.Tasks); err != nil {
		return nil, err
	}

	cfg.Sync.Strategy = strings.ToLower(strings.TrimSpace(cfg.Sync.Strategy))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyWebOfficeURL, "https://weboffice.example.com/")
	v.SetDefault(KeyWebOfficeTokenFile, "")
	v.SetDefault(KeySyncStrategy, StrategySequential)
	v.SetDefault(KeyImportWorkFromHome, true)
	v.SetDefault(KeyImportWorkFromHomeAt, 8.0)
	v.SetDefault(KeyDisplayWeekend, false)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogMaxSizeMB, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyCacheDB, "./hourgrid.db")
	v.SetDefault(KeyTasks, []map[string]any{})
}

func validateStrategy(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StrategySequential, StrategyBatch:
		return nil
	default:
		return fmt.Errorf(
			"validation failed: sync.strategy %q is not supported (valid: %s, %s)",
			value,
			StrategySequential,
			StrategyBatch,
		)
	}
}

func validateTasks(tasks []PinnedTask) error {
	seen := make(map[int64]struct{}, len(tasks))
	for i, task := range tasks {
		if task.TaskID <= 0 {
			return fmt.Errorf("validation failed: tasks[%d].task_id must be > 0", i)
		}
		if _, exists := seen[task.TaskID]; exists {
			return fmt.Errorf("validation failed: duplicate task_id %d", task.TaskID)
		}
		seen[task.TaskID] = struct{}{}
		if strings.TrimSpace(task.Description) == "" && strings.TrimSpace(task.CustRefDescription) == "" {
			return fmt.Errorf("validation failed: tasks[%d] requires description or cust_ref_description", i)
		}
	}
	return nil
}
