package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hourgrid/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values.`,
	Example: `
  # Show active configuration
  hourgrid config show
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}

		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Println("Config file loaded from:", configPath)
			fmt.Println("Configuration:")
			printConfig(os.Stdout, cfg)
		}
	},
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "weboffice.url: %s\n", cfg.WebOffice.URL)
	fmt.Fprintf(w, "weboffice.token_file: %s\n", valueOrDefault(cfg.WebOffice.TokenFile, "$HOME/.hourgrid/weboffice-token.json"))
	fmt.Fprintf(w, "sync.strategy: %s\n", cfg.Sync.Strategy)
	fmt.Fprintf(w, "import.work_from_home: %t\n", cfg.Import.WorkFromHome)
	if cfg.Import.WorkFromHomeStart != nil {
		fmt.Fprintf(w, "import.work_from_home_start: %g\n", *cfg.Import.WorkFromHomeStart)
	} else {
		fmt.Fprintln(w, "import.work_from_home_start: (unset)")
	}
	if cfg.Import.TypeOfWorkIndex != nil {
		fmt.Fprintf(w, "import.type_of_work_index: %d\n", *cfg.Import.TypeOfWorkIndex)
	} else {
		fmt.Fprintln(w, "import.type_of_work_index: (unset)")
	}
	fmt.Fprintf(w, "display.weekend: %t\n", cfg.Display.Weekend)
	fmt.Fprintf(w, "log.file: %s\n", valueOrDefault(cfg.Log.File, "(stderr)"))
	fmt.Fprintf(w, "log.level: %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "cache.db: %s\n", valueOrDefault(cfg.Cache.DB, "(disabled)"))
	fmt.Fprintf(w, "tasks: %d\n", len(cfg.Tasks))
	for i, task := range cfg.Tasks {
		fmt.Fprintf(w, "tasks[%d].task_id: %d\n", i, task.TaskID)
		fmt.Fprintf(w, "tasks[%d].project: %s\n", i, task.Project)
		fmt.Fprintf(w, "tasks[%d].description: %s\n", i, task.Description)
		if task.CustRefDescription != "" {
			fmt.Fprintf(w, "tasks[%d].cust_ref_description: %s\n", i, task.CustRefDescription)
		}
	}
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
