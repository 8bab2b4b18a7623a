package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hourgrid configuration file values.",
	Long: `Create, edit, display, and delete the hourgrid configuration file.

The configuration stores application-wide values and pinned tasks:
- weboffice.url / weboffice.token_file
- sync.strategy (sequential|batch)
- import.work_from_home / work_from_home_start / type_of_work_index
- display.weekend, log.*, cache.db
- tasks[].task_id / project / description / cust_ref_description`,
	Example: `
  # Create default config in $HOME/.hourgrid.yaml
  hourgrid config create

  # Show active config and source file
  hourgrid config show

  # Open active config in editor (creates example if missing)
  hourgrid config edit

  # Pin a task so it is always shown in the grid
  hourgrid config task add --id 4711 --project "Internal" --description "Meetings"

  # Delete active config file
  hourgrid config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
