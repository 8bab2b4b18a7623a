package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hourgrid/config"
	"hourgrid/storage"
)

var configDeleteForce bool

var configDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the active configuration file.",
	Long: `Delete the configuration file currently selected by hourgrid.

If no configuration file is active, the command returns an error.
While the cache referenced by cache.db still holds a staged import, deletion
is refused unless --force is given, since the cache location would be lost.`,
	Example: `
  # Delete active config
  hourgrid config delete

  # Delete config at a custom path, even with a pending import
  hourgrid --configFile ./custom-hourgrid.yaml config delete --force
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.ConfigFileUsed()
		if configPath == "" {
			return fmt.Errorf("no configuration file found")
		}

		if cfg, err := config.LoadAndValidate(); err == nil {
			month, pending, err := pendingImportMonth(cfg.Cache.DB)
			if err != nil {
				return err
			}
			if pending {
				if !configDeleteForce {
					return fmt.Errorf("an import for %s is staged in %s; commit or cancel it first, or pass --force", month.Format("2006-01"), cfg.Cache.DB)
				}
				fmt.Fprintf(os.Stderr, "Warning: discarding reference to staged import for %s in %s\n", month.Format("2006-01"), cfg.Cache.DB)
			}
		}

		if err := os.Remove(configPath); err != nil {
			return fmt.Errorf("error deleting configuration file: %w", err)
		}

		fmt.Printf("Configuration file successfully deleted: %s\n", configPath)
		return nil
	},
}

// pendingImportMonth reports the month of an import session journaled in the
// cache at dbPath. A missing cache file has no session.
func pendingImportMonth(dbPath string) (time.Time, bool, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return time.Time{}, false, nil
	}
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("check cache %s: %w", dbPath, err)
	}

	store, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return time.Time{}, false, err
	}
	defer store.Close()

	session, ok, err := store.LoadImportSession()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read import session: %w", err)
	}
	return session.Month, ok, nil
}

func init() {
	configCmd.AddCommand(configDeleteCmd)

	configDeleteCmd.Flags().BoolVar(&configDeleteForce, "force", false, "Delete even while an import is staged in the cache")
}
