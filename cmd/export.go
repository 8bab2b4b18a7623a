package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hourgrid/config"
	"hourgrid/output"
	"hourgrid/storage"
	"hourgrid/worklog"

	"github.com/spf13/cobra"
)

var (
	exportFormat    string
	exportOutput    string
	exportDBPath    string
	exportMonth     string
	exportURL       string
	exportTokenFile string
	exportOffline   bool
	exportWeekend   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one month grid to CSV/Excel",
	Long: `Export the (task x day) grid of one month.

The month is loaded from WebOffice, or with --offline from the last snapshot in
the local SQLite cache. Excel output carries a second sheet with per-day
totals and work-from-home flags.

Output format can be selected explicitly via --format or inferred from --output extension.`,
	Example: `
  # Export the current month to CSV
  hourgrid export --output ./grid.csv

  # Export a month to Excel including weekend columns
  hourgrid export --month 2026-02 --weekend --output ./2026-02.xlsx

  # Export from the local cache without contacting WebOffice
  hourgrid export --month 2026-02 --offline --db ./hourgrid.db --output ./2026-02.csv
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}
		writer, err := output.WriterForFormat(format)
		if err != nil {
			return err
		}

		month, err := parseMonthFlag(exportMonth, time.Now())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var tasks []worklog.Task
		var entries []worklog.Entry
		if exportOffline {
			tasks, entries, err = loadCachedMonth(cfg, month)
		} else {
			tasks, entries, err = fetchMonth(ctx, cfg, month)
		}
		if err != nil {
			return err
		}

		weekend := exportWeekend || cfg.Display.Weekend
		report := output.Report{
			Grid:    output.BuildGrid(month, tasks, entries, weekend),
			Entries: entries,
		}
		if err := writer.Write(exportOutput, report); err != nil {
			return err
		}
		fmt.Printf("Export completed. Month: %s, Tasks: %d, Hours: %g, Format: %s, File: %s\n",
			month.Format("2006-01"), len(report.Grid.Rows), report.Grid.Total, format, exportOutput)
		return nil
	},
}

func loadCachedMonth(cfg *config.Config, month time.Time) ([]worklog.Task, []worklog.Entry, error) {
	path := strings.TrimSpace(exportDBPath)
	if path == "" {
		path = strings.TrimSpace(cfg.Cache.DB)
	}
	if path == "" {
		return nil, nil, fmt.Errorf("no cache configured; set cache.db in config or pass --db")
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	snapshot, ok, err := store.LoadMonth(month)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("month %s is not cached in %s", month.Format("2006-01"), path)
	}
	return pinnedTasks(cfg), snapshot.Entries, nil
}

func fetchMonth(ctx context.Context, cfg *config.Config, month time.Time) ([]worklog.Task, []worklog.Entry, error) {
	logger, logCloser, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer logCloser.Close()

	client, err := newWebOfficeClient(cfg, exportURL, exportTokenFile, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := openCache(cfg, exportDBPath)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		defer store.Close()
	}

	engine, err := newEngine(cfg, engineDeps{backend: client, store: store, logger: logger})
	if err != nil {
		return nil, nil, err
	}
	if err := engine.LoadMonth(ctx, month); err != nil {
		return nil, nil, fmt.Errorf("load month %s: %w", month.Format("2006-01"), err)
	}
	state := engine.Snapshot()
	return taskList(state.Tasks), state.Entries, nil
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().StringVar(&exportDBPath, "db", "", "Path to local SQLite cache (default: cache.db from config)")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "Month to export, format YYYY-MM (default: current month)")
	exportCmd.Flags().StringVar(&exportURL, "url", "", "Override WebOffice URL from config")
	exportCmd.Flags().StringVar(&exportTokenFile, "token-file", "", "Path to token state JSON")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "Export the cached snapshot instead of loading from WebOffice")
	exportCmd.Flags().BoolVar(&exportWeekend, "weekend", false, "Include weekend columns (default: display.weekend from config)")

	_ = exportCmd.MarkFlagRequired("output")
}
