package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"hourgrid/config"
	"hourgrid/importer"
	"hourgrid/timegrid"
	"hourgrid/worklog"

	"github.com/spf13/cobra"
)

var (
	importInputs    []string
	importFormat    string
	importMapper    string
	importDBPath    string
	importURL       string
	importTokenFile string
	importMonth     string
	importCommit    bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Stage tracked durations into a month grid and optionally commit them",
	Long: `Load one month from WebOffice, stage tracked durations as imported cells,
and print the staged cells.

Without --input the durations come from the WebOffice work-times endpoint.
With --input they are read from CSV, Excel or atWork files, mapped to tasks via
the selected mapper, and aggregated per task and day.

Without --commit the staged import is cancelled after printing, leaving
WebOffice untouched. With --commit every staged cell is submitted.`,
	Example: `
  # Preview an import from the WebOffice work-times endpoint
  hourgrid import --month 2026-03

  # Import a tracker CSV and submit it
  hourgrid import --month 2026-03 -i ./tracked.csv --commit

  # Import an atWork export
  hourgrid import -i ./atwork.csv --format atwork --mapper atwork

  # Import with custom config file
  hourgrid --configFile ./custom-hourgrid.yaml import -i ./tracked.xlsx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		logger, logCloser, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logCloser.Close()

		month, err := parseMonthFlag(importMonth, time.Now())
		if err != nil {
			return err
		}

		client, err := newWebOfficeClient(cfg, importURL, importTokenFile, logger)
		if err != nil {
			return err
		}

		store, err := openCache(cfg, importDBPath)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		deps := engineDeps{backend: client, store: store, logger: logger}
		var files *importer.FileSource
		if len(importInputs) > 0 {
			mapper, err := importer.MapperByName(importMapper)
			if err != nil {
				return err
			}
			files = &importer.FileSource{Paths: importInputs, Format: importFormat, Mapper: mapper, Logger: logger}
			deps.workTimes = files
		}

		notifications := timegrid.NewNotificationCenter(logger)
		deps.notifier = notifications
		engine, err := newEngine(cfg, deps)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := engine.LoadMonth(ctx, month); err != nil {
			return fmt.Errorf("load month %s: %w", month.Format("2006-01"), err)
		}
		if files != nil {
			// File rows resolve task names against the tasks of the loaded month.
			files.Tasks = taskList(engine.Snapshot().Tasks)
		}

		report, err := engine.StartImport(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Import staged. Month: %s, Imported: %d, Unchanged: %d, Ignored: %d, New tasks: %d\n",
			month.Format("2006-01"),
			report.Imported,
			report.Unchanged,
			report.Ignored,
			report.NewTasks,
		)

		state := engine.Snapshot()
		if !state.ImportActive() {
			return nil
		}
		printStagedCells(os.Stdout, state)

		if !importCommit {
			if err := engine.CancelImport(); err != nil {
				return err
			}
			fmt.Println("Preview only. Re-run with --commit to submit the staged cells.")
			return nil
		}

		result, err := engine.CommitImport(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Commit completed. Submitted: %d, Saved: %d, Failed: %d\n", result.Submitted, result.Saved, result.Failed)
		for _, item := range notifications.List() {
			fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", item.Title, item.Description, item.Context)
		}
		if result.Failed > 0 {
			return fmt.Errorf("%d staged cells failed to save", result.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringArrayVarP(&importInputs, "input", "i", nil, "Input file path (repeatable, default: WebOffice work times)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Input format: csv|excel|atwork (optional, inferred from extension when omitted)")
	importCmd.Flags().StringVarP(&importMapper, "mapper", "m", "tracker", "Mapper for input files: "+strings.Join(importer.SupportedMapperNames(), "|"))
	importCmd.Flags().StringVar(&importDBPath, "db", "", "Path to local SQLite cache (default: cache.db from config)")
	importCmd.Flags().StringVar(&importURL, "url", "", "Override WebOffice URL from config")
	importCmd.Flags().StringVar(&importTokenFile, "token-file", "", "Path to token state JSON")
	importCmd.Flags().StringVar(&importMonth, "month", "", "Month to import, format YYYY-MM (default: current month)")
	importCmd.Flags().BoolVar(&importCommit, "commit", false, "Submit the staged cells instead of cancelling after the preview")
}

type stagedCell struct {
	Day    string
	TaskID int64
	Task   string
	Hours  float64
	Status string
}

// stagedCells lists the imported or updated cells of state, ordered by day
// and task.
func stagedCells(state timegrid.State) []stagedCell {
	entries := worklog.IndexByKey(state.Entries)
	out := make([]stagedCell, 0, len(state.Selection))
	for _, cell := range state.Selection {
		if !cell.Status.FromImport() {
			continue
		}
		entry := entries[cell.Key()]
		out = append(out, stagedCell{
			Day:    worklog.DayKey(cell.Day),
			TaskID: cell.TaskID,
			Task:   taskName(state.Tasks.ByID[cell.TaskID]),
			Hours:  entry.Hours,
			Status: cell.Status.String(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

func printStagedCells(w io.Writer, state timegrid.State) {
	for _, cell := range stagedCells(state) {
		fmt.Fprintf(w, "%s  %-8d %6.2fh  %-8s %s\n", cell.Day, cell.TaskID, cell.Hours, cell.Status, cell.Task)
	}
}

func taskName(task worklog.Task) string {
	label := strings.TrimSpace(task.CustRefDescription)
	if label == "" {
		label = strings.TrimSpace(task.Description)
	}
	if project := strings.TrimSpace(task.Project); project != "" {
		if label == "" {
			return project
		}
		return project + " / " + label
	}
	return label
}

func taskList(registry timegrid.TaskRegistry) []worklog.Task {
	tasks := make([]worklog.Task, 0, len(registry.IDs))
	for _, id := range registry.IDs {
		tasks = append(tasks, registry.ByID[id])
	}
	return tasks
}
