package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"hourgrid/config"
	"hourgrid/storage"
	"hourgrid/timegrid"
	"hourgrid/web"

	"github.com/spf13/cobra"
)

var (
	servePort      int
	serveDBPath    string
	serveURL       string
	serveTokenFile string
	serveMonth     string
	serveNoOpen    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local grid API for one month of WebOffice hours",
	Long: `Start a local HTTP server exposing the time-log grid as a JSON API.

The month is loaded from WebOffice on startup. A staged import left over from
a previous run is restored so it can be committed or cancelled.`,
	Example: `
  # Start local server on default port for the current month
  hourgrid serve

  # Start with explicit cache/url/token file and custom port
  hourgrid serve --port 9090 --db ./hourgrid.db --url https://weboffice.example.com --token-file ~/.hourgrid/weboffice-token.json

  # Open a specific month
  hourgrid serve --month 2026-02
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

		client, err := newWebOfficeClient(cfg, serveURL, serveTokenFile, logger)
		if err != nil {
			return err
		}

		store, err := openCache(cfg, serveDBPath)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		notifications := timegrid.NewNotificationCenter(logger)
		engine, err := newEngine(cfg, engineDeps{
			backend:  client,
			store:    store,
			notifier: notifications,
			logger:   logger,
		})
		if err != nil {
			return err
		}

		var journal importSessionLoader
		if store != nil {
			journal = store
		}
		month, err := resolveServeMonth(serveMonth, journal, time.Now())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go loadInitialMonth(ctx, engine, month, logger)

		addr := fmt.Sprintf(":%d", servePort)
		server := &http.Server{
			Addr:              addr,
			Handler:           web.NewServer(engine, notifications, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		listenURL := fmt.Sprintf("http://localhost:%d/api/state", servePort)
		fmt.Printf("Listening on %s (month %s)\n", listenURL, month.Format("2006-01"))
		if !serveNoOpen {
			if openErr := openURLInBrowser(listenURL); openErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to open browser: %v\n", openErr)
			}
		}

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			err := <-errCh
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port for the local web server")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "Path to local SQLite cache (default: cache.db from config)")
	serveCmd.Flags().StringVar(&serveURL, "url", "", "Override WebOffice URL from config")
	serveCmd.Flags().StringVar(&serveTokenFile, "token-file", "", "Path to token state JSON (default: weboffice.token_file or $HOME/.hourgrid/weboffice-token.json)")
	serveCmd.Flags().StringVar(&serveMonth, "month", "", "Month to open on startup, format YYYY-MM (default: month of a pending import, else current month)")
	serveCmd.Flags().BoolVar(&serveNoOpen, "no-open", false, "Do not open browser automatically")
}

type importSessionLoader interface {
	LoadImportSession() (storage.ImportSession, bool, error)
}

// resolveServeMonth prefers an explicit month, then the month of a pending
// import session, then the current month.
func resolveServeMonth(value string, journal importSessionLoader, now time.Time) (time.Time, error) {
	if value != "" || journal == nil {
		return parseMonthFlag(value, now)
	}
	session, ok, err := journal.LoadImportSession()
	if err != nil {
		return time.Time{}, err
	}
	if ok && !session.Month.IsZero() {
		return time.Date(session.Month.Year(), session.Month.Month(), 1, 0, 0, 0, 0, time.Local), nil
	}
	return parseMonthFlag("", now)
}

func loadInitialMonth(ctx context.Context, engine *timegrid.Engine, month time.Time, logger *slog.Logger) {
	if err := engine.LoadMonth(ctx, month); err != nil {
		logger.Error("initial month load failed", "month", month.Format("2006-01"), "error", err)
		return
	}
	resumed, err := engine.ResumeImport()
	if err != nil {
		logger.Error("resume import failed", "error", err)
		return
	}
	if resumed {
		logger.Info("resumed pending import", "month", month.Format("2006-01"))
	}
}

func openURLInBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
