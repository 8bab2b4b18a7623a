// Package web serves the grid engine as a localhost-only single-user JSON
// API; it intentionally has no auth/CSRF protection in this mode.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hourgrid/timegrid"
	"hourgrid/weboffice"
	"hourgrid/worklog"
)

type Server struct {
	engine        *timegrid.Engine
	notifications *timegrid.NotificationCenter
	logger        *slog.Logger
	mux           *http.ServeMux
}

type selectRequest struct {
	TaskID int64  `json:"taskId"`
	Date   string `json:"date"`
	Mode   string `json:"mode"`
}

type submitRequest struct {
	TypeOfWork          string  `json:"typeOfWork"`
	Hours               float64 `json:"hours"`
	Description         string  `json:"description"`
	IsWorkFromHome      bool    `json:"isWorkFromHome"`
	WorkFromHomeStarted float64 `json:"workFromHomeStarted"`
}

type taskRequest struct {
	TaskID             int64  `json:"taskId"`
	Project            string `json:"project"`
	Description        string `json:"description"`
	CustRefDescription string `json:"custRefDescription"`
}

type flagRequest struct {
	Value bool `json:"value"`
}

type editingValueRequest struct {
	Value string `json:"value"`
}

type importMetadataRequest struct {
	IsWorkFromHome    bool     `json:"isWorkFromHome"`
	WorkFromHomeStart *float64 `json:"workFromHomeStart"`
	TypeOfWorkIndex   *int     `json:"typeOfWorkIndex"`
}

type syncResponse struct {
	Submitted int       `json:"submitted"`
	Saved     int       `json:"saved"`
	Failed    int       `json:"failed"`
	Staged    int       `json:"staged"`
	State     stateView `json:"state"`
}

type importResponse struct {
	Imported  int       `json:"imported"`
	Unchanged int       `json:"unchanged"`
	Ignored   int       `json:"ignored"`
	NewTasks  int       `json:"newTasks"`
	State     stateView `json:"state"`
}

// NewServer routes the API to engine. notifications may be nil when the
// engine reports failures elsewhere.
func NewServer(engine *timegrid.Engine, notifications *timegrid.NotificationCenter, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	server := &Server{engine: engine, notifications: notifications, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", server.handleState)
	mux.HandleFunc("GET /api/totals", server.handleTotals)
	mux.HandleFunc("POST /api/month/next", server.handleNextMonth)
	mux.HandleFunc("POST /api/month/previous", server.handlePreviousMonth)
	mux.HandleFunc("POST /api/month/{month}", server.handleLoadMonth)
	mux.HandleFunc("POST /api/refresh", server.handleRefresh)
	mux.HandleFunc("POST /api/select", server.handleSelect)
	mux.HandleFunc("POST /api/navigate/{direction}", server.handleNavigate)
	mux.HandleFunc("POST /api/keys/enter", server.handleEnter)
	mux.HandleFunc("POST /api/keys/escape", server.handleEscape)
	mux.HandleFunc("POST /api/editing-value", server.handleEditingValue)
	mux.HandleFunc("POST /api/display-weekend", server.handleDisplayWeekend)
	mux.HandleFunc("POST /api/submit", server.handleSubmit)
	mux.HandleFunc("POST /api/import", server.handleImport)
	mux.HandleFunc("POST /api/import/cancel", server.handleImportCancel)
	mux.HandleFunc("POST /api/import/commit", server.handleImportCommit)
	mux.HandleFunc("PUT /api/import/metadata", server.handleImportMetadata)
	mux.HandleFunc("POST /api/tasks", server.handleAddTask)
	mux.HandleFunc("POST /api/favorites/{taskId}", server.handleAddFavorite)
	mux.HandleFunc("DELETE /api/favorites/{taskId}", server.handleRemoveFavorite)
	mux.HandleFunc("POST /api/work-from-home/{date}", server.handleWorkFromHome)
	mux.HandleFunc("GET /api/notifications", server.handleNotifications)
	mux.HandleFunc("DELETE /api/notifications/{id}", server.handleCloseNotification)
	server.mux = mux

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleTotals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildTotalsView(s.engine.Snapshot()))
}

func (s *Server) handleLoadMonth(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		http.Error(w, "invalid month format (expected YYYY-MM)", http.StatusBadRequest)
		return
	}
	if err := s.engine.LoadMonth(r.Context(), month); err != nil {
		s.writeError(w, "load month", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleNextMonth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.GoNextMonth(r.Context()); err != nil {
		s.writeError(w, "load next month", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handlePreviousMonth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.GoPreviousMonth(r.Context()); err != nil {
		s.writeError(w, "load previous month", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Refresh(r.Context()); err != nil {
		s.writeError(w, "refresh", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	day, err := parseISODate(body.Date)
	if err != nil {
		http.Error(w, "invalid date format (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	mode, err := timegrid.ParseSelectionMode(body.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.TaskID <= 0 {
		http.Error(w, "taskId must be > 0", http.StatusBadRequest)
		return
	}
	s.writeState(w, s.engine.SelectLog(body.TaskID, day, mode))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	direction, err := timegrid.ParseDirection(r.PathValue("direction"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeState(w, s.engine.NavigateKeyPressed(direction))
}

func (s *Server) handleEnter(w http.ResponseWriter, _ *http.Request) {
	s.writeState(w, s.engine.EnterKeyPressed())
}

func (s *Server) handleEscape(w http.ResponseWriter, _ *http.Request) {
	s.writeState(w, s.engine.EscapeKeyPressed())
}

func (s *Server) handleEditingValue(w http.ResponseWriter, r *http.Request) {
	var body editingValueRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeState(w, s.engine.UpdateEditingValue(body.Value))
}

func (s *Server) handleDisplayWeekend(w http.ResponseWriter, r *http.Request) {
	var body flagRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeState(w, s.engine.ChangeDisplayWeekend(body.Value))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Hours < 0 || body.Hours > 24 {
		http.Error(w, "hours must be between 0 and 24", http.StatusBadRequest)
		return
	}

	report := s.engine.SubmitHours(persistContext(r), timegrid.HoursInput{
		TypeOfWork:          strings.TrimSpace(body.TypeOfWork),
		Hours:               body.Hours,
		Description:         strings.TrimSpace(body.Description),
		IsWorkFromHome:      body.IsWorkFromHome,
		WorkFromHomeStarted: body.WorkFromHomeStarted,
	})
	writeJSON(w, http.StatusOK, s.syncResponse(report))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.StartImport(r.Context())
	if err != nil {
		s.writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		Imported:  report.Imported,
		Unchanged: report.Unchanged,
		Ignored:   report.Ignored,
		NewTasks:  report.NewTasks,
		State:     buildStateView(s.engine.Snapshot(), s.engine.Now()),
	})
}

func (s *Server) handleImportCancel(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.CancelImport(); err != nil {
		s.writeError(w, "cancel import", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.CommitImport(persistContext(r))
	if err != nil {
		s.writeError(w, "commit import", err)
		return
	}
	writeJSON(w, http.StatusOK, s.syncResponse(report))
}

func (s *Server) handleImportMetadata(w http.ResponseWriter, r *http.Request) {
	var body importMetadataRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.WorkFromHomeStart != nil && (*body.WorkFromHomeStart < 0 || *body.WorkFromHomeStart >= 24) {
		http.Error(w, "workFromHomeStart must be between 0 and 24", http.StatusBadRequest)
		return
	}
	s.writeState(w, s.engine.SetImportMetadata(timegrid.ImportMetadata{
		IsWorkFromHome:          body.IsWorkFromHome,
		WorkFromHomeStart:       body.WorkFromHomeStart,
		SelectedTypeOfWorkIndex: body.TypeOfWorkIndex,
	}))
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var body taskRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.TaskID <= 0 {
		http.Error(w, "taskId must be > 0", http.StatusBadRequest)
		return
	}
	state := s.engine.AddNewTask(worklog.Task{
		TaskID:             body.TaskID,
		Project:            strings.TrimSpace(body.Project),
		Description:        strings.TrimSpace(body.Description),
		CustRefDescription: strings.TrimSpace(body.CustRefDescription),
	})
	writeJSON(w, http.StatusCreated, buildStateView(state, s.engine.Now()))
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	taskID, err := parsePositiveInt64(r.PathValue("taskId"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	if err := s.engine.AddTaskToFavorites(r.Context(), taskID); err != nil {
		s.writeError(w, "add favorite", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	taskID, err := parsePositiveInt64(r.PathValue("taskId"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	if err := s.engine.RemoveTaskFromFavorites(r.Context(), taskID); err != nil {
		s.writeError(w, "remove favorite", err)
		return
	}
	s.writeState(w, s.engine.Snapshot())
}

func (s *Server) handleWorkFromHome(w http.ResponseWriter, r *http.Request) {
	day, err := parseISODate(r.PathValue("date"))
	if err != nil {
		http.Error(w, "invalid date format (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	var body flagRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report := s.engine.SetWorkFromHomeForDay(persistContext(r), day, body.Value)
	writeJSON(w, http.StatusOK, s.syncResponse(report))
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	items := []timegrid.Notification{}
	if s.notifications != nil {
		items = append(items, s.notifications.List()...)
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCloseNotification(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil || !s.notifications.Close(r.PathValue("id")) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) syncResponse(report timegrid.SyncReport) syncResponse {
	return syncResponse{
		Submitted: report.Submitted,
		Saved:     report.Saved,
		Failed:    report.Failed,
		Staged:    report.Staged,
		State:     buildStateView(s.engine.Snapshot(), s.engine.Now()),
	}
}

func (s *Server) writeState(w http.ResponseWriter, state timegrid.State) {
	writeJSON(w, http.StatusOK, buildStateView(state, s.engine.Now()))
}

func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(action+" failed", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", action, err), status)
}

func errorStatus(err error) int {
	var apiErr *weboffice.APIError
	switch {
	case errors.Is(err, timegrid.ErrImportInProgress),
		errors.Is(err, timegrid.ErrNoImport),
		errors.Is(err, timegrid.ErrNoMonth),
		errors.Is(err, timegrid.ErrMonthLoading):
		return http.StatusConflict
	case errors.Is(err, weboffice.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseMonth(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01", strings.TrimSpace(value), time.Local)
}

func parseISODate(value string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, strings.TrimSpace(value), time.Local)
}

func parsePositiveInt64(value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("value must be > 0")
	}
	return parsed, nil
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// persistContext keeps the request values but not its cancellation, so a
// client that goes away mid-write does not leave cells unsent.
func persistContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
