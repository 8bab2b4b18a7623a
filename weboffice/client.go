package weboffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hourgrid/worklog"
)

const (
	dayLayout     = "02-01-2006"
	isoDayLayout  = "2006-01-02"
	maxErrorBytes = 4096
)

// ErrUnauthorized is returned when the backend rejects the access token.
var ErrUnauthorized = errors.New("unauthorized - please login again")

// Client defines the WebOffice API operations used by the grid.
type Client interface {
	FetchMonthLog(ctx context.Context, start, end time.Time) ([]worklog.Entry, error)
	FetchTypesOfWork(ctx context.Context) ([]worklog.TypeOfWork, error)
	BulkUpsert(ctx context.Context, entries []worklog.Entry) ([]UpsertResult, error)
	FetchWorkTimes(ctx context.Context, start, end time.Time) ([]WorkTime, error)
	FetchFavoriteTasks(ctx context.Context) ([]worklog.Task, error)
	AddFavoriteTask(ctx context.Context, taskID int64) error
	RemoveFavoriteTask(ctx context.Context, taskID int64) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	BaseURL     string
	AccessToken string
	UserAgent   string
	HTTPClient  httpDoer
	Logger      *slog.Logger
}

type HTTPClient struct {
	baseURL     string
	accessToken string
	userAgent   string
	httpClient  httpDoer
	logger      *slog.Logger
}

func NewClient(cfg ClientConfig) (*HTTPClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPClient{
		baseURL:     baseURL,
		accessToken: strings.TrimSpace(cfg.AccessToken),
		userAgent:   strings.TrimSpace(cfg.UserAgent),
		httpClient:  doer,
		logger:      logger,
	}, nil
}

// APIError is the error payload returned by the backend.
type APIError struct {
	ErrorDescription string `json:"errorDescription"`
	ErrorCode        string `json:"errorCode"`
	HTTPStatusCode   int    `json:"httpStatusCode"`
	Timestamp        string `json:"timestamp"`
	Path             string `json:"path"`
}

func (e *APIError) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
	}
	return e.ErrorCode
}

// UpsertResult is one row of a bulk upsert response. Exactly one of Entry or
// ErrorDescription is meaningful.
type UpsertResult struct {
	Entry            worklog.Entry
	TaskID           int64
	Date             time.Time
	ErrorDescription string
}

func (r UpsertResult) Failed() bool {
	return strings.TrimSpace(r.ErrorDescription) != ""
}

// WorkTime is the time tracked externally for one task, per day.
type WorkTime struct {
	Task        worklog.Task
	TimeEntries []TimeEntry
}

type TimeEntry struct {
	EntryDay string
	Duration float64
}

type taskLogDTO struct {
	UID                 string  `json:"uid,omitempty"`
	Date                string  `json:"date"`
	TaskID              int64   `json:"taskId"`
	Hours               float64 `json:"hours"`
	Description         string  `json:"description"`
	CustRefDescription  string  `json:"custRefDescription,omitempty"`
	ProjectName         string  `json:"projectName,omitempty"`
	TypeOfWork          string  `json:"typeOfWork"`
	IsWorkFromHome      bool    `json:"isWorkFromHome"`
	WorkFromHomeStarted float64 `json:"workFromHomeStarted"`
	ErrorDescription    string  `json:"errorDescription,omitempty"`
}

type monthLogRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type typeOfWorkDTO struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

type taskDTO struct {
	TaskID             int64  `json:"taskId"`
	Project            string `json:"project"`
	Description        string `json:"description"`
	CustRefDescription string `json:"custRefDescription"`
}

type workTimeDTO struct {
	Task        taskDTO `json:"task"`
	TimeEntries []struct {
		EntryDay string  `json:"entryDay"`
		Duration float64 `json:"duration"`
	} `json:"timeEntries"`
}

type favoriteTaskDTO struct {
	ProjectName        string `json:"projectName"`
	Description        string `json:"description"`
	CustRefDescription string `json:"custRefDescription"`
	TaskNumber         int64  `json:"taskNumber"`
}

func (c *HTTPClient) FetchMonthLog(ctx context.Context, start, end time.Time) ([]worklog.Entry, error) {
	body := monthLogRequest{StartDate: FormatDay(start), EndDate: FormatDay(end)}
	var out []taskLogDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks-log", body, &out); err != nil {
		return nil, err
	}

	entries := make([]worklog.Entry, 0, len(out))
	for _, item := range out {
		entry, err := item.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *HTTPClient) FetchTypesOfWork(ctx context.Context) ([]worklog.TypeOfWork, error) {
	var out []typeOfWorkDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/types-of-work", nil, &out); err != nil {
		return nil, err
	}

	types := make([]worklog.TypeOfWork, 0, len(out))
	for _, item := range out {
		types = append(types, worklog.TypeOfWork{ID: item.ID, Key: item.Key, Description: item.Description})
	}
	return types, nil
}

func (c *HTTPClient) BulkUpsert(ctx context.Context, entries []worklog.Entry) ([]UpsertResult, error) {
	if len(entries) == 0 {
		return nil, errors.New("bulk upsert payload must not be empty")
	}

	payload := make([]taskLogDTO, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, fromEntry(entry))
	}

	var out []taskLogDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks-log/bulk-upsert", payload, &out); err != nil {
		return nil, err
	}

	results := make([]UpsertResult, 0, len(out))
	for _, item := range out {
		if strings.TrimSpace(item.ErrorDescription) != "" {
			var date time.Time
			if strings.TrimSpace(item.Date) != "" {
				parsed, err := ParseDay(item.Date)
				if err != nil {
					return nil, err
				}
				date = parsed
			}
			results = append(results, UpsertResult{
				TaskID:           item.TaskID,
				Date:             date,
				ErrorDescription: item.ErrorDescription,
			})
			continue
		}
		entry, err := item.toEntry()
		if err != nil {
			return nil, err
		}
		results = append(results, UpsertResult{Entry: entry, TaskID: entry.TaskID, Date: entry.Date})
	}
	return results, nil
}

func (c *HTTPClient) FetchWorkTimes(ctx context.Context, start, end time.Time) ([]WorkTime, error) {
	query := url.Values{}
	query.Set("startDate", start.Format(isoDayLayout))
	query.Set("endDate", end.Format(isoDayLayout))

	var out []workTimeDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/work-times?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}

	workTimes := make([]WorkTime, 0, len(out))
	for _, item := range out {
		workTime := WorkTime{
			Task:        item.Task.toTask(),
			TimeEntries: make([]TimeEntry, 0, len(item.TimeEntries)),
		}
		for _, timeEntry := range item.TimeEntries {
			workTime.TimeEntries = append(workTime.TimeEntries, TimeEntry{
				EntryDay: timeEntry.EntryDay,
				Duration: timeEntry.Duration,
			})
		}
		workTimes = append(workTimes, workTime)
	}
	return workTimes, nil
}

func (c *HTTPClient) FetchFavoriteTasks(ctx context.Context) ([]worklog.Task, error) {
	var out []favoriteTaskDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/favorite-tasks", nil, &out); err != nil {
		return nil, err
	}

	tasks := make([]worklog.Task, 0, len(out))
	for _, item := range out {
		tasks = append(tasks, worklog.Task{
			TaskID:             item.TaskNumber,
			Project:            item.ProjectName,
			Description:        item.Description,
			CustRefDescription: item.CustRefDescription,
		})
	}
	return tasks, nil
}

func (c *HTTPClient) AddFavoriteTask(ctx context.Context, taskID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/favorite-tasks/%d", taskID), nil, nil)
}

func (c *HTTPClient) RemoveFavoriteTask(ctx context.Context, taskID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/favorite-tasks/%d", taskID), nil, nil)
}

func FormatDay(day time.Time) string {
	return day.Format(dayLayout)
}

func ParseDay(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dayLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return parsed, nil
}

// ParseISODay parses the yyyy-MM-dd dates used by the work-times endpoint.
func ParseISODay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(isoDayLayout) {
		value = value[:len(isoDayLayout)]
	}
	parsed, err := time.ParseInLocation(isoDayLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse iso day %q: %w", value, err)
	}
	return parsed, nil
}

func (d taskLogDTO) toEntry() (worklog.Entry, error) {
	date, err := ParseDay(d.Date)
	if err != nil {
		return worklog.Entry{}, err
	}
	return worklog.Entry{
		UID:                 d.UID,
		TaskID:              d.TaskID,
		Date:                date,
		Hours:               d.Hours,
		Description:         d.Description,
		CustRefDescription:  d.CustRefDescription,
		ProjectName:         d.ProjectName,
		TypeOfWork:          d.TypeOfWork,
		IsWorkFromHome:      d.IsWorkFromHome,
		WorkFromHomeStarted: d.WorkFromHomeStarted,
	}, nil
}

func fromEntry(entry worklog.Entry) taskLogDTO {
	return taskLogDTO{
		UID:                 entry.UID,
		Date:                FormatDay(entry.Date),
		TaskID:              entry.TaskID,
		Hours:               entry.Hours,
		Description:         entry.Description,
		CustRefDescription:  entry.CustRefDescription,
		ProjectName:         entry.ProjectName,
		TypeOfWork:          entry.TypeOfWork,
		IsWorkFromHome:      entry.IsWorkFromHome,
		WorkFromHomeStarted: entry.WorkFromHomeStarted,
	}
}

func (d taskDTO) toTask() worklog.Task {
	return worklog.Task{
		TaskID:             d.TaskID,
		Project:            d.Project,
		Description:        d.Description,
		CustRefDescription: d.CustRefDescription,
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpointPath string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpointPath, bodyReader)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, endpointPath, err)
	}

	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, endpointPath, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("weboffice request",
		"method", method,
		"path", endpointPath,
		"status", resp.StatusCode,
		"elapsed", time.Since(started),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s %s: %w", method, endpointPath, err)
	}

	if apiErr := decodeAPIError(responseBody); apiErr != nil {
		return apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(responseBody) > maxErrorBytes {
			responseBody = responseBody[:maxErrorBytes]
		}
		return fmt.Errorf(
			"request %s %s failed with status %d: %s",
			method,
			endpointPath,
			resp.StatusCode,
			strings.TrimSpace(string(responseBody)),
		)
	}

	if out == nil || len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", method, endpointPath, err)
	}
	return nil
}

func decodeAPIError(body []byte) *APIError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(trimmed, &apiErr); err != nil {
		return nil
	}
	if strings.TrimSpace(apiErr.ErrorCode) == "" {
		return nil
	}
	return &apiErr
}
