// Package tracker is the HTTP client for the ClickUp-compatible task tracker
// meeting tasks are pushed to.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agency_os_backend/platform/config"
	"agency_os_backend/platform/logger"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// TaskInput is a task to create in a list.
type TaskInput struct {
	Name        string
	Description string
	DueDate     *time.Time
	Tags        []string
}

// Task is the tracker's reference to a created task.
type Task struct {
	ID  string
	URL string
}

// Client talks to the tracker API with a personal or workspace token.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	defaultListID string
	log           *logger.Logger
}

// New creates a tracker client.
func New(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		log:        log,
	}
}

// NewFromConfig returns nil when no API token is configured.
func NewFromConfig(cfg config.TrackerConfig, log *logger.Logger) *Client {
	if !cfg.IsTrackerEnabled() {
		return nil
	}
	c := New(cfg.GetTrackerBaseURL(), cfg.GetTrackerAPIToken(), log)
	c.defaultListID = cfg.GetTrackerDefaultListID()
	return c
}

// DefaultListID is the list used when a push names none.
func (c *Client) DefaultListID() string {
	return c.defaultListID
}

type createTaskRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	DueDate     *int64   `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type createTaskResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracker returned status %d: %s", e.Status, e.Body)
}

// CreateTask creates a task in the given list.
// POST {base}/list/{listId}/task
func (c *Client) CreateTask(ctx context.Context, listID string, in TaskInput) (Task, error) {
	body := createTaskRequest{Name: in.Name, Description: in.Description, Tags: in.Tags}
	if in.DueDate != nil {
		ms := in.DueDate.UnixMilli()
		body.DueDate = &ms
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Task{}, fmt.Errorf("encode task: %w", err)
	}

	reqURL := fmt.Sprintf("%s/list/%s/task", c.baseURL, url.PathEscape(listID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return Task{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("tracker request failed", "error", err, "listId", listID)
		return Task{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("tracker rejected task", "status", resp.StatusCode, "listId", listID)
		return Task{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	var out createTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Task{}, fmt.Errorf("decode response: %w", err)
	}
	if out.ID == "" {
		return Task{}, fmt.Errorf("tracker response has no task id")
	}
	return Task{ID: out.ID, URL: out.URL}, nil
}
