package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agency_os_backend/platform/logger"

	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"86abc","url":"https://app.clickup.com/t/86abc"}`))
	}))
	defer srv.Close()

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := New(srv.URL+"/", "pk_123", logger.Discard())
	task, err := c.CreateTask(context.Background(), "901", TaskInput{Name: "Send report", Description: "weekly", DueDate: &due})
	require.NoError(t, err)
	require.Equal(t, Task{ID: "86abc", URL: "https://app.clickup.com/t/86abc"}, task)
	require.Equal(t, "/list/901/task", gotPath)
	require.Equal(t, "pk_123", gotAuth)
	require.Equal(t, "Send report", gotBody["name"])
	require.EqualValues(t, due.UnixMilli(), gotBody["due_date"])
}

func TestCreateTaskNon2xxCarriesBodyExcerpt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"err":"List not found","ECODE":"ITEM_015"}` + strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	c := New(srv.URL, "pk_123", logger.Discard())
	_, err := c.CreateTask(context.Background(), "missing", TaskInput{Name: "x"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadRequest, statusErr.Status)
	require.Contains(t, statusErr.Body, "List not found")
	require.LessOrEqual(t, len(statusErr.Body), maxErrorBody)
}

func TestCreateTaskRequiresID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "t", logger.Discard()).CreateTask(context.Background(), "1", TaskInput{Name: "x"})
	require.Error(t, err)
}

type trackerCfg struct{ token string }

func (c trackerCfg) GetTrackerBaseURL() string       { return "https://api.clickup.com/api/v2" }
func (c trackerCfg) GetTrackerAPIToken() string      { return c.token }
func (c trackerCfg) GetTrackerDefaultListID() string { return "42" }
func (c trackerCfg) IsTrackerEnabled() bool          { return c.token != "" }

func TestNewFromConfigDisabledWithoutToken(t *testing.T) {
	require.Nil(t, NewFromConfig(trackerCfg{}, logger.Discard()))
	c := NewFromConfig(trackerCfg{token: "pk"}, logger.Discard())
	require.NotNil(t, c)
	require.Equal(t, "42", c.DefaultListID())
}
