package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type recordedCall struct {
	Model    string
	Messages []chatMessage
	Format   map[string]string
}

// fakeProvider answers per model with a canned status and body.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []recordedCall
	replies map[string]func(w http.ResponseWriter)
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Model: req.Model, Messages: req.Messages, Format: req.ResponseFormat})
	reply := f.replies[req.Model]
	f.mu.Unlock()
	reply(w)
}

func (f *fakeProvider) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Model)
	}
	return out
}

func okReply(text string, prompt, completion int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": text}}},
			"usage":   map[string]any{"prompt_tokens": prompt, "completion_tokens": completion},
		})
	}
}

func statusReply(status int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
	}
}

func newTestModel(t *testing.T, provider *fakeProvider) *Model {
	t.Helper()
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)
	return NewModel(Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		Model:         "primary",
		FallbackModel: "backup",
	}, nil)
}

func userRequest(text string) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("be terse", genai.RoleUser),
		},
	}
}

func collect(t *testing.T, m *Model, ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	t.Helper()
	var (
		resp *model.LLMResponse
		err  error
	)
	for r, e := range m.GenerateContent(ctx, req, false) {
		resp, err = r, e
	}
	return resp, err
}

func TestGenerateContentUsesPrimaryModel(t *testing.T) {
	provider := &fakeProvider{replies: map[string]func(http.ResponseWriter){
		"primary": okReply("hello", 12, 3),
	}}
	m := newTestModel(t, provider)

	ctx, tracker := WithUsageTracker(context.Background())
	resp, err := collect(t, m, ctx, userRequest("hi"))
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Content.Parts[0].Text)
	require.Equal(t, []string{"primary"}, provider.models())

	require.Len(t, provider.calls[0].Messages, 2)
	require.Equal(t, "system", provider.calls[0].Messages[0].Role)
	require.Equal(t, "be terse", provider.calls[0].Messages[0].Content)

	require.Equal(t, Usage{Model: "primary", PromptTokens: 12, CompletionTokens: 3}, tracker.Total())
	require.EqualValues(t, 15, resp.UsageMetadata.TotalTokenCount)
}

func TestGenerateContentFallsBackOnce(t *testing.T) {
	tests := []struct {
		name    string
		primary func(http.ResponseWriter)
	}{
		{name: "server error", primary: statusReply(http.StatusBadGateway)},
		{name: "rate limited", primary: statusReply(http.StatusTooManyRequests)},
		{name: "empty choices", primary: func(w http.ResponseWriter) { _, _ = w.Write([]byte(`{"choices":[]}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{replies: map[string]func(http.ResponseWriter){
				"primary": tt.primary,
				"backup":  okReply("from backup", 5, 5),
			}}
			m := newTestModel(t, provider)

			ctx, tracker := WithUsageTracker(context.Background())
			resp, err := collect(t, m, ctx, userRequest("hi"))
			require.NoError(t, err)
			require.Equal(t, "from backup", resp.Content.Parts[0].Text)
			require.Equal(t, []string{"primary", "backup"}, provider.models())
			require.True(t, tracker.Total().Fallback)
			require.Equal(t, "backup", tracker.Total().Model)
		})
	}
}

func TestGenerateContentDoesNotRetryClientErrors(t *testing.T) {
	provider := &fakeProvider{replies: map[string]func(http.ResponseWriter){
		"primary": statusReply(http.StatusBadRequest),
		"backup":  okReply("unused", 1, 1),
	}}
	m := newTestModel(t, provider)

	_, err := collect(t, m, context.Background(), userRequest("hi"))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.Status)
	require.Equal(t, []string{"primary"}, provider.models())
}

func TestGenerateContentFallbackFailureIsReturned(t *testing.T) {
	provider := &fakeProvider{replies: map[string]func(http.ResponseWriter){
		"primary": statusReply(http.StatusInternalServerError),
		"backup":  statusReply(http.StatusServiceUnavailable),
	}}
	m := newTestModel(t, provider)

	_, err := collect(t, m, context.Background(), userRequest("hi"))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "backup", statusErr.Model)
	require.Equal(t, []string{"primary", "backup"}, provider.models())
}

func TestJSONResponseFormat(t *testing.T) {
	provider := &fakeProvider{replies: map[string]func(http.ResponseWriter){
		"primary": okReply(`{"ok":true}`, 1, 1),
	}}
	m := newTestModel(t, provider)

	req := userRequest("hi")
	req.Config.ResponseMIMEType = "application/json"
	_, err := collect(t, m, context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"type": "json_object"}, provider.calls[0].Format)
}
