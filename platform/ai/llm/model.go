// Package llm adapts an OpenAI-compatible chat completion endpoint to the ADK
// model.LLM interface, with a single retry against a fallback model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"agency_os_backend/platform/config"
	"agency_os_backend/platform/logger"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ErrEmptyChoices is returned when the provider answers 2xx without a choice.
var ErrEmptyChoices = errors.New("llm: empty choices")

const maxErrorBody = 512

// Config configures Model.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Model  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: %s returned %d: %s", e.Model, e.Status, e.Body)
}

// Model talks to /chat/completions. It is safe for concurrent use.
type Model struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewModel creates a Model, filling defaults for unset fields.
func NewModel(cfg Config, log *logger.Logger) *Model {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Model{cfg: cfg, client: client, log: log}
}

// NewFromConfig returns nil when no API key is configured.
func NewFromConfig(cfg config.LLMConfig, log *logger.Logger) *Model {
	if !cfg.IsLLMEnabled() {
		return nil
	}
	return NewModel(Config{
		APIKey:        cfg.GetLLMAPIKey(),
		BaseURL:       cfg.GetLLMBaseURL(),
		Model:         cfg.GetLLMModel(),
		FallbackModel: cfg.GetLLMFallbackModel(),
		Timeout:       cfg.GetLLMTimeout(),
	}, log)
}

// Name returns the primary model name.
func (m *Model) Name() string {
	return m.cfg.Model
}

// GenerateContent implements model.LLM. Streaming is not supported; a single
// complete response is always yielded.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(m.generate(ctx, req))
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (m *Model) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	body := buildRequest(req)

	resp, usage, err := m.complete(ctx, m.cfg.Model, body)
	if err != nil && shouldFallback(err) && m.cfg.FallbackModel != "" && m.cfg.FallbackModel != m.cfg.Model && ctx.Err() == nil {
		m.log.Warn("llm primary model failed, retrying with fallback",
			"model", m.cfg.Model, "fallback", m.cfg.FallbackModel, "error", err)
		resp, usage, err = m.complete(ctx, m.cfg.FallbackModel, body)
		usage.Fallback = true
	}
	if err != nil {
		return nil, err
	}

	trackUsage(ctx, usage)
	return resp, nil
}

func (m *Model) complete(ctx context.Context, modelName string, body chatRequest) (*model.LLMResponse, Usage, error) {
	usage := Usage{Model: modelName}
	body.Model = modelName

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, usage, fmt.Errorf("llm: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, usage, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, usage, fmt.Errorf("llm: %s request: %w", modelName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, usage, &StatusError{Model: modelName, Status: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, usage, fmt.Errorf("llm: decode %s response: %w", modelName, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, usage, ErrEmptyChoices
	}

	usage.PromptTokens = decoded.Usage.PromptTokens
	usage.CompletionTokens = decoded.Usage.CompletionTokens
	m.log.LLMCall(modelName, modelName != m.cfg.Model, usage.PromptTokens, usage.CompletionTokens, time.Since(start))

	text := decoded.Choices[0].Message.Content
	parts := []*genai.Part{}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}

	return &model.LLMResponse{
		Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(usage.PromptTokens),
			CandidatesTokenCount: int32(usage.CompletionTokens),
			TotalTokenCount:      int32(usage.PromptTokens + usage.CompletionTokens),
		},
		TurnComplete: true,
	}, usage, nil
}

// shouldFallback reports whether err is worth one retry on the fallback
// model: transport failures, 5xx, 429 and empty choices.
func shouldFallback(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusTooManyRequests || statusErr.Status >= 500
	}
	return true
}

func buildRequest(req *model.LLMRequest) chatRequest {
	var out chatRequest
	if req == nil {
		return out
	}

	if req.Config != nil {
		if sys := contentText(req.Config.SystemInstruction); sys != "" {
			out.Messages = append(out.Messages, chatMessage{Role: "system", Content: sys})
		}
		if req.Config.Temperature != nil {
			t := float64(*req.Config.Temperature)
			out.Temperature = &t
		}
		if req.Config.MaxOutputTokens > 0 {
			out.MaxTokens = int(req.Config.MaxOutputTokens)
		}
		if req.Config.ResponseMIMEType == "application/json" {
			out.ResponseFormat = map[string]string{"type": "json_object"}
		}
	}

	for _, content := range req.Contents {
		text := contentText(content)
		if text == "" {
			continue
		}
		role := "user"
		if content.Role == string(genai.RoleModel) {
			role = "assistant"
		}
		out.Messages = append(out.Messages, chatMessage{Role: role, Content: text})
	}
	return out
}

func contentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
