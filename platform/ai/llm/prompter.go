package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// ErrEmptyReply is returned when the agent produced no text.
var ErrEmptyReply = errors.New("llm: empty reply")

// PromptConfig describes a single-purpose agent.
type PromptConfig struct {
	Name        string
	Description string
	Instruction string
	// JSON asks the provider for a JSON object response.
	JSON        bool
	Temperature float32
}

// Result is the text reply and token usage of one Prompt call.
type Result struct {
	Text  string
	Usage Usage
}

// Prompter runs one-shot prompts through an ADK llmagent and runner. Every
// call uses its own throwaway session so calls may run concurrently.
type Prompter struct {
	appName        string
	runner         *runner.Runner
	sessionService session.Service
}

// NewPrompter builds an agent around llm.
func NewPrompter(llm model.LLM, cfg PromptConfig) (*Prompter, error) {
	if llm == nil {
		return nil, errors.New("llm: model is required")
	}

	genCfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(cfg.Temperature)}
	if cfg.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:                  cfg.Name,
		Model:                 llm,
		Description:           cfg.Description,
		Instruction:           cfg.Instruction,
		GenerateContentConfig: genCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s agent: %w", cfg.Name, err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        cfg.Name,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s runner: %w", cfg.Name, err)
	}

	return &Prompter{appName: cfg.Name, runner: r, sessionService: sessionService}, nil
}

// Prompt sends input as the user turn and returns the concatenated reply.
func (p *Prompter) Prompt(ctx context.Context, input string) (Result, error) {
	ctx, tracker := WithUsageTracker(ctx)

	userID := p.appName
	sessionID := uuid.NewString()
	if _, err := p.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   p.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = p.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   p.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	content := genai.NewContentFromText(input, genai.RoleUser)
	var out strings.Builder
	for event, err := range p.runner.Run(ctx, userID, sessionID, content, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return Result{Usage: tracker.Total()}, fmt.Errorf("%s: %w", p.appName, err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part != nil && part.Text != "" {
				out.WriteString(part.Text)
			}
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return Result{Usage: tracker.Total()}, ErrEmptyReply
	}
	return Result{Text: text, Usage: tracker.Total()}, nil
}
