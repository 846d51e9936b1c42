package service

import (
	"context"
	_ "embed"
	"fmt"

	"agency_os_backend/platform/ai/llm"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompter is the single-turn LLM call used by the generation jobs.
type Prompter interface {
	Prompt(ctx context.Context, input string) (llm.Result, error)
}

// Prompters holds one prompter per generation kind. A nil field disables
// that kind of generation.
type Prompters struct {
	Topics Prompter
	Copy   Prompter
}

type promptDef struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Temperature float32 `yaml:"temperature"`
	Instruction string  `yaml:"instruction"`
}

type promptFile struct {
	Topics promptDef `yaml:"topics"`
	Copy   promptDef `yaml:"copy"`
}

func (d promptDef) config() llm.PromptConfig {
	return llm.PromptConfig{
		Name:        d.Name,
		Description: d.Description,
		Instruction: d.Instruction,
		JSON:        true,
		Temperature: d.Temperature,
	}
}

// NewPrompters builds both generation prompters from the embedded prompt
// definitions.
func NewPrompters(model *llm.Model) (Prompters, error) {
	var defs promptFile
	if err := yaml.Unmarshal(promptsYAML, &defs); err != nil {
		return Prompters{}, fmt.Errorf("parse project prompts: %w", err)
	}

	topics, err := llm.NewPrompter(model, defs.Topics.config())
	if err != nil {
		return Prompters{}, fmt.Errorf("topic prompter: %w", err)
	}
	copyPrompter, err := llm.NewPrompter(model, defs.Copy.config())
	if err != nil {
		return Prompters{}, fmt.Errorf("copy prompter: %w", err)
	}
	return Prompters{Topics: topics, Copy: copyPrompter}, nil
}
