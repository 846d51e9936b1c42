// Package grouping buckets cleaned keywords into named groups with an LLM and
// replays manual overrides on top of the AI output.
package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agency_os_backend/internal/keywords/cleaning"
	"agency_os_backend/platform/ai/llm"

	"golang.org/x/sync/errgroup"
)

// UngroupedName collects input keywords the model left out.
const UngroupedName = "Ungrouped"

const (
	defaultBatchSize   = 300
	defaultConcurrency = 3
)

// Group is a named bucket of keywords.
type Group struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Hints give the model context about the catalogue being grouped.
type Hints struct {
	Brand       string `json:"brand,omitempty"`
	Marketplace string `json:"marketplace,omitempty"`
	MaxGroups   int    `json:"maxGroups,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Output is the merged result of every batch.
type Output struct {
	Groups []Group   `json:"groups"`
	Usage  llm.Usage `json:"usage"`
}

// Prompter is the single-turn LLM call the grouper depends on.
type Prompter interface {
	Prompt(ctx context.Context, input string) (llm.Result, error)
}

// Grouper splits keyword lists into batches and groups them concurrently.
type Grouper struct {
	prompter    Prompter
	batchSize   int
	concurrency int
}

// Option customises a Grouper.
type Option func(*Grouper)

// WithBatchSize sets how many keywords are sent per LLM call.
func WithBatchSize(n int) Option {
	return func(g *Grouper) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be in flight.
func WithConcurrency(n int) Option {
	return func(g *Grouper) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGrouper creates a Grouper.
func NewGrouper(p Prompter, opts ...Option) *Grouper {
	g := &Grouper{prompter: p, batchSize: defaultBatchSize, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewAgentPrompter builds the ADK-backed prompter used in production.
func NewAgentPrompter(model *llm.Model) (*llm.Prompter, error) {
	return llm.NewPrompter(model, llm.PromptConfig{
		Name:        "keyword_grouper",
		Description: "Groups ecommerce search keywords into shopper-intent buckets",
		Instruction: groupingInstruction,
		JSON:        true,
		Temperature: 0.2,
	})
}

type batchReply struct {
	Groups []Group `json:"groups"`
}

// Group assigns every keyword to exactly one group. Keywords are normalised
// first; the model may not invent keywords and anything it omits ends up in
// the Ungrouped bucket.
func (g *Grouper) Group(ctx context.Context, keywords []string, hints Hints) (Output, error) {
	if g.prompter == nil {
		return Output{}, errors.New("grouping: no LLM configured")
	}

	input := dedupeNormalized(keywords)
	if len(input) == 0 {
		return Output{Groups: []Group{}}, nil
	}

	batches := chunk(input, g.batchSize)
	replies := make([]batchReply, len(batches))
	usages := make([]llm.Usage, len(batches))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, batch := range batches {
		eg.Go(func() error {
			res, err := g.prompter.Prompt(egCtx, buildGroupingInput(batch, hints, i+1, len(batches)))
			usages[i] = res.Usage
			if err != nil {
				return fmt.Errorf("grouping batch %d/%d: %w", i+1, len(batches), err)
			}
			if err := llm.DecodeJSON(res.Text, &replies[i]); err != nil {
				return fmt.Errorf("grouping batch %d/%d: %w", i+1, len(batches), err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Output{Usage: sumUsage(usages)}, err
	}

	return Output{
		Groups: mergeBatches(batches, replies),
		Usage:  sumUsage(usages),
	}, nil
}

// mergeBatches folds batch replies together, matching group names
// case-insensitively and keeping only keywords that were actually sent.
func mergeBatches(batches [][]string, replies []batchReply) []Group {
	var groups []Group
	index := make(map[string]int)
	assigned := make(map[string]struct{})

	add := func(name, kw string) {
		key := groupKey(name)
		i, ok := index[key]
		if !ok {
			groups = append(groups, Group{Name: strings.TrimSpace(name)})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].Keywords = append(groups[i].Keywords, kw)
		assigned[kw] = struct{}{}
	}

	for bi, reply := range replies {
		allowed := make(map[string]struct{}, len(batches[bi]))
		for _, kw := range batches[bi] {
			allowed[kw] = struct{}{}
		}
		for _, grp := range reply.Groups {
			if groupKey(grp.Name) == "" {
				continue
			}
			for _, raw := range grp.Keywords {
				kw := cleaning.Normalize(raw)
				if _, ok := allowed[kw]; !ok {
					continue
				}
				if _, dup := assigned[kw]; dup {
					continue
				}
				add(grp.Name, kw)
			}
		}
	}

	for _, batch := range batches {
		for _, kw := range batch {
			if _, ok := assigned[kw]; !ok {
				add(UngroupedName, kw)
			}
		}
	}

	if groups == nil {
		groups = []Group{}
	}
	return groups
}

func dedupeNormalized(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		n := cleaning.Normalize(k)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func sumUsage(usages []llm.Usage) llm.Usage {
	var total llm.Usage
	for _, u := range usages {
		if u.Model != "" {
			total.Model = u.Model
		}
		total.Fallback = total.Fallback || u.Fallback
		total.PromptTokens += u.PromptTokens
		total.CompletionTokens += u.CompletionTokens
	}
	return total
}

func buildGroupingInput(batch []string, hints Hints, n, total int) string {
	payload := struct {
		Hints    Hints    `json:"hints"`
		Batch    string   `json:"batch"`
		Keywords []string `json:"keywords"`
	}{
		Hints:    hints,
		Batch:    fmt.Sprintf("%d/%d", n, total),
		Keywords: batch,
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

const groupingInstruction = `You organise ecommerce search keywords into groups that share one shopper intent
(product type, use case, audience or feature).

The user message is a JSON object with "keywords" and optional "hints" (brand,
marketplace, maxGroups, notes). Respond with ONLY a JSON object:

{"groups":[{"name":"Short Title Case Name","keywords":["keyword", "..."]}]}

Rules:
- Use every input keyword exactly once, copied verbatim.
- Never invent, merge, translate or rephrase keywords.
- Group names are 1-4 words, Title Case, no brand names unless every keyword in the group contains it.
- Respect hints.maxGroups when it is set.
- Batches of the same list are processed separately; reuse obvious names such as "Gifts" or "Accessories" so they merge.`
