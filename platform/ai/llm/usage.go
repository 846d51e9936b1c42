package llm

import (
	"context"
	"sync"
)

// Usage is the token accounting for one completed chat completion.
type Usage struct {
	Model            string `json:"model"`
	Fallback         bool   `json:"fallback"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// UsageTracker collects Usage for every call made with a context returned by
// WithUsageTracker, including calls made deep inside an agent runner.
type UsageTracker struct {
	mu    sync.Mutex
	calls []Usage
}

type usageTrackerKey struct{}

// WithUsageTracker attaches a fresh tracker to ctx.
func WithUsageTracker(ctx context.Context) (context.Context, *UsageTracker) {
	t := &UsageTracker{}
	return context.WithValue(ctx, usageTrackerKey{}, t), t
}

func trackUsage(ctx context.Context, u Usage) {
	if t, ok := ctx.Value(usageTrackerKey{}).(*UsageTracker); ok {
		t.mu.Lock()
		t.calls = append(t.calls, u)
		t.mu.Unlock()
	}
}

// Calls returns a copy of the recorded calls in completion order.
func (t *UsageTracker) Calls() []Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Usage, len(t.calls))
	copy(out, t.calls)
	return out
}

// Total sums all recorded calls. Model and Fallback come from the last call.
func (t *UsageTracker) Total() Usage {
	var total Usage
	for _, c := range t.Calls() {
		total.Model = c.Model
		total.Fallback = total.Fallback || c.Fallback
		total.PromptTokens += c.PromptTokens
		total.CompletionTokens += c.CompletionTokens
	}
	return total
}
