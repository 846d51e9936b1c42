package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"agency_os_backend/platform/ai/llm"

	"github.com/stretchr/testify/require"
)

// fakePrompter answers each batch with a function of its keywords.
type fakePrompter struct {
	mu       sync.Mutex
	inputs   [][]string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	reply    func(keywords []string) (string, error)
}

func (f *fakePrompter) Prompt(ctx context.Context, input string) (llm.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	var payload struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return llm.Result{}, err
	}
	f.mu.Lock()
	f.inputs = append(f.inputs, payload.Keywords)
	f.mu.Unlock()

	text, err := f.reply(payload.Keywords)
	return llm.Result{Text: text, Usage: llm.Usage{Model: "m", PromptTokens: 10, CompletionTokens: 5}}, err
}

func groupsJSON(groups ...Group) string {
	raw, _ := json.Marshal(map[string]any{"groups": groups})
	return "```json\n" + string(raw) + "\n```"
}

func TestGroupAssignsEveryKeywordOnce(t *testing.T) {
	p := &fakePrompter{reply: func(kws []string) (string, error) {
		return groupsJSON(
			Group{Name: "Mugs", Keywords: []string{"travel mug", "Coffee Mug", "invented keyword"}},
			Group{Name: "Duplicates", Keywords: []string{"travel mug"}},
		), nil
	}}

	out, err := NewGrouper(p).Group(context.Background(), []string{"Travel Mug", "coffee mug", "travel mug", "tumbler", ""}, Hints{})
	require.NoError(t, err)

	require.Equal(t, []Group{
		{Name: "Mugs", Keywords: []string{"travel mug", "coffee mug"}},
		{Name: UngroupedName, Keywords: []string{"tumbler"}},
	}, out.Groups)
	require.Equal(t, 10, out.Usage.PromptTokens)
}

func TestGroupBatchesAndMergesCaseInsensitively(t *testing.T) {
	p := &fakePrompter{reply: func(kws []string) (string, error) {
		name := "mugs"
		if kws[0] == "a" {
			name = "Mugs"
		}
		return groupsJSON(Group{Name: name, Keywords: kws}), nil
	}}

	out, err := NewGrouper(p, WithBatchSize(2), WithConcurrency(2)).
		Group(context.Background(), []string{"a", "b", "c", "d", "e"}, Hints{MaxGroups: 5})
	require.NoError(t, err)

	require.Len(t, p.inputs, 3)
	require.LessOrEqual(t, p.maxSeen.Load(), int32(2))
	require.Len(t, out.Groups, 1)
	require.Equal(t, "Mugs", out.Groups[0].Name)
	require.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, out.Groups[0].Keywords)
	require.Equal(t, 30, out.Usage.PromptTokens)
	require.Equal(t, 15, out.Usage.CompletionTokens)
}

func TestGroupKeepsBatchOrderRegardlessOfCompletion(t *testing.T) {
	p := &fakePrompter{reply: func(kws []string) (string, error) {
		return groupsJSON(Group{Name: "Group " + kws[0], Keywords: kws}), nil
	}}

	out, err := NewGrouper(p, WithBatchSize(1)).Group(context.Background(), []string{"x", "y", "z"}, Hints{})
	require.NoError(t, err)
	require.Equal(t, []string{"Group x", "Group y", "Group z"}, []string{out.Groups[0].Name, out.Groups[1].Name, out.Groups[2].Name})
}

func TestGroupFailsWhenABatchFails(t *testing.T) {
	boom := errors.New("provider down")
	p := &fakePrompter{reply: func(kws []string) (string, error) {
		if kws[0] == "b" {
			return "", boom
		}
		return groupsJSON(Group{Name: "G", Keywords: kws}), nil
	}}

	_, err := NewGrouper(p, WithBatchSize(1)).Group(context.Background(), []string{"a", "b"}, Hints{})
	require.ErrorIs(t, err, boom)
}

func TestGroupRejectsNonJSONReply(t *testing.T) {
	p := &fakePrompter{reply: func(kws []string) (string, error) { return "I cannot help with that", nil }}

	_, err := NewGrouper(p).Group(context.Background(), []string{"a"}, Hints{})
	require.ErrorIs(t, err, llm.ErrNoJSON)
}

func TestGroupEmptyInputSkipsLLM(t *testing.T) {
	p := &fakePrompter{reply: func(kws []string) (string, error) {
		t.Fatal("prompter must not be called")
		return "", nil
	}}

	out, err := NewGrouper(p).Group(context.Background(), []string{" ", ""}, Hints{})
	require.NoError(t, err)
	require.Empty(t, out.Groups)
}

func TestGroupWithoutPrompter(t *testing.T) {
	_, err := NewGrouper(nil).Group(context.Background(), []string{"a"}, Hints{})
	require.Error(t, err)
}
