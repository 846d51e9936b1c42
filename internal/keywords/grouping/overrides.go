package grouping

import (
	"sort"
	"strings"

	"agency_os_backend/internal/keywords/cleaning"
)

// Action is the kind of manual correction applied on top of AI groups.
type Action string

const (
	ActionMove   Action = "move"
	ActionRemove Action = "remove"
	ActionAdd    Action = "add"
	ActionRename Action = "rename"
)

// ValidActions lists every supported override action.
var ValidActions = []Action{ActionMove, ActionRemove, ActionAdd, ActionRename}

// Override is one user-issued correction. Overrides replay in Seq order.
type Override struct {
	Seq       int64  `json:"seq"`
	Action    Action `json:"action"`
	Keyword   string `json:"keyword,omitempty"`
	FromGroup string `json:"fromGroup,omitempty"`
	ToGroup   string `json:"toGroup,omitempty"`
}

// Skipped is an override that could not be applied.
type Skipped struct {
	Seq    int64  `json:"seq"`
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// MergeResult is the AI output with every applicable override replayed.
type MergeResult struct {
	Groups  []Group   `json:"groups"`
	Skipped []Skipped `json:"skipped"`
}

const (
	skipKeywordNotFound = "keyword not found"
	skipGroupNotFound   = "group not found"
	skipMissingKeyword  = "keyword is required"
	skipMissingTarget   = "target group is required"
	skipUnknownAction   = "unknown action"
)

// ApplyOverrides replays overrides over base without mutating either. The
// result never contains empty groups, and groups keep first-seen order with
// newly created groups appended.
func ApplyOverrides(base []Group, overrides []Override) MergeResult {
	groups := cloneGroups(base)
	ordered := make([]Override, len(overrides))
	copy(ordered, overrides)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	res := MergeResult{Skipped: []Skipped{}}
	skip := func(o Override, reason string) {
		res.Skipped = append(res.Skipped, Skipped{Seq: o.Seq, Action: o.Action, Reason: reason})
	}

	for _, o := range ordered {
		var reason string
		switch o.Action {
		case ActionMove:
			groups, reason = applyMove(groups, o, false)
		case ActionAdd:
			groups, reason = applyMove(groups, o, true)
		case ActionRemove:
			groups, reason = applyRemove(groups, o)
		case ActionRename:
			groups, reason = applyRename(groups, o)
		default:
			reason = skipUnknownAction
		}
		if reason != "" {
			skip(o, reason)
		}
	}

	res.Groups = dropEmpty(groups)
	return res
}

func applyMove(groups []Group, o Override, allowNew bool) ([]Group, string) {
	kw := cleaning.Normalize(o.Keyword)
	target := strings.TrimSpace(o.ToGroup)
	if kw == "" {
		return groups, skipMissingKeyword
	}
	if target == "" {
		return groups, skipMissingTarget
	}

	found := false
	for i := range groups {
		if kept, removed := without(groups[i].Keywords, kw); removed {
			groups[i].Keywords = kept
			found = true
		}
	}
	if !found && !allowNew {
		return groups, skipKeywordNotFound
	}

	idx := findGroup(groups, target)
	if idx < 0 {
		groups = append(groups, Group{Name: target})
		idx = len(groups) - 1
	}
	groups[idx].Keywords = append(groups[idx].Keywords, kw)
	return groups, ""
}

func applyRemove(groups []Group, o Override) ([]Group, string) {
	kw := cleaning.Normalize(o.Keyword)
	if kw == "" {
		return groups, skipMissingKeyword
	}
	found := false
	for i := range groups {
		if kept, removed := without(groups[i].Keywords, kw); removed {
			groups[i].Keywords = kept
			found = true
		}
	}
	if !found {
		return groups, skipKeywordNotFound
	}
	return groups, ""
}

func applyRename(groups []Group, o Override) ([]Group, string) {
	from := findGroup(groups, o.FromGroup)
	target := strings.TrimSpace(o.ToGroup)
	if from < 0 {
		return groups, skipGroupNotFound
	}
	if target == "" {
		return groups, skipMissingTarget
	}

	to := findGroup(groups, target)
	if to < 0 || to == from {
		groups[from].Name = target
		return groups, ""
	}

	merged := groups[to].Keywords
	for _, kw := range groups[from].Keywords {
		if !contains(merged, kw) {
			merged = append(merged, kw)
		}
	}
	groups[to].Keywords = merged
	return append(groups[:from], groups[from+1:]...), ""
}

func findGroup(groups []Group, name string) int {
	key := groupKey(name)
	if key == "" {
		return -1
	}
	for i, g := range groups {
		if groupKey(g.Name) == key {
			return i
		}
	}
	return -1
}

func groupKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func without(list []string, kw string) ([]string, bool) {
	out := list[:0:0]
	removed := false
	for _, k := range list {
		if k == kw {
			removed = true
			continue
		}
		out = append(out, k)
	}
	return out, removed
}

func contains(list []string, kw string) bool {
	for _, k := range list {
		if k == kw {
			return true
		}
	}
	return false
}

func cloneGroups(in []Group) []Group {
	out := make([]Group, len(in))
	for i, g := range in {
		kws := make([]string, 0, len(g.Keywords))
		for _, k := range g.Keywords {
			if n := cleaning.Normalize(k); n != "" {
				kws = append(kws, n)
			}
		}
		out[i] = Group{Name: strings.TrimSpace(g.Name), Keywords: kws}
	}
	return out
}

func dropEmpty(groups []Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Keywords) > 0 {
			out = append(out, g)
		}
	}
	return out
}
