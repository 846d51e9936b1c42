// Package cleaning filters raw keyword lists before they are grouped.
//
// Every keyword is normalised (trimmed, internal whitespace collapsed,
// lowercased) and then checked in a fixed order; the first matching check
// removes it and is recorded as the reason:
//
//	empty, duplicate, stopword, brand, competitor, color, size
//
// Kept keywords preserve first-seen order. The pipeline is pure and safe for
// concurrent use.
package cleaning

import (
	"regexp"
	"strings"
	"unicode"
)

// Reason explains why a keyword was removed.
type Reason string

const (
	ReasonEmpty      Reason = "empty"
	ReasonDuplicate  Reason = "duplicate"
	ReasonStopword   Reason = "stopword"
	ReasonBrand      Reason = "brand"
	ReasonCompetitor Reason = "competitor"
	ReasonColor      Reason = "color"
	ReasonSize       Reason = "size"
)

// Reasons lists every removal reason in check order.
var Reasons = []Reason{
	ReasonEmpty, ReasonDuplicate, ReasonStopword, ReasonBrand,
	ReasonCompetitor, ReasonColor, ReasonSize,
}

// Options tune a single Clean call.
type Options struct {
	BrandTerms      []string `json:"brandTerms,omitempty"`
	CompetitorTerms []string `json:"competitorTerms,omitempty"`
	RemoveBrand     bool     `json:"removeBrand"`
	RemoveColors    bool     `json:"removeColors"`
	RemoveSizes     bool     `json:"removeSizes"`
	ExtraStopwords  []string `json:"extraStopwords,omitempty"`
	ExtraColors     []string `json:"extraColors,omitempty"`
	ExtraSizes      []string `json:"extraSizes,omitempty"`
}

// Removed is a keyword the pipeline dropped.
type Removed struct {
	Keyword    string `json:"keyword"`
	Normalized string `json:"normalized"`
	Reason     Reason `json:"reason"`
}

// Result is the outcome of Clean.
type Result struct {
	Kept    []string       `json:"kept"`
	Removed []Removed      `json:"removed"`
	Counts  map[Reason]int `json:"counts"`
}

// Cleaner applies the pipeline using a fixed set of base word lists.
type Cleaner struct {
	lists Lists
}

// New returns a Cleaner using the embedded default lists.
func New() *Cleaner {
	return &Cleaner{lists: mustDefaultLists()}
}

// NewWithLists returns a Cleaner using custom base lists.
func NewWithLists(l Lists) *Cleaner {
	return &Cleaner{lists: l}
}

// Normalize trims, collapses internal whitespace and lowercases s.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Clean runs the pipeline over keywords.
func (c *Cleaner) Clean(keywords []string, opts Options) Result {
	stop := newWordSet(c.lists.Stopwords, opts.ExtraStopwords)
	brand := newPhraseSet(opts.BrandTerms)
	competitor := newPhraseSet(opts.CompetitorTerms)
	colors := newPhraseSet(c.lists.Colors, opts.ExtraColors)
	sizes := newPhraseSet(c.lists.Sizes, opts.ExtraSizes)
	units := newPhraseSet(c.lists.Units)
	attached := attachedUnitPattern(c.lists.Units)

	res := Result{
		Kept:    make([]string, 0, len(keywords)),
		Removed: []Removed{},
		Counts:  make(map[Reason]int),
	}
	kept := make(map[string]struct{}, len(keywords))

	for _, raw := range keywords {
		norm := Normalize(raw)
		reason, removed := c.check(norm, kept, checkSets{
			stop:       stop,
			brand:      brand,
			competitor: competitor,
			colors:     colors,
			sizes:      sizes,
			units:      units,
			attached:   attached,
		}, opts)
		if removed {
			res.Removed = append(res.Removed, Removed{
				Keyword:    strings.TrimSpace(raw),
				Normalized: norm,
				Reason:     reason,
			})
			res.Counts[reason]++
			continue
		}
		kept[norm] = struct{}{}
		res.Kept = append(res.Kept, norm)
	}

	return res
}

type checkSets struct {
	stop       map[string]struct{}
	brand      phraseSet
	competitor phraseSet
	colors     phraseSet
	sizes      phraseSet
	units      phraseSet
	attached   *regexp.Regexp
}

func (c *Cleaner) check(norm string, kept map[string]struct{}, sets checkSets, opts Options) (Reason, bool) {
	if norm == "" {
		return ReasonEmpty, true
	}
	if _, dup := kept[norm]; dup {
		return ReasonDuplicate, true
	}

	tokens := tokenize(norm)
	if len(tokens) == 0 || allIn(tokens, sets.stop) {
		return ReasonStopword, true
	}
	if opts.RemoveBrand && sets.brand.matches(tokens) {
		return ReasonBrand, true
	}
	if sets.competitor.matches(tokens) {
		return ReasonCompetitor, true
	}
	if opts.RemoveColors && sets.colors.matches(tokens) {
		return ReasonColor, true
	}
	if opts.RemoveSizes && (sets.sizes.matches(tokens) || hasMeasurement(tokens, sets.units, sets.attached)) {
		return ReasonSize, true
	}
	return "", false
}

// tokenize splits on anything that is not a letter, digit or '.' inside a
// number, so "nike's" yields "nike", "s" and "2.5oz" stays whole.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
}

func allIn(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[strings.Trim(t, ".")]; !ok {
			return false
		}
	}
	return true
}

func newWordSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			if n := Normalize(w); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return set
}

// phraseSet holds tokenised phrases; a keyword matches when one phrase
// appears as a contiguous run of its tokens.
type phraseSet [][]string

func newPhraseSet(lists ...[]string) phraseSet {
	var out phraseSet
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, p := range list {
			n := Normalize(p)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			if toks := tokenize(n); len(toks) > 0 {
				out = append(out, toks)
			}
		}
	}
	return out
}

func (ps phraseSet) matches(tokens []string) bool {
	for _, phrase := range ps {
		if containsRun(tokens, phrase) {
			return true
		}
	}
	return false
}

func containsRun(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if strings.Trim(tokens[i+j], ".") != p {
				continue outer
			}
		}
		return true
	}
	return false
}

var (
	numberToken    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	dimensionToken = regexp.MustCompile(`^\d+(\.\d+)?x\d+(\.\d+)?$`)
)

func attachedUnitPattern(units []string) *regexp.Regexp {
	alts := make([]string, 0, len(units))
	for _, u := range units {
		n := Normalize(u)
		if n == "" || strings.Contains(n, " ") {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(n))
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`^\d+(\.\d+)?(` + strings.Join(alts, "|") + `)$`)
}

// hasMeasurement spots "10oz", "8x10" and "32 inch" style size tokens.
func hasMeasurement(tokens []string, units phraseSet, attached *regexp.Regexp) bool {
	for i, t := range tokens {
		if dimensionToken.MatchString(t) {
			return true
		}
		if attached != nil && attached.MatchString(t) {
			return true
		}
		if numberToken.MatchString(t) && i+1 < len(tokens) {
			for _, unit := range units {
				if containsRun(tokens[i+1:min(len(tokens), i+1+len(unit))], unit) {
					return true
				}
			}
		}
	}
	return false
}

// Restore moves a removed keyword back into Kept. It reports false when the
// keyword was not among the removed entries.
func (r *Result) Restore(keyword string) bool {
	norm := Normalize(keyword)
	if norm == "" {
		return false
	}

	found := false
	remaining := r.Removed[:0]
	for _, rm := range r.Removed {
		if rm.Normalized == norm {
			found = true
			if r.Counts != nil {
				r.Counts[rm.Reason]--
				if r.Counts[rm.Reason] <= 0 {
					delete(r.Counts, rm.Reason)
				}
			}
			continue
		}
		remaining = append(remaining, rm)
	}
	r.Removed = remaining
	if !found {
		return false
	}

	for _, k := range r.Kept {
		if k == norm {
			return true
		}
	}
	r.Kept = append(r.Kept, norm)
	return true
}
