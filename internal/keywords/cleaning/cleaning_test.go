package cleaning

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func reasons(res Result) map[string]Reason {
	out := make(map[string]Reason, len(res.Removed))
	for _, r := range res.Removed {
		out[r.Keyword] = r.Reason
	}
	return out
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "red coffee mug", Normalize("  Red   Coffee\tMUG "))
	require.Equal(t, "", Normalize(" \n "))
}

func TestCleanKeepsFirstSeenOrder(t *testing.T) {
	res := New().Clean([]string{"Travel Mug", "coffee mug", "travel  mug", "insulated tumbler"}, Options{})

	require.Equal(t, []string{"travel mug", "coffee mug", "insulated tumbler"}, res.Kept)
	require.Equal(t, map[Reason]int{ReasonDuplicate: 1}, res.Counts)
	require.Equal(t, "travel  mug", res.Removed[0].Keyword)
	require.Equal(t, "travel mug", res.Removed[0].Normalized)
}

func TestCleanReasons(t *testing.T) {
	opts := Options{
		BrandTerms:      []string{"Hydro Flask"},
		CompetitorTerms: []string{"yeti"},
		RemoveBrand:     true,
		RemoveColors:    true,
		RemoveSizes:     true,
	}
	input := []string{
		"   ",
		"water bottle",
		"Water Bottle",
		"the and of",
		"hydro flask water bottle",
		"yeti rambler",
		"navy water bottle",
		"32 oz water bottle",
		"water bottle 40oz",
		"xl water bottle",
		"8x10 frame",
		"leak proof bottle",
	}

	res := New().Clean(input, opts)

	require.Equal(t, []string{"water bottle", "leak proof bottle"}, res.Kept)
	got := reasons(res)
	require.Equal(t, ReasonEmpty, got[""])
	require.Equal(t, ReasonDuplicate, got["Water Bottle"])
	require.Equal(t, ReasonStopword, got["the and of"])
	require.Equal(t, ReasonBrand, got["hydro flask water bottle"])
	require.Equal(t, ReasonCompetitor, got["yeti rambler"])
	require.Equal(t, ReasonColor, got["navy water bottle"])
	require.Equal(t, ReasonSize, got["32 oz water bottle"])
	require.Equal(t, ReasonSize, got["water bottle 40oz"])
	require.Equal(t, ReasonSize, got["xl water bottle"])
	require.Equal(t, ReasonSize, got["8x10 frame"])
}

func TestCleanFirstMatchingReasonWins(t *testing.T) {
	opts := Options{
		BrandTerms:      []string{"acme"},
		CompetitorTerms: []string{"acme"},
		RemoveBrand:     true,
		RemoveColors:    true,
	}
	res := New().Clean([]string{"acme red widget"}, opts)
	require.Equal(t, ReasonBrand, res.Removed[0].Reason)

	opts.RemoveBrand = false
	res = New().Clean([]string{"acme red widget"}, opts)
	require.Equal(t, ReasonCompetitor, res.Removed[0].Reason)
}

func TestCleanTogglesAreRespected(t *testing.T) {
	opts := Options{BrandTerms: []string{"acme"}}
	res := New().Clean([]string{"acme widget", "red widget", "large widget"}, opts)
	require.Equal(t, []string{"acme widget", "red widget", "large widget"}, res.Kept)
	require.Empty(t, res.Removed)
}

func TestCleanPhraseMatchIsTokenBased(t *testing.T) {
	opts := Options{BrandTerms: []string{"ran"}, RemoveBrand: true, RemoveColors: true}
	res := New().Clean([]string{"orange juicer", "ran's blender", "tan lines", "tangerine peeler"}, opts)

	got := reasons(res)
	require.Equal(t, ReasonColor, got["orange juicer"])
	require.Equal(t, ReasonBrand, got["ran's blender"])
	require.Equal(t, ReasonColor, got["tan lines"])
	require.Contains(t, res.Kept, "tangerine peeler")
}

func TestCleanExtraLists(t *testing.T) {
	opts := Options{
		ExtraStopwords: []string{"buy"},
		ExtraColors:    []string{"sage"},
		RemoveColors:   true,
	}
	res := New().Clean([]string{"buy", "sage green mug", "buy mug"}, opts)

	got := reasons(res)
	require.Equal(t, ReasonStopword, got["buy"])
	require.Equal(t, ReasonColor, got["sage green mug"])
	require.Equal(t, []string{"buy mug"}, res.Kept)
}

func TestCleanDuplicateOnlyAgainstKept(t *testing.T) {
	opts := Options{CompetitorTerms: []string{"yeti"}}
	res := New().Clean([]string{"yeti mug", "yeti mug"}, opts)

	require.Empty(t, res.Kept)
	require.Equal(t, 2, res.Counts[ReasonCompetitor])
}

func TestRestore(t *testing.T) {
	res := New().Clean([]string{"mug", "yeti mug", "Yeti Mug"}, Options{CompetitorTerms: []string{"yeti"}})
	require.Equal(t, 2, res.Counts[ReasonCompetitor])

	require.True(t, res.Restore("YETI mug"))
	require.Equal(t, []string{"mug", "yeti mug"}, res.Kept)
	require.Empty(t, res.Removed)
	require.NotContains(t, res.Counts, ReasonCompetitor)

	require.False(t, res.Restore("unknown"))
	require.False(t, res.Restore("  "))
}

func TestParseLists(t *testing.T) {
	l, err := ParseLists([]byte("stopwords: [foo]\ncolors: [bar]\n"))
	require.NoError(t, err)
	res := NewWithLists(l).Clean([]string{"foo", "bar baz"}, Options{RemoveColors: true})
	require.Empty(t, res.Kept)

	_, err = ParseLists([]byte("stopwords: {"))
	require.Error(t, err)
}

func TestDefaultListsLoad(t *testing.T) {
	l, err := DefaultLists()
	require.NoError(t, err)
	require.NotEmpty(t, l.Stopwords)
	require.NotEmpty(t, l.Colors)
	require.NotEmpty(t, l.Sizes)
	require.NotEmpty(t, l.Units)
}
