package grouping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseGroups() []Group {
	return []Group{
		{Name: "Travel Mugs", Keywords: []string{"travel mug", "car mug", "commuter mug"}},
		{Name: "Tumblers", Keywords: []string{"insulated tumbler", "tumbler with straw"}},
		{Name: "Gifts", Keywords: []string{"mug gift"}},
	}
}

func TestApplyOverridesNoOverrides(t *testing.T) {
	res := ApplyOverrides(baseGroups(), nil)
	require.Equal(t, baseGroups(), res.Groups)
	require.Empty(t, res.Skipped)
}

func TestApplyOverridesDoesNotMutateBase(t *testing.T) {
	base := baseGroups()
	ApplyOverrides(base, []Override{
		{Seq: 1, Action: ActionMove, Keyword: "car mug", ToGroup: "Tumblers"},
		{Seq: 2, Action: ActionRename, FromGroup: "Gifts", ToGroup: "Tumblers"},
	})
	require.Equal(t, baseGroups(), base)
}

func TestApplyOverridesMove(t *testing.T) {
	res := ApplyOverrides(baseGroups(), []Override{
		{Seq: 1, Action: ActionMove, Keyword: "Car  Mug", ToGroup: "tumblers"},
		{Seq: 2, Action: ActionMove, Keyword: "mug gift", ToGroup: "Stocking Stuffers"},
	})

	require.Equal(t, []Group{
		{Name: "Travel Mugs", Keywords: []string{"travel mug", "commuter mug"}},
		{Name: "Tumblers", Keywords: []string{"insulated tumbler", "tumbler with straw", "car mug"}},
		{Name: "Stocking Stuffers", Keywords: []string{"mug gift"}},
	}, res.Groups)
	require.Empty(t, res.Skipped)
}

func TestApplyOverridesRemove(t *testing.T) {
	res := ApplyOverrides(baseGroups(), []Override{
		{Seq: 1, Action: ActionRemove, Keyword: "mug gift"},
		{Seq: 2, Action: ActionRemove, Keyword: "not there"},
	})

	require.Len(t, res.Groups, 2, "emptied group is dropped")
	require.Equal(t, []Skipped{{Seq: 2, Action: ActionRemove, Reason: skipKeywordNotFound}}, res.Skipped)
}

func TestApplyOverridesAdd(t *testing.T) {
	res := ApplyOverrides(baseGroups(), []Override{
		{Seq: 1, Action: ActionAdd, Keyword: " Camping Mug ", ToGroup: "Travel Mugs"},
		{Seq: 2, Action: ActionAdd, Keyword: "insulated tumbler", ToGroup: "Gifts"},
	})

	require.Equal(t, []string{"travel mug", "car mug", "commuter mug", "camping mug"}, res.Groups[0].Keywords)
	require.Equal(t, []string{"tumbler with straw"}, res.Groups[1].Keywords, "existing keyword is moved, not duplicated")
	require.Equal(t, []string{"mug gift", "insulated tumbler"}, res.Groups[2].Keywords)
}

func TestApplyOverridesRename(t *testing.T) {
	t.Run("plain rename keeps position", func(t *testing.T) {
		res := ApplyOverrides(baseGroups(), []Override{
			{Seq: 1, Action: ActionRename, FromGroup: "gifts", ToGroup: "Gift Ideas"},
		})
		require.Equal(t, "Gift Ideas", res.Groups[2].Name)
	})

	t.Run("case-only rename", func(t *testing.T) {
		res := ApplyOverrides(baseGroups(), []Override{
			{Seq: 1, Action: ActionRename, FromGroup: "Tumblers", ToGroup: "TUMBLERS"},
		})
		require.Equal(t, "TUMBLERS", res.Groups[1].Name)
		require.Len(t, res.Groups, 3)
	})

	t.Run("rename into existing group merges", func(t *testing.T) {
		base := baseGroups()
		base[2].Keywords = append(base[2].Keywords, "insulated tumbler")
		res := ApplyOverrides(base, []Override{
			{Seq: 1, Action: ActionRename, FromGroup: "Gifts", ToGroup: "Tumblers"},
		})
		require.Equal(t, []Group{
			{Name: "Travel Mugs", Keywords: []string{"travel mug", "car mug", "commuter mug"}},
			{Name: "Tumblers", Keywords: []string{"insulated tumbler", "tumbler with straw", "mug gift"}},
		}, res.Groups)
	})

	t.Run("unknown source group is skipped", func(t *testing.T) {
		res := ApplyOverrides(baseGroups(), []Override{
			{Seq: 4, Action: ActionRename, FromGroup: "Nope", ToGroup: "Still Nope"},
		})
		require.Equal(t, baseGroups(), res.Groups)
		require.Equal(t, skipGroupNotFound, res.Skipped[0].Reason)
	})
}

func TestApplyOverridesReplaysInSeqOrder(t *testing.T) {
	overrides := []Override{
		{Seq: 2, Action: ActionMove, Keyword: "car mug", ToGroup: "Gifts"},
		{Seq: 1, Action: ActionMove, Keyword: "car mug", ToGroup: "Tumblers"},
	}
	res := ApplyOverrides(baseGroups(), overrides)
	require.Equal(t, []string{"mug gift", "car mug"}, res.Groups[2].Keywords)
	require.NotContains(t, res.Groups[1].Keywords, "car mug")
}

func TestApplyOverridesSkipsInvalid(t *testing.T) {
	res := ApplyOverrides(baseGroups(), []Override{
		{Seq: 1, Action: ActionMove, Keyword: "ghost keyword", ToGroup: "Gifts"},
		{Seq: 2, Action: ActionMove, Keyword: "car mug"},
		{Seq: 3, Action: ActionAdd, Keyword: "  ", ToGroup: "Gifts"},
		{Seq: 4, Action: Action("split")},
	})

	require.Equal(t, baseGroups(), res.Groups)
	require.Equal(t, []Skipped{
		{Seq: 1, Action: ActionMove, Reason: skipKeywordNotFound},
		{Seq: 2, Action: ActionMove, Reason: skipMissingTarget},
		{Seq: 3, Action: ActionAdd, Reason: skipMissingKeyword},
		{Seq: 4, Action: Action("split"), Reason: skipUnknownAction},
	}, res.Skipped)
}

func TestApplyOverridesIsDeterministicAndIdempotent(t *testing.T) {
	overrides := []Override{
		{Seq: 1, Action: ActionMove, Keyword: "car mug", ToGroup: "Tumblers"},
		{Seq: 2, Action: ActionAdd, Keyword: "camping mug", ToGroup: "Outdoor"},
		{Seq: 3, Action: ActionRemove, Keyword: "commuter mug"},
	}

	first := ApplyOverrides(baseGroups(), overrides)
	second := ApplyOverrides(baseGroups(), overrides)
	require.Equal(t, first, second)

	again := ApplyOverrides(first.Groups, overrides)
	require.Equal(t, first.Groups, again.Groups)
}
