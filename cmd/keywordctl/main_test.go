package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agency_os_backend/internal/keywords/grouping"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCleanFromFile(t *testing.T) {
	path := writeFile(t, "keywords.txt", "\ufeffwater bottle\n# comment\nWater Bottle\nhydro flask bottle\nyeti rambler\nnavy water bottle\n\nleak proof bottle\n")

	out, summary, err := execute(t, "", "clean", "--brand", "Hydro Flask", "--competitor", "yeti", "--colors", path)
	require.NoError(t, err)
	require.Equal(t, "water bottle\nleak proof bottle\n", out)
	require.Contains(t, summary, "kept 2 of 6 keywords")
	require.Contains(t, summary, "duplicate")
	require.Contains(t, summary, "competitor")
}

func TestCleanFromStdinAsJSON(t *testing.T) {
	out, _, err := execute(t, "travel mug\ntravel  mug\n", "clean", "--json")
	require.NoError(t, err)

	var result struct {
		Kept   []string       `json:"kept"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, []string{"travel mug"}, result.Kept)
	require.Equal(t, 1, result.Counts["duplicate"])
}

func TestCleanMissingFile(t *testing.T) {
	_, _, err := execute(t, "", "clean", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := writeFile(t, "base.json", `{"groups":[
		{"name":"Bottles","keywords":["water bottle","leak proof bottle"]},
		{"name":"Mugs","keywords":["travel mug"]}
	]}`)
	overrides := writeFile(t, "overrides.json", `[
		{"seq":2,"action":"rename","fromGroup":"Mugs","toGroup":"Drinkware"},
		{"seq":1,"action":"move","keyword":"leak proof bottle","toGroup":"Mugs"},
		{"seq":3,"action":"remove","keyword":"not there"}
	]`)

	out, errOut, err := execute(t, "", "merge", base, overrides)
	require.NoError(t, err)
	require.Contains(t, errOut, "skipped override 3 (remove): keyword not found")

	var groups []grouping.Group
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Equal(t, []grouping.Group{
		{Name: "Bottles", Keywords: []string{"water bottle"}},
		{Name: "Drinkware", Keywords: []string{"travel mug", "leak proof bottle"}},
	}, groups)
}

func TestMergeRejectsBadJSON(t *testing.T) {
	base := writeFile(t, "base.json", `not json`)
	overrides := writeFile(t, "overrides.json", `[]`)
	_, _, err := execute(t, "", "merge", base, overrides)
	require.Error(t, err)
}
