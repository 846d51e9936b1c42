package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"agency_os_backend/internal/keywords/grouping"

	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge base.json overrides.json",
		Short: "Replay overrides on top of AI groups and print the merged groups",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base []grouping.Group
			if err := readJSON(args[0], &base); err != nil {
				return err
			}
			var overrides []grouping.Override
			if err := readJSON(args[1], &overrides); err != nil {
				return err
			}
			return runMerge(cmd.OutOrStdout(), cmd.ErrOrStderr(), base, overrides)
		},
	}
}

func runMerge(out, errOut io.Writer, base []grouping.Group, overrides []grouping.Override) error {
	merged := grouping.ApplyOverrides(base, overrides)
	for _, s := range merged.Skipped {
		fmt.Fprintf(errOut, "skipped override %d (%s): %s\n", s.Seq, s.Action, s.Reason)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(merged.Groups)
}

// readJSON accepts either a bare array or an object wrapping it under
// "groups" or "overrides", the shapes the API returns.
func readJSON[T any](path string, v *[]T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err == nil {
		return nil
	}
	var wrapped struct {
		Groups    []T `json:"groups"`
		Overrides []T `json:"overrides"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if wrapped.Groups != nil {
		*v = wrapped.Groups
	} else {
		*v = wrapped.Overrides
	}
	return nil
}
