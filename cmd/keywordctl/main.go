// Command keywordctl runs the keyword cleaning pipeline and the override
// merge offline, against local files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "keywordctl",
		Short:         "Clean keyword lists and merge group overrides",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCleanCmd(), newMergeCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "keywordctl:", err)
		os.Exit(1)
	}
}
