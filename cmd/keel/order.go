package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keel/internal/diagfmt"
	"keel/internal/driver"
)

var orderCmd = &cobra.Command{
	Use:   "order [manifest]",
	Short: "Print the evaluation order of a package's modules",
	Long: `Print the modules of a package in evaluation batches. Modules of one
batch do not depend on each other and are listed on the same line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOrder,
}

func runOrder(cmd *cobra.Command, args []string) error {
	paths, err := manifestPaths(args)
	if err != nil {
		return err
	}
	colorStr, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	colorMode, err := readSwitch("color", colorStr)
	if err != nil {
		return err
	}

	res, err := driver.Order(paths[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.Err != nil {
		diagfmt.Pretty(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:     colorMode.enabled(os.Stdout),
			ShowNotes: true,
		})
		return errFailed
	}
	fmt.Fprintln(out, formatBatches(res.Package, res.Batches))
	for _, nested := range res.Nested {
		fmt.Fprintln(out, formatBatches(nested.Path, nested.Batches))
	}
	return nil
}

func formatBatches(pkg string, batches [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d module(s) in %d batch(es)", pkg, countModules(batches), len(batches))
	for i, batch := range batches {
		fmt.Fprintf(&b, "\n  %d: %s", i+1, strings.Join(batch, ", "))
	}
	return b.String()
}

func countModules(batches [][]string) int {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	return n
}
