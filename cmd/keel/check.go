package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keel/internal/cache"
	"keel/internal/diag"
	"keel/internal/diagfmt"
	"keel/internal/driver"
	"keel/internal/program"
	"keel/internal/project"
	"keel/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [manifest...]",
	Short: "Type check packages",
	Long: `Type check the packages described by the given keel.toml manifests.
Without arguments the manifest is looked up from the current directory upwards.`,
	RunE: runCheck,
}

// errFailed makes the process exit non-zero after diagnostics were printed.
var errFailed = errors.New("check failed")

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	checkCmd.Flags().Int("jobs", 0, "max packages checked in parallel (0=auto)")
	checkCmd.Flags().Bool("cache", false, "reuse summaries of unchanged packages")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

type checkFlags struct {
	format    string
	ui        switchMode
	color     switchMode
	jobs      int
	useCache  bool
	withNotes bool
	suggest   bool
	fullpath  bool
	maxDiag   int
}

func readCheckFlags(cmd *cobra.Command) (checkFlags, error) {
	var f checkFlags
	var err error
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch f.format {
	case "pretty", "json":
	default:
		return f, fmt.Errorf("unknown format %q (expected pretty|json)", f.format)
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = readSwitch("ui", uiStr); err != nil {
		return f, err
	}
	colorStr, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return f, fmt.Errorf("failed to get color flag: %w", err)
	}
	if f.color, err = readSwitch("color", colorStr); err != nil {
		return f, err
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if f.useCache, err = cmd.Flags().GetBool("cache"); err != nil {
		return f, fmt.Errorf("failed to get cache flag: %w", err)
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if f.suggest, err = cmd.Flags().GetBool("suggest"); err != nil {
		return f, fmt.Errorf("failed to get suggest flag: %w", err)
	}
	if f.fullpath, err = cmd.Flags().GetBool("fullpath"); err != nil {
		return f, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if f.maxDiag, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return f, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags, err := readCheckFlags(cmd)
	if err != nil {
		return err
	}
	paths, err := manifestPaths(args)
	if err != nil {
		return err
	}

	opts := driver.Options{MaxDiagnostics: flags.maxDiag}
	if flags.useCache {
		if opts.Cache, err = cache.OpenDefault("keel"); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	var results []*driver.Result
	if flags.format == "pretty" && flags.ui.enabled(os.Stdout) {
		results, err = checkWithUI(ctx, paths, flags.jobs, opts)
	} else {
		results, err = driver.CheckAll(ctx, paths, flags.jobs, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, res := range results {
		if res.Failed() {
			failed = true
		}
		if err := report(out, res, flags); err != nil {
			return err
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// manifestPaths returns args, or the manifest found from the working
// directory when args is empty.
func manifestPaths(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	path, ok, err := project.FindManifest(".")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s found in the current directory or its parents", project.ManifestName)
	}
	return []string{path}, nil
}

func checkWithUI(ctx context.Context, paths []string, jobs int, opts driver.Options) ([]*driver.Result, error) {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		m, err := project.LoadManifest(p)
		if err != nil {
			return nil, err
		}
		names = append(names, m.Name)
	}

	type outcome struct {
		results []*driver.Result
		err     error
	}
	events := make(chan program.Event, 256)
	done := make(chan outcome, 1)
	go func() {
		o := opts
		o.Progress = program.ChannelSink{Ch: events}
		res, err := driver.CheckAll(ctx, paths, jobs, o)
		done <- outcome{res, err}
		close(events)
	}()

	title := fmt.Sprintf("checking %d package(s)", len(paths))
	_, uiErr := tea.NewProgram(ui.NewProgressModel(title, names, events), tea.WithOutput(os.Stdout)).Run()
	res := <-done
	if uiErr != nil {
		return res.results, uiErr
	}
	return res.results, res.err
}

func report(out io.Writer, res *driver.Result, flags checkFlags) error {
	if res.Cached {
		return reportCached(out, res.Summary, flags)
	}
	pathMode := diagfmt.PathModeAuto
	if flags.fullpath {
		pathMode = diagfmt.PathModeAbsolute
	}
	if flags.format == "json" {
		return diagfmt.JSON(out, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     flags.withNotes,
			IncludeFixes:     flags.suggest,
		})
	}
	diagfmt.Pretty(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
		Color:     flags.color.enabled(os.Stdout),
		PathMode:  pathMode,
		ShowNotes: flags.withNotes,
		ShowFixes: flags.suggest,
	})
	if res.Bag.Len() > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, statusLine(res.Manifest.Name, res.Summary, res.Failed(), res.Bag.Len(), flags.color.enabled(os.Stdout)))
	return nil
}

// reportCached prints a summary restored from the cache. Source lines are
// not shown since the spans no longer point into loaded files.
func reportCached(out io.Writer, sum *cache.Summary, flags checkFlags) error {
	if flags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	for _, d := range sum.Diagnostics {
		loc := ""
		if d.Location != "" {
			loc = d.Location + ": "
		}
		fmt.Fprintf(out, "%s%s %s: %s\n", loc, diag.Severity(d.Severity), diag.Code(d.Code).ID(), d.Message)
	}
	fmt.Fprintln(out, statusLine(sum.Package, sum, sum.Errors > 0, len(sum.Diagnostics), flags.color.enabled(os.Stdout))+" (cached)")
	return nil
}

// statusLine is the one-line verdict printed after the diagnostics of a
// package. sum is nil when checking stopped before a program was built.
func statusLine(pkg string, sum *cache.Summary, failed bool, diags int, useColor bool) string {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	for _, c := range []*color.Color{ok, bad} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	status := ok.Sprint("ok")
	if failed {
		status = bad.Sprint("failed")
	}
	if sum == nil {
		return fmt.Sprintf("%s %s, %d diagnostic(s)", status, pkg, diags)
	}
	parts := []string{fmt.Sprintf("%s %s: %s", status, sum.Kind, pkg)}
	if len(sum.Entries) > 0 {
		parts = append(parts, "entries: "+strings.Join(sum.Entries, ", "))
	}
	if len(sum.StorageSlots) > 0 {
		parts = append(parts, fmt.Sprintf("%d storage slot(s)", len(sum.StorageSlots)))
	}
	if diags > 0 {
		parts = append(parts, fmt.Sprintf("%d diagnostic(s)", diags))
	}
	return strings.Join(parts, ", ")
}
