// Package diagfmt renders diagnostics for people and for tools.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"keel/internal/diag"
	"keel/internal/source"
)

type palette struct {
	err, warn, info, code, note, gutter, caret, added, removed *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		code:    color.New(color.Bold),
		note:    color.New(color.FgCyan),
		gutter:  color.New(color.FgBlue),
		caret:   color.New(color.FgRed, color.Bold),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.note, p.gutter, p.caret, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes the diagnostics of bag in the order they are stored:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	  12 | let p = Point { x: 1 };
//	     |         ^~~~~~~~~~~~~~
//	  note: <path>:<line>:<col>: <message>
//
// Spans without a file are printed without location and source line.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		loc := location(fs, d.Primary, opts.PathMode, opts.BaseDir)
		sev := pal.severity(d.Severity).Sprint(d.Severity.String())
		fmt.Fprintf(w, "%s%s %s: %s\n", loc, sev, pal.code.Sprint(d.Code.ID()), d.Message)
		writeSnippet(w, fs, d.Primary, pal)

		if opts.ShowNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(w, "  %s %s%s\n", pal.note.Sprint("note:"), location(fs, n.Span, opts.PathMode, opts.BaseDir), n.Msg)
			}
		}
		if opts.ShowFixes {
			for _, fix := range d.Fixes {
				fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("fix:"), fix.Title)
				for _, edit := range fix.Edits {
					preview, err := buildFixEditPreview(fs, edit)
					if err != nil {
						continue
					}
					for _, l := range preview.before {
						fmt.Fprintf(w, "    %s\n", pal.removed.Sprint("- "+l))
					}
					for _, l := range preview.after {
						fmt.Fprintf(w, "    %s\n", pal.added.Sprint("+ "+l))
					}
				}
			}
		}
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) string {
	f := fs.Get(sp.File)
	if f == nil {
		return ""
	}
	start, _, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d: ", formatPath(f.Path, mode, base), start.Line, start.Col)
}

// writeSnippet prints the first line of sp with a caret underline. Columns
// are measured in display cells so wide runes stay aligned.
func writeSnippet(w io.Writer, fs *source.FileSet, sp source.Span, pal palette) {
	f := fs.Get(sp.File)
	if f == nil {
		return
	}
	start, end, _ := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	col := min(int(start.Col)-1, len(line))
	stop := len(line)
	if end.Line == start.Line {
		stop = min(max(int(end.Col)-1, col), len(line))
	}
	pad := runewidth.StringWidth(strings.ReplaceAll(line[:col], "\t", " "))
	width := max(runewidth.StringWidth(line[col:stop]), 1)

	num := fmt.Sprintf("%d", start.Line)
	gutter := strings.Repeat(" ", len(num))
	fmt.Fprintf(w, "  %s %s %s\n", pal.gutter.Sprint(num), pal.gutter.Sprint("|"), line)
	fmt.Fprintf(w, "  %s %s %s%s\n", gutter, pal.gutter.Sprint("|"), strings.Repeat(" ", pad),
		pal.caret.Sprint("^"+strings.Repeat("~", width-1)))
}
