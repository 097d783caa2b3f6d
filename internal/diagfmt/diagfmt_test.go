package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"keel/internal/diag"
	"keel/internal/source"
)

const demoSrc = "let x = 1;\nlet p = Point { x: 1 };\n"

func demo(t *testing.T) (*source.FileSet, source.FileID, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("demo.kl", []byte(demoSrc))
	lit := source.Span{File: id, Start: 19, End: 33}
	name := source.Span{File: id, Start: 19, End: 24}

	bag := diag.NewBag(8)
	bag.Add(diag.NewError(diag.SemaStructCannotBeInstantiated, lit, "cannot build Point").
		WithNote(source.Span{File: id, Start: 4, End: 5}, "x declared here").
		WithFix("use Pair", diag.FixEdit{Span: name, NewText: "Pair"}))
	bag.Add(diag.NewError(diag.SemaUnresolvedSymbol, source.NoSpan, "no location"))
	return fs, id, bag
}

func TestPrettyPlain(t *testing.T) {
	fs, _, bag := demo(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, ShowFixes: true})

	want := strings.Join([]string{
		"demo.kl:2:9: ERROR SEM3102: cannot build Point",
		"  2 | let p = Point { x: 1 };",
		"    |         ^~~~~~~~~~~~~~",
		"  note: demo.kl:1:5: x declared here",
		"  fix: use Pair",
		"    - let p = Point { x: 1 };",
		"    + let p = Pair { x: 1 };",
		"",
		"ERROR SEM3001: no location",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("output mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestPrettyHidesNotesByDefault(t *testing.T) {
	fs, _, bag := demo(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	if strings.Contains(buf.String(), "note:") || strings.Contains(buf.String(), "fix:") {
		t.Fatalf("notes or fixes printed:\n%s", buf.String())
	}
}

func TestJSONPositionsAndLimit(t *testing.T) {
	fs, _, bag := demo(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, IncludeFixes: true, Max: 1}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, want 1", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "SEM3102" || d.Severity != "ERROR" || d.Title != "Struct cannot be instantiated" {
		t.Fatalf("unexpected header %+v", d)
	}
	loc := d.Location
	if loc.File != "demo.kl" || loc.StartLine != 2 || loc.StartCol != 9 || loc.EndCol != 23 {
		t.Fatalf("location = %+v", loc)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 1 {
		t.Fatalf("notes = %+v", d.Notes)
	}
	if len(d.Fixes) != 1 || d.Fixes[0].Edits[0].NewText != "Pair" {
		t.Fatalf("fixes = %+v", d.Fixes)
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	fs, _, bag := demo(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if loc := out.Diagnostics[0].Location; loc.StartLine != 0 || loc.StartByte != 19 {
		t.Fatalf("location = %+v", loc)
	}
	if out.Diagnostics[1].Location.File != "" {
		t.Fatalf("span without file got a path")
	}
	if out.Diagnostics[0].Notes != nil {
		t.Fatalf("notes included without IncludeNotes")
	}
}

func TestFormatPath(t *testing.T) {
	long := "/very/long/absolute/path/that/goes/beyond/forty/chars/main.yaml"
	cases := []struct {
		path string
		mode PathMode
		base string
		want string
	}{
		{"src/main.yaml", PathModeAuto, "", "src/main.yaml"},
		{long, PathModeAuto, "", "main.yaml"},
		{long, PathModeBasename, "", "main.yaml"},
		{"/work/pkg/main.yaml", PathModeRelative, "/work", "pkg/main.yaml"},
		{"/other/main.yaml", PathModeRelative, "/work", "/other/main.yaml"},
	}
	for _, c := range cases {
		if got := formatPath(c.path, c.mode, c.base); got != c.want {
			t.Errorf("formatPath(%q, %d) = %q, want %q", c.path, c.mode, got, c.want)
		}
	}
}
