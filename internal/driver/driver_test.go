package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"keel/internal/cache"
	"keel/internal/diag"
	"keel/internal/program"
)

const mathlibManifest = `
[package]
name = "mathlib"
kind = "library"
main = "lib.yaml"
`

const mathlibFixture = `
kind: library
items:
  - fn: double
    pub: true
    params: [{name: x, type: u64}]
    returns: u64
    body:
      - tail: x
`

const appManifest = `
[package]
name = "app"
kind = "contract"
main = "main.yaml"

[[dependency]]
name = "mathlib"
path = "../mathlib/keel.toml"
`

const appFixture = `
kind: contract
items:
  - storage:
      - {name: total, type: u64, init: 7}
  - fn: run
    pub: true
    params: [{name: v, type: u64}]
    returns: u64
    body:
      - tail: {call: mathlib::double, args: [v]}
`

// writeTree creates files under a fresh directory and returns it.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func appTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"mathlib/keel.toml": mathlibManifest,
		"mathlib/lib.yaml":  mathlibFixture,
		"app/keel.toml":     appManifest,
		"app/main.yaml":     appFixture,
	})
}

func TestCheckProjectWithDependency(t *testing.T) {
	root := appTree(t)
	events := make(chan program.Event, 64)
	res, err := CheckProject(context.Background(), filepath.Join(root, "app", "keel.toml"),
		Options{Progress: program.ChannelSink{Ch: events}})
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected failure: %v %v", res.Err, res.Bag.Items())
	}
	sum := res.Summary
	if sum.Kind != "contract" || !slices.Equal(sum.Entries, []string{"run"}) {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.StorageSlots) != 1 || sum.StorageSlots[0].Value[31] != 7 {
		t.Fatalf("storage slots = %+v", sum.StorageSlots)
	}
	if !slices.Equal(sum.Modules, []string{"app"}) {
		t.Fatalf("modules = %v", sum.Modules)
	}

	close(events)
	var storageDone bool
	for ev := range events {
		if ev.Package == "app" && ev.Stage == program.StageStorage && ev.Status == program.StatusDone {
			storageDone = true
		}
	}
	if !storageDone {
		t.Fatalf("no storage event reported")
	}
}

func TestCacheShortCircuitsUnchangedPackages(t *testing.T) {
	root := appTree(t)
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "app", "keel.toml")
	opts := Options{Cache: c}

	first, err := CheckProject(context.Background(), path, opts)
	if err != nil || first.Cached {
		t.Fatalf("first check: cached=%v err=%v", first != nil && first.Cached, err)
	}
	second, err := CheckProject(context.Background(), path, opts)
	if err != nil || !second.Cached {
		t.Fatalf("second check was not cached: %v", err)
	}
	if second.Program != nil || !slices.Equal(second.Summary.Entries, first.Summary.Entries) {
		t.Fatalf("cached summary = %+v", second.Summary)
	}

	// a change in a dependency invalidates the dependent package
	lib := filepath.Join(root, "mathlib", "lib.yaml")
	if err := os.WriteFile(lib, []byte(mathlibFixture+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	third, err := CheckProject(context.Background(), path, opts)
	if err != nil || third.Cached {
		t.Fatalf("changed dependency still cached: %v", err)
	}
}

func TestDependencyErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name: "not a library",
			files: map[string]string{
				"mathlib/keel.toml": strings.Replace(mathlibManifest, `"library"`, `"script"`, 1),
				"mathlib/lib.yaml":  mathlibFixture,
			},
			want: "not a library",
		},
		{
			name: "name mismatch",
			files: map[string]string{
				"mathlib/keel.toml": strings.Replace(mathlibManifest, `name = "mathlib"`, `name = "other"`, 1),
				"mathlib/lib.yaml":  mathlibFixture,
			},
			want: `names package "other"`,
		},
		{
			name: "missing fixture",
			files: map[string]string{
				"mathlib/keel.toml": mathlibManifest,
			},
			want: "fixture",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.files["app/keel.toml"] = appManifest
			tt.files["app/main.yaml"] = appFixture
			root := writeTree(t, tt.files)
			_, err := CheckProject(context.Background(), filepath.Join(root, "app", "keel.toml"), Options{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestManifestCycle(t *testing.T) {
	lib := func(name, dep string) string {
		return "[package]\nname = \"" + name + "\"\nmain = \"lib.yaml\"\n\n[[dependency]]\nname = \"" + dep +
			"\"\npath = \"../" + dep + "/keel.toml\"\n"
	}
	root := writeTree(t, map[string]string{
		"a/keel.toml": lib("a", "b"),
		"a/lib.yaml":  "kind: library\n",
		"b/keel.toml": lib("b", "a"),
		"b/lib.yaml":  "kind: library\n",
	})
	_, err := CheckProject(context.Background(), filepath.Join(root, "a", "keel.toml"), Options{})
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("err = %v, want dependency cycle", err)
	}
}

const layeredFixture = `
kind: library
modules:
  - name: a
    pub: true
    items:
      - struct: X
        pub: true
        fields:
          - {name: y, type: b::Y, pub: true}
  - name: b
    pub: true
    items:
      - struct: Y
        pub: true
        fields:
          - {name: v, type: u64, pub: true}
`

const cyclicFixture = `
kind: library
modules:
  - name: a
    pub: true
    items:
      - struct: X
        pub: true
        fields:
          - {name: y, type: b::Y, pub: true}
  - name: b
    pub: true
    items:
      - struct: Y
        pub: true
        fields:
          - {name: x, type: a::X, pub: true}
`

func libTree(t *testing.T, fixture string) string {
	root := writeTree(t, map[string]string{
		"keel.toml": "[package]\nname = \"shapes\"\nmain = \"lib.yaml\"\n",
		"lib.yaml":  fixture,
	})
	return filepath.Join(root, "keel.toml")
}

func TestOrderBatches(t *testing.T) {
	res, err := Order(libTree(t, layeredFixture))
	if err != nil || res.Err != nil {
		t.Fatalf("Order: %v %v", err, res.Err)
	}
	if len(res.Batches) != 2 || !slices.Equal(res.Batches[0], []string{"b"}) || !slices.Equal(res.Batches[1], []string{"a"}) {
		t.Fatalf("batches = %v", res.Batches)
	}

	res, err = Order(libTree(t, cyclicFixture))
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if res.Err == nil || res.Bag.Count(diag.ProjImportCycle) == 0 {
		t.Fatalf("cycle not reported: %v", res.Bag.Items())
	}
}

func TestModuleCycleStopsCheck(t *testing.T) {
	res, err := CheckProject(context.Background(), libTree(t, cyclicFixture), Options{})
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if res.Program != nil || res.Err == nil || !res.Failed() {
		t.Fatalf("cycle did not stop checking: program=%v err=%v", res.Program != nil, res.Err)
	}
}

func TestCheckAllKeepsOrder(t *testing.T) {
	first := libTree(t, layeredFixture)
	second := libTree(t, cyclicFixture)
	results, err := CheckAll(context.Background(), []string{first, second}, 2, Options{})
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(results) != 2 || results[0].Failed() || !results[1].Failed() {
		t.Fatalf("unexpected results: %v, %v", results[0].Err, results[1].Err)
	}

	_, err = CheckAll(context.Background(), []string{first, filepath.Join(t.TempDir(), "keel.toml")}, 1, Options{})
	if err == nil {
		t.Fatalf("missing manifest not reported")
	}
}

func TestBrokenDependencyIsReported(t *testing.T) {
	root := writeTree(t, map[string]string{
		"mathlib/keel.toml": mathlibManifest,
		"mathlib/lib.yaml":  strings.Replace(mathlibFixture, "tail: x", "tail: {call: missing, args: [x]}", 1),
		"app/keel.toml":     appManifest,
		"app/main.yaml":     appFixture,
	})
	res, err := CheckProject(context.Background(), filepath.Join(root, "app", "keel.toml"), Options{})
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if !res.Failed() || res.Bag.Count(diag.ProjBrokenDependency) != 1 {
		t.Fatalf("diagnostics = %v", res.Bag.Items())
	}
}

const nestedFixture = `
kind: library
modules:
  - name: a
    pub: true
    modules:
      - name: inner
        pub: true
        items:
          - struct: X
            pub: true
            fields:
              - {name: y, type: shapes::a::other::Y, pub: true}
      - name: other
        pub: true
        items:
          - struct: Y
            pub: true
            fields:
              - {name: v, type: u64, pub: true}
`

func TestNestedModulesOrderAndCheck(t *testing.T) {
	path := libTree(t, nestedFixture)
	res, err := Order(path)
	if err != nil || res.Err != nil {
		t.Fatalf("Order: %v %v", err, res.Err)
	}
	if len(res.Nested) != 1 || res.Nested[0].Path != "shapes::a" {
		t.Fatalf("nested = %+v", res.Nested)
	}
	batches := res.Nested[0].Batches
	if len(batches) != 2 || !slices.Equal(batches[0], []string{"other"}) || !slices.Equal(batches[1], []string{"inner"}) {
		t.Fatalf("batches of shapes::a = %v", batches)
	}

	checked, err := CheckProject(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("CheckProject: %v", err)
	}
	if checked.Failed() {
		t.Fatalf("nested siblings failed to check: %v %v", checked.Err, checked.Bag.Items())
	}
}
