package preprocessor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	astgen "github.com/kestrel-xyz/timed/pkg/preprocessor/ast"
)

func TestProcessSource_BasicFunction(t *testing.T) {
	src := `package main

//timed:instrument
func work() int {
	return 42
}
`
	content, modified, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}
	if !modified {
		t.Fatal("expected source to be modified")
	}

	result := string(content)
	if !strings.HasPrefix(result, astgen.Marker) {
		t.Error("expected marker line on top")
	}
	if !strings.Contains(result, "__timedStart := time.Now()") {
		t.Error("expected start sample in wrapper")
	}
	if !strings.Contains(result, "__timedElapsed := time.Since(__timedStart)") {
		t.Error("expected elapsed sample in wrapper")
	}
	if !strings.Contains(result, `timing.Report(timing.LevelInfo, "work", __timedElapsed)`) {
		t.Error("expected report call with the function's own name")
	}
	if !strings.Contains(result, `"github.com/kestrel-xyz/timed/pkg/timing"`) {
		t.Error("expected timing import to be added")
	}
	if !strings.Contains(result, `"time"`) {
		t.Error("expected time import to be added")
	}
	if !strings.Contains(result, "return 42") {
		t.Error("expected original body to survive")
	}
}

func TestProcessSource_CustomNameAndLevel(t *testing.T) {
	src := `package main

//timed:instrument(name = "DatabaseQuery", level = "debug")
func loadUser(id int64) string {
	return ""
}
`
	content, modified, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}
	if !modified {
		t.Fatal("expected source to be modified")
	}

	result := string(content)
	if !strings.Contains(result, `timing.Report(timing.LevelDebug, "DatabaseQuery", __timedElapsed)`) {
		t.Errorf("expected debug report with custom label, got:\n%s", result)
	}
	if strings.Contains(result, `"loadUser"`) {
		t.Error("custom label should replace the function name in the report")
	}
}

func TestProcessSource_Threshold(t *testing.T) {
	src := `package main

//timed:instrument(threshold = "50ms")
func maybeSlow() {}
`
	content, _, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}

	result := string(content)
	if !strings.Contains(result, "if __timedElapsed < 50*time.Millisecond") {
		t.Errorf("expected threshold gate, got:\n%s", result)
	}
}

func TestProcessSource_ContextAware(t *testing.T) {
	src := `package main

import "context"

//timed:instrument
func fetch(ctx context.Context, url string) error {
	return nil
}
`
	content, _, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}

	result := string(content)
	if !strings.Contains(result, "if ctx.Err() != nil") {
		t.Errorf("expected cancellation guard for context-aware function, got:\n%s", result)
	}
}

func TestProcessSource_PlainFunctionHasNoCancellationGuard(t *testing.T) {
	src := `package main

//timed:instrument
func compute(n int) int { return n * n }
`
	content, _, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}
	if strings.Contains(string(content), ".Err()") {
		t.Error("plain function should not check a context")
	}
}

func TestProcessSource_PreservesGenericsAndMethods(t *testing.T) {
	src := `package main

type Store struct{}

//timed:instrument
func (s *Store) Load(key string) (string, bool) {
	return "", false
}

//timed:instrument
func first[T any](items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[0], true
}
`
	content, _, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}

	result := string(content)
	if !strings.Contains(result, "func (s *Store) Load(key string) (string, bool)") {
		t.Errorf("method signature changed:\n%s", result)
	}
	if !strings.Contains(result, "func first[T any](items []T) (T, bool)") {
		t.Errorf("generic signature changed:\n%s", result)
	}
	if !strings.Contains(result, `timing.Report(timing.LevelInfo, "Load", __timedElapsed)`) {
		t.Error("expected method to be instrumented")
	}
	if !strings.Contains(result, `timing.Report(timing.LevelInfo, "first", __timedElapsed)`) {
		t.Error("expected generic function to be instrumented")
	}
}

func TestProcessSource_UnannotatedFunctionsUntouched(t *testing.T) {
	src := `package main

//timed:instrument
func timedOne() {}

func plainOne() {}
`
	content, _, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}
	if strings.Count(string(content), "__timedStart") != 1 {
		t.Errorf("expected exactly one wrapped function, got:\n%s", content)
	}
}

func TestProcessSource_NoDirectives(t *testing.T) {
	src := `package main

func plain() {}
`
	content, modified, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}
	if modified {
		t.Error("expected no modification")
	}
	if string(content) != src {
		t.Error("expected source to come back byte-identical")
	}
}

func TestProcessSource_Idempotent(t *testing.T) {
	src := `package main

//timed:instrument
func work() {}
`
	content, modified, err := ProcessSource("test.go", []byte(src), Options{})
	if err != nil || !modified {
		t.Fatalf("first pass: modified=%v err=%v", modified, err)
	}

	again, modified, err := ProcessSource("test.go", content, Options{})
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if modified {
		t.Error("expected instrumented file to be skipped")
	}
	if string(again) != string(content) {
		t.Error("second pass changed the content")
	}
}

func TestProcessSource_ConfigErrorsHaltSynthesis(t *testing.T) {
	src := `package main

//timed:instrument(foo = "bar")
func badFunc() {}
`
	_, _, err := ProcessSource("test.go", []byte(src), Options{})
	if !errors.Is(err, ErrUnknownConfigKey) {
		t.Fatalf("expected ErrUnknownConfigKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "badFunc") {
		t.Errorf("error should name the function: %v", err)
	}
	if !strings.Contains(err.Error(), "test.go:4") {
		t.Errorf("error should carry the position: %v", err)
	}
}

func TestProcessSource_BodylessFunction(t *testing.T) {
	src := `package main

//timed:instrument
func external()
`
	_, _, err := ProcessSource("test.go", []byte(src), Options{})
	if err == nil {
		t.Fatal("expected error for a function without a body")
	}
}

func TestProcessSource_TracingEnabled(t *testing.T) {
	src := `package main

//timed:instrument(name = "Traced")
func work() {}
`
	opts := Options{Manifest: &Manifest{Tracing: true}}
	content, _, err := ProcessSource("test.go", []byte(src), opts)
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}

	result := string(content)
	if !strings.Contains(result, `__timedSpan := timing.EnterSpan("Traced")`) {
		t.Errorf("expected span scope to be entered, got:\n%s", result)
	}
	if !strings.Contains(result, "defer __timedSpan.End()") {
		t.Error("expected span scope to be closed on return")
	}
}

func TestProcessSource_ManifestDefaultLevel(t *testing.T) {
	src := `package main

//timed:instrument
func work() {}
`
	opts := Options{Manifest: &Manifest{Level: "debug"}}
	content, _, err := ProcessSource("test.go", []byte(src), opts)
	if err != nil {
		t.Fatalf("ProcessSource failed: %v", err)
	}
	if !strings.Contains(string(content), "timing.LevelDebug") {
		t.Error("expected manifest default level to apply")
	}
}

func TestProcessFileInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	src := `package main

//timed:instrument
func work() {}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ProcessFileInPlace(path, Options{}); err != nil {
		t.Fatalf("ProcessFileInPlace failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "timing.Report") {
		t.Error("expected file to be rewritten on disk")
	}
}

func TestProcessTree_OutputDirAndManifest(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	writeTestFile(t, root, "a.go", `package main

//timed:instrument
func a() {}
`)
	writeTestFile(t, root, filepath.Join("legacy", "b.go"), `package legacy

//timed:instrument
func b() {}
`)

	opts := Options{Manifest: &Manifest{Exclude: []string{"legacy/"}}}
	results, err := ProcessTree(root, out, opts)
	if err != nil {
		t.Fatalf("ProcessTree failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 rewritten file, got %d", len(results))
	}
	if results[0].Output != filepath.Join(out, "a.go") {
		t.Errorf("unexpected output path %s", results[0].Output)
	}

	content, err := os.ReadFile(results[0].Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "timing.Report") {
		t.Error("expected rewritten content in output dir")
	}

	// The source tree stays untouched in output-dir mode.
	original, err := os.ReadFile(filepath.Join(root, "a.go"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(original), "timing.Report") {
		t.Error("source tree must not be modified")
	}
}

func TestCheckTree_CollectsAllErrors(t *testing.T) {
	root := t.TempDir()

	writeTestFile(t, root, "a.go", `package main

//timed:instrument(foo = "bar")
func a() {}
`)
	writeTestFile(t, root, "b.go", `package main

//timed:instrument(level = "loud")
func b() {}
`)

	errs := CheckTree(root, Options{})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
