// Package preprocessor rewrites Go source so that functions annotated
// with the //timed:instrument directive measure and report their own
// execution time. The pipeline is a pure function of its inputs: the
// same source and options always produce the same output, and separate
// files may be processed concurrently without synchronization.
package preprocessor

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	astgen "github.com/kestrel-xyz/timed/pkg/preprocessor/ast"
)

// Options configures one pipeline run.
type Options struct {
	// Manifest scopes which files are eligible and supplies defaults.
	// Nil means every file is eligible with built-in defaults.
	Manifest *Manifest
}

// LoadOptions assembles Options for a tree root, picking up .timed.yml
// when present.
func LoadOptions(root string) (Options, error) {
	m, err := FindManifest(root)
	if err != nil {
		return Options{}, err
	}
	return Options{Manifest: m}, nil
}

func (o Options) tracing() bool {
	return o.Manifest != nil && o.Manifest.Tracing
}

// ProcessFile rewrites every annotated function in the file and returns
// the new content together with whether anything changed. Files already
// carrying the instrumentation marker come back unmodified.
func ProcessFile(filePath string, opts Options) ([]byte, bool, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file: %w", err)
	}
	return ProcessSource(filePath, src, opts)
}

// ProcessSource is ProcessFile over in-memory source.
func ProcessSource(filePath string, src []byte, opts Options) ([]byte, bool, error) {
	if strings.Contains(string(src), astgen.Marker) {
		return src, false, nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, src, parser.ParseComments)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse file: %w", err)
	}

	defaults, err := opts.Manifest.Defaults()
	if err != nil {
		return nil, false, err
	}

	injector := astgen.NewFileInjector(file, fset)

	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		raw, found, err := FindDirective(funcDecl.Doc)
		if err != nil {
			return nil, false, directiveError(fset, funcDecl, err)
		}
		if !found {
			continue
		}

		cfg, err := ParseArgs(raw, defaults)
		if err != nil {
			return nil, false, directiveError(fset, funcDecl, err)
		}
		cfg.WithSpan = opts.tracing()

		if err := injector.InstrumentFunction(funcDecl, cfg); err != nil {
			return nil, false, directiveError(fset, funcDecl, err)
		}
	}

	if !injector.IsModified() {
		return src, false, nil
	}

	content, err := injector.Render()
	if err != nil {
		return nil, false, err
	}

	if _, err := parser.ParseFile(token.NewFileSet(), filePath, content, parser.ParseComments); err != nil {
		return nil, false, fmt.Errorf("rewritten code is invalid Go: %w", err)
	}

	return content, true, nil
}

// ProcessFileInPlace rewrites a single file on disk when anything in it
// is annotated.
func ProcessFileInPlace(filePath string, opts Options) error {
	content, modified, err := ProcessFile(filePath, opts)
	if err != nil {
		return fmt.Errorf("preprocessing failed for %s: %w", filePath, err)
	}
	if modified {
		if err := os.WriteFile(filePath, content, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}
	return nil
}

// Result describes one rewritten file.
type Result struct {
	// Path is the source file.
	Path string
	// Output is where the rewritten content was written.
	Output string
}

// ProcessTree rewrites every eligible .go file under root. With a
// non-empty outputDir the rewritten files are written into a mirror of
// the tree; otherwise they are rewritten in place. Processing stops at
// the first error.
func ProcessTree(root, outputDir string, opts Options) ([]Result, error) {
	var results []Result
	err := walkGoFiles(root, opts, func(filePath string) error {
		content, modified, err := ProcessFile(filePath, opts)
		if err != nil {
			return err
		}
		if !modified {
			return nil
		}

		target := filePath
		if outputDir != "" {
			target, err = mirrorPath(root, filePath, outputDir)
			if err != nil {
				return err
			}
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		results = append(results, Result{Path: filePath, Output: target})
		return nil
	})
	return results, err
}

// CheckTree validates every directive under root without writing
// anything. All errors are collected so one run surfaces every
// offending directive.
func CheckTree(root string, opts Options) []error {
	var errs []error
	walkErr := walkGoFiles(root, opts, func(filePath string) error {
		if _, _, err := ProcessFile(filePath, opts); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return errs
}

func walkGoFiles(root string, opts Options, fn func(filePath string) error) error {
	return filepath.WalkDir(root, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filePath != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(filePath, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			return err
		}
		if !opts.Manifest.ShouldInstrument(rel) {
			return nil
		}
		return fn(filePath)
	})
}

func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func directiveError(fset *token.FileSet, decl *ast.FuncDecl, err error) error {
	return fmt.Errorf("%s: function %s: %w", fset.Position(decl.Pos()), decl.Name.Name, err)
}
