package ast

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/kestrel-xyz/timed/pkg/preprocessor/types"
)

// Marker is prepended to every rewritten file. Files that already carry
// it are skipped, so running the tool twice never double-wraps.
const Marker = "// INSTRUMENTED BY TIMED"

type fileInjector struct {
	file     *ast.File
	fset     *token.FileSet
	modified bool
}

// NewFileInjector wraps a parsed file for instrumentation.
func NewFileInjector(file *ast.File, fset *token.FileSet) *fileInjector {
	return &fileInjector{
		file: file,
		fset: fset,
	}
}

// InstrumentFunction replaces decl's body with the synthesized wrapper
// body. The declaration's signature is left exactly as written.
func (fi *fileInjector) InstrumentFunction(decl *ast.FuncDecl, cfg types.InstrumentationConfig) error {
	if decl.Body == nil {
		return fmt.Errorf("function %s has no body to instrument", decl.Name.Name)
	}

	shape := ExtractShape(decl)
	decl.Body = Synthesize(cfg, shape)

	astutil.AddImport(fi.fset, fi.file, "time")
	astutil.AddImport(fi.fset, fi.file, TimingImportPath)
	fi.modified = true
	return nil
}

// IsModified reports whether any function was instrumented.
func (fi *fileInjector) IsModified() bool {
	return fi.modified
}

// Render formats the rewritten file with the marker line on top.
func (fi *fileInjector) Render() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Marker + "\n")
	if err := format.Node(&buf, fi.fset, fi.file); err != nil {
		return nil, fmt.Errorf("failed to format code: %w", err)
	}
	return buf.Bytes(), nil
}
