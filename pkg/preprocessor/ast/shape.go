// Package ast rewrites annotated function declarations so their bodies
// time themselves and report through the timing runtime package.
package ast

import (
	"go/ast"
)

// FunctionShape is a structural read of a function declaration: every
// signature part needed to rebuild the function, extracted once and
// never mutated. The original declaration stays untouched.
type FunctionShape struct {
	Name       string
	Recv       *ast.FieldList
	TypeParams *ast.FieldList
	Params     *ast.FieldList
	Results    *ast.FieldList
	Body       *ast.BlockStmt

	// CtxName is the name of the function's context.Context parameter.
	// Empty when the function has none, or when the parameter is blank
	// and cannot be referenced from the wrapper.
	CtxName string
}

// IsCtxAware reports whether the wrapper can observe caller
// cancellation through a named context parameter.
func (s FunctionShape) IsCtxAware() bool {
	return s.CtxName != ""
}

// ExtractShape classifies decl and pulls out its signature parts.
// It is strictly a read: no parameter, type parameter, receiver, or
// result is dropped or rewritten.
func ExtractShape(decl *ast.FuncDecl) FunctionShape {
	shape := FunctionShape{
		Name:   decl.Name.Name,
		Recv:   decl.Recv,
		Params: decl.Type.Params,
		Body:   decl.Body,
	}
	if decl.Type.TypeParams != nil {
		shape.TypeParams = decl.Type.TypeParams
	}
	if decl.Type.Results != nil {
		shape.Results = decl.Type.Results
	}
	shape.CtxName = contextParamName(decl.Type.Params)
	return shape
}

// contextParamName finds the first parameter of type context.Context
// and returns its name. Blank and unnamed context parameters yield "".
func contextParamName(params *ast.FieldList) string {
	if params == nil {
		return ""
	}
	for _, field := range params.List {
		if !isContextType(field.Type) {
			continue
		}
		if len(field.Names) == 0 {
			return ""
		}
		name := field.Names[0].Name
		if name == "_" {
			return ""
		}
		return name
	}
	return ""
}

func isContextType(expr ast.Expr) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	return pkg.Name == "context" && sel.Sel.Name == "Context"
}
