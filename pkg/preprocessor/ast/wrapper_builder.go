package ast

import (
	"go/ast"
	"go/token"
	"strconv"
	"time"

	"github.com/kestrel-xyz/timed/pkg/preprocessor/types"
)

const (
	startVar   = "__timedStart"
	elapsedVar = "__timedElapsed"
	spanVar    = "__timedSpan"

	// TimingImportPath is the runtime package generated wrappers call into.
	TimingImportPath  = "github.com/kestrel-xyz/timed/pkg/timing"
	timingPackageName = "timing"
)

// Synthesize builds the replacement body for a classified function:
// a timing prologue followed by the original statements, embedded
// untouched. The returned block is a new node; shape.Body itself is
// never modified.
//
// The prologue samples a monotonic start instant, optionally enters a
// span scope, and defers a reporter that computes the elapsed time and
// emits the report. Running the reporter in a defer means an error
// return or a propagated panic is still timed, and the original return
// values are never touched. For context-aware functions the reporter
// first checks caller cancellation and stays silent when the context
// was cancelled.
func Synthesize(cfg types.InstrumentationConfig, shape FunctionShape) *ast.BlockStmt {
	prologue := []ast.Stmt{startSampleStmt()}
	if cfg.WithSpan {
		prologue = append(prologue, enterSpanStmt(cfg.ResolveLabel(shape.Name)), spanEndDeferStmt())
	}
	prologue = append(prologue, reporterDeferStmt(cfg, shape))

	return &ast.BlockStmt{
		Lbrace: shape.Body.Lbrace,
		List:   append(prologue, shape.Body.List...),
		Rbrace: shape.Body.Rbrace,
	}
}

// startSampleStmt builds `__timedStart := time.Now()`.
func startSampleStmt() ast.Stmt {
	return &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent(startVar)},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{
			&ast.CallExpr{
				Fun: &ast.SelectorExpr{X: ast.NewIdent("time"), Sel: ast.NewIdent("Now")},
			},
		},
	}
}

// enterSpanStmt builds `__timedSpan := timing.EnterSpan("<label>")`.
func enterSpanStmt(label string) ast.Stmt {
	return &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent(spanVar)},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{
			&ast.CallExpr{
				Fun:  &ast.SelectorExpr{X: ast.NewIdent(timingPackageName), Sel: ast.NewIdent("EnterSpan")},
				Args: []ast.Expr{stringLit(label)},
			},
		},
	}
}

// spanEndDeferStmt builds `defer __timedSpan.End()`. Declared before the
// reporter defer so the scope closes after the report is emitted.
func spanEndDeferStmt() ast.Stmt {
	return &ast.DeferStmt{
		Call: &ast.CallExpr{
			Fun: &ast.SelectorExpr{X: ast.NewIdent(spanVar), Sel: ast.NewIdent("End")},
		},
	}
}

// reporterDeferStmt builds the deferred reporting closure:
//
//	defer func() {
//		__timedElapsed := time.Since(__timedStart)
//		if ctx.Err() != nil {          // context-aware functions only
//			return
//		}
//		if __timedElapsed < 50*time.Millisecond { // with a threshold only
//			return
//		}
//		timing.Report(timing.LevelInfo, "<label>", __timedElapsed)
//	}()
func reporterDeferStmt(cfg types.InstrumentationConfig, shape FunctionShape) ast.Stmt {
	body := []ast.Stmt{elapsedSampleStmt()}

	if shape.IsCtxAware() {
		body = append(body, cancelledGuardStmt(shape.CtxName))
	}
	if cfg.HasThreshold {
		body = append(body, thresholdGuardStmt(cfg.Threshold))
	}
	body = append(body, reportCallStmt(cfg, shape))

	return &ast.DeferStmt{
		Call: &ast.CallExpr{
			Fun: &ast.FuncLit{
				Type: &ast.FuncType{Params: &ast.FieldList{}},
				Body: &ast.BlockStmt{List: body},
			},
		},
	}
}

// elapsedSampleStmt builds `__timedElapsed := time.Since(__timedStart)`.
func elapsedSampleStmt() ast.Stmt {
	return &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent(elapsedVar)},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{
			&ast.CallExpr{
				Fun:  &ast.SelectorExpr{X: ast.NewIdent("time"), Sel: ast.NewIdent("Since")},
				Args: []ast.Expr{ast.NewIdent(startVar)},
			},
		},
	}
}

// cancelledGuardStmt builds `if <ctx>.Err() != nil { return }`.
func cancelledGuardStmt(ctxName string) ast.Stmt {
	return &ast.IfStmt{
		Cond: &ast.BinaryExpr{
			X: &ast.CallExpr{
				Fun: &ast.SelectorExpr{X: ast.NewIdent(ctxName), Sel: ast.NewIdent("Err")},
			},
			Op: token.NEQ,
			Y:  ast.NewIdent("nil"),
		},
		Body: &ast.BlockStmt{List: []ast.Stmt{&ast.ReturnStmt{}}},
	}
}

// thresholdGuardStmt builds `if __timedElapsed < <threshold> { return }`.
// Elapsed exactly equal to the threshold passes the gate.
func thresholdGuardStmt(threshold time.Duration) ast.Stmt {
	return &ast.IfStmt{
		Cond: &ast.BinaryExpr{
			X:  ast.NewIdent(elapsedVar),
			Op: token.LSS,
			Y:  durationExpr(threshold),
		},
		Body: &ast.BlockStmt{List: []ast.Stmt{&ast.ReturnStmt{}}},
	}
}

// reportCallStmt builds `timing.Report(timing.Level<X>, "<label>", __timedElapsed)`.
func reportCallStmt(cfg types.InstrumentationConfig, shape FunctionShape) ast.Stmt {
	levelName := "LevelInfo"
	if cfg.Level.String() == "debug" {
		levelName = "LevelDebug"
	}
	return &ast.ExprStmt{
		X: &ast.CallExpr{
			Fun: &ast.SelectorExpr{X: ast.NewIdent(timingPackageName), Sel: ast.NewIdent("Report")},
			Args: []ast.Expr{
				&ast.SelectorExpr{X: ast.NewIdent(timingPackageName), Sel: ast.NewIdent(levelName)},
				stringLit(cfg.ResolveLabel(shape.Name)),
				ast.NewIdent(elapsedVar),
			},
		},
	}
}

// durationExpr renders a threshold as source. Values that divide evenly
// into a unit come out readable, e.g. `50 * time.Millisecond`; anything
// else falls back to a nanosecond count.
func durationExpr(d time.Duration) ast.Expr {
	units := []struct {
		unit time.Duration
		name string
	}{
		{time.Second, "Second"},
		{time.Millisecond, "Millisecond"},
		{time.Microsecond, "Microsecond"},
	}
	for _, u := range units {
		if d >= u.unit && d%u.unit == 0 {
			return &ast.BinaryExpr{
				X:  intLit(int64(d / u.unit)),
				Op: token.MUL,
				Y:  &ast.SelectorExpr{X: ast.NewIdent("time"), Sel: ast.NewIdent(u.name)},
			}
		}
	}
	return &ast.BinaryExpr{
		X:  intLit(d.Nanoseconds()),
		Op: token.MUL,
		Y:  &ast.SelectorExpr{X: ast.NewIdent("time"), Sel: ast.NewIdent("Nanosecond")},
	}
}

func stringLit(s string) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

func intLit(n int64) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(n, 10)}
}
