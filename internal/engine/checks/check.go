// Package checks holds every analysis rule and the level-gated registry that runs them.
//
// A check is a pure function of one parsed file and a read-only Context. Checks never
// guess: when a receiver type, a callee or a class hierarchy cannot be resolved they
// stay silent, and a finding is only reported when its confidence meets the policy of
// the configured level.
package checks

import (
	"fmt"

	"strata/internal/engine/ast"
	"strata/internal/engine/issue"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

// MaxLevel is the strictest level.
const MaxLevel = 10

// Check is one analysis rule.
type Check interface {
	ID() string
	Description() string
	Level() int
	Check(file *ast.File, ctx *Context) []issue.Issue
}

// SilentCheck is implemented by checks registered to document a rule that cannot be
// decided soundly yet. They always return an empty list, which does not certify that
// the code is free of the problem.
type SilentCheck interface {
	Check
	Silent() bool
}

// IsSilent reports whether c is intentionally silent.
func IsSilent(c Check) bool {
	s, ok := c.(SilentCheck)
	return ok && s.Silent()
}

// Options are the configuration toggles that refine enabled levels.
type Options struct {
	ReportMaybes              bool
	CheckNullables            bool
	CheckExplicitMixed        bool
	CheckImplicitMixed        bool
	CheckUnionTypes           bool
	TreatPhpDocTypesAsCertain bool
	CheckMissingTypehints     bool
	StrictTypesDefault        bool
}

// DefaultOptions mirrors the defaults of strata.toml.
func DefaultOptions() Options {
	return Options{
		CheckNullables:            true,
		CheckExplicitMixed:        true,
		CheckImplicitMixed:        true,
		CheckUnionTypes:           true,
		TreatPhpDocTypesAsCertain: true,
		CheckMissingTypehints:     true,
	}
}

// Context is the read-only input shared by every check of a run.
type Context struct {
	Table   *symbols.Table
	Level   int
	Options Options
}

// NewContext builds a context; a nil table is replaced by an empty one.
func NewContext(table *symbols.Table, level int, opts Options) *Context {
	if table == nil {
		table = symbols.NewTable()
		table.Freeze()
	}
	return &Context{Table: table, Level: level, Options: opts}
}

// ReportsMaybes reports whether Maybe findings surface. The level is the primary gate:
// report_maybes has no effect below level 7.
func (c *Context) ReportsMaybes() bool {
	return c.Level >= 7 && c.Options.ReportMaybes
}

// strict reports whether scalar arguments are checked without weak-mode coercion.
func (c *Context) strict(file *ast.File) bool {
	return file.StrictTypes || c.Options.StrictTypesDefault
}

// accepts applies the file's typing mode.
func (c *Context) accepts(file *ast.File, declared, actual *types.Type) types.Trinary {
	if c.strict(file) {
		return types.Accepts(declared, actual, c.Table)
	}
	return types.AcceptsCoercing(declared, actual, c.Table)
}

// paramType is the declared type of a parameter under treat_phpdoc_types_as_certain.
func (c *Context) paramType(p *symbols.ParameterInfo) *types.Type {
	if c.Options.TreatPhpDocTypesAsCertain {
		return p.Effective()
	}
	return p.Type
}

func (c *Context) returnType(sig *symbols.Signature) *types.Type {
	if c.Options.TreatPhpDocTypesAsCertain {
		return sig.Return()
	}
	return sig.ReturnType
}

func (c *Context) propertyType(p *symbols.PropertyInfo) *types.Type {
	if c.Options.TreatPhpDocTypesAsCertain {
		return p.Effective()
	}
	return p.Type
}

// meta carries the identity every check shares.
type meta struct {
	id    string
	desc  string
	level int
}

func (m meta) ID() string          { return m.id }
func (m meta) Description() string { return m.desc }
func (m meta) Level() int          { return m.level }

// reporter collects the issues of one check on one file.
type reporter struct {
	ctx    *Context
	file   *ast.File
	id     string
	issues []issue.Issue
}

func newReporter(ctx *Context, file *ast.File, id string) *reporter {
	return &reporter{ctx: ctx, file: file, id: id}
}

func (r *reporter) add(iss issue.Issue) { r.issues = append(r.issues, iss) }

func (r *reporter) errorf(n ast.Node, format string, args ...any) {
	p := n.Position()
	r.add(issue.Error(r.id, r.file.Path, p.Line, p.Column, fmt.Sprintf(format, args...)))
}

// errorTip reports an Error carrying a hint for fixing it.
func (r *reporter) errorTip(n ast.Node, tip, format string, args ...any) {
	p := n.Position()
	r.add(issue.Error(r.id, r.file.Path, p.Line, p.Column, fmt.Sprintf(format, args...)).WithTip(tip))
}

func (r *reporter) warningf(n ast.Node, format string, args ...any) {
	p := n.Position()
	r.add(issue.Warning(r.id, r.file.Path, p.Line, p.Column, fmt.Sprintf(format, args...)))
}

// report applies the confidence policy: Yes is an Error, Maybe a Warning when the
// context reports maybes, No nothing.
func (r *reporter) report(confidence types.Trinary, n ast.Node, format string, args ...any) {
	switch confidence {
	case types.Yes:
		r.errorf(n, format, args...)
	case types.Maybe:
		if r.ctx.ReportsMaybes() {
			r.warningf(n, format, args...)
		}
	}
}

// flowCheck is a check driven by the forward dataflow walk. start prepares per-file
// state and returns the node visitor plus an optional function run after the walk.
type flowCheck struct {
	meta
	start func(r *reporter) (scope.Visitor, func())
	// dead delivers the first unreachable statement of each dead block too.
	dead bool
}

func (c *flowCheck) visitor(r *reporter) (scope.Visitor, func()) {
	visit, finish := c.start(r)
	if c.dead {
		return visit, finish
	}
	return func(n ast.Node, sc *scope.Scope, acc scope.Access) {
		if !sc.Unreachable() {
			visit(n, sc, acc)
		}
	}, finish
}

func (c *flowCheck) Check(file *ast.File, ctx *Context) []issue.Issue {
	r := newReporter(ctx, file, c.id)
	visit, finish := c.visitor(r)
	scope.Walk(file, ctx.Table, visit)
	if finish != nil {
		finish()
	}
	return r.issues
}

// syntaxCheck is a check that only needs the tree.
type syntaxCheck struct {
	meta
	run func(file *ast.File, r *reporter)
}

func (c *syntaxCheck) Check(file *ast.File, ctx *Context) []issue.Issue {
	r := newReporter(ctx, file, c.id)
	c.run(file, r)
	return r.issues
}

// silentCheck documents a rule that reports nothing.
type silentCheck struct {
	meta
}

func (c *silentCheck) Check(*ast.File, *Context) []issue.Issue { return nil }
func (c *silentCheck) Silent() bool                            { return true }

// visitFunc adapts a stateless visitor.
func visitFunc(fn func(n ast.Node, sc *scope.Scope, acc scope.Access, r *reporter)) func(r *reporter) (scope.Visitor, func()) {
	return func(r *reporter) (scope.Visitor, func()) {
		return func(n ast.Node, sc *scope.Scope, acc scope.Access) { fn(n, sc, acc, r) }, nil
	}
}
