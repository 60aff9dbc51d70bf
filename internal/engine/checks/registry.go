package checks

import (
	"sort"

	"strata/internal/core/errors"
	"strata/internal/engine/ast"
	"strata/internal/engine/issue"
	"strata/internal/engine/scope"
)

// Registry holds checks in registration order.
type Registry struct {
	checks []Check
	byID   map[string]Check
}

// NewRegistry registers checks in order. Duplicate identifiers are a CONFLICT.
func NewRegistry(checks ...Check) (*Registry, error) {
	r := &Registry{byID: make(map[string]Check)}
	for _, c := range checks {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry with every built-in check.
func Default() *Registry {
	r, err := NewRegistry(All()...)
	if err != nil {
		panic(err)
	}
	return r
}

// All lists every built-in check, grouped by level.
func All() []Check {
	var out []Check
	out = append(out, levelZero()...)
	out = append(out, levelOne()...)
	out = append(out, levelTwo()...)
	out = append(out, levelThree()...)
	out = append(out, levelFour()...)
	out = append(out, levelFive()...)
	out = append(out, levelSix()...)
	out = append(out, strictLevels()...)
	return out
}

// Register appends c. Levels outside 0..MaxLevel are a VALIDATION_ERROR and a second
// check with the same identifier a CONFLICT.
func (r *Registry) Register(c Check) error {
	if c.Level() < 0 || c.Level() > MaxLevel {
		return errors.Newf(errors.CodeValidationError, "check %s has level %d outside 0..%d", c.ID(), c.Level(), MaxLevel)
	}
	if _, dup := r.byID[c.ID()]; dup {
		return errors.AddContext(errors.New(errors.CodeConflict, "check already registered"), errors.CtxSymbol, c.ID())
	}
	r.checks = append(r.checks, c)
	r.byID[c.ID()] = c
	return nil
}

// Lookup finds a check by identifier.
func (r *Registry) Lookup(id string) (Check, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Checks returns every check sorted by level, then identifier.
func (r *Registry) Checks() []Check {
	out := append([]Check(nil), r.checks...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level() != out[j].Level() {
			return out[i].Level() < out[j].Level()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// ForLevel returns exactly the checks whose level is at most level, in registration
// order.
func (r *Registry) ForLevel(level int) []Check {
	var out []Check
	for _, c := range r.checks {
		if c.Level() <= level {
			out = append(out, c)
		}
	}
	return out
}

// Run executes every check enabled at ctx.Level on file and concatenates their issues
// in registration order. Flow checks share a single dataflow walk.
func (r *Registry) Run(file *ast.File, ctx *Context) []issue.Issue {
	enabled := r.ForLevel(ctx.Level)
	results := make([][]issue.Issue, len(enabled))

	type pending struct {
		index    int
		reporter *reporter
		visit    scope.Visitor
		finish   func()
	}
	var flows []pending
	for i, c := range enabled {
		fc, ok := c.(*flowCheck)
		if !ok {
			results[i] = c.Check(file, ctx)
			continue
		}
		rep := newReporter(ctx, file, fc.id)
		visit, finish := fc.visitor(rep)
		flows = append(flows, pending{index: i, reporter: rep, visit: visit, finish: finish})
	}
	if len(flows) > 0 {
		scope.Walk(file, ctx.Table, func(n ast.Node, sc *scope.Scope, acc scope.Access) {
			for _, f := range flows {
				f.visit(n, sc, acc)
			}
		})
		for _, f := range flows {
			if f.finish != nil {
				f.finish()
			}
			results[f.index] = f.reporter.issues
		}
	}

	var out []issue.Issue
	for _, rs := range results {
		out = append(out, rs...)
	}
	return out
}
