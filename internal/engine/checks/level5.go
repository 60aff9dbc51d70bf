package checks

import (
	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/types"
)

func levelFive() []Check {
	return []Check{
		&flowCheck{meta: meta{"argument.type", "Arguments must be accepted by the parameter type", 5}, start: visitFunc(argumentType)},
	}
}

func argumentType(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	site, ok := siteOf(n, sc)
	if !ok {
		return
	}
	for _, b := range bindArgs(site) {
		if b.param.ByRef {
			continue
		}
		declared := r.ctx.paramType(b.param)
		if declared == nil || types.HasLateStatic(declared) {
			continue
		}
		actual := sc.TypeOf(b.arg.Value)
		if actual.IsMixed() {
			continue
		}
		r.report(r.ctx.accepts(r.file, declared, actual).Not(), b.arg,
			"Parameter #%d $%s of %s expects %s, %s given.", b.position, b.param.Name, site.subject, declared, actual)
	}
}
