package checks

import (
	"slices"
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
	"strata/internal/engine/types"
)

func levelSix() []Check {
	return []Check{
		&syntaxCheck{meta: meta{"missingType.parameter", "Parameters without a native or PHPDoc type", 6}, run: missingTypehints(hintParams)},
		&syntaxCheck{meta: meta{"missingType.return", "Functions and methods without a native or PHPDoc return type", 6}, run: missingTypehints(hintReturns)},
		&syntaxCheck{meta: meta{"missingType.property", "Properties without a native or PHPDoc type", 6}, run: missingTypehints(hintProperties)},
		&flowCheck{meta: meta{"function.alreadyNarrowedType", "Type predicates called on a value already known to pass them", 6}, start: visitFunc(alreadyNarrowed)},
		&syntaxCheck{meta: meta{"phpDoc.typeMismatch", "PHPDoc types incompatible with the native type", 6}, run: phpDocMismatch},
		&silentCheck{meta: meta{"missingType.iterableValue", "Array value types (needs generic array inference)", 6}},
		&silentCheck{meta: meta{"missingType.generics", "Generic class type arguments (generics are not modelled)", 6}},
	}
}

// declarations calls fn for every named function and every class-like in file,
// anonymous classes included.
func declarations(file *ast.File, fn func(f *ast.FunctionDecl), class func(d *ast.ClassDecl)) {
	ast.InspectStmts(file.Stmts, func(n ast.Node) bool {
		switch d := n.(type) {
		case *ast.FunctionDecl:
			fn(d)
		case *ast.ClassDecl:
			class(d)
		}
		return true
	})
}

func declName(d *ast.ClassDecl) string {
	if d.Name == "" {
		return "class@anonymous"
	}
	return d.Name
}

// inherited reports a method or property whose types may come from an ancestor.
func inherited(t *symbols.Table, d *ast.ClassDecl, method, property string) bool {
	if d.Name == "" {
		return d.Parent != "" || len(d.Interfaces) > 0
	}
	if t.HasUnknownAncestor(d.Name) {
		return true
	}
	for _, a := range t.Ancestors(d.Name) {
		c, ok := t.Class(a)
		if !ok {
			return true
		}
		if method != "" && c.Method(method) != nil {
			return true
		}
		if property != "" && c.Property(property) != nil {
			return true
		}
	}
	return false
}

type hintSite uint8

const (
	hintParams hintSite = iota
	hintReturns
	hintProperties
)

func missingTypehints(site hintSite) func(file *ast.File, r *reporter) {
	return func(file *ast.File, r *reporter) {
		if !r.ctx.Options.CheckMissingTypehints {
			return
		}
		params := func(who string, list []*ast.Param, doc *ast.Doc) {
			if site != hintParams {
				return
			}
			for _, p := range list {
				if p.Type == nil && doc.Param(p.Name) == nil {
					r.errorf(p, "%s has parameter $%s with no type specified.", who, p.Name)
				}
			}
		}
		declarations(file, func(f *ast.FunctionDecl) {
			who := "Function " + f.Name + "()"
			params(who, f.Params, f.Doc)
			if site == hintReturns && f.ReturnType == nil && f.Doc.ReturnType() == nil {
				r.errorf(f, "%s has no return type specified.", who)
			}
		}, func(d *ast.ClassDecl) {
			class := declName(d)
			for _, m := range d.Methods {
				if site == hintProperties || inherited(r.ctx.Table, d, m.Name, "") {
					continue
				}
				who := "Method " + class + "::" + m.Name + "()"
				params(who, m.Params, m.Doc)
				switch strings.ToLower(m.Name) {
				case "__construct", "__destruct", "__clone":
					continue
				}
				if site == hintReturns && m.ReturnType == nil && m.Doc.ReturnType() == nil {
					r.errorf(m, "%s has no return type specified.", who)
				}
			}
			if site != hintProperties {
				return
			}
			for _, p := range d.Properties {
				if p.Type == nil && p.Doc.VarType() == nil && !inherited(r.ctx.Table, d, "", p.Name) {
					r.errorf(p, "Property %s::$%s has no type specified.", class, p.Name)
				}
			}
		})
	}
}

// incompatible reports a PHPDoc type that can never describe a value of the native type.
func incompatible(doc, native *types.Type, h types.Hierarchy) bool {
	if doc == nil || native == nil || types.HasLateStatic(doc) || types.HasLateStatic(native) {
		return false
	}
	return types.IsSubtype(doc, native, h).IsNo()
}

func phpDocMismatch(file *ast.File, r *reporter) {
	h := r.ctx.Table
	signature := func(node ast.Node, sig symbols.Signature) {
		for _, p := range sig.Params {
			if incompatible(p.DocType, p.Type, h) {
				r.errorf(node, "PHPDoc tag @param for parameter $%s with type %s is incompatible with native type %s.", p.Name, p.DocType, p.Type)
			}
		}
		if incompatible(sig.DocReturn, sig.ReturnType, h) {
			r.errorf(node, "PHPDoc tag @return with type %s is incompatible with native type %s.", sig.DocReturn, sig.ReturnType)
		}
	}
	declarations(file, func(f *ast.FunctionDecl) {
		signature(f, symbols.DeclSignature(f.Params, f.ReturnType, f.Doc, f.ByRef, "", ""))
	}, func(d *ast.ClassDecl) {
		for _, m := range d.Methods {
			signature(m, symbols.DeclSignature(m.Params, m.ReturnType, m.Doc, m.ByRef, d.Name, d.Parent))
		}
		for _, p := range d.Properties {
			if p.Type != nil && incompatible(p.Doc.VarType(), p.Type.Type, h) {
				r.errorf(p, "PHPDoc tag @var for property %s::$%s with type %s is incompatible with native type %s.", declName(d), p.Name, p.Doc.VarType(), p.Type.Type)
			}
		}
	})
}

// typePredicates maps is_* functions to the kinds they accept.
var typePredicates = map[string][]types.Kind{
	"is_string":  {types.KindString},
	"is_int":     {types.KindInt},
	"is_integer": {types.KindInt},
	"is_long":    {types.KindInt},
	"is_float":   {types.KindFloat},
	"is_double":  {types.KindFloat},
	"is_bool":    {types.KindBool},
	"is_array":   {types.KindArray},
	"is_null":    {types.KindNull},
	"is_object":  {types.KindObject, types.KindClass},
}

func alreadyNarrowed(n ast.Node, sc *scope.Scope, _ scope.Access, r *reporter) {
	c, ok := n.(*ast.Call)
	if !ok || c.Name == nil || len(c.Args) != 1 || c.Args[0].Spread {
		return
	}
	name := c.FuncName()
	if c.Name.Fallback != "" {
		if _, shadowed := sc.Table.Function(c.Name.Resolved); shadowed {
			return
		}
		name = strings.ToLower(c.Name.Fallback)
	}
	kinds, ok := typePredicates[name]
	if !ok {
		return
	}
	t := sc.TypeOf(c.Args[0].Value)
	if t.IsMixed() || t.Kind() == types.KindNever {
		return
	}
	for _, m := range t.Members() {
		if !slices.Contains(kinds, m.Kind()) {
			return
		}
	}
	r.errorf(c, "Call to function %s() with %s will always evaluate to true.", name, t)
}
