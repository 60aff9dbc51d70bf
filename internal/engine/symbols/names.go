package symbols

import (
	"strings"

	"strata/internal/engine/ast"
)

// NameContext resolves names as written in one namespace block, following the
// language's rules: fully qualified names are taken as is, `namespace\X` is relative to
// the current namespace, the first segment of a qualified name may be an imported
// alias, and unqualified function and constant names fall back to the global namespace.
type NameContext struct {
	Namespace string
	classes   map[string]string // lower alias -> FQN
	functions map[string]string // lower alias -> FQN
	constants map[string]string // alias -> FQN
}

func NewNameContext(namespace string) *NameContext {
	return &NameContext{
		Namespace: strings.Trim(namespace, `\`),
		classes:   make(map[string]string),
		functions: make(map[string]string),
		constants: make(map[string]string),
	}
}

// AddUse registers one import.
func (n *NameContext) AddUse(item ast.UseItem) {
	fqn := strings.TrimPrefix(item.Name, `\`)
	alias := item.EffectiveAlias()
	switch item.Kind {
	case ast.UseFunction:
		n.functions[strings.ToLower(alias)] = fqn
	case ast.UseConst:
		n.constants[alias] = fqn
	default:
		n.classes[strings.ToLower(alias)] = fqn
	}
}

// Qualify prefixes a declared short name with the current namespace.
func (n *NameContext) Qualify(short string) string {
	if n.Namespace == "" {
		return short
	}
	return n.Namespace + `\` + short
}

// ResolveClass resolves a class reference. self, static and parent are returned
// lower-cased and unresolved; the caller binds them to a class context.
func (n *NameContext) ResolveClass(name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, `\`) {
		return name[1:]
	}
	switch lower := strings.ToLower(name); lower {
	case "self", "static", "parent":
		return lower
	}
	if rest, ok := cutNamespacePrefix(name); ok {
		return n.Qualify(rest)
	}
	first, rest, qualified := strings.Cut(name, `\`)
	if fqn, ok := n.classes[strings.ToLower(first)]; ok {
		if qualified {
			return fqn + `\` + rest
		}
		return fqn
	}
	return n.Qualify(name)
}

// ResolveFunction resolves a function reference, returning the global fallback for an
// unqualified name inside a namespace.
func (n *NameContext) ResolveFunction(name string) (resolved, fallback string) {
	return n.resolveFallback(name, func(alias string) (string, bool) {
		fqn, ok := n.functions[strings.ToLower(alias)]
		return fqn, ok
	})
}

// ResolveConstant resolves a constant reference like ResolveFunction.
func (n *NameContext) ResolveConstant(name string) (resolved, fallback string) {
	return n.resolveFallback(name, func(alias string) (string, bool) {
		fqn, ok := n.constants[alias]
		return fqn, ok
	})
}

func (n *NameContext) resolveFallback(name string, imported func(string) (string, bool)) (string, string) {
	if strings.HasPrefix(name, `\`) {
		return name[1:], ""
	}
	if rest, ok := cutNamespacePrefix(name); ok {
		return n.Qualify(rest), ""
	}
	if strings.Contains(name, `\`) {
		first, rest, _ := strings.Cut(name, `\`)
		if fqn, ok := n.classes[strings.ToLower(first)]; ok {
			return fqn + `\` + rest, ""
		}
		return n.Qualify(name), ""
	}
	if fqn, ok := imported(name); ok {
		return fqn, ""
	}
	if n.Namespace == "" {
		return name, ""
	}
	return n.Qualify(name), name
}

// Resolver adapts ResolveClass to types.NameResolver for type strings. Lower-case
// builtin type keywords never reach it.
func (n *NameContext) Resolver() func(string) string {
	return func(name string) string {
		if name == "$this" {
			return name
		}
		return n.ResolveClass(name)
	}
}

func cutNamespacePrefix(name string) (string, bool) {
	if len(name) > len(`namespace\`) && strings.EqualFold(name[:len(`namespace\`)], `namespace\`) {
		return name[len(`namespace\`):], true
	}
	return "", false
}
