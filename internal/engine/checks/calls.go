package checks

import (
	"fmt"
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/scope"
	"strata/internal/engine/symbols"
)

// callSite is a call whose callee signature is known.
type callSite struct {
	node ast.Node
	args []*ast.Arg
	sig  *symbols.Signature
	// subject names the callee inside messages: "function foo", "method A::b()".
	subject string
	// title starts argument count messages: "Function foo", "Method A::b()".
	title string
}

func functionSite(c *ast.Call, sc *scope.Scope) (callSite, bool) {
	f, ok := sc.FunctionForCall(c)
	if !ok || f.Unknown {
		return callSite{}, false
	}
	return callSite{
		node:    c,
		args:    c.Args,
		sig:     &f.Signature,
		subject: "function " + f.Name,
		title:   "Function " + f.Name,
	}, true
}

func methodSite(c *ast.MethodCall, sc *scope.Scope) (callSite, bool) {
	m := sc.MethodForCall(c)
	if m == nil || m.Unknown {
		return callSite{}, false
	}
	name := fmt.Sprintf("%s::%s()", m.Class, m.Name)
	return callSite{node: c, args: c.Args, sig: &m.Signature, subject: "method " + name, title: "Method " + name}, true
}

func staticSite(c *ast.StaticCall, sc *scope.Scope) (callSite, bool) {
	m := sc.MethodForStaticCall(c)
	if m == nil || m.Unknown {
		return callSite{}, false
	}
	name := fmt.Sprintf("%s::%s()", m.Class, m.Name)
	if !m.Static {
		return callSite{node: c, args: c.Args, sig: &m.Signature, subject: "method " + name, title: "Method " + name}, true
	}
	return callSite{node: c, args: c.Args, sig: &m.Signature, subject: "static method " + name, title: "Static method " + name}, true
}

func constructorSite(n *ast.New, sc *scope.Scope) (callSite, bool) {
	m := sc.ConstructorFor(n)
	if m == nil || m.Unknown {
		return callSite{}, false
	}
	class, _ := sc.ClassName(n.Class)
	return callSite{
		node:    n,
		args:    n.Args,
		sig:     &m.Signature,
		subject: fmt.Sprintf("class %s constructor", class),
		title:   fmt.Sprintf("Class %s constructor", class),
	}, true
}

// siteOf resolves any call-like node.
func siteOf(n ast.Node, sc *scope.Scope) (callSite, bool) {
	switch n := n.(type) {
	case *ast.Call:
		return functionSite(n, sc)
	case *ast.MethodCall:
		return methodSite(n, sc)
	case *ast.StaticCall:
		return staticSite(n, sc)
	case *ast.New:
		return constructorSite(n, sc)
	}
	return callSite{}, false
}

func isThisCall(c *ast.MethodCall) bool {
	v, ok := c.Receiver.(*ast.Variable)
	return ok && v.Name == "this"
}

// countProblem describes a wrong argument count, or returns false when the count is
// acceptable or cannot be judged (spread arguments, unknown named parameters).
func countProblem(site callSite) (string, bool) {
	sig := site.sig
	positional := 0
	named := make(map[string]bool)
	for _, a := range site.args {
		switch {
		case a.Spread:
			return "", false
		case a.Name != "":
			if sig.ParamByName(a.Name) == nil {
				return "", false
			}
			named[a.Name] = true
		default:
			positional++
		}
	}
	lo, hi := sig.RequiredArgs(), sig.MaxArgs()
	bad := hi >= 0 && positional > hi
	for i := 0; i < lo && !bad; i++ {
		if i >= positional && !named[sig.Params[i].Name] {
			bad = true
		}
	}
	if !bad {
		return "", false
	}
	given := len(site.args)
	noun := "parameters"
	if given == 1 {
		noun = "parameter"
	}
	var required string
	switch {
	case hi < 0:
		required = fmt.Sprintf("at least %d", lo)
	case lo == hi:
		required = fmt.Sprintf("%d", lo)
	default:
		required = fmt.Sprintf("%d-%d", lo, hi)
	}
	return fmt.Sprintf("%s invoked with %d %s, %s required.", site.title, given, noun, required), true
}

// boundArg pairs a non-spread argument with the parameter receiving it. position is
// 1-based, as in messages.
type boundArg struct {
	arg      *ast.Arg
	param    *symbols.ParameterInfo
	position int
}

func bindArgs(site callSite) []boundArg {
	var out []boundArg
	for i, a := range site.args {
		if a.Spread {
			break
		}
		var p *symbols.ParameterInfo
		if a.Name != "" {
			p = site.sig.ParamByName(a.Name)
		} else {
			p = site.sig.Param(i)
		}
		if p == nil {
			continue
		}
		pos := i + 1
		if a.Name != "" {
			for j, q := range site.sig.Params {
				if q == p {
					pos = j + 1
				}
			}
		}
		out = append(out, boundArg{arg: a, param: p, position: pos})
	}
	return out
}

// calledName returns the name a call was written with, for messages.
func calledName(n *ast.Name) string {
	if n == nil {
		return ""
	}
	if n.Text != "" {
		return strings.TrimPrefix(n.Text, `\`)
	}
	return n.Resolved
}
