package ast

import "reflect"

// Inspect traverses the tree rooted at node in depth-first order, calling fn for each
// node. When fn returns false the node's children are skipped. Nested functions,
// closures and class bodies are visited too.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || isNilNode(node) {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Inspect(child, fn)
	}
}

// InspectStmts runs Inspect over a statement list.
func InspectStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}

// Children lists the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil && !isNilNode(c) {
				out = append(out, c)
			}
		}
	}
	stmts := func(list []Stmt) {
		for _, s := range list {
			add(s)
		}
	}
	exprs := func(list []Expr) {
		for _, e := range list {
			add(e)
		}
	}
	args := func(list []*Arg) {
		for _, a := range list {
			add(a)
		}
	}
	params := func(list []*Param) {
		for _, p := range list {
			add(p)
		}
	}

	switch n := n.(type) {
	case *File:
		stmts(n.Stmts)
	case *NamespaceStmt:
		stmts(n.Stmts)
	case *FunctionDecl:
		params(n.Params)
		stmts(n.Body)
	case *ClassDecl:
		for _, c := range n.Constants {
			add(c)
		}
		for _, c := range n.Cases {
			add(c)
		}
		for _, p := range n.Properties {
			add(p)
		}
		for _, m := range n.Methods {
			add(m)
		}
	case *MethodDecl:
		params(n.Params)
		stmts(n.Body)
	case *PropertyDecl:
		add(n.Default)
	case *ClassConstDecl:
		add(n.Value)
	case *EnumCase:
		add(n.Value)
	case *Param:
		add(n.Default)
	case *Arg:
		add(n.Value)
	case *ConstStmt:
		for _, item := range n.Items {
			add(item.Value)
		}
	case *ExprStmt:
		add(n.X)
	case *EchoStmt:
		exprs(n.Args)
	case *ReturnStmt:
		add(n.Result)
	case *IfStmt:
		add(n.Cond)
		stmts(n.Then)
		for _, e := range n.ElseIfs {
			add(e)
		}
		stmts(n.Else)
	case *ElseIf:
		add(n.Cond)
		stmts(n.Body)
	case *WhileStmt:
		add(n.Cond)
		stmts(n.Body)
	case *DoWhileStmt:
		stmts(n.Body)
		add(n.Cond)
	case *ForStmt:
		exprs(n.Init)
		exprs(n.Cond)
		exprs(n.Step)
		stmts(n.Body)
	case *ForeachStmt:
		add(n.Subject, n.Key, n.Value)
		stmts(n.Body)
	case *SwitchStmt:
		add(n.Subject)
		for _, c := range n.Cases {
			add(c)
		}
	case *CaseClause:
		add(n.Test)
		stmts(n.Body)
	case *TryStmt:
		stmts(n.Body)
		for _, c := range n.Catches {
			add(c)
		}
		stmts(n.Finally)
	case *CatchClause:
		stmts(n.Body)
	case *BlockStmt:
		stmts(n.Stmts)
	case *StaticVarStmt:
		for _, v := range n.Vars {
			add(v.Init)
		}
	case *UnsetStmt:
		exprs(n.Args)
	case *DeclareStmt:
		stmts(n.Body)

	case *DynamicVariable:
		add(n.Name)
	case *Assign:
		add(n.Target, n.Value)
	case *StringLit:
		exprs(n.Parts)
	case *ArrayLit:
		for _, it := range n.Items {
			add(it)
		}
	case *ArrayItem:
		add(n.Key, n.Value)
	case *Call:
		add(n.Func)
		args(n.Args)
	case *MethodCall:
		add(n.Receiver, n.MethodExpr)
		args(n.Args)
	case *StaticCall:
		add(n.ClassExpr, n.MethodExpr)
		args(n.Args)
	case *PropertyFetch:
		add(n.Receiver, n.PropertyExpr)
	case *StaticPropertyFetch:
		add(n.ClassExpr)
	case *ClassConstFetch:
		add(n.ClassExpr)
	case *New:
		add(n.ClassExpr)
		if n.Anonymous != nil {
			add(n.Anonymous)
		}
		args(n.Args)
	case *Binary:
		add(n.L, n.R)
	case *Unary:
		add(n.X)
	case *IncDec:
		add(n.X)
	case *Cast:
		add(n.X)
	case *Ternary:
		add(n.Cond, n.Then, n.Else)
	case *Match:
		add(n.Subject)
		for _, arm := range n.Arms {
			add(arm)
		}
	case *MatchArm:
		exprs(n.Conds)
		add(n.Body)
	case *Isset:
		exprs(n.Args)
	case *Empty:
		add(n.X)
	case *Closure:
		params(n.Params)
		stmts(n.Body)
	case *ArrowFunc:
		params(n.Params)
		add(n.Body)
	case *Index:
		add(n.X, n.Index)
	case *Instanceof:
		add(n.X, n.ClassExpr)
	case *Clone:
		add(n.X)
	case *Print:
		add(n.X)
	case *Include:
		add(n.X)
	case *Exit:
		add(n.X)
	case *Throw:
		add(n.X)
	case *Yield:
		add(n.Key, n.Value)
	}
	return out
}

// isNilNode catches typed nil pointers stored in interfaces.
func isNilNode(n Node) bool {
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Terminates reports whether control never falls through stmts: the list ends in a
// return, throw, exit, break or continue, or in an if/else or switch/try whose every
// branch terminates. It is a syntactic judgement used for dead-code and missing-return
// findings.
func Terminates(stmts []Stmt) bool {
	for _, s := range stmts {
		if StmtTerminates(s) {
			return true
		}
	}
	return false
}

// StmtTerminates reports whether s always transfers control away.
func StmtTerminates(s Stmt) bool {
	switch s := s.(type) {
	case *ReturnStmt, *BreakStmt, *ContinueStmt:
		return true
	case *ExprStmt:
		switch s.X.(type) {
		case *Throw, *Exit:
			return true
		}
	case *BlockStmt:
		return Terminates(s.Stmts)
	case *IfStmt:
		if !s.HasElse || !Terminates(s.Then) || !Terminates(s.Else) {
			return false
		}
		for _, e := range s.ElseIfs {
			if !Terminates(e.Body) {
				return false
			}
		}
		return true
	case *TryStmt:
		if s.HasFinally && Terminates(s.Finally) {
			return true
		}
		if !Terminates(s.Body) {
			return false
		}
		for _, c := range s.Catches {
			if !Terminates(c.Body) {
				return false
			}
		}
		return true
	case *WhileStmt:
		// while (true) without break never falls through.
		if b, ok := s.Cond.(*BoolLit); ok && b.Value {
			return !containsBreak(s.Body)
		}
	case *ForStmt:
		if len(s.Cond) == 0 {
			return !containsBreak(s.Body)
		}
	case *SwitchStmt:
		return switchTerminates(s)
	}
	return false
}

// switchTerminates requires a default case, no break out of the switch and every case
// either falling through or terminating.
func switchTerminates(s *SwitchStmt) bool {
	if len(s.Cases) == 0 {
		return false
	}
	hasDefault := false
	for i, c := range s.Cases {
		if c.Test == nil {
			hasDefault = true
		}
		if leaves(c.Body, true) {
			return false
		}
		last := i == len(s.Cases)-1
		if (len(c.Body) > 0 || last) && !Terminates(c.Body) {
			return false
		}
	}
	return hasDefault
}

// containsBreak reports a break that could leave the loop owning body.
func containsBreak(body []Stmt) bool { return leaves(body, false) }

// leaves reports a break, or with continues set also a continue, that could leave the
// construct owning body.
func leaves(body []Stmt, continues bool) bool {
	found := false
	var visit func(stmts []Stmt, depth int)
	visit = func(stmts []Stmt, depth int) {
		for _, s := range stmts {
			if found {
				return
			}
			switch s := s.(type) {
			case *BreakStmt:
				if max(s.Levels, 1) > depth {
					found = true
				}
			case *ContinueStmt:
				if continues && max(s.Levels, 1) > depth {
					found = true
				}
			case *BlockStmt:
				visit(s.Stmts, depth)
			case *IfStmt:
				visit(s.Then, depth)
				for _, e := range s.ElseIfs {
					visit(e.Body, depth)
				}
				visit(s.Else, depth)
			case *TryStmt:
				visit(s.Body, depth)
				for _, c := range s.Catches {
					visit(c.Body, depth)
				}
				visit(s.Finally, depth)
			case *WhileStmt:
				visit(s.Body, depth+1)
			case *DoWhileStmt:
				visit(s.Body, depth+1)
			case *ForStmt:
				visit(s.Body, depth+1)
			case *ForeachStmt:
				visit(s.Body, depth+1)
			case *SwitchStmt:
				for _, c := range s.Cases {
					visit(c.Body, depth+1)
				}
			}
		}
	}
	visit(body, 0)
	return found
}
