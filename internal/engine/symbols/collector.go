package symbols

import (
	"strings"

	"strata/internal/engine/ast"
	"strata/internal/engine/types"
)

// FileSymbols is what one file declares, in source order.
type FileSymbols struct {
	Path      string
	Classes   []*ClassInfo
	Functions []*FunctionInfo
	Constants []*ConstantInfo
}

// Collect records every named class-like, function and constant declared in file,
// including conditional declarations nested in blocks. It does not touch any table and
// is safe to run on many files concurrently.
func Collect(file *ast.File) *FileSymbols {
	fs := &FileSymbols{Path: file.Path}
	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ClassDecl:
			if n.Name != "" {
				fs.Classes = append(fs.Classes, collectClass(file.Path, n))
			}
		case *ast.FunctionDecl:
			fs.Functions = append(fs.Functions, collectFunction(file.Path, n))
		case *ast.ConstStmt:
			for _, item := range n.Items {
				fs.Constants = append(fs.Constants, &ConstantInfo{
					Name:     item.Name,
					Type:     LiteralType(item.Value),
					Location: loc(file.Path, item.Pos),
				})
			}
		case *ast.Call:
			if c, ok := defineCall(file.Path, n); ok {
				fs.Constants = append(fs.Constants, c)
			}
		}
		return true
	})
	return fs
}

// Build collects every file and merges the results into a frozen table on top of the
// builtins. Later files win on duplicate declarations.
func Build(files []*ast.File) (*Table, error) {
	t := NewTableWithBuiltins()
	for _, f := range files {
		if err := t.Merge(Collect(f)); err != nil {
			return nil, err
		}
	}
	t.Freeze()
	return t, nil
}

func loc(path string, p ast.Pos) Location {
	return Location{File: path, Line: p.Line, Column: p.Column}
}

// defineCall recognises define('NAME', value).
func defineCall(path string, c *ast.Call) (*ConstantInfo, bool) {
	if c.FuncName() != "define" || len(c.Args) < 2 {
		return nil, false
	}
	name, ok := c.Args[0].Value.(*ast.StringLit)
	if !ok || name.Interpolated || name.Value == "" {
		return nil, false
	}
	return &ConstantInfo{
		Name:     strings.TrimPrefix(name.Value, `\`),
		Type:     LiteralType(c.Args[1].Value),
		Location: loc(path, c.Pos),
	}, true
}

// LiteralType types constant initialisers that need no scope. Anything else is nil.
func LiteralType(e ast.Expr) *types.Type {
	switch e := e.(type) {
	case *ast.IntLit:
		return types.IntLiteral(e.Value)
	case *ast.FloatLit:
		return types.Float()
	case *ast.StringLit:
		if e.Interpolated {
			return types.String()
		}
		return types.StringLiteral(e.Value)
	case *ast.BoolLit:
		return types.BoolLiteral(e.Value)
	case *ast.NullLit:
		return types.Null()
	case *ast.ArrayLit:
		if len(e.Items) == 0 {
			return types.EmptyArray()
		}
		return types.Array(nil, nil)
	case *ast.Unary:
		if e.Op == "-" {
			if i, ok := e.X.(*ast.IntLit); ok {
				return types.IntLiteral(-i.Value)
			}
			if _, ok := e.X.(*ast.FloatLit); ok {
				return types.Float()
			}
		}
	case *ast.Binary:
		if e.Op == "." {
			return types.String()
		}
	}
	return nil
}

func hintType(h *ast.TypeHint) *types.Type {
	if h == nil {
		return nil
	}
	return h.Type
}

func collectFunction(path string, d *ast.FunctionDecl) *FunctionInfo {
	f := &FunctionInfo{
		Signature:  signature(d.Params, d.ReturnType, d.Doc, d.ByRef, nil),
		Name:       d.Name,
		Location:   loc(path, d.Pos),
		Deprecated: d.Doc != nil && d.Doc.Deprecated,
	}
	f.ReadsArgs = ReadsArgs(d.Body)
	return f
}

// ReadsArgs reports a func_get_args(), func_get_arg() or func_num_args() call in body,
// outside nested functions and closures.
func ReadsArgs(body []ast.Stmt) bool {
	found := false
	ast.InspectStmts(body, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.FunctionDecl, *ast.ClassDecl, *ast.Closure:
			return false
		case *ast.Call:
			name := n.FuncName()
			if n.Name != nil && n.Name.Fallback != "" {
				name = strings.ToLower(n.Name.Fallback)
			}
			switch name {
			case "func_get_args", "func_get_arg", "func_num_args":
				found = true
			}
		}
		return !found
	})
	return found
}

func signature(params []*ast.Param, ret *ast.TypeHint, doc *ast.Doc, byRef bool, bind func(*types.Type) *types.Type) Signature {
	if bind == nil {
		bind = func(t *types.Type) *types.Type { return t }
	}
	sig := Signature{
		ReturnType: bind(hintType(ret)),
		DocReturn:  bind(doc.ReturnType()),
		ByRef:      byRef,
	}
	for _, p := range params {
		sig.Params = append(sig.Params, &ParameterInfo{
			Name:       p.Name,
			Type:       bind(paramType(p)),
			DocType:    bind(doc.Param(p.Name)),
			HasDefault: p.HasDefault(),
			Variadic:   p.Variadic,
			ByRef:      p.ByRef,
			Promoted:   p.Promoted != "",
		})
	}
	return sig
}

// DeclSignature builds the signature of a function-like declaration without going
// through the table, as closures and anonymous class methods need. A non-empty class
// binds self and parent.
func DeclSignature(params []*ast.Param, ret *ast.TypeHint, doc *ast.Doc, byRef bool, class, parent string) Signature {
	var bind func(*types.Type) *types.Type
	if class != "" {
		bind = selfBinder(class, parent)
	}
	return signature(params, ret, doc, byRef, bind)
}

// TraitSignature builds the signature of a method declared in a trait body.
func TraitSignature(params []*ast.Param, ret *ast.TypeHint, doc *ast.Doc, byRef bool) Signature {
	return signature(params, ret, doc, byRef, traitBinder)
}

// paramType folds an implicit `= null` default into the hint, as the runtime does.
func paramType(p *ast.Param) *types.Type {
	t := hintType(p.Type)
	if t == nil {
		return nil
	}
	if _, ok := p.Default.(*ast.NullLit); ok {
		return types.NormalizeUnion(t, types.Null())
	}
	return t
}

func collectClass(path string, d *ast.ClassDecl) *ClassInfo {
	c := NewClassInfo(d.Name, d.Kind)
	c.Parent = d.Parent
	c.Interfaces = append([]string(nil), d.Interfaces...)
	c.Traits = append([]string(nil), d.Traits...)
	c.Abstract = d.Abstract || d.Kind == KindInterface
	c.Final = d.Final || d.Kind == KindEnum
	c.Readonly = d.Readonly
	c.Deprecated = d.Doc != nil && d.Doc.Deprecated
	c.Location = loc(path, d.Pos)

	bind := selfBinder(c.Name, c.Parent)
	if d.Kind == KindTrait {
		bind = traitBinder
	}

	for _, k := range d.Constants {
		c.AddConstant(&ClassConstInfo{Name: k.Name, Type: LiteralType(k.Value), Visibility: k.Visibility})
	}
	for _, p := range d.Properties {
		c.AddProperty(&PropertyInfo{
			Name:       p.Name,
			Type:       bind(hintType(p.Type)),
			DocType:    bind(p.Doc.VarType()),
			Visibility: p.Visibility,
			Static:     p.Static,
			Readonly:   p.Readonly || d.Readonly,
			HasDefault: p.Default != nil,
			Location:   loc(path, p.Pos),
		})
	}
	for _, m := range d.Methods {
		info := &MethodInfo{
			Signature:  signature(m.Params, m.ReturnType, m.Doc, m.ByRef, bind),
			Name:       m.Name,
			Visibility: m.Visibility,
			Static:     m.Static,
			Abstract:   m.Abstract || !m.HasBody,
			Final:      m.Final,
			Location:   loc(path, m.Pos),
			Deprecated: m.Doc != nil && m.Doc.Deprecated,
		}
		info.ReadsArgs = ReadsArgs(m.Body)
		c.AddMethod(info)
		if !info.IsConstructor() {
			continue
		}
		for i, p := range m.Params {
			if p.Promoted == "" {
				continue
			}
			c.AddProperty(&PropertyInfo{
				Name:       p.Name,
				Type:       info.Params[i].Type,
				DocType:    info.Params[i].DocType,
				Visibility: ast.ParseVisibility(p.Promoted),
				Readonly:   p.Readonly || d.Readonly,
				HasDefault: true,
				Promoted:   true,
				Location:   loc(path, p.Pos),
			})
		}
	}
	if d.Kind == KindEnum {
		addEnumMembers(c, d, bind)
	}
	addDocMembers(c, d.Doc, bind)
	return c
}

// selfBinder resolves self and parent inside a class body. static and $this stay
// symbolic for late static binding.
func selfBinder(class, parent string) func(*types.Type) *types.Type {
	return func(t *types.Type) *types.Type {
		return types.MapClasses(t, func(name string) *types.Type {
			switch strings.ToLower(name) {
			case "self":
				return types.ClassType(class)
			case "parent":
				if parent != "" {
					return types.ClassType(parent)
				}
			}
			return nil
		})
	}
}

// traitBinder keeps self late-bound inside a trait, where it names the using class.
// parent is unknown there.
func traitBinder(t *types.Type) *types.Type {
	return types.MapClasses(t, func(name string) *types.Type {
		switch strings.ToLower(name) {
		case "self":
			return types.ClassType("static")
		case "parent":
			return types.Object()
		}
		return nil
	})
}

func addEnumMembers(c *ClassInfo, d *ast.ClassDecl, bind func(*types.Type) *types.Type) {
	self := c.InstanceType()
	for _, ec := range d.Cases {
		c.AddConstant(&ClassConstInfo{Name: ec.Name, Type: self, EnumCase: true})
	}
	c.Interfaces = append(c.Interfaces, "UnitEnum")
	c.AddProperty(&PropertyInfo{Name: "name", Type: types.String(), Readonly: true})
	c.AddMethod(&MethodInfo{
		Name:      "cases",
		Static:    true,
		Signature: Signature{ReturnType: types.Array(types.Int(), self)},
	})
	if d.BackingType == nil {
		return
	}
	backing := bind(d.BackingType.Type)
	c.Interfaces = append(c.Interfaces, "BackedEnum")
	c.AddProperty(&PropertyInfo{Name: "value", Type: backing, Readonly: true})
	arg := []*ParameterInfo{{Name: "value", Type: types.NormalizeUnion(types.Int(), types.String())}}
	c.AddMethod(&MethodInfo{Name: "from", Static: true, Signature: Signature{Params: arg, ReturnType: self}})
	c.AddMethod(&MethodInfo{
		Name:      "tryFrom",
		Static:    true,
		Signature: Signature{Params: arg, ReturnType: types.NormalizeUnion(self, types.Null())},
	})
}

// addDocMembers registers @property and @method tags without shadowing declarations.
func addDocMembers(c *ClassInfo, doc *ast.Doc, bind func(*types.Type) *types.Type) {
	if doc == nil {
		return
	}
	for _, p := range doc.Properties {
		if c.Property(p.Name) != nil {
			continue
		}
		access := AccessReadWrite
		switch {
		case p.ReadOnly:
			access = AccessReadOnly
		case p.WriteOnly:
			access = AccessWriteOnly
		}
		c.AddProperty(&PropertyInfo{Name: p.Name, DocType: bind(p.Type), Magic: true, Access: access})
	}
	for _, m := range doc.Methods {
		if c.Method(m.Name) != nil {
			continue
		}
		c.AddMethod(&MethodInfo{
			Name:      m.Name,
			Static:    m.Static,
			Magic:     true,
			Signature: Signature{DocReturn: bind(m.Return), Unknown: true},
		})
	}
}
