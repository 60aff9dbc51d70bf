// Package parser turns PHP source into the engine's syntax tree. It parses with the
// tree-sitter PHP grammar and lowers the concrete tree into ast nodes, resolving every
// class, function and constant name against the namespace and imports in effect.
package parser

import (
	"os"

	"strata/internal/core/errors"
	"strata/internal/engine/ast"
)

// Parser is safe for concurrent use; tree-sitter parsers come from a shared pool.
type Parser struct {
	pool *ParserPool
}

func New() *Parser {
	return &Parser{pool: NewParserPool(Language())}
}

// ParseFile parses content as the file at path. Syntax errors do not fail the call:
// they are recorded on the returned file, and the parts that could be recovered are
// still lowered.
func (p *Parser) ParseFile(path string, content []byte) (*ast.File, error) {
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	file := &ast.File{Path: path}
	file.Errors = syntaxErrors(root, content)
	newLowerer(content, file).program(root)
	return file, nil
}

// ReadFile reads and parses the file at path.
func (p *Parser) ReadFile(path string) (*ast.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, path)
	}
	return p.ParseFile(path, content)
}

// Leased reports the number of tree-sitter parsers in use.
func (p *Parser) Leased() int { return p.pool.Stats() }
