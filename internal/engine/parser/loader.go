package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

var (
	phpOnce sync.Once
	phpLang *sitter.Language
)

// Language returns the PHP grammar, which accepts inline HTML around PHP tags.
func Language() *sitter.Language {
	phpOnce.Do(func() {
		phpLang = sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	})
	return phpLang
}

// DefaultExtensions are the file extensions analysed when none are configured.
var DefaultExtensions = []string{".php"}

// IsSourceFile reports whether path has one of extensions, compared
// case-insensitively. A nil list means DefaultExtensions.
func IsSourceFile(path string, extensions []string) bool {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
