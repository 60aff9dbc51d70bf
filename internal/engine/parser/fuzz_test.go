package parser

import (
	"testing"
)

func FuzzParseFile(f *testing.F) {
	f.Add([]byte("<?php\nfunction main() {\n\techo 'hello';\n}\n"))
	f.Add([]byte("<?php\nnamespace A;\nuse B\\{C, D as E};\nclass F extends C implements E { public function __construct(private int $x = 1) {} }\n"))
	f.Add([]byte("<?php\n$x = match($y) { 1, 2 => fn($z) => $z?->a(...), default => \"v{$w['k']}\" };\n"))
	f.Add([]byte("<?php if ($a) { foreach ($b as $k => &$v): endforeach; "))
	f.Add([]byte("<html><?= $title ?></html>"))

	p := New()
	f.Fuzz(func(t *testing.T, data []byte) {
		file, err := p.ParseFile("fuzz.php", data)
		if err != nil {
			return
		}
		if file == nil {
			t.Fatal("nil file without error")
		}
	})
}
