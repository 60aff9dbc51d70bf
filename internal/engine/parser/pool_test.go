package parser

import (
	"sync"
	"testing"
)

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(Language())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Stats() != 1 {
		t.Fatalf("expected one lease, got %d", pool.Stats())
	}
	pool.Put(sp)
	if pool.Stats() != 0 {
		t.Fatalf("expected no leases after Put, got %d", pool.Stats())
	}
	if pool.OldestLease() != 0 {
		t.Fatalf("expected zero oldest lease, got %v", pool.OldestLease())
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(Language())
	pool.Put(nil)
}

func TestParserPool_ParsesValidPHP(t *testing.T) {
	pool := NewParserPool(Language())

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("<?php\nfunction main(): void {}\n"), nil)
	if tree == nil {
		t.Fatal("expected non-nil parse tree for valid PHP source")
	}
	defer tree.Close()

	if root := tree.RootNode(); root == nil || root.HasError() {
		t.Fatalf("expected error-free root node")
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(Language())

	const goroutines = 20
	const iters = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)

	src := []byte("<?php\nfunction run() { return 1; }\n")

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if tree == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}

	wg.Wait()
	if pool.Stats() != 0 {
		t.Fatalf("leases left after concurrent use: %d", pool.Stats())
	}
}

func TestParserPool_LanguageSetAfterReset(t *testing.T) {
	pool := NewParserPool(Language())

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)

	tree := sp2.Parse([]byte("<?php echo 1;\n"), nil)
	if tree == nil {
		t.Fatal("parser should still parse after a reset")
	}
	defer tree.Close()
}

func TestIsSourceFile(t *testing.T) {
	cases := []struct {
		path string
		exts []string
		want bool
	}{
		{"src/A.php", nil, true},
		{"src/A.PHP", nil, true},
		{"src/a.phtml", nil, false},
		{"src/a.phtml", []string{".php", ".phtml"}, true},
		{"README.md", nil, false},
	}
	for _, tc := range cases {
		if got := IsSourceFile(tc.path, tc.exts); got != tc.want {
			t.Errorf("IsSourceFile(%q, %v) = %v, want %v", tc.path, tc.exts, got, tc.want)
		}
	}
}
