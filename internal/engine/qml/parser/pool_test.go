package parser

import (
	"sync"
	"testing"
)

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(JavaScriptLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if active, _ := pool.Stats(); active != 1 {
		t.Fatalf("expected one active lease, got %d", active)
	}
	pool.Put(sp)
	if active, _ := pool.Stats(); active != 0 {
		t.Fatalf("expected no active leases, got %d", active)
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(JavaScriptLanguage())
	pool.Put(nil)
}

func TestParserPool_ParsesValidJavaScript(t *testing.T) {
	pool := NewParserPool(JavaScriptLanguage())

	tree := pool.Parse([]byte("var a = parent.width / 2"))
	if tree == nil {
		t.Fatal("expected non-nil parse tree")
	}
	defer tree.Close()
	if active, parses := pool.Stats(); active != 0 || parses != 1 {
		t.Fatalf("expected 0 active and 1 parse, got %d and %d", active, parses)
	}

	root := tree.RootNode()
	if root.HasError() {
		t.Fatal("expected error-free root node")
	}
}

func TestParser_ConcurrentParses(t *testing.T) {
	p := New()

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := p.ParseQML([]byte("Item { width: parent.width; Text { text: \"x\" } }"))
			if len(res.Errors) != 0 {
				errs <- res.Errors[0].Message
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Errorf("unexpected parse error: %s", msg)
	}
}
