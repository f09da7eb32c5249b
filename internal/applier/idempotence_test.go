package applier

import "testing"

func TestInsertIdempotentFunctionDefGuard(t *testing.T) {
	src := []byte("class C:\n    def a(self):\n        return 1\n\n    def c(self):\n        return 3\n")
	skip, msg := insertIdempotent(src, "    def c(self):", false)
	if !skip {
		t.Fatal("expected skip: def c already exists in file")
	}
	if msg == "" {
		t.Fatal("expected a non-empty message")
	}
}

func TestInsertIdempotentPlainSubstringGuard(t *testing.T) {
	src := []byte("x = 1\ny = 2\n")
	skip, _ := insertIdempotent(src, "y = 2", false)
	if !skip {
		t.Fatal("expected skip: literal line already present")
	}
	if skip2, _ := insertIdempotent(src, "z = 3", false); skip2 {
		t.Fatal("z = 3 is not present, should not skip")
	}
}

func TestInsertIdempotentFuzzyFallback(t *testing.T) {
	src := []byte("x = 1\ny  =   2\n")
	if skip, _ := insertIdempotent(src, "y = 2", false); skip {
		t.Fatal("exact mode should not match whitespace-shifted line")
	}
	if skip, _ := insertIdempotent(src, "y = 2", true); !skip {
		t.Fatal("fuzzy mode should treat the whitespace-shifted line as already present")
	}
}
