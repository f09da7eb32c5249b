package hl

import "testing"

func findTopLevel(t *testing.T, tree *Tree, name string) Node {
	t.Helper()
	for _, n := range tree.TopLevel {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("no top-level node named %q in %+v", name, tree.TopLevel)
	return Node{}
}

func TestParseTopLevelFunctionAndClass(t *testing.T) {
	src := []byte("def foo():\n    pass\n\n\nclass C:\n    def m(self):\n        pass\n")
	tree, err := NewPythonFront().Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.HasError {
		t.Fatalf("HasError = true for valid source")
	}

	foo := findTopLevel(t, tree, "foo")
	if foo.Kind != KindFunctionDef || foo.StartLine != 1 || foo.EndLine != 2 {
		t.Errorf("foo = %+v", foo)
	}

	c := findTopLevel(t, tree, "C")
	if c.Kind != KindClassDef || c.StartLine != 5 {
		t.Errorf("C = %+v", c)
	}
	if len(c.Body) != 1 || c.Body[0].Name != "m" || c.Body[0].Kind != KindFunctionDef {
		t.Errorf("C.Body = %+v", c.Body)
	}
}

func TestParseDecoratedFunctionFoldsDecoratorsSeparately(t *testing.T) {
	src := []byte("@staticmethod\n@another\ndef foo():\n    pass\n")
	tree, err := NewPythonFront().Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	foo := findTopLevel(t, tree, "foo")
	if foo.StartLine != 3 {
		t.Errorf("foo.StartLine = %d, want 3 (decorators reported separately, not folded in by the front-end)", foo.StartLine)
	}
	if len(foo.Decorators) != 2 {
		t.Fatalf("Decorators = %+v, want 2", foo.Decorators)
	}
	if foo.Decorators[0].StartLine != 1 || foo.Decorators[1].StartLine != 2 {
		t.Errorf("Decorators = %+v", foo.Decorators)
	}
}

func TestParseAssignmentAndAnnotatedAssignment(t *testing.T) {
	src := []byte("x = 1\ny: int = 2\n")
	tree, err := NewPythonFront().Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	x := findTopLevel(t, tree, "x")
	if x.Kind != KindAssignment {
		t.Errorf("x.Kind = %v, want KindAssignment", x.Kind)
	}
	y := findTopLevel(t, tree, "y")
	if y.Kind != KindAnnotatedAssignment {
		t.Errorf("y.Kind = %v, want KindAnnotatedAssignment", y.Kind)
	}
}

func TestParseUnparseableSourceSetsHasError(t *testing.T) {
	tree, err := NewPythonFront().Parse([]byte("def f(:\n    x = (\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tree.HasError {
		t.Errorf("HasError = false for malformed source")
	}
}

func TestKindStringHasNoBlankCases(t *testing.T) {
	for _, k := range []Kind{KindOther, KindFunctionDef, KindClassDef, KindAssignment, KindAnnotatedAssignment, KindDecorator} {
		if k.String() == "" {
			t.Errorf("Kind(%d).String() is empty", k)
		}
	}
}
