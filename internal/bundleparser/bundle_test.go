package bundleparser

import "testing"

func TestParseSingleReplaceLineWithDirectives(t *testing.T) {
	bundle := "DEFAULT_FILE pkg.py\n" +
		"REPLACE_LINE MyClass.method\n" +
		"ANCHOR: return x\n" +
		"EXPECT: 2\n" +
		"OCCURRENCE: 2\n" +
		"    return x + 1\n"

	ops, err := Parse(bundle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
	op := ops[0]
	if op.Kind != KindReplaceLine {
		t.Errorf("Kind = %v, want KindReplaceLine", op.Kind)
	}
	if op.Target != "MyClass.method" {
		t.Errorf("Target = %q", op.Target)
	}
	if op.DefaultFile != "pkg.py" {
		t.Errorf("DefaultFile = %q", op.DefaultFile)
	}
	if op.Anchor != "return x" {
		t.Errorf("Anchor = %q", op.Anchor)
	}
	if op.Expect != 2 || op.Occurrence != 2 {
		t.Errorf("Expect/Occurrence = %d/%d, want 2/2", op.Expect, op.Occurrence)
	}
	if op.Code != "    return x + 1" {
		t.Errorf("Code = %q", op.Code)
	}
}

func TestParseMultipleOperationsShareDefaultFileUntilOverridden(t *testing.T) {
	bundle := "DEFAULT_FILE a.py\n" +
		"REPLACE foo\n" +
		"def foo():\n" +
		"    pass\n" +
		"DEFAULT_FILE b.py\n" +
		"REPLACE bar\n" +
		"def bar():\n" +
		"    pass\n"

	ops, err := Parse(bundle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].DefaultFile != "a.py" {
		t.Errorf("ops[0].DefaultFile = %q, want a.py", ops[0].DefaultFile)
	}
	if ops[1].DefaultFile != "b.py" {
		t.Errorf("ops[1].DefaultFile = %q, want b.py", ops[1].DefaultFile)
	}
}

func TestParseInsertIntoWithIndentAndPosition(t *testing.T) {
	bundle := "INSERT_INTO MyClass\n" +
		"ANCHOR: def existing\n" +
		"INDENT: child\n" +
		"POSITION: before\n" +
		"def new_method(self):\n" +
		"    pass\n"

	ops, err := Parse(bundle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := ops[0]
	if op.IndentMode != IndentChild {
		t.Errorf("IndentMode = %v, want IndentChild", op.IndentMode)
	}
	if op.Position != PositionBefore {
		t.Errorf("Position = %v, want PositionBefore", op.Position)
	}
}

func TestParseReplaceExprUsesOldAndNew(t *testing.T) {
	bundle := "REPLACE_EXPR MyClass.method\n" +
		"OLD: self.x + 1\n" +
		"NEW: self.x + 2\n"

	ops, err := Parse(bundle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := ops[0]
	if op.OldExpr != "self.x + 1" || op.NewExpr != "self.x + 2" {
		t.Errorf("OldExpr/NewExpr = %q/%q", op.OldExpr, op.NewExpr)
	}
	if op.Code != "" {
		t.Errorf("Code = %q, want empty for a directive-only op", op.Code)
	}
}

func TestParseListTargetsNeedsOnlyATarget(t *testing.T) {
	ops, err := Parse("LIST_TARGETS MyClass\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 1 || ops[0].Kind != KindListTargets || ops[0].Target != "MyClass" {
		t.Fatalf("ops = %+v", ops)
	}
}

func TestParseUnrecognizedLineIsAParseError(t *testing.T) {
	_, err := Parse("REPLACE foo\ndef foo(): pass\nBOGUS_HEADER bar\n")
	if err == nil {
		t.Fatalf("expected a parse error for an unrecognized header")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("err = %T, want *ParseError", err)
	}
	if perr.Line != 3 {
		t.Errorf("Line = %d, want 3", perr.Line)
	}
}

func TestParseMissingTargetIsAParseError(t *testing.T) {
	_, err := Parse("REPLACE\n")
	if err == nil {
		t.Fatalf("expected a parse error when a header has no target")
	}
}

func TestParseMalformedIntegerDirectiveDefaultsToOne(t *testing.T) {
	bundle := "REPLACE_LINE f\nANCHOR: x = 1\nEXPECT: not-a-number\nx = 2\n"
	ops, err := Parse(bundle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ops[0].Expect != 1 {
		t.Errorf("Expect = %d, want 1 (default)", ops[0].Expect)
	}
}

func TestParseSigIsFirstNonBlankCodeLine(t *testing.T) {
	bundle := "REPLACE foo\n\n\ndef foo():\n    pass\n"
	ops, err := Parse(bundle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ops[0].Sig != "def foo():" {
		t.Errorf("Sig = %q, want %q", ops[0].Sig, "def foo():")
	}
}

func TestKindStringRoundTripsThroughHeaderTokens(t *testing.T) {
	for _, h := range headerTokens {
		if h.kind.String() != h.token {
			t.Errorf("Kind(%d).String() = %q, want %q", h.kind, h.kind.String(), h.token)
		}
	}
}
