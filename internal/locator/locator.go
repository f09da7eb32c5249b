package locator

import (
	"fmt"

	"astpatch.dev/astpatch/internal/hl"
)

// Range is a 1-based inclusive line pair into a specific source buffer.
type Range struct {
	Start int
	End   int
}

// Match describes one of several colliding definitions, for reporting
// an AMBIGUOUS result.
type Match struct {
	Name      string
	StartLine int
	EndLine   int
}

// Result is the locator's three-way outcome: exactly one Range, a list
// of colliding Matches (AMBIGUOUS), or neither (None/miss). Modeled as
// a sum type rather than the source's stringly-typed "AMBIGUOUS"
// marker, per spec.md §9's design note.
type Result struct {
	Range     Range
	Ambiguous []Match
	Found     bool
}

func found(r Range) Result { return Result{Range: r, Found: true} }

func ambiguous(m []Match) Result { return Result{Ambiguous: m} }

var miss = Result{}

// Locate resolves t against tree, implementing the five locator modes
// of spec.md §4.1.
func Locate(tree *hl.Tree, t Target) (Result, error) {
	switch {
	case t.Class == "" && !t.IsAssignment:
		return locateTopLevelFunction(tree, t.Name)
	case t.WholeClass():
		return locateWholeClass(tree, t.Class)
	case t.Class != "" && !t.IsAssignment:
		return locateMethod(tree, t.Class, t.Name)
	case t.Class == "" && t.IsAssignment:
		return locateAssignment(tree.TopLevel, t.Name)
	default: // t.Class != "" && t.IsAssignment
		return locateClassAssignment(tree, t.Class, t.Name)
	}
}

func locateTopLevelFunction(tree *hl.Tree, name string) (Result, error) {
	return locateInList(tree.TopLevel, func(n hl.Node) bool {
		return n.Kind == hl.KindFunctionDef && n.Name == name
	})
}

func locateWholeClass(tree *hl.Tree, class string) (Result, error) {
	return locateInList(tree.TopLevel, func(n hl.Node) bool {
		return n.Kind == hl.KindClassDef && n.Name == class
	})
}

func locateAssignment(nodes []hl.Node, name string) (Result, error) {
	return locateInList(nodes, func(n hl.Node) bool {
		return (n.Kind == hl.KindAssignment || n.Kind == hl.KindAnnotatedAssignment) && n.Name == name
	})
}

func locateMethod(tree *hl.Tree, class, name string) (Result, error) {
	classNode, res, err := findUniqueClass(tree, class)
	if err != nil {
		return Result{}, err
	}
	if classNode == nil {
		return res, nil // miss or ambiguous class itself
	}
	return locateInList(classNode.Body, func(n hl.Node) bool {
		return n.Kind == hl.KindFunctionDef && n.Name == name
	})
}

func locateClassAssignment(tree *hl.Tree, class, name string) (Result, error) {
	classNode, res, err := findUniqueClass(tree, class)
	if err != nil {
		return Result{}, err
	}
	if classNode == nil {
		return res, nil
	}
	return locateAssignment(classNode.Body, name)
}

// findUniqueClass returns the single top-level class named class, or
// (nil, miss/ambiguous result, nil) if it cannot be uniquely resolved.
func findUniqueClass(tree *hl.Tree, class string) (*hl.Node, Result, error) {
	var matches []*hl.Node
	for i := range tree.TopLevel {
		n := &tree.TopLevel[i]
		if n.Kind == hl.KindClassDef && n.Name == class {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return nil, miss, nil
	case 1:
		return matches[0], Result{}, nil
	default:
		var ms []Match
		for _, m := range matches {
			ms = append(ms, Match{Name: m.Name, StartLine: startLine(*m), EndLine: m.EndLine})
		}
		return nil, ambiguous(ms), nil
	}
}

// locateInList finds the unique node in nodes matching pred and
// computes its safe range (start line folds in decorators, end line is
// capped by the next sibling at the same level, per spec.md §4.1).
func locateInList(nodes []hl.Node, pred func(hl.Node) bool) (Result, error) {
	var idx []int
	for i, n := range nodes {
		if pred(n) {
			idx = append(idx, i)
		}
	}
	switch len(idx) {
	case 0:
		return miss, nil
	case 1:
		n := nodes[idx[0]]
		end := n.EndLine
		if idx[0]+1 < len(nodes) {
			end = nodes[idx[0]+1].StartLine - 1
		}
		if n.EndLine == 0 {
			return Result{}, &hl.ErrNoEndLine{Name: n.Name}
		}
		return found(Range{Start: startLine(n), End: end}), nil
	default:
		var ms []Match
		for _, i := range idx {
			ms = append(ms, Match{Name: nodes[i].Name, StartLine: startLine(nodes[i]), EndLine: nodes[i].EndLine})
		}
		return ambiguous(ms), nil
	}
}

// startLine folds decorator lines into a node's start, per spec.md
// §4.1: "start = min(node's own line, decorator lines)".
func startLine(n hl.Node) int {
	start := n.StartLine
	for _, d := range n.Decorators {
		if d.StartLine < start {
			start = d.StartLine
		}
	}
	return start
}

// ErrAmbiguous is a convenience error some callers may want; the
// applier instead inspects Result.Ambiguous directly, since ambiguity
// is a soft outcome (FAILED_AMBIGUOUS), not a Go error.
type ErrAmbiguous struct {
	Matches []Match
}

func (e *ErrAmbiguous) Error() string {
	return fmt.Sprintf("ambiguous target: %d matches", len(e.Matches))
}
