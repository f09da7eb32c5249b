// Package hl defines the host-language front-end contract the patch
// engine depends on. The engine never parses HL source itself; it asks
// a Front for a Tree and walks the Tree's Nodes. spec.md §1 treats the
// front-end as an external collaborator ("a stable HL front-end that
// exposes a syntax tree with start and end line numbers for every
// top-level statement, class body statement, decorator, and assignment
// target"); this package is that boundary, and internal/hl/treesitter.go
// is the one concrete implementation astpatch ships.
package hl

import "fmt"

// Kind classifies a syntax node the locator cares about. Front-ends
// that cannot distinguish a kind below their resolution (e.g. they see
// "statement" but not "function definition") must still report one of
// these; ErrNoEndLine is the escape hatch for front-ends that cannot
// provide end lines at all.
type Kind int

const (
	KindOther Kind = iota
	KindFunctionDef
	KindClassDef
	KindAssignment
	KindAnnotatedAssignment
	KindDecorator
)

func (k Kind) String() string {
	switch k {
	case KindFunctionDef:
		return "function_def"
	case KindClassDef:
		return "class_def"
	case KindAssignment:
		return "assignment"
	case KindAnnotatedAssignment:
		return "annotated_assignment"
	case KindDecorator:
		return "decorator"
	default:
		return "other"
	}
}

// Node is one statement-level syntax node with 1-based inclusive line
// bounds. Name is empty for nodes that don't bind a name (decorators).
type Node struct {
	Kind       Kind
	Name       string // function/class name, or assignment target name
	StartLine  int    // 1-based, inclusive; decorator lines are NOT folded in here
	EndLine    int    // 1-based, inclusive
	Decorators []Node // decorators immediately preceding this node, in source order
	Body       []Node // direct-child statements, populated for KindClassDef
}

// Tree is a parsed HL source file's top-level shape: its top-level
// statements, in source order. The locator only ever looks at top-level
// statements and, for classes, their direct body — it never recurses
// into nested scopes, matching spec.md §4.1's five locator modes.
type Tree struct {
	TopLevel []Node
	// HasError reports whether the front-end's parser encountered any
	// syntax error anywhere in the file. The run manager's compile
	// verification step (spec.md §4.4) uses this as its fallback check
	// when no external compiler is available (see internal/compilecheck).
	HasError bool
}

// Front parses HL source into a Tree.
type Front interface {
	Parse(src []byte) (*Tree, error)
}

// ErrNoEndLine is returned by a Front, or synthesized by the locator,
// when a located node has no reliable end line. spec.md §4.1: "if
// absent for any located node, the locator raises a fatal error (the
// orchestrator refuses to run)."
type ErrNoEndLine struct {
	Name string
}

func (e *ErrNoEndLine) Error() string {
	return fmt.Sprintf("hl: no reliable end line for %q", e.Name)
}
