package hl

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// TreeSitterFront is the one Front astpatch ships: a tree-sitter-python
// grammar adapter. It is deliberately thin — the grammar does the hard
// work, this file just flattens its CST into the handful of node shapes
// the locator (internal/locator) actually looks at: top-level function
// defs, top-level class defs and their direct body, and simple or
// annotated assignments, each carrying any immediately preceding
// decorators. Grounded on the node-walking style of other_examples'
// termfx-morfx manipulator.go (StartPoint().Row / EndPoint().Row as
// 0-based rows, +1 for 1-based line numbers).
//
// Every top-level statement and every class-body statement is kept,
// even ones the locator can never target (KindOther) — the locator's
// end-line safety rule (spec.md §4.1) needs the real next sibling,
// recognized or not, to avoid swallowing unrelated code.
type TreeSitterFront struct{}

// NewPythonFront returns the shipped HL front-end.
func NewPythonFront() *TreeSitterFront {
	return &TreeSitterFront{}
}

func (f *TreeSitterFront) Parse(src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	out := &Tree{HasError: root.HasError()}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		out.TopLevel = append(out.TopLevel, nodeFromStatement(root.NamedChild(i), src))
	}
	return out, nil
}

// nodeFromStatement converts one CST node into a hl.Node. It always
// succeeds: statements the locator doesn't recognize come back as
// KindOther with correct line bounds, so sibling-based end-line
// computation stays accurate even across code the locator never names.
func nodeFromStatement(n *sitter.Node, src []byte) Node {
	switch n.Type() {
	case "decorated_definition":
		var decorators []Node
		var def *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "decorator" {
				decorators = append(decorators, Node{
					Kind:      KindDecorator,
					StartLine: line(c.StartPoint()),
					EndLine:   line(c.EndPoint()),
				})
				continue
			}
			def = c
		}
		if def == nil {
			return otherNode(n)
		}
		inner := nodeFromStatement(def, src)
		inner.Decorators = decorators
		return inner

	case "function_definition":
		name := ""
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = text(nameNode, src)
		}
		return Node{
			Kind:      KindFunctionDef,
			Name:      name,
			StartLine: line(n.StartPoint()),
			EndLine:   line(n.EndPoint()),
		}

	case "class_definition":
		name := ""
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = text(nameNode, src)
		}
		node := Node{
			Kind:      KindClassDef,
			Name:      name,
			StartLine: line(n.StartPoint()),
			EndLine:   line(n.EndPoint()),
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				node.Body = append(node.Body, nodeFromStatement(body.NamedChild(i), src))
			}
		}
		return node

	case "expression_statement":
		if n.NamedChildCount() == 1 {
			child := n.NamedChild(0)
			if child.Type() == "assignment" {
				if node, ok := assignmentNode(child, src); ok {
					return node
				}
			}
		}
		return otherNode(n)

	default:
		return otherNode(n)
	}
}

func assignmentNode(n *sitter.Node, src []byte) (Node, bool) {
	left := n.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return Node{}, false
	}
	kind := KindAssignment
	if n.ChildByFieldName("type") != nil {
		kind = KindAnnotatedAssignment
	}
	return Node{
		Kind:      kind,
		Name:      text(left, src),
		StartLine: line(n.StartPoint()),
		EndLine:   line(n.EndPoint()),
	}, true
}

func otherNode(n *sitter.Node) Node {
	return Node{
		Kind:      KindOther,
		StartLine: line(n.StartPoint()),
		EndLine:   line(n.EndPoint()),
	}
}

func text(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

// line converts a tree-sitter 0-based row into astpatch's 1-based line.
func line(p sitter.Point) int {
	return int(p.Row) + 1
}
