package applier

import "astpatch.dev/astpatch/internal/hl"

// ListTargets implements the LIST_TARGETS meta-op: every resolvable
// target name in tree, in the same symbol grammar internal/locator
// parses (spec.md §4.2's row for LIST_TARGETS and §3's Target grammar).
func ListTargets(tree *hl.Tree) []string {
	var out []string
	for _, n := range tree.TopLevel {
		switch n.Kind {
		case hl.KindFunctionDef:
			out = append(out, n.Name)
		case hl.KindClassDef:
			out = append(out, n.Name+".*")
			for _, m := range n.Body {
				switch m.Kind {
				case hl.KindFunctionDef:
					out = append(out, n.Name+"."+m.Name)
				case hl.KindAssignment, hl.KindAnnotatedAssignment:
					out = append(out, n.Name+".@"+m.Name)
				}
			}
		case hl.KindAssignment, hl.KindAnnotatedAssignment:
			out = append(out, "@"+n.Name)
		}
	}
	return out
}
