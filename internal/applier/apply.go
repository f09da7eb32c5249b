package applier

import (
	"fmt"
	"strings"

	"astpatch.dev/astpatch/internal/bundleparser"
	"astpatch.dev/astpatch/internal/editbuf"
	"astpatch.dev/astpatch/internal/hl"
	"astpatch.dev/astpatch/internal/indent"
	"astpatch.dev/astpatch/internal/locator"
)

// Apply executes one operation against src, using tree (already parsed
// from src) to locate op's target. It returns the edited buffer and a
// Result; it never returns a Go error except hl.ErrNoEndLine, which is
// the one case spec.md §4.1 calls a fatal, whole-run-aborting condition
// rather than a per-operation status. Every other failure mode —
// including a panic during edit construction — is captured as a
// Result.Status, per spec.md §7's "exceptions never propagate past the
// per-op boundary" policy. contextLines bounds how many source lines an
// anchor-mismatch message quotes (config.Config.DefaultContextLines).
func Apply(tree *hl.Tree, src []byte, target locator.Target, op bundleparser.Operation, contextLines int) (newSrc []byte, res Result, err error) {
	res = Result{Kind: op.Kind, Target: op.Target}
	newSrc = src

	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: op.Kind, Target: op.Target, Status: StatusFailedParse,
				Message: fmt.Sprintf("panic during apply: %T: %v", r, r)}
			newSrc = src
		}
	}()

	loc, lerr := locator.Locate(tree, target)
	if lerr != nil {
		return src, Result{}, lerr
	}
	if len(loc.Ambiguous) > 0 {
		res.Status = StatusFailedAmbiguous
		res.Message = ambiguousMessage(loc.Ambiguous)
		return src, res, nil
	}
	if !loc.Found {
		res.Status = StatusFailedNotFound
		res.Message = fmt.Sprintf("target %q not found", op.Target)
		return src, res, nil
	}
	res.Range = loc.Range

	if requiresBody(op.Kind) && target.IsAssignment {
		res.Status = StatusFailedParse
		res.Message = "operation requires a function, method, or class target, not an assignment"
		return src, res, nil
	}

	li := NewLineIndex(src)
	res.HashBefore = hashRegion(li, src, loc.Range)

	switch op.Kind {
	case bundleparser.KindReplace:
		return applyReplace(li, src, op, res)
	case bundleparser.KindInsertAfter:
		return applyInsertAfter(li, src, op, res)
	case bundleparser.KindInsertBefore:
		return applyInsertBefore(li, src, op, res)
	case bundleparser.KindAppendInto:
		return applyAppendInto(li, src, op, res)
	case bundleparser.KindPrependInto:
		return applyPrependInto(li, src, op, res)
	case bundleparser.KindInsertInto:
		return applyInsertInto(li, src, op, res, contextLines)
	case bundleparser.KindReplaceLine:
		return applyReplaceLine(li, src, op, res, contextLines)
	case bundleparser.KindReplaceLines:
		return applyReplaceLines(li, src, op, res, contextLines)
	case bundleparser.KindReplaceExpr:
		return applyReplaceExpr(li, src, op, res, contextLines)
	default:
		res.Status = StatusFailedParse
		res.Message = fmt.Sprintf("%v cannot be applied through Apply; use ListTargets", op.Kind)
		return src, res, nil
	}
}

// requiresBody reports whether op.Kind can only target a function,
// method, or class (never a bare assignment), per spec.md §4.2's table.
func requiresBody(k bundleparser.Kind) bool {
	switch k {
	case bundleparser.KindAppendInto, bundleparser.KindPrependInto, bundleparser.KindInsertInto,
		bundleparser.KindReplaceLine, bundleparser.KindReplaceLines, bundleparser.KindReplaceExpr:
		return true
	default:
		return false
	}
}

func hashRegion(li LineIndex, src []byte, r locator.Range) string {
	start, end := li.RangeWithTrailingNewline(r.Start, r.End)
	return sha256Hex(src[start:end])
}

func ambiguousMessage(matches []locator.Match) string {
	var parts []string
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%s (lines %d-%d)", m.Name, m.StartLine, m.EndLine))
	}
	return "ambiguous target, " + fmt.Sprint(len(matches)) + " matches: " + strings.Join(parts, ", ")
}

func applyReplace(li LineIndex, src []byte, op bundleparser.Operation, res Result) ([]byte, Result, error) {
	indentPrefix := indent.Leading(li.LineText(src, res.Range.Start))
	block := indent.Reindent(op.Code, indentPrefix)

	buf := editbuf.NewBuffer(src)
	start, end := li.RangeWithTrailingNewline(res.Range.Start, res.Range.End)
	buf.Replace(start, end, block)
	newSrc, berr := buf.Bytes()
	if berr != nil {
		res.Status = StatusFailedParse
		res.Message = berr.Error()
		return src, res, nil
	}

	if sha256Hex(newSrc) == sha256Hex(src) {
		res.Status = StatusSkippedAlreadyApplied
		res.Message = "whole-file hash unchanged"
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

func applyInsertAfter(li LineIndex, src []byte, op bundleparser.Operation, res Result) ([]byte, Result, error) {
	if skip, msg := insertIdempotent(src, op.Sig, op.MatchMode == bundleparser.MatchFuzzy); skip {
		res.Status = StatusSkippedAlreadyPresent
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	indentPrefix := indent.Leading(li.LineText(src, res.Range.Start))
	block := indent.Reindent(op.Code, indentPrefix)
	block = withSeparators(block, li.isBlankLine(src, res.Range.End), !li.isBlankLine(src, res.Range.End+1))

	buf := editbuf.NewBuffer(src)
	buf.Insert(li.InsertAfterOffset(res.Range.End), block)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

func applyInsertBefore(li LineIndex, src []byte, op bundleparser.Operation, res Result) ([]byte, Result, error) {
	if skip, msg := insertIdempotent(src, op.Sig, op.MatchMode == bundleparser.MatchFuzzy); skip {
		res.Status = StatusSkippedAlreadyPresent
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	indentPrefix := indent.Leading(li.LineText(src, res.Range.Start))
	block := indent.Reindent(op.Code, indentPrefix)
	block = withSeparators(block, li.isBlankLine(src, res.Range.Start-1), !li.isBlankLine(src, res.Range.Start))

	buf := editbuf.NewBuffer(src)
	buf.Insert(li.LineStart(res.Range.Start), block)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

// withSeparators adds a leading/trailing blank line to an already
// reindented, newline-terminated block when the content on that side is
// non-blank, per spec.md §4.2's INSERT_AFTER/INSERT_BEFORE note.
func withSeparators(block string, precedingIsBlank, needTrailingBlank bool) string {
	if !precedingIsBlank {
		block = "\n" + block
	}
	if needTrailingBlank {
		block += "\n"
	}
	return block
}

func applyAppendInto(li LineIndex, src []byte, op bundleparser.Operation, res Result) ([]byte, Result, error) {
	if skip, msg := insertIdempotent(src, op.Sig, op.MatchMode == bundleparser.MatchFuzzy); skip {
		res.Status = StatusSkippedAlreadyPresent
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	lastContent := res.Range.End
	for lastContent > res.Range.Start && li.isBlankLine(src, lastContent) {
		lastContent--
	}

	indentPrefix := indent.Leading(li.LineText(src, lastContent))
	block := indent.Reindent(op.Code, indentPrefix)

	buf := editbuf.NewBuffer(src)
	buf.Insert(li.InsertAfterOffset(lastContent), block)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

func applyPrependInto(li LineIndex, src []byte, op bundleparser.Operation, res Result) ([]byte, Result, error) {
	if skip, msg := insertIdempotent(src, op.Sig, op.MatchMode == bundleparser.MatchFuzzy); skip {
		res.Status = StatusSkippedAlreadyPresent
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	headerIndent := indent.Leading(li.LineText(src, res.Range.Start))
	block := indent.Reindent(op.Code, indent.Child(headerIndent))

	buf := editbuf.NewBuffer(src)
	buf.Insert(li.InsertAfterOffset(res.Range.Start), block)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

func applyInsertInto(li LineIndex, src []byte, op bundleparser.Operation, res Result, contextLines int) ([]byte, Result, error) {
	if skip, msg := insertIdempotent(src, op.Sig, op.MatchMode == bundleparser.MatchFuzzy); skip {
		res.Status = StatusSkippedAlreadyPresent
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	anchorLine, status, msg := resolveAnchor(li, src, res.Range.Start, res.Range.End, op.Anchor, op.MatchMode, op.Expect, op.Occurrence, contextLines)
	if status != StatusApplied {
		res.Status = status
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	anchorText := li.LineText(src, anchorLine)
	indentPrefix, ferr := insertIntoIndent(li, src, anchorLine, res.Range.End, anchorText, op.IndentMode)
	if ferr != "" {
		res.Status = StatusFailedParse
		res.Message = ferr
		return src, res, nil
	}
	block := indent.Reindent(op.Code, indentPrefix)

	var offset int
	if op.Position == bundleparser.PositionBefore {
		offset = li.LineStart(anchorLine)
	} else {
		offset = li.InsertAfterOffset(anchorLine)
	}

	buf := editbuf.NewBuffer(src)
	buf.Insert(offset, block)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

// insertIntoIndent implements spec.md §4.2's INSERT_INTO indent rules.
func insertIntoIndent(li LineIndex, src []byte, anchorLine, blockEnd int, anchorText string, mode bundleparser.IndentMode) (string, string) {
	anchorIndent := indent.Leading(anchorText)
	endsColon := strings.HasSuffix(strings.TrimRight(anchorText, " \t"), ":")

	switch mode {
	case bundleparser.IndentSame:
		return anchorIndent, ""
	case bundleparser.IndentChild:
		if !endsColon && !hasDeeperIndentAfter(li, src, anchorLine, blockEnd, anchorIndent) {
			return "", fmt.Sprintf("cannot infer child indent: anchor line %q does not open a block", strings.TrimSpace(anchorText))
		}
		return indent.Child(anchorIndent), ""
	default: // IndentAuto
		if endsColon {
			return indent.Child(anchorIndent), ""
		}
		return anchorIndent, ""
	}
}

func hasDeeperIndentAfter(li LineIndex, src []byte, anchorLine, blockEnd int, anchorIndent string) bool {
	for n := anchorLine + 1; n <= blockEnd; n++ {
		t := li.LineText(src, n)
		if strings.TrimSpace(t) == "" {
			continue
		}
		if len(indent.Leading(t)) > len(anchorIndent) {
			return true
		}
	}
	return false
}

func applyReplaceLine(li LineIndex, src []byte, op bundleparser.Operation, res Result, contextLines int) ([]byte, Result, error) {
	anchorLine, status, msg := resolveAnchor(li, src, res.Range.Start, res.Range.End, op.Anchor, op.MatchMode, op.Expect, op.Occurrence, contextLines)
	if status != StatusApplied {
		res.Status = status
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	oldLine := li.LineText(src, anchorLine)
	newLine := indent.Leading(oldLine) + strings.TrimSpace(op.Sig)

	if newLine == oldLine {
		res.Status = StatusSkippedAlreadyApplied
		res.Message = "line unchanged"
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	buf := editbuf.NewBuffer(src)
	buf.Replace(li.LineStart(anchorLine), li.ContentEnd(src, anchorLine), newLine)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

func applyReplaceLines(li LineIndex, src []byte, op bundleparser.Operation, res Result, contextLines int) ([]byte, Result, error) {
	startLine, sStatus, sMsg := resolveAnchor(li, src, res.Range.Start, res.Range.End, op.AnchorStart, op.MatchMode, 1, 1, contextLines)
	if sStatus != StatusApplied {
		res.Status = sStatus
		res.Message = "ANCHOR_START: " + sMsg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}
	endLine, eStatus, eMsg := resolveAnchor(li, src, res.Range.Start, res.Range.End, op.AnchorEnd, op.MatchMode, 1, 1, contextLines)
	if eStatus != StatusApplied {
		res.Status = eStatus
		res.Message = "ANCHOR_END: " + eMsg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}
	if endLine < startLine {
		res.Status = StatusFailedParse
		res.Message = fmt.Sprintf("ANCHOR_END (line %d) precedes ANCHOR_START (line %d)", endLine, startLine)
		return src, res, nil
	}

	indentPrefix := indent.Leading(li.LineText(src, startLine))
	block := indent.Reindent(op.Code, indentPrefix)

	buf := editbuf.NewBuffer(src)
	rStart, rEnd := li.RangeWithTrailingNewline(startLine, endLine)
	buf.Replace(rStart, rEnd, block)
	newSrc, berr := buf.Bytes()
	if berr != nil {
		res.Status = StatusFailedParse
		res.Message = berr.Error()
		return src, res, nil
	}

	if sha256Hex(newSrc) == sha256Hex(src) {
		res.Status = StatusSkippedAlreadyApplied
		res.Message = "whole-file hash unchanged"
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}

func applyReplaceExpr(li LineIndex, src []byte, op bundleparser.Operation, res Result, contextLines int) ([]byte, Result, error) {
	anchorLine, status, msg := resolveAnchor(li, src, res.Range.Start, res.Range.End, op.Anchor, op.MatchMode, op.Expect, op.Occurrence, contextLines)
	if status != StatusApplied {
		res.Status = status
		res.Message = msg
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	oldLine := li.LineText(src, anchorLine)
	idx := strings.Index(oldLine, op.OldExpr)
	if idx < 0 {
		res.Status = StatusFailedParse
		res.Message = fmt.Sprintf("OLD %q not found in anchored line", op.OldExpr)
		return src, res, nil
	}
	newLine := oldLine[:idx] + op.NewExpr + oldLine[idx+len(op.OldExpr):]

	if newLine == oldLine {
		res.Status = StatusSkippedAlreadyApplied
		res.Message = "line unchanged"
		res.HashAfter = sha256Hex(src)
		return src, res, nil
	}

	buf := editbuf.NewBuffer(src)
	buf.Replace(li.LineStart(anchorLine), li.ContentEnd(src, anchorLine), newLine)
	newSrc, _ := buf.Bytes()

	res.Status = StatusApplied
	res.HashAfter = sha256Hex(newSrc)
	return newSrc, res, nil
}
