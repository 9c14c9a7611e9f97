package conflict

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Wire delimiters (spec §6): a conflict hunk is delimited by a run of 7 "<"
// and 7 ">"; inside, term blocks alternate between a diff block "%%%%%%%"
// and a snapshot block "+++++++".
const (
	markerStart = "<<<<<<<"
	markerEnd   = ">>>>>>>"
	markerDiff  = "%%%%%%%"
	markerSnap  = "+++++++"
)

// Materialize renders a conflict as the wire marker format: the first add is
// emitted as a literal snapshot; each subsequent add is paired with the
// remove at the same index and emitted as a diff block (spec §6: "The
// first add is emitted as a snapshot; remaining adds paired with each
// remove are emitted as diffs."). len(adds) must be len(removes)+1.
func Materialize(removes, adds [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(markerStart)
	buf.WriteByte('\n')

	if len(adds) > 0 {
		buf.WriteString(markerSnap)
		buf.WriteByte('\n')
		buf.Write(ensureTrailingNewline(adds[0]))
	}

	for i := 1; i < len(adds); i++ {
		var base []byte
		if i-1 < len(removes) {
			base = removes[i-1]
		}
		buf.WriteString(markerDiff)
		buf.WriteByte('\n')
		buf.Write(unifiedLineDiff(base, adds[i]))
	}

	buf.WriteString(markerEnd)
	buf.WriteByte('\n')
	return buf.Bytes()
}

func ensureTrailingNewline(b []byte) []byte {
	if len(b) == 0 || b[len(b)-1] == '\n' {
		return b
	}
	out := make([]byte, len(b)+1)
	copy(out, b)
	out[len(b)] = '\n'
	return out
}

func unifiedLineDiff(base, add []byte) []byte {
	dmp := diffmatchpatch.New()
	baseChars, addChars, lineArray := dmp.DiffLinesToChars(string(base), string(add))
	diffs := dmp.DiffMain(baseChars, addChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var buf bytes.Buffer
	for _, d := range diffs {
		var prefix byte = ' '
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = '-'
		case diffmatchpatch.DiffInsert:
			prefix = '+'
		}
		for _, line := range splitLinesKeepEnds(d.Text) {
			buf.WriteByte(prefix)
			buf.WriteString(line)
		}
	}
	return buf.Bytes()
}

// splitLinesKeepEnds splits s into lines, each retaining its trailing "\n"
// (dropped only for a final, newline-less fragment).
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

type block struct {
	kind string
	body []byte
}

// Parse recovers the add contents of a materialized marker, validating it
// against the known remove contents (spec §6: "Parsing requires an exact
// match of adds.len() and removes.len(); malformed markers parse as
// unresolved."). The caller supplies removeContents since the marker text
// alone does not carry remove-side content for the snapshot term.
func Parse(content []byte, removeContents [][]byte) (adds [][]byte, ok bool) {
	if !bytes.HasPrefix(content, []byte(markerStart)) {
		return nil, false
	}
	endIdx := bytes.LastIndex(content, []byte(markerEnd))
	if endIdx < 0 {
		return nil, false
	}
	inner := content[len(markerStart):endIdx]
	inner = bytes.TrimPrefix(inner, []byte("\n"))

	blocks := splitBlocks(inner)
	if len(blocks) == 0 || blocks[0].kind != markerSnap {
		return nil, false
	}
	if len(blocks)-1 != len(removeContents) {
		return nil, false
	}

	adds = append(adds, blocks[0].body)
	for i, b := range blocks[1:] {
		if b.kind != markerDiff {
			return nil, false
		}
		recoveredBase, recoveredAdd := reconstructFromDiff(b.body)
		if !bytes.Equal(trimTrailingNewline(recoveredBase), trimTrailingNewline(removeContents[i])) {
			return nil, false
		}
		adds = append(adds, recoveredAdd)
	}
	return adds, true
}

func splitBlocks(inner []byte) []block {
	var blocks []block
	var cur *block
	for _, line := range splitLinesKeepEnds(string(inner)) {
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == markerDiff || trimmed == markerSnap {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = &block{kind: trimmed}
			continue
		}
		if cur == nil {
			return nil
		}
		cur.body = append(cur.body, line...)
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

func reconstructFromDiff(diffText []byte) (base, add []byte) {
	var b, a bytes.Buffer
	for _, line := range splitLinesKeepEnds(string(diffText)) {
		if line == "" {
			continue
		}
		prefix := line[0]
		rest := line[1:]
		switch prefix {
		case ' ':
			b.WriteString(rest)
			a.WriteString(rest)
		case '-':
			b.WriteString(rest)
		case '+':
			a.WriteString(rest)
		default:
			b.WriteString(line)
			a.WriteString(line)
		}
	}
	return b.Bytes(), a.Bytes()
}

func trimTrailingNewline(b []byte) []byte {
	return bytes.TrimRight(b, "\n")
}
