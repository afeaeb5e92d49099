package uvl

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

const maxLineSize = 1024 * 1024

// sourceLine is one nonblank input line with its leading whitespace width.
type sourceLine struct {
	number int
	indent int
	text   string
}

// entry is a line placed in the indentation tree.
type entry struct {
	sourceLine
	children []*entry
}

// readLines returns every nonblank line of r, trimmed, with its indentation
// width measured in bytes of leading whitespace.
func readLines(r io.Reader) ([]sourceLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []sourceLine
	number := 0
	for scanner.Scan() {
		number++
		raw := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
		text := strings.TrimRightFunc(trimmed, unicode.IsSpace)
		if text == "" {
			continue
		}
		lines = append(lines, sourceLine{
			number: number,
			indent: len(raw) - len(trimmed),
			text:   text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// buildTree nests lines by relative indentation. Any width strictly greater
// than the enclosing scope opens a child scope; there is no fixed unit.
func buildTree(lines []sourceLine) []*entry {
	root := &entry{sourceLine: sourceLine{indent: -1}}
	stack := []*entry{root}

	for _, l := range lines {
		for len(stack) > 1 && stack[len(stack)-1].indent >= l.indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		e := &entry{sourceLine: l}
		parent.children = append(parent.children, e)
		stack = append(stack, e)
	}

	return root.children
}

// flatten joins an entry's text with that of all its descendants.
func (e *entry) flatten() string {
	parts := []string{e.text}
	for _, c := range e.children {
		parts = append(parts, c.flatten())
	}
	return strings.Join(parts, " ")
}
