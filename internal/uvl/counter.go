package uvl

import (
	"fmt"
	"io"
	"strings"
)

// DefaultKeywords are the group keywords that never count as features.
var DefaultKeywords = []string{"mandatory", "optional", "or", "alternative"}

// Counter counts the features declared in the features block of a UVL text.
type Counter struct {
	keywords map[string]struct{}
}

// NewCounter returns a Counter that skips DefaultKeywords plus extra.
func NewCounter(extra ...string) *Counter {
	keywords := make(map[string]struct{}, len(DefaultKeywords)+len(extra))
	for _, k := range DefaultKeywords {
		keywords[k] = struct{}{}
	}
	for _, k := range extra {
		keywords[k] = struct{}{}
	}
	return &Counter{keywords: keywords}
}

// Count scans r for a line reading exactly "features" and counts every more
// indented non-keyword line that follows it, up to the end of that block.
func (c *Counter) Count(r io.Reader) (int, error) {
	lines, err := readLines(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read features: %w", err)
	}

	start := -1
	for i, l := range lines {
		if l.text == "features" {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, nil
	}

	blockIndent := lines[start].indent
	count := 0
	for _, l := range lines[start+1:] {
		if l.indent <= blockIndent {
			break
		}
		if _, ok := c.keywords[l.text]; ok {
			continue
		}
		count++
	}
	return count, nil
}

// CountFeatures counts features in text with the default keyword set.
func CountFeatures(text string) int {
	n, _ := NewCounter().Count(strings.NewReader(text))
	return n
}
