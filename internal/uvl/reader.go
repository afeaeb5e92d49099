package uvl

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoFeatures is returned when a model has no features block.
var ErrNoFeatures = errors.New("model has no features block")

// SyntaxError locates a parse failure in the source text.
type SyntaxError struct {
	Line int
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

var (
	cardinalityPattern = regexp.MustCompile(`^\[\s*(\d+)\s*(?:\.\.\s*(\d+|\*)\s*)?\]$`)
	featureTypes       = map[string]bool{"Boolean": true, "Integer": true, "Real": true, "String": true}
)

// ParseModel parses UVL text into a feature model.
func ParseModel(text string) (*Model, error) {
	return ReadModel(strings.NewReader(text))
}

// ReadModel parses the boolean subset of UVL: namespace, one features tree
// with mandatory, optional, or, alternative and cardinality groups, and a
// constraints block. Imports and includes are skipped.
func ReadModel(r io.Reader) (*Model, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	model := &Model{}
	seen := map[string]bool{}
	for _, top := range buildTree(stripComments(lines)) {
		keyword, rest, _ := strings.Cut(top.text, " ")
		switch keyword {
		case "namespace":
			model.Namespace = strings.Trim(strings.TrimSpace(rest), `"`)
		case "imports", "include":
		case "features":
			if model.Root != nil {
				return nil, &SyntaxError{Line: top.number, Msg: "duplicate features block"}
			}
			if len(top.children) != 1 {
				return nil, &SyntaxError{Line: top.number, Msg: "features block must declare exactly one root feature"}
			}
			root, err := parseFeature(top.children[0], seen)
			if err != nil {
				return nil, err
			}
			model.Root = root
		case "constraints":
			for _, c := range top.children {
				expr, err := ParseExpr(c.flatten())
				if err != nil {
					return nil, &SyntaxError{Line: c.number, Msg: "invalid constraint", Err: err}
				}
				model.Constraints = append(model.Constraints, expr)
			}
		default:
			return nil, &SyntaxError{Line: top.number, Msg: fmt.Sprintf("unexpected top-level entry %q", top.text)}
		}
	}

	if model.Root == nil {
		return nil, ErrNoFeatures
	}

	for _, c := range model.Constraints {
		for _, name := range c.Features() {
			if !seen[name] {
				return nil, fmt.Errorf("constraint %s references unknown feature %q", c, name)
			}
		}
	}

	return model, nil
}

// stripComments drops // comments outside quoted names.
func stripComments(lines []sourceLine) []sourceLine {
	out := lines[:0:0]
	for _, l := range lines {
		inQuotes := false
		cut := -1
		for i := 0; i < len(l.text); i++ {
			switch {
			case l.text[i] == '"':
				inQuotes = !inQuotes
			case !inQuotes && strings.HasPrefix(l.text[i:], "//"):
				cut = i
			}
			if cut >= 0 {
				break
			}
		}
		if cut >= 0 {
			l.text = strings.TrimSpace(l.text[:cut])
		}
		if l.text != "" {
			out = append(out, l)
		}
	}
	return out
}

func parseFeature(e *entry, seen map[string]bool) (*Feature, error) {
	name, abstract, openAttrs, err := parseFeatureHeader(e.text)
	if err != nil {
		return nil, &SyntaxError{Line: e.number, Msg: err.Error()}
	}
	if seen[name] {
		return nil, &SyntaxError{Line: e.number, Msg: fmt.Sprintf("duplicate feature %q", name)}
	}
	seen[name] = true

	feature := &Feature{Name: name, Abstract: abstract}
	children := e.children

	// attribute lists may continue on deeper lines until the closing brace
	for openAttrs && len(children) > 0 {
		line := children[0].flatten()
		if strings.Contains(line, "abstract") {
			feature.Abstract = true
		}
		children = children[1:]
		if strings.Contains(line, "}") {
			openAttrs = false
		}
	}

	for _, child := range children {
		group, err := parseGroupHeader(child.text)
		if err != nil {
			return nil, &SyntaxError{Line: child.number, Msg: err.Error()}
		}
		for _, member := range child.children {
			f, err := parseFeature(member, seen)
			if err != nil {
				return nil, err
			}
			group.Features = append(group.Features, f)
		}
		if len(group.Features) == 0 {
			return nil, &SyntaxError{Line: child.number, Msg: fmt.Sprintf("empty %s group", group)}
		}
		feature.addGroup(group)
	}

	return feature, nil
}

// parseFeatureHeader extracts the feature name and abstract flag from a line
// such as `"Data Storage" {abstract}` or `Integer Price cardinality [0..1]`.
func parseFeatureHeader(text string) (name string, abstract bool, openAttrs bool, err error) {
	head := text
	if idx := indexOutsideQuotes(text, '{'); idx >= 0 {
		attrs := text[idx:]
		head = strings.TrimSpace(text[:idx])
		abstract = strings.Contains(attrs, "abstract")
		openAttrs = !strings.Contains(attrs, "}")
	}
	if before, _, found := strings.Cut(head, " cardinality "); found {
		head = strings.TrimSpace(before)
	}

	if strings.HasPrefix(head, `"`) || strings.Contains(head, ` "`) {
		start := strings.Index(head, `"`)
		end := strings.LastIndex(head, `"`)
		if end <= start {
			return "", false, false, fmt.Errorf("unterminated quoted feature name %q", text)
		}
		name = head[start+1 : end]
	} else {
		fields := strings.Fields(head)
		switch {
		case len(fields) == 1:
			name = fields[0]
		case len(fields) == 2 && featureTypes[fields[0]]:
			name = fields[1]
		default:
			return "", false, false, fmt.Errorf("invalid feature declaration %q", text)
		}
	}

	if name == "" {
		return "", false, false, fmt.Errorf("empty feature name in %q", text)
	}
	return name, abstract, openAttrs, nil
}

func parseGroupHeader(text string) (*Group, error) {
	switch text {
	case "mandatory":
		return &Group{Type: GroupMandatory}, nil
	case "optional":
		return &Group{Type: GroupOptional}, nil
	case "or":
		return &Group{Type: GroupOr}, nil
	case "alternative":
		return &Group{Type: GroupAlternative}, nil
	}

	m := cardinalityPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("expected group keyword, found %q", text)
	}
	min, _ := strconv.Atoi(m[1])
	max := min
	switch m[2] {
	case "":
	case "*":
		max = Unbounded
	default:
		max, _ = strconv.Atoi(m[2])
	}
	if max != Unbounded && max < min {
		return nil, fmt.Errorf("invalid group cardinality %q", text)
	}
	return &Group{Type: GroupCardinality, Min: min, Max: max}, nil
}

func indexOutsideQuotes(s string, b byte) int {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case b:
			if !inQuotes {
				return i
			}
		}
	}
	return -1
}
