package uvl

import "fmt"

// GroupType is the decomposition kind of a feature group.
type GroupType int

const (
	GroupMandatory GroupType = iota
	GroupOptional
	GroupOr
	GroupAlternative
	GroupCardinality
)

func (g GroupType) String() string {
	switch g {
	case GroupMandatory:
		return "mandatory"
	case GroupOptional:
		return "optional"
	case GroupOr:
		return "or"
	case GroupAlternative:
		return "alternative"
	default:
		return "cardinality"
	}
}

// Unbounded marks a cardinality group without an upper bound.
const Unbounded = -1

// Group is a set of child features sharing one decomposition.
type Group struct {
	Type     GroupType
	Min      int
	Max      int
	Features []*Feature
}

// Bounds reports how many children of the group may be selected together.
func (g *Group) Bounds() (int, int) {
	n := len(g.Features)
	switch g.Type {
	case GroupMandatory:
		return n, n
	case GroupOptional:
		return 0, n
	case GroupOr:
		return 1, n
	case GroupAlternative:
		return 1, 1
	}
	max := g.Max
	if max == Unbounded || max > n {
		max = n
	}
	return g.Min, max
}

func (g *Group) String() string {
	if g.Type != GroupCardinality {
		return g.Type.String()
	}
	if g.Max == Unbounded {
		return fmt.Sprintf("[%d..*]", g.Min)
	}
	if g.Min == g.Max {
		return fmt.Sprintf("[%d]", g.Min)
	}
	return fmt.Sprintf("[%d..%d]", g.Min, g.Max)
}

// Feature is a node of the feature tree.
type Feature struct {
	Name     string
	Abstract bool
	Groups   []*Group

	parent *Feature
	group  *Group
}

func (f *Feature) Parent() *Feature {
	return f.parent
}

// Group returns the group f belongs to, nil for the root.
func (f *Feature) Group() *Group {
	return f.group
}

// Mandatory reports whether f must be selected whenever its parent is.
func (f *Feature) Mandatory() bool {
	return f.group != nil && f.group.Type == GroupMandatory
}

func (f *Feature) addGroup(g *Group) {
	for _, child := range g.Features {
		child.parent = f
		child.group = g
	}
	f.Groups = append(f.Groups, g)
}

// Model is a parsed feature model.
type Model struct {
	Namespace   string
	Root        *Feature
	Constraints []*Expr
}

// Name is the namespace if declared, otherwise the root feature name.
func (m *Model) Name() string {
	if m.Namespace != "" {
		return m.Namespace
	}
	return m.Root.Name
}

// Features lists every feature in depth-first pre-order.
func (m *Model) Features() []*Feature {
	var out []*Feature
	var walk func(f *Feature)
	walk = func(f *Feature) {
		out = append(out, f)
		for _, g := range f.Groups {
			for _, child := range g.Features {
				walk(child)
			}
		}
	}
	if m.Root != nil {
		walk(m.Root)
	}
	return out
}
