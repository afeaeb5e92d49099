package convert

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kerem-kaynak/uvlhub/internal/uvl"
)

type glencoeFeature struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
	Abstract bool   `json:"abstract,omitempty"`
}

type glencoeNode struct {
	ID       string         `json:"id"`
	Children []*glencoeNode `json:"children,omitempty"`
}

type glencoeTerm struct {
	Type     string `json:"type"`
	Operands []any  `json:"operands"`
}

type glencoeModel struct {
	ID          string                     `json:"id"`
	Features    map[string]*glencoeFeature `json:"features"`
	Tree        *glencoeNode               `json:"tree"`
	Constraints []*glencoeTerm             `json:"constraints"`
}

// WriteGLENCOE serializes m in the GLENCOE JSON format. GLENCOE features
// carry a single decomposition, so a feature mixing an or/alternative group
// with other groups gets an abstract intermediate feature per such group.
func WriteGLENCOE(m *uvl.Model) (string, error) {
	w := &glencoeWriter{
		features: map[string]*glencoeFeature{},
		taken:    map[string]bool{},
	}
	for _, f := range m.Features() {
		w.taken[f.Name] = true
	}

	tree, err := w.node(m.Root, false)
	if err != nil {
		return "", err
	}

	out := glencoeModel{
		ID:          "FM_" + m.Root.Name,
		Features:    w.features,
		Tree:        tree,
		Constraints: make([]*glencoeTerm, 0, len(m.Constraints)),
	}
	for _, c := range m.Constraints {
		out.Constraints = append(out.Constraints, glencoeConstraint(c))
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type glencoeWriter struct {
	features map[string]*glencoeFeature
	taken    map[string]bool
}

func (w *glencoeWriter) node(f *uvl.Feature, optional bool) (*glencoeNode, error) {
	feature := &glencoeFeature{ID: f.Name, Name: f.Name, Type: "FEATURE", Optional: optional, Abstract: f.Abstract}
	w.features[f.Name] = feature
	node := &glencoeNode{ID: f.Name}

	if len(f.Groups) == 1 {
		kind, err := glencoeGroupType(f, f.Groups[0])
		if err != nil {
			return nil, err
		}
		feature.Type = kind
		return node, w.appendMembers(node, f.Groups[0], kind)
	}

	for i, g := range f.Groups {
		kind, err := glencoeGroupType(f, g)
		if err != nil {
			return nil, err
		}
		if kind == "FEATURE" {
			if err := w.appendMembers(node, g, kind); err != nil {
				return nil, err
			}
			continue
		}

		name := w.intermediateName(f.Name, i+1)
		w.features[name] = &glencoeFeature{ID: name, Name: name, Type: kind, Abstract: true}
		intermediate := &glencoeNode{ID: name}
		if err := w.appendMembers(intermediate, g, kind); err != nil {
			return nil, err
		}
		node.Children = append(node.Children, intermediate)
	}
	return node, nil
}

func (w *glencoeWriter) appendMembers(node *glencoeNode, g *uvl.Group, kind string) error {
	for _, child := range g.Features {
		optional := kind == "FEATURE" && !child.Mandatory()
		childNode, err := w.node(child, optional)
		if err != nil {
			return err
		}
		node.Children = append(node.Children, childNode)
	}
	return nil
}

func (w *glencoeWriter) intermediateName(parent string, n int) string {
	name := parent + "_group_" + strconv.Itoa(n)
	for i := 2; w.taken[name]; i++ {
		name = parent + "_group_" + strconv.Itoa(n) + "_" + strconv.Itoa(i)
	}
	w.taken[name] = true
	return name
}

// glencoeGroupType maps a group onto FEATURE, OR or XOR.
func glencoeGroupType(f *uvl.Feature, g *uvl.Group) (string, error) {
	min, max := g.Bounds()
	n := len(g.Features)
	switch {
	case g.Type == uvl.GroupMandatory, g.Type == uvl.GroupOptional:
		return "FEATURE", nil
	case min == 1 && max == 1:
		return "XOR", nil
	case min == 1 && max == n:
		return "OR", nil
	case min == 0 && max == n:
		return "FEATURE", nil
	default:
		return "", fmt.Errorf("group %s under %q cannot be expressed in GLENCOE", g, f.Name)
	}
}

func glencoeConstraint(e *uvl.Expr) *glencoeTerm {
	switch e.Op {
	case uvl.OpFeature:
		return &glencoeTerm{Type: "FeatureTerm", Operands: []any{e.Feature}}
	case uvl.OpNot:
		return &glencoeTerm{Type: "NotTerm", Operands: []any{glencoeConstraint(e.Operands[0])}}
	}

	kind := map[uvl.Op]string{
		uvl.OpAnd:     "AndTerm",
		uvl.OpOr:      "OrTerm",
		uvl.OpImplies: "ImpliesTerm",
		uvl.OpEquiv:   "EquivalentTerm",
	}[e.Op]
	return &glencoeTerm{
		Type:     kind,
		Operands: []any{glencoeConstraint(e.Operands[0]), glencoeConstraint(e.Operands[1])},
	}
}
