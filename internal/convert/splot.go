package convert

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/uvl"
)

// WriteSPLOT serializes m in the SXFM format used by the SPLOT repository.
// Cross-tree constraints are written as CNF clauses.
func WriteSPLOT(m *uvl.Model) (string, error) {
	ids := splotIDs(m)

	var b strings.Builder
	fmt.Fprintf(&b, "<feature_model name=\"%s\">\n", html.EscapeString(m.Name()))
	b.WriteString("<feature_tree>\n")
	fmt.Fprintf(&b, ":r %s (%s)\n", m.Root.Name, ids[m.Root.Name])
	writeSPLOTChildren(&b, m.Root, 1, ids)
	b.WriteString("</feature_tree>\n")

	b.WriteString("<constraints>\n")
	if len(m.Constraints) > 0 {
		cnf := variables(m)
		n := 0
		for _, constraint := range m.Constraints {
			clauses, err := constraintClauses(cnf, constraint)
			if err != nil {
				return "", err
			}
			for _, clause := range clauses {
				n++
				lits := make([]string, len(clause))
				for i, lit := range clause {
					id := ids[cnf.Names[abs(lit)-1]]
					if lit < 0 {
						id = "~" + id
					}
					lits[i] = id
				}
				fmt.Fprintf(&b, "C%d: %s\n", n, strings.Join(lits, " or "))
			}
		}
	}
	b.WriteString("</constraints>\n")
	b.WriteString("</feature_model>\n")
	return b.String(), nil
}

func writeSPLOTChildren(b *strings.Builder, f *uvl.Feature, depth int, ids map[string]string) {
	indent := strings.Repeat("\t", depth)
	for gi, g := range f.Groups {
		switch g.Type {
		case uvl.GroupMandatory, uvl.GroupOptional:
			marker := ":m"
			if g.Type == uvl.GroupOptional {
				marker = ":o"
			}
			for _, child := range g.Features {
				fmt.Fprintf(b, "%s%s %s (%s)\n", indent, marker, child.Name, ids[child.Name])
				writeSPLOTChildren(b, child, depth+1, ids)
			}
		default:
			min, max := g.Bounds()
			upper := strconv.Itoa(max)
			if g.Type == uvl.GroupOr || (g.Type == uvl.GroupCardinality && g.Max == uvl.Unbounded) {
				upper = "*"
			}
			fmt.Fprintf(b, "%s:g (%s_g_%d) [%d,%s]\n", indent, ids[f.Name], gi+1, min, upper)
			for _, child := range g.Features {
				fmt.Fprintf(b, "%s\t: %s (%s)\n", indent, child.Name, ids[child.Name])
				writeSPLOTChildren(b, child, depth+2, ids)
			}
		}
	}
}

// splotIDs maps every feature name to a unique identifier made of letters,
// digits and underscores.
func splotIDs(m *uvl.Model) map[string]string {
	ids := map[string]string{}
	used := map[string]bool{}
	for _, f := range m.Features() {
		base := sanitizeID(f.Name)
		id := base
		for i := 2; used[id]; i++ {
			id = base + "_" + strconv.Itoa(i)
		}
		used[id] = true
		ids[f.Name] = id
	}
	return ids
}

func sanitizeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_f"
	}
	return b.String()
}
