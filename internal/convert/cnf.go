package convert

import (
	"fmt"
	"sort"

	"github.com/kerem-kaynak/uvlhub/internal/uvl"
)

// maxClauseExpansion bounds the clauses produced by distributing a single
// constraint or by encoding the bounds of a single group.
const maxClauseExpansion = 10000

// Clause is a disjunction of literals; a negative literal is a negated variable.
type Clause []int

// CNF is a propositional encoding of a feature model. Variable i+1 stands
// for Names[i].
type CNF struct {
	Names   []string
	Clauses []Clause

	index map[string]int
}

func (c *CNF) Variable(name string) (int, bool) {
	v, ok := c.index[name]
	return v, ok
}

func (c *CNF) add(lits ...int) {
	c.Clauses = append(c.Clauses, append(Clause(nil), lits...))
}

// Encode translates the tree semantics and cross-tree constraints of m into
// clauses: the root is selected, every child implies its parent, and each
// group adds its own selection bounds.
func Encode(m *uvl.Model) (*CNF, error) {
	cnf := variables(m)
	cnf.add(cnf.index[m.Root.Name])

	for _, f := range m.Features() {
		parent := cnf.index[f.Name]
		for _, g := range f.Groups {
			children := make([]int, len(g.Features))
			for i, child := range g.Features {
				children[i] = cnf.index[child.Name]
				cnf.add(-children[i], parent)
			}
			min, max := g.Bounds()
			if err := cnf.atLeast(parent, children, min); err != nil {
				return nil, fmt.Errorf("group %s of %s: %w", g, f.Name, err)
			}
			if err := cnf.atMost(children, max); err != nil {
				return nil, fmt.Errorf("group %s of %s: %w", g, f.Name, err)
			}
		}
	}

	for _, constraint := range m.Constraints {
		clauses, err := constraintClauses(cnf, constraint)
		if err != nil {
			return nil, err
		}
		cnf.Clauses = append(cnf.Clauses, clauses...)
	}

	return cnf, nil
}

// variables numbers the features of m without adding any clause.
func variables(m *uvl.Model) *CNF {
	cnf := &CNF{index: map[string]int{}}
	for _, f := range m.Features() {
		cnf.Names = append(cnf.Names, f.Name)
		cnf.index[f.Name] = len(cnf.Names)
	}
	return cnf
}

// atLeast requires k of children whenever parent is selected: every subset
// of n-k+1 children must contain a selected one.
func (c *CNF) atLeast(parent int, children []int, k int) error {
	n := len(children)
	if k <= 0 {
		return nil
	}
	if k > n {
		c.add(-parent)
		return nil
	}
	if k == n {
		for _, child := range children {
			c.add(-parent, child)
		}
		return nil
	}
	if err := checkExpansion(n, n-k+1); err != nil {
		return err
	}
	combinations(children, n-k+1, func(subset []int) {
		c.add(append([]int{-parent}, subset...)...)
	})
	return nil
}

// atMost forbids selecting any k+1 children together.
func (c *CNF) atMost(children []int, k int) error {
	if k >= len(children) {
		return nil
	}
	if err := checkExpansion(len(children), k+1); err != nil {
		return err
	}
	combinations(children, k+1, func(subset []int) {
		lits := make([]int, len(subset))
		for i, v := range subset {
			lits[i] = -v
		}
		c.add(lits...)
	})
	return nil
}

// checkExpansion rejects groups whose bound needs more than
// maxClauseExpansion subsets of size k out of n.
func checkExpansion(n, k int) error {
	if binomial(n, k) > maxClauseExpansion {
		return fmt.Errorf("cardinality encoding exceeds %d clauses", maxClauseExpansion)
	}
	return nil
}

// binomial returns C(n, k), saturating just above maxClauseExpansion.
func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 1; i <= k; i++ {
		result = result * (n - k + i) / i
		if result > maxClauseExpansion {
			return maxClauseExpansion + 1
		}
	}
	return result
}

func combinations(items []int, k int, fn func([]int)) {
	if k <= 0 || k > len(items) {
		return
	}
	subset := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(subset) == k {
			fn(subset)
			return
		}
		for i := start; i <= len(items)-(k-len(subset)); i++ {
			subset = append(subset, items[i])
			rec(i + 1)
			subset = subset[:len(subset)-1]
		}
	}
	rec(0)
}

// constraintClauses converts a constraint to negation normal form and then
// distributes disjunctions over conjunctions.
func constraintClauses(cnf *CNF, e *uvl.Expr) ([]Clause, error) {
	clauses, err := distribute(cnf, nnf(e, false))
	if err != nil {
		return nil, fmt.Errorf("constraint %s: %w", e, err)
	}
	return clauses, nil
}

func nnf(e *uvl.Expr, negated bool) *uvl.Expr {
	switch e.Op {
	case uvl.OpFeature:
		if negated {
			return uvl.Not(e)
		}
		return e
	case uvl.OpNot:
		return nnf(e.Operands[0], !negated)
	case uvl.OpAnd, uvl.OpOr:
		a, b := nnf(e.Operands[0], negated), nnf(e.Operands[1], negated)
		if (e.Op == uvl.OpAnd) != negated {
			return uvl.And(a, b)
		}
		return uvl.Or(a, b)
	case uvl.OpImplies:
		return nnf(uvl.Or(uvl.Not(e.Operands[0]), e.Operands[1]), negated)
	default:
		a, b := e.Operands[0], e.Operands[1]
		return nnf(uvl.And(uvl.Implies(a, b), uvl.Implies(b, a)), negated)
	}
}

func distribute(cnf *CNF, e *uvl.Expr) ([]Clause, error) {
	switch e.Op {
	case uvl.OpFeature, uvl.OpNot:
		lit, err := literal(cnf, e)
		if err != nil {
			return nil, err
		}
		return []Clause{{lit}}, nil
	case uvl.OpAnd:
		left, err := distribute(cnf, e.Operands[0])
		if err != nil {
			return nil, err
		}
		right, err := distribute(cnf, e.Operands[1])
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	default:
		left, err := distribute(cnf, e.Operands[0])
		if err != nil {
			return nil, err
		}
		right, err := distribute(cnf, e.Operands[1])
		if err != nil {
			return nil, err
		}
		if len(left)*len(right) > maxClauseExpansion {
			return nil, fmt.Errorf("clause expansion exceeds %d clauses", maxClauseExpansion)
		}
		var out []Clause
		for _, l := range left {
			for _, r := range right {
				if merged, ok := merge(l, r); ok {
					out = append(out, merged)
				}
			}
		}
		return out, nil
	}
}

func literal(cnf *CNF, e *uvl.Expr) (int, error) {
	sign := 1
	if e.Op == uvl.OpNot {
		sign = -1
		e = e.Operands[0]
	}
	v, ok := cnf.index[e.Feature]
	if !ok {
		return 0, fmt.Errorf("unknown feature %q", e.Feature)
	}
	return sign * v, nil
}

// merge unions two clauses, dropping duplicates. Tautologies report false.
func merge(a, b Clause) (Clause, bool) {
	set := map[int]bool{}
	for _, lit := range append(append(Clause(nil), a...), b...) {
		if set[-lit] {
			return nil, false
		}
		set[lit] = true
	}
	out := make(Clause, 0, len(set))
	for lit := range set {
		out = append(out, lit)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i]), abs(out[j])
		if ai != aj {
			return ai < aj
		}
		return out[i] < out[j]
	})
	return out, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
