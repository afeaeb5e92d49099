package convert

import (
	"strconv"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/uvl"
)

// WriteDIMACS serializes m as a DIMACS CNF instance. Each variable is named
// in a "c <var> <feature>" comment line ahead of the problem line.
func WriteDIMACS(m *uvl.Model) (string, error) {
	cnf, err := Encode(m)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, name := range cnf.Names {
		b.WriteString("c ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteByte('\n')
	}
	b.WriteString("p cnf ")
	b.WriteString(strconv.Itoa(len(cnf.Names)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(len(cnf.Clauses)))
	b.WriteByte('\n')
	for _, clause := range cnf.Clauses {
		for _, lit := range clause {
			b.WriteString(strconv.Itoa(lit))
			b.WriteByte(' ')
		}
		b.WriteString("0\n")
	}
	return b.String(), nil
}
