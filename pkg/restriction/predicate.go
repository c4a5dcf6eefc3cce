// Package restriction compiles client filter clauses into parameter-bound
// predicates over a table heading.
package restriction

import (
	"fmt"
	"strings"
)

// Operator is a normalized comparison operator
type Operator int

const (
	OpEq Operator = iota
	OpNe
	OpGt
	OpLt
	OpGe
	OpLe
	OpIsNull
	OpIsNotNull
)

var operatorSQL = map[Operator]string{
	OpEq:        "=",
	OpNe:        "<>",
	OpGt:        ">",
	OpLt:        "<",
	OpGe:        ">=",
	OpLe:        "<=",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
}

// SQL returns the operator as it appears in a WHERE clause
func (o Operator) SQL() string {
	return operatorSQL[o]
}

// Unary reports whether the operator takes no value
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// Condition is one compiled clause. Value is nil for unary operators and is
// always bound as a query parameter, never spliced into SQL text.
type Condition struct {
	Attribute string
	Op        Operator
	Value     interface{}
}

func (c Condition) String() string {
	if c.Op.Unary() {
		return fmt.Sprintf("%s %s", c.Attribute, c.Op.SQL())
	}
	return fmt.Sprintf("%s %s %v", c.Attribute, c.Op.SQL(), c.Value)
}

// Predicate is an ordered conjunction of conditions. The empty predicate
// matches every row.
type Predicate []Condition

// And conjoins predicates in argument order. Callers pass the table's own
// scoping restriction first so that it always precedes client clauses.
func And(preds ...Predicate) Predicate {
	n := 0
	for _, p := range preds {
		n += len(p)
	}
	out := make(Predicate, 0, n)
	for _, p := range preds {
		out = append(out, p...)
	}
	return out
}

// Attributes returns the attribute names referenced, in order of first use
func (p Predicate) Attributes() []string {
	seen := make(map[string]bool, len(p))
	var names []string
	for _, c := range p {
		if !seen[c.Attribute] {
			seen[c.Attribute] = true
			names = append(names, c.Attribute)
		}
	}
	return names
}

func (p Predicate) String() string {
	if len(p) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}
