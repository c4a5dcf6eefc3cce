package recordaccess

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// memTable is an in-memory Table for engine tests
type memTable struct {
	schema      string
	name        string
	heading     *heading.Heading
	rows        []common.Row
	descendants []Descendant
	deleteErr   error

	lastPred restriction.Predicate
	lastSpec common.FetchSpec
}

func newMemTable(name string, attrs []heading.Attribute, rows ...common.Row) *memTable {
	t := &memTable{schema: "lab", name: name, heading: heading.New(attrs), rows: rows}
	t.descendants = []Descendant{&memDescendant{schema: "lab", name: name, table: t}}
	return t
}

func keyAttr(name, sqlType string) heading.Attribute {
	a := heading.NewAttribute(name, sqlType)
	a.InKey = true
	return a
}

func attr(name, sqlType string, nullable bool) heading.Attribute {
	a := heading.NewAttribute(name, sqlType)
	a.Nullable = nullable
	return a
}

func (t *memTable) Schema() string                     { return t.schema }
func (t *memTable) Name() string                       { return t.name }
func (t *memTable) Heading() *heading.Heading          { return t.heading }
func (t *memTable) Restriction() restriction.Predicate { return nil }
func (t *memTable) Definition() string                 { return t.heading.Definition("") }

func (t *memTable) match(pred restriction.Predicate) []common.Row {
	t.lastPred = pred
	var out []common.Row
	for _, r := range t.rows {
		if matches(r, pred) {
			out = append(out, r)
		}
	}
	return out
}

func (t *memTable) Count(_ context.Context, pred restriction.Predicate) (int, error) {
	return len(t.match(pred)), nil
}

func (t *memTable) Fetch(_ context.Context, pred restriction.Predicate, spec common.FetchSpec) ([]common.Row, error) {
	t.lastSpec = spec
	rows := t.match(pred)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range spec.Order {
			c := compare(rows[i][o.Attribute], rows[j][o.Attribute])
			if c == 0 {
				continue
			}
			if strings.EqualFold(o.Direction, "DESC") {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if spec.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[spec.Offset:]
	if spec.Limit > 0 && spec.Limit < len(rows) {
		rows = rows[:spec.Limit]
	}
	return rows, nil
}

func (t *memTable) Distinct(_ context.Context, pred restriction.Predicate, name string) ([]interface{}, error) {
	seen := map[string]bool{}
	var out []interface{}
	for _, r := range t.match(pred) {
		k := fmt.Sprint(r[name])
		if !seen[k] {
			seen[k] = true
			out = append(out, r[name])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return compare(out[i], out[j]) < 0 })
	return out, nil
}

func (t *memTable) Descendants(context.Context) ([]Descendant, error) {
	return t.descendants, nil
}

func (t *memTable) Insert(_ context.Context, rows []common.Row) (int64, error) {
	t.rows = append(t.rows, rows...)
	return int64(len(rows)), nil
}

func (t *memTable) Update(_ context.Context, rows []common.Row) (int64, error) {
	return int64(len(rows)), nil
}

func (t *memTable) Delete(_ context.Context, pred restriction.Predicate, _ bool) (int64, error) {
	if t.deleteErr != nil {
		return 0, t.deleteErr
	}
	var kept []common.Row
	var n int64
	for _, r := range t.rows {
		if matches(r, pred) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return n, nil
}

type memDescendant struct {
	schema string
	name   string
	table  *memTable
	count  int
	err    error
}

func (d *memDescendant) Schema() string { return d.schema }
func (d *memDescendant) Name() string   { return d.name }

func (d *memDescendant) CountRelated(ctx context.Context, pred restriction.Predicate) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if d.table != nil {
		return d.table.Count(ctx, pred)
	}
	return d.count, nil
}

func matches(row common.Row, pred restriction.Predicate) bool {
	for _, c := range pred {
		v, ok := row[c.Attribute]
		if !ok {
			return false
		}
		cmp := compare(v, c.Value)
		var hit bool
		switch c.Op {
		case restriction.OpIsNull:
			hit = v == nil
		case restriction.OpIsNotNull:
			hit = v != nil
		case restriction.OpEq:
			hit = v != nil && cmp == 0
		case restriction.OpNe:
			hit = v != nil && cmp != 0
		case restriction.OpGt:
			hit = v != nil && cmp > 0
		case restriction.OpLt:
			hit = v != nil && cmp < 0
		case restriction.OpGe:
			hit = v != nil && cmp >= 0
		case restriction.OpLe:
			hit = v != nil && cmp <= 0
		}
		if !hit {
			return false
		}
	}
	return true
}

func compare(a, b interface{}) int {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
