package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// sqlFragment is a piece of SQL with positional ? placeholders and its arguments
type sqlFragment struct {
	Query string
	Args  []interface{}
}

func (f sqlFragment) Empty() bool {
	return f.Query == ""
}

// and joins non-empty fragments
func and(frags ...sqlFragment) sqlFragment {
	var (
		parts []string
		args  []interface{}
	)
	for _, f := range frags {
		if f.Empty() {
			continue
		}
		parts = append(parts, f.Query)
		args = append(args, f.Args...)
	}
	return sqlFragment{Query: strings.Join(parts, " AND "), Args: args}
}

func qualify(ref, column string) bun.Ident {
	if ref == "" {
		return bun.Ident(column)
	}
	return bun.Ident(ref + "." + column)
}

// renderPredicate renders pred against columns of the table referenced as ref.
// Values stay bound arguments.
func (s *Store) renderPredicate(ref string, pred restriction.Predicate) sqlFragment {
	var frag sqlFragment
	parts := make([]string, 0, len(pred))
	for _, c := range pred {
		col := qualify(ref, c.Attribute)
		if c.Op.Unary() {
			parts = append(parts, "? "+c.Op.SQL())
			frag.Args = append(frag.Args, col)
			continue
		}
		parts = append(parts, "? "+c.Op.SQL()+" ?")
		frag.Args = append(frag.Args, col, s.bindValue(c.Value))
	}
	frag.Query = strings.Join(parts, " AND ")
	return frag
}

func (s *Store) bindValue(v interface{}) interface{} {
	if u, ok := v.(uuid.UUID); ok {
		return s.dialect.BindUUID(u)
	}
	return v
}

// bindColumnValue converts a client supplied value for storage in attr
func (s *Store) bindColumnValue(attr heading.Attribute, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch attr.Tag {
	case heading.TagUUID:
		switch val := v.(type) {
		case uuid.UUID:
			return s.dialect.BindUUID(val), nil
		case string:
			u, err := uuid.Parse(val)
			if err != nil {
				return nil, common.NewValidationError("attribute", "%s: malformed uuid %q", attr.Name, val)
			}
			return s.dialect.BindUUID(u), nil
		}
	case heading.TagDate:
		if secs, ok := numeric(v); ok {
			return time.Unix(int64(secs), 0).UTC().Format("2006-01-02"), nil
		}
	case heading.TagDatetime, heading.TagTimestamp:
		if secs, ok := numeric(v); ok {
			whole := int64(secs)
			nanos := int64((secs - float64(whole)) * float64(time.Second))
			return time.Unix(whole, nanos).UTC().Format("2006-01-02 15:04:05.999999"), nil
		}
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return nil, common.NewValidationError("attribute", "%s: value of type %T is not a scalar", attr.Name, v)
	}
	return v, nil
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func orderFragment(term common.OrderTerm) (string, bun.Ident, error) {
	dir := strings.ToUpper(strings.TrimSpace(term.Direction))
	switch dir {
	case "", "ASC":
		dir = "ASC"
	case "DESC":
	default:
		return "", "", common.NewValidationError("order", "unsupported direction %q for %s", term.Direction, term.Attribute)
	}
	return fmt.Sprintf("? %s", dir), bun.Ident(term.Attribute), nil
}
