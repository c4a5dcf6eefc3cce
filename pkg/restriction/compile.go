package restriction

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
)

// Compile validates clauses against the heading and turns them into a
// predicate. Null comparisons become IS NULL / IS NOT NULL and uuid values are
// bound as uuid.UUID so the store can encode them as raw bytes.
func Compile(h *heading.Heading, clauses []FilterClause) (Predicate, error) {
	pred := make(Predicate, 0, len(clauses))
	for i, clause := range clauses {
		cond, err := compileClause(h, clause)
		if err != nil {
			var verr *common.ValidationError
			if errors.As(err, &verr) {
				verr.Message = fmt.Sprintf("clause %d: %s", i, verr.Message)
			}
			return nil, err
		}
		pred = append(pred, cond)
	}
	return pred, nil
}

func compileClause(h *heading.Heading, clause FilterClause) (Condition, error) {
	attr, ok := h.Get(clause.AttributeName)
	if !ok {
		return Condition{}, common.NewValidationError("restriction", "unknown attribute %q", clause.AttributeName)
	}
	if attr.IsBlob {
		return Condition{}, common.NewValidationError("restriction", "cannot restrict blob attribute %q", attr.Name)
	}

	op, err := ParseOperator(clause.Operation)
	if err != nil {
		return Condition{}, err
	}

	if clause.Value == nil {
		switch op {
		case OpEq:
			return Condition{Attribute: attr.Name, Op: OpIsNull}, nil
		case OpNe:
			return Condition{Attribute: attr.Name, Op: OpIsNotNull}, nil
		default:
			return Condition{}, common.NewValidationError("restriction",
				"operation %q cannot compare %q against null", clause.Operation, attr.Name)
		}
	}

	value, err := normalizeValue(clause.Value)
	if err != nil {
		return Condition{}, common.NewValidationError("restriction", "attribute %q: %v", attr.Name, err)
	}

	if attr.Tag == heading.TagUUID {
		u, err := toUUID(value)
		if err != nil {
			return Condition{}, common.NewValidationError("restriction", "attribute %q: %v", attr.Name, err)
		}
		value = u
	}

	return Condition{Attribute: attr.Name, Op: op, Value: value}, nil
}

// normalizeValue accepts scalars only and unwraps json.Number
func normalizeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case uuid.UUID:
		return val, nil
	default:
		return nil, fmt.Errorf("value of type %T is not a scalar", v)
	}
}

func toUUID(v interface{}) (uuid.UUID, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val, nil
	case string:
		u, err := uuid.Parse(val)
		if err != nil {
			return uuid.Nil, fmt.Errorf("malformed uuid %q", val)
		}
		return u, nil
	default:
		return uuid.Nil, fmt.Errorf("uuid must be given as a string, got %T", v)
	}
}
