package restriction

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// Decode reads the base64 transported restriction of a query parameter.
// An empty parameter yields the empty restriction.
func Decode(encoded string) ([]FilterClause, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	for _, enc := range base64Encodings {
		raw, err := enc.DecodeString(encoded)
		if err == nil {
			return Parse(raw)
		}
	}
	return nil, common.NewValidationError("restriction", "payload is not valid base64")
}

// Parse reads a JSON restriction. It accepts the list form
// [{"attributeName","operation","value"}...] and the shorthand object form
// {"attr": value, ...}, which is read as equality clauses in document order.
func Parse(raw []byte) ([]FilterClause, error) {
	if !gjson.ValidBytes(raw) {
		return nil, common.NewValidationError("restriction", "payload is not valid JSON")
	}

	doc := gjson.ParseBytes(raw)
	var (
		clauses []FilterClause
		err     error
	)
	switch {
	case doc.IsArray():
		doc.ForEach(func(_, item gjson.Result) bool {
			var clause FilterClause
			clause, err = parseClause(item)
			if err != nil {
				return false
			}
			clauses = append(clauses, clause)
			return true
		})
	case doc.IsObject():
		doc.ForEach(func(key, item gjson.Result) bool {
			var value interface{}
			value, err = scalar(item)
			if err != nil {
				err = common.NewValidationError("restriction", "attribute %q: %v", key.String(), err)
				return false
			}
			clauses = append(clauses, FilterClause{AttributeName: key.String(), Operation: "=", Value: value})
			return true
		})
	case doc.Type == gjson.Null:
		return nil, nil
	default:
		return nil, common.NewValidationError("restriction", "payload must be a list of clauses")
	}
	if err != nil {
		return nil, err
	}
	return clauses, nil
}

func parseClause(item gjson.Result) (FilterClause, error) {
	if !item.IsObject() {
		return FilterClause{}, common.NewValidationError("restriction", "clause must be an object, got %s", item.Raw)
	}

	name := item.Get("attributeName")
	if name.Type != gjson.String || name.Str == "" {
		return FilterClause{}, common.NewValidationError("restriction", "clause is missing attributeName")
	}
	op := item.Get("operation")
	if op.Type != gjson.String {
		return FilterClause{}, common.NewValidationError("restriction", "clause on %q is missing operation", name.Str)
	}
	rawValue := item.Get("value")
	if !rawValue.Exists() {
		return FilterClause{}, common.NewValidationError("restriction", "clause on %q is missing value", name.Str)
	}
	value, err := scalar(rawValue)
	if err != nil {
		return FilterClause{}, common.NewValidationError("restriction", "clause on %q: %v", name.Str, err)
	}
	return FilterClause{AttributeName: name.Str, Operation: op.Str, Value: value}, nil
}

// scalar keeps integers as int64 and everything else numeric as float64
func scalar(r gjson.Result) (interface{}, error) {
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.String:
		return r.Str, nil
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
				return i, nil
			}
		}
		return r.Num, nil
	default:
		return nil, fmt.Errorf("value %s is not a scalar", r.Raw)
	}
}
