package recordapi

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// Query parameter names
const (
	ParamLimit         = "limit"
	ParamPage          = "page"
	ParamOrder         = "order"
	ParamRestriction   = "restriction"
	ParamCascade       = "cascade"
	ParamIncludeValues = "include_values"
)

// ParseRestriction decodes the base64 restriction parameter
func ParseRestriction(r common.Request) ([]restriction.FilterClause, error) {
	return restriction.Decode(r.QueryParam(ParamRestriction))
}

// ParseFetchRequest reads paging, ordering and the restriction of a fetch
func ParseFetchRequest(r common.Request) (recordaccess.FetchRequest, error) {
	var req recordaccess.FetchRequest

	clauses, err := ParseRestriction(r)
	if err != nil {
		return req, err
	}
	req.Restriction = clauses

	if req.Limit, err = intParam(r, ParamLimit); err != nil {
		return req, err
	}
	if req.Page, err = intParam(r, ParamPage); err != nil {
		return req, err
	}
	req.Order = SplitList(r.QueryParam(ParamOrder))
	return req, nil
}

// ParseDeleteRequest reads the restriction and cascade flag of a delete
func ParseDeleteRequest(r common.Request) (recordaccess.DeleteRequest, error) {
	clauses, err := ParseRestriction(r)
	if err != nil {
		return recordaccess.DeleteRequest{}, err
	}
	return recordaccess.DeleteRequest{
		Restriction: clauses,
		Cascade:     truthy(r.QueryParam(ParamCascade)),
	}, nil
}

// ParseAttributesRequest reads the restriction and include_values flag
func ParseAttributesRequest(r common.Request) (recordaccess.AttributesRequest, error) {
	clauses, err := ParseRestriction(r)
	if err != nil {
		return recordaccess.AttributesRequest{}, err
	}
	return recordaccess.AttributesRequest{
		Restriction:   clauses,
		IncludeValues: truthy(r.QueryParam(ParamIncludeValues)),
	}, nil
}

// SplitList splits a comma separated parameter, dropping empty items
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// intParam reads an optional integer parameter; absent means zero
func intParam(r common.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.NewValidationError(name, "%q is not an integer", raw)
	}
	return n, nil
}

// ReadRows decodes the request body with DecodeRows. A body that cannot be
// read is a validation error.
func ReadRows(r common.Request) ([]common.Row, error) {
	body, err := r.Body()
	if err != nil {
		return nil, common.NewValidationError("body", "failed to read request body: %v", err)
	}
	return DecodeRows(body)
}

// DecodeRows reads a JSON object or a JSON list of objects as rows.
// Integers stay int64, nested documents are kept as their raw JSON text.
func DecodeRows(body []byte) ([]common.Row, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, common.NewValidationError("body", "request body is empty")
	}
	if !gjson.ValidBytes(body) {
		return nil, common.NewValidationError("body", "request body is not valid JSON")
	}

	doc := gjson.ParseBytes(body)
	var items []gjson.Result
	switch {
	case doc.IsArray():
		items = doc.Array()
	case doc.IsObject():
		items = []gjson.Result{doc}
	default:
		return nil, common.NewValidationError("body", "expected a JSON object or a list of objects")
	}
	if len(items) == 0 {
		return nil, common.NewValidationError("body", "no rows given")
	}

	rows := make([]common.Row, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, common.NewValidationError("body", "row %d is not an object", i)
		}
		row := common.Row{}
		item.ForEach(func(key, value gjson.Result) bool {
			row[key.String()] = rowValue(value)
			return true
		})
		rows = append(rows, row)
	}
	return rows, nil
}

func rowValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return i
			}
		}
		return v.Num
	case gjson.JSON:
		return v.Raw
	default:
		return v.Value()
	}
}
