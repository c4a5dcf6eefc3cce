package restriction

import (
	"strings"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

// FilterClause is one client supplied filter
type FilterClause struct {
	AttributeName string      `json:"attributeName" mapstructure:"attribute_name"`
	Operation     string      `json:"operation" mapstructure:"operation"`
	Value         interface{} `json:"value" mapstructure:"value"`
}

var operatorSpellings = map[string]Operator{
	"=":  OpEq,
	"==": OpEq,
	"≠":  OpNe,
	"!=": OpNe,
	"<>": OpNe,
	">":  OpGt,
	"<":  OpLt,
	"≥":  OpGe,
	">=": OpGe,
	"≤":  OpLe,
	"<=": OpLe,
}

// ParseOperator normalizes the accepted spellings of a comparison operator
func ParseOperator(op string) (Operator, error) {
	if o, ok := operatorSpellings[strings.TrimSpace(op)]; ok {
		return o, nil
	}
	return 0, common.NewValidationError("restriction", "unsupported operation %q", op)
}
