package recordaccess

import (
	"strings"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
)

// keyOrder is the order keyword that stands for the primary key attributes
const keyOrder = "KEY"

// fetchSpec turns paging parameters into the store's fetch spec. A zero limit
// or page takes the default.
func (e *Engine) fetchSpec(h *heading.Heading, limit, page int, order, attributes []string) (common.FetchSpec, []heading.Attribute, error) {
	if limit == 0 {
		limit = e.defaultLimit
		if e.maxLimit > 0 && limit > e.maxLimit {
			limit = e.maxLimit
		}
	}
	if page == 0 {
		page = 1
	}
	if limit < 1 {
		return common.FetchSpec{}, nil, common.NewValidationError("limit", "limit must be at least 1, got %d", limit)
	}
	if e.maxLimit > 0 && limit > e.maxLimit {
		return common.FetchSpec{}, nil, common.NewValidationError("limit", "limit %d exceeds the maximum of %d", limit, e.maxLimit)
	}
	if page < 1 {
		return common.FetchSpec{}, nil, common.NewValidationError("page", "page must be at least 1, got %d", page)
	}

	terms, err := parseOrder(h, order)
	if err != nil {
		return common.FetchSpec{}, nil, err
	}

	attrs := h.Attributes()
	if len(attributes) > 0 {
		var unknown []string
		attrs, unknown = h.Select(attributes)
		if len(unknown) > 0 {
			return common.FetchSpec{}, nil, common.NewValidationError("attributes", "unknown attributes: %s", strings.Join(unknown, ", "))
		}
	}
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}

	return common.FetchSpec{
		Attributes: names,
		Limit:      limit,
		Offset:     (page - 1) * limit,
		Order:      terms,
	}, attrs, nil
}

// parseOrder reads "attribute direction" strings. KEY expands to the primary
// key and missing key attributes are appended ascending.
func parseOrder(h *heading.Heading, order []string) ([]common.OrderTerm, error) {
	if len(order) == 0 {
		order = []string{DefaultOrder}
	}

	var terms []common.OrderTerm
	seen := make(map[string]bool)
	add := func(attr, dir string) {
		if seen[attr] {
			return
		}
		seen[attr] = true
		terms = append(terms, common.OrderTerm{Attribute: attr, Direction: dir})
	}

	for _, o := range order {
		fields := strings.Fields(o)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 {
			return nil, common.NewValidationError("order", "malformed order %q", o)
		}
		dir := ""
		if len(fields) == 2 {
			dir = fields[1]
		}

		if fields[0] == keyOrder {
			for _, k := range h.PrimaryKey() {
				add(k, dir)
			}
			continue
		}
		if !h.Has(fields[0]) {
			return nil, common.NewValidationError("order", "unknown attribute %q", fields[0])
		}
		add(fields[0], dir)
	}

	for _, k := range h.PrimaryKey() {
		add(k, "ASC")
	}
	return terms, nil
}
