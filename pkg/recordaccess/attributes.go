package recordaccess

import (
	"context"
	"fmt"
	"time"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
	"github.com/bitechdev/RecordSpec/pkg/projection"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// AttributesRequest selects the restriction used to enumerate distinct values
type AttributesRequest struct {
	Restriction   []restriction.FilterClause
	IncludeValues bool
}

// Attributes describes the primary and secondary attributes of the table.
// With IncludeValues each entry also lists the distinct values present in the
// restricted table.
func (e *Engine) Attributes(ctx context.Context, t Table, req AttributesRequest) (*common.AttributesResponse, error) {
	var resp *common.AttributesResponse
	err := e.observe(ctx, "attributes", t, func(ctx context.Context) error {
		var pred restriction.Predicate
		if req.IncludeValues {
			var err error
			if pred, err = e.predicate(t, req.Restriction); err != nil {
				return err
			}
		}

		h := t.Heading()
		lists := common.AttributeLists{
			Primary:   make([]common.AttributeEntry, 0, len(h.Primary())),
			Secondary: make([]common.AttributeEntry, 0, len(h.Secondary())),
		}
		for _, attr := range h.Attributes() {
			entry := common.AttributeEntry{attr.Name, attr.Type, attr.Nullable, attr.DefaultValue(), attr.Autoincrement}
			if req.IncludeValues {
				values, err := e.distinctValues(ctx, t, pred, attr)
				if err != nil {
					return err
				}
				entry = append(entry, values)
			}

			if attr.InKey {
				lists.Primary = append(lists.Primary, entry)
			} else {
				lists.Secondary = append(lists.Secondary, entry)
			}
		}

		resp = &common.AttributesResponse{AttributeHeaders: common.AttributeHeaders, Attributes: lists}
		return nil
	})
	return resp, err
}

// distinctValues enumerates attr over the restricted table. Blobs are never enumerated.
func (e *Engine) distinctValues(ctx context.Context, t Table, pred restriction.Predicate, attr heading.Attribute) ([]common.AttributeValue, error) {
	if attr.IsBlob {
		return nil, nil
	}

	raw, err := t.Distinct(ctx, pred, attr.Name)
	if err != nil {
		return nil, err
	}

	values := make([]common.AttributeValue, 0, len(raw))
	for _, v := range raw {
		projected, err := projection.Value(attr, v, projection.Options{})
		if err != nil {
			return nil, err
		}
		values = append(values, common.AttributeValue{Text: displayText(attr, v, projected), Value: projected})
	}
	return values, nil
}

// displayText renders a value the way a person would type it into a filter
func displayText(attr heading.Attribute, raw, projected interface{}) string {
	if projected == nil {
		return "None"
	}
	if ts, ok := raw.(time.Time); ok {
		switch attr.Tag {
		case heading.TagDate:
			return ts.Format("2006-01-02")
		case heading.TagDatetime, heading.TagTimestamp:
			return ts.Format("2006-01-02 15:04:05")
		}
	}
	if b, ok := raw.([]byte); ok && attr.Tag != heading.TagUUID {
		return string(b)
	}
	return fmt.Sprint(projected)
}
