package recordaccess

import (
	"context"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/projection"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// FetchRequest describes one page of a restricted fetch
type FetchRequest struct {
	Restriction []restriction.FilterClause
	Limit       int
	Page        int
	Order       []string
	Attributes  []string
	// FetchBlobs overrides the engine default when set
	FetchBlobs *bool
}

// Fetch returns one page of the restricted table together with the
// unpaginated row count
func (e *Engine) Fetch(ctx context.Context, t Table, req FetchRequest) (*common.FetchResponse, error) {
	var resp *common.FetchResponse
	err := e.observe(ctx, "fetch", t, func(ctx context.Context) error {
		pred, err := e.predicate(t, req.Restriction)
		if err != nil {
			return err
		}
		spec, attrs, err := e.fetchSpec(t.Heading(), req.Limit, req.Page, req.Order, req.Attributes)
		if err != nil {
			return err
		}

		total, err := t.Count(ctx, pred)
		if err != nil {
			return err
		}
		rows, err := t.Fetch(ctx, pred, spec)
		if err != nil {
			return err
		}

		fetchBlobs := e.fetchBlobs
		if req.FetchBlobs != nil {
			fetchBlobs = *req.FetchBlobs
		}
		records, err := projection.Rows(attrs, rows, projection.Options{FetchBlobs: fetchBlobs})
		if err != nil {
			return err
		}

		resp = &common.FetchResponse{
			RecordHeader: spec.Attributes,
			Records:      records,
			TotalCount:   total,
		}
		return nil
	})
	return resp, err
}
