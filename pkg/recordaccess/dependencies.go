package recordaccess

import (
	"context"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// Dependencies previews a delete: for the table and every table in its
// descendant closure it counts the rows related to the restricted rows.
// Tables the caller may not read are reported as inaccessible.
func (e *Engine) Dependencies(ctx context.Context, t Table, clauses []restriction.FilterClause) (*common.DependencyResponse, error) {
	var resp *common.DependencyResponse
	err := e.observe(ctx, "dependency", t, func(ctx context.Context) error {
		pred, err := e.predicate(t, clauses)
		if err != nil {
			return err
		}

		nodes, err := t.Descendants(ctx)
		if err != nil {
			return err
		}

		records := make([]common.DependencyRecord, 0, len(nodes))
		for _, n := range nodes {
			rec := common.DependencyRecord{Schema: n.Schema(), Table: n.Name()}

			count, err := n.CountRelated(ctx, pred)
			switch {
			case common.IsAccessDenied(err):
				logger.Debug("dependency %s.%s is not accessible: %v", n.Schema(), n.Name(), err)
			case err != nil:
				return err
			default:
				rec.Accessible = true
				rec.Count = &count
			}

			metrics.GetProvider().RecordDependencyNode(rec.Accessible)
			records = append(records, rec)
		}

		resp = &common.DependencyResponse{Dependencies: records}
		return nil
	})
	return resp, err
}
