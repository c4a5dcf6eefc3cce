package recordaccess

import (
	"context"
	"errors"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

// DeleteRequest selects the rows to delete
type DeleteRequest struct {
	Restriction []restriction.FilterClause
	Cascade     bool
}

// Delete removes the restricted rows. Without Cascade a referencing row
// blocks the delete and is reported as an IntegrityConflictError naming the
// child table. A restriction matching nothing is a NotFoundError.
func (e *Engine) Delete(ctx context.Context, t Table, req DeleteRequest) (int64, error) {
	var deleted int64
	err := e.observe(ctx, "delete", t, func(ctx context.Context) error {
		pred, err := e.predicate(t, req.Restriction)
		if err != nil {
			return err
		}

		deleted, err = t.Delete(ctx, pred, req.Cascade)
		if err != nil {
			return e.describeConflict(ctx, t, pred, err)
		}
		if deleted == 0 {
			return common.NewNotFoundError(common.MsgNothingToDelete)
		}
		return nil
	})

	outcome := "ok"
	if err != nil {
		outcome = common.Kind(err)
	}
	metrics.GetProvider().RecordDelete(req.Cascade, outcome)
	return deleted, err
}

// describeConflict fills in the blocking child table when the store could not
// name it, using the first descendant that still has related rows
func (e *Engine) describeConflict(ctx context.Context, t Table, pred restriction.Predicate, err error) error {
	var conflict *common.IntegrityConflictError
	if !errors.As(err, &conflict) {
		return err
	}

	if conflict.ChildTable == "" {
		nodes, derr := t.Descendants(ctx)
		if derr != nil {
			logger.Warn("resolving delete conflict on %s.%s: %v", t.Schema(), t.Name(), derr)
			return err
		}
		for _, n := range nodes[min(1, len(nodes)):] {
			count, cerr := n.CountRelated(ctx, pred)
			if cerr != nil || count == 0 {
				continue
			}
			conflict.ChildSchema = n.Schema()
			conflict.ChildTable = n.Name()
			break
		}
	}

	if conflict.ChildTable != "" {
		conflict.ChildTable = e.displayName(conflict.ChildTable)
	}
	return conflict
}
