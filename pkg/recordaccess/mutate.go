package recordaccess

import (
	"context"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

// Insert adds rows to the table in one transaction
func (e *Engine) Insert(ctx context.Context, t Table, rows []common.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, common.NewValidationError("rows", "no rows to insert")
	}
	var n int64
	err := e.observe(ctx, "insert", t, func(ctx context.Context) error {
		var err error
		n, err = t.Insert(ctx, rows)
		return err
	})
	return n, err
}

// Update replaces the non-key attributes of the rows identified by their
// primary key, in one transaction
func (e *Engine) Update(ctx context.Context, t Table, rows []common.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, common.NewValidationError("rows", "no rows to update")
	}
	var n int64
	err := e.observe(ctx, "update", t, func(ctx context.Context) error {
		var err error
		n, err = t.Update(ctx, rows)
		return err
	})
	return n, err
}
