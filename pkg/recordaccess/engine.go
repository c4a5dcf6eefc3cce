// Package recordaccess is the record access engine. It compiles client
// restrictions, pages and projects fetched rows, previews delete impact over
// the foreign key closure and executes restricted or cascading deletes. It
// works only against the Table and Catalog contracts and never sees SQL.
package recordaccess

import (
	"context"
	"time"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/restriction"
	"github.com/bitechdev/RecordSpec/pkg/tracing"
)

const (
	DefaultLimit = 1000
	DefaultOrder = "KEY ASC"
)

// Engine runs record access operations. It holds no connection state and is
// safe for concurrent use.
type Engine struct {
	defaultLimit int
	maxLimit     int
	fetchBlobs   bool
	displayName  func(string) string
}

// Option configures an Engine
type Option func(*Engine)

// WithDefaultLimit sets the page size used when a request names none
func WithDefaultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the page size a request may ask for. Zero means no cap.
func WithMaxLimit(n int) Option {
	return func(e *Engine) {
		e.maxLimit = n
	}
}

// WithFetchBlobs makes blob attributes return their bytes by default
func WithFetchBlobs(fetch bool) Option {
	return func(e *Engine) {
		e.fetchBlobs = fetch
	}
}

// WithTableDisplayName sets how physical table names are shown in delete conflicts
func WithTableDisplayName(fn func(string) string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.displayName = fn
		}
	}
}

// NewEngine creates an engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		defaultLimit: DefaultLimit,
		displayName:  func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// predicate conjoins the handle's own restriction with the compiled client clauses
func (e *Engine) predicate(t Table, clauses []restriction.FilterClause) (restriction.Predicate, error) {
	pred, err := restriction.Compile(t.Heading(), clauses)
	if err != nil {
		return nil, err
	}
	return restriction.And(t.Restriction(), pred), nil
}

func (e *Engine) observe(ctx context.Context, op string, t Table, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartTableSpan(ctx, op, t.Schema(), t.Name())
	start := time.Now()

	err := common.NewInternalError(op, fn(ctx))

	outcome := "ok"
	if err != nil {
		outcome = common.Kind(err)
		logger.ReportError(ctx, err, map[string]interface{}{
			"operation": op,
			"schema":    t.Schema(),
			"table":     t.Name(),
		})
	}
	metrics.GetProvider().RecordOperation(op, outcome, time.Since(start))
	tracing.EndSpan(span, err)
	return err
}
