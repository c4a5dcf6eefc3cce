package dbmanager

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

func TestClassifyResolveError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{name: "unknown connection", err: fmt.Errorf("%w: lab", ErrConnectionNotFound), kind: common.KindNotFound},
		{name: "no default", err: ErrNoDefaultConnection, kind: common.KindNotFound},
		{name: "closed", err: ErrConnectionClosed, kind: common.KindConflict},
		{name: "other", err: errors.New("driver exploded"), kind: common.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyResolveError("lab", tt.err)
			assert.Equal(t, tt.kind, common.Kind(got))
		})
	}

	assert.NoError(t, ClassifyResolveError("lab", nil))
	assert.True(t, common.IsRetryable(ClassifyResolveError("lab", ErrConnectionClosed)))
}
