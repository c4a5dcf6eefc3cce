package logger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/errortracking"
)

type recordingTracker struct {
	mu       sync.Mutex
	errors   []error
	messages []string
	panics   []interface{}
	closed   bool
}

func (r *recordingTracker) CaptureError(_ context.Context, err error, _ errortracking.Severity, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recordingTracker) CaptureMessage(_ context.Context, message string, _ errortracking.Severity, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingTracker) CapturePanic(_ context.Context, recovered interface{}, _ []byte, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panics = append(r.panics, recovered)
}

func (r *recordingTracker) Flush(int) bool { return true }

func (r *recordingTracker) Close() error {
	r.closed = true
	return nil
}

func withTracker(t *testing.T) *recordingTracker {
	t.Helper()
	tracker := &recordingTracker{}
	InitErrorTracking(tracker)
	t.Cleanup(func() { InitErrorTracking(nil) })
	return tracker
}

func TestWarnAndErrorReachTracker(t *testing.T) {
	tracker := withTracker(t)

	Info("not tracked")
	Debug("not tracked either")
	Warn("slow count on %s", "table_b")
	Error("delete failed: %d", 3)

	assert.Equal(t, []string{"slow count on table_b", "delete failed: 3"}, tracker.messages)
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		tracked bool
	}{
		{name: "nil", err: nil},
		{name: "validation", err: common.NewValidationError("limit", "must be at least 1")},
		{name: "not found", err: common.NewNotFoundError("Nothing to delete")},
		{name: "internal", err: common.NewInternalError("fetch", errors.New("connection reset")), tracked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := withTracker(t)
			ReportError(context.Background(), tt.err, map[string]interface{}{"table": "table_a"})
			if tt.tracked {
				require.Len(t, tracker.errors, 1)
				assert.Equal(t, tt.err, tracker.errors[0])
			} else {
				assert.Empty(t, tracker.errors)
			}
		})
	}
}

func TestHandlePanic(t *testing.T) {
	tracker := withTracker(t)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = HandlePanic("Fetch", r)
			}
		}()
		panic("boom")
	}()

	require.Error(t, err)
	assert.Equal(t, "panic in Fetch: boom", err.Error())
	assert.Equal(t, []interface{}{"boom"}, tracker.panics)
}

func TestCatchPanicCallback(t *testing.T) {
	tracker := withTracker(t)

	var got any
	func() {
		defer CatchPanicCallback("worker", func(err any) { got = err })
		panic("lost connection")
	}()

	assert.Equal(t, "lost connection", got)
	assert.Len(t, tracker.panics, 1)
}

func TestCloseErrorTracking(t *testing.T) {
	tracker := withTracker(t)
	require.NoError(t, CloseErrorTracking())
	assert.True(t, tracker.closed)

	InitErrorTracking(nil)
	assert.NoError(t, CloseErrorTracking())
}
