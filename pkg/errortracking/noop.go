package errortracking

import "context"

// NoOpProvider discards every event. NewProviderFromConfig returns it when
// error tracking is disabled so callers never check for a nil tracker.
type NoOpProvider struct{}

func NewNoOpProvider() *NoOpProvider {
	return &NoOpProvider{}
}

func (*NoOpProvider) CaptureError(context.Context, error, Severity, map[string]interface{}) {}

func (*NoOpProvider) CaptureMessage(context.Context, string, Severity, map[string]interface{}) {}

func (*NoOpProvider) CapturePanic(context.Context, interface{}, []byte, map[string]interface{}) {}

// Flush reports success immediately, there is never anything queued
func (*NoOpProvider) Flush(int) bool { return true }

func (*NoOpProvider) Close() error { return nil }
