package errortracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

// tagKeys are extra fields promoted to searchable Sentry tags
var tagKeys = []string{"schema", "table", "operation", "connection"}

// SentryProvider reports events to Sentry
type SentryProvider struct {
	hub *sentry.Hub
}

type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	Debug            bool
	SampleRate       float64
	TracesSampleRate float64
}

func NewSentryProvider(config SentryConfig) (*SentryProvider, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		Debug:            config.Debug,
		AttachStacktrace: true,
		SampleRate:       config.SampleRate,
		TracesSampleRate: config.TracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return &SentryProvider{hub: sentry.CurrentHub()}, nil
}

// CaptureError reports err tagged with its error kind. Integrity conflicts
// also carry the blocking child table.
func (s *SentryProvider) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
	if err == nil {
		return
	}

	event := s.newEvent(severity, err.Error(), extra)
	event.Exception = []sentry.Exception{{
		Value:      err.Error(),
		Type:       fmt.Sprintf("%T", err),
		Stacktrace: sentry.ExtractStacktrace(err),
	}}
	event.Tags["error_kind"] = common.Kind(err)

	var integrity *common.IntegrityConflictError
	if errors.As(err, &integrity) {
		event.Tags["child_table"] = integrity.ChildSchema + "." + integrity.ChildTable
	}

	s.hubFor(ctx).CaptureEvent(event)
}

func (s *SentryProvider) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
	if message == "" {
		return
	}
	s.hubFor(ctx).CaptureEvent(s.newEvent(severity, message, extra))
}

// CapturePanic reports a recovered panic with the captured goroutine stack
func (s *SentryProvider) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
	if recovered == nil {
		return
	}

	event := s.newEvent(SeverityError, fmt.Sprintf("Panic: %v", recovered), extra)
	event.Exception = []sentry.Exception{{Value: fmt.Sprintf("%v", recovered), Type: "panic"}}
	if stackTrace != nil {
		event.Extra["stack_trace"] = string(stackTrace)
	}

	s.hubFor(ctx).CaptureEvent(event)
}

func (s *SentryProvider) Flush(timeout int) bool {
	return sentry.Flush(time.Duration(timeout) * time.Second)
}

func (s *SentryProvider) Close() error {
	sentry.Flush(2 * time.Second)
	return nil
}

// hubFor prefers the request scoped hub so events join the request's scope
func (s *SentryProvider) hubFor(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return s.hub
}

func (s *SentryProvider) newEvent(severity Severity, message string, extra map[string]interface{}) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = sentryLevel(severity)
	event.Message = message
	event.Tags = map[string]string{}
	event.Extra = make(map[string]interface{}, len(extra))
	for k, v := range extra {
		event.Extra[k] = v
	}
	for _, key := range tagKeys {
		if v, ok := extra[key].(string); ok && v != "" {
			event.Tags[key] = v
		}
	}
	return event
}

func sentryLevel(severity Severity) sentry.Level {
	switch severity {
	case SeverityWarning:
		return sentry.LevelWarning
	case SeverityInfo:
		return sentry.LevelInfo
	case SeverityDebug:
		return sentry.LevelDebug
	default:
		return sentry.LevelError
	}
}
