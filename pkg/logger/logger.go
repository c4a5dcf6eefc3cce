package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/bitechdev/RecordSpec/pkg/errortracking"
	"go.uber.org/zap"
)

var Logger *zap.SugaredLogger
var errorTracker errortracking.Provider

// Init installs a production (JSON) or development (console) zap logger
func Init(dev bool) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	UpdateLogger(&cfg)
}

// UpdateLoggerPath is Init writing to path instead of stderr
func UpdateLoggerPath(path string, dev bool) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{path}
	UpdateLogger(&cfg)
}

// UpdateLogger replaces the global logger. A nil config logs JSON to
// recordspec.log.
func UpdateLogger(config *zap.Config) {
	if config == nil {
		defaultConfig := zap.NewProductionConfig()
		defaultConfig.OutputPaths = []string{"recordspec.log"}
		config = &defaultConfig
	}

	logger, err := config.Build()
	if err != nil {
		log.Print(err)
		return
	}

	Logger = logger.Sugar()
	Info("RecordSpec logger initialized")
}

func InitErrorTracking(provider errortracking.Provider) {
	errorTracker = provider
	if errorTracker != nil {
		Info("Error tracking initialized")
	}
}

func GetErrorTracker() errortracking.Provider {
	return errorTracker
}

// CloseErrorTracking flushes pending events, waiting up to five seconds
func CloseErrorTracking() error {
	if errorTracker == nil {
		return nil
	}
	errorTracker.Flush(5)
	return errorTracker.Close()
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

// logw writes message at lvl, falling back to the standard logger before Init
func logw(lvl level, message string, kv ...interface{}) {
	if Logger == nil {
		log.Printf("%s", message)
		return
	}
	kv = append(kv, "process_id", os.Getpid())
	switch lvl {
	case levelDebug:
		Logger.Debugw(message, kv...)
	case levelInfo:
		Logger.Infow(message, kv...)
	case levelWarn:
		Logger.Warnw(message, kv...)
	default:
		Logger.Errorw(message, kv...)
	}
}

// track forwards a warning or error message to the error tracker
func track(message string, severity errortracking.Severity) {
	if errorTracker == nil {
		return
	}
	errorTracker.CaptureMessage(context.Background(), message, severity, map[string]interface{}{
		"process_id": os.Getpid(),
	})
}

func Info(template string, args ...interface{}) {
	logw(levelInfo, fmt.Sprintf(template, args...))
}

func Warn(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	logw(levelWarn, message)
	track(message, errortracking.SeverityWarning)
}

func Error(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	logw(levelError, message)
	track(message, errortracking.SeverityError)
}

func Debug(template string, args ...interface{}) {
	logw(levelDebug, fmt.Sprintf(template, args...))
}

// ReportError logs a failed operation and forwards it to the error tracker when it
// is a server side failure. Client errors are logged at debug level only.
func ReportError(ctx context.Context, err error, fields map[string]interface{}) {
	if err == nil {
		return
	}
	if !errortracking.Reportable(err) {
		Debug("%v (%v)", err, fields)
		return
	}

	kv := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	logw(levelError, err.Error(), kv...)

	if errorTracker != nil {
		errorTracker.CaptureError(ctx, err, errortracking.SeverityError, fields)
	}
}

// capturePanic logs a recovered value with its stack and reports it once,
// as a panic rather than as an error message
func capturePanic(ctx context.Context, where string, r any, extra map[string]interface{}) {
	stack := debug.Stack()
	if Logger == nil {
		fmt.Printf("%s:PANIC->%+v\n%s", where, r, stack)
	} else {
		logw(levelError, fmt.Sprintf("Panic in %s: %v", where, r), "stack", string(stack))
	}

	if errorTracker != nil {
		extra["process_id"] = os.Getpid()
		errorTracker.CapturePanic(ctx, r, stack, extra)
	}
}

// CatchPanicCallback recovers a panic in a deferred call and hands the
// recovered value to cb. Use it as `defer logger.CatchPanicCallback(...)`.
func CatchPanicCallback(location string, cb func(err any)) {
	if err := recover(); err != nil {
		capturePanic(context.Background(), location, err, map[string]interface{}{"location": location})
		if cb != nil {
			cb(err)
		}
	}
}

func CatchPanic(location string) {
	CatchPanicCallback(location, nil)
}

// HandlePanic logs a value returned by recover() and converts it to an error:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = logger.HandlePanic("Fetch", r)
//	    }
//	}()
func HandlePanic(methodName string, r any) error {
	return HandlePanicContext(context.Background(), methodName, r)
}

// HandlePanicContext is HandlePanic for code that has a request context,
// so the tracker can link the panic to the request trace
func HandlePanicContext(ctx context.Context, methodName string, r any) error {
	capturePanic(ctx, methodName, r, map[string]interface{}{"method": methodName})
	return fmt.Errorf("panic in %s: %v", methodName, r)
}
