package dbmanager

import (
	"errors"
	"fmt"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

var (
	// ErrConnectionNotFound means no connection is registered under the requested name
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrConnectionClosed means the connection was never opened or has been closed
	ErrConnectionClosed = errors.New("connection is closed")

	ErrUnsupportedDatabase = errors.New("unsupported database type")

	// ErrNoDefaultConnection means a request named no connection and none is the default
	ErrNoDefaultConnection = errors.New("no default connection configured")

	ErrAlreadyConnected = errors.New("already connected")
)

// ConnectionError records which connection failed and during which step
type ConnectionError struct {
	Name      string
	Operation string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %q: %s: %v", e.Name, e.Operation, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func NewConnectionError(name, operation string, err error) *ConnectionError {
	return &ConnectionError{Name: name, Operation: operation, Err: err}
}

// ConfigurationError names the connection setting that failed validation
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid connection configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid connection configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfigurationError(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

// ClassifyResolveError maps a failure to resolve a connection's catalog onto
// the record-access error kinds. name is the requested connection, empty for
// the default one.
func ClassifyResolveError(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConnectionNotFound):
		return common.NewNotFoundError("connection %q is not configured", name)
	case errors.Is(err, ErrNoDefaultConnection):
		return common.NewNotFoundError("no default connection is configured")
	case errors.Is(err, ErrConnectionClosed):
		return &common.ConflictError{Retryable: true, Err: NewConnectionError(name, "resolve", err)}
	}
	return common.NewInternalError("catalog", err)
}
