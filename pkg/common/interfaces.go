package common

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Router abstracts route registration so handlers stay router agnostic
type Router interface {
	HandleFunc(pattern string, handler HTTPHandlerFunc) RouteRegistration
}

// RouteRegistration allows method chaining for route configuration
type RouteRegistration interface {
	Methods(methods ...string) RouteRegistration
}

// Request interface abstracts HTTP request
type Request interface {
	Method() string
	URL() string
	Context() context.Context
	Header(key string) string
	Body() ([]byte, error)
	PathParam(key string) string
	QueryParam(key string) string
	AllQueryParams() map[string]string
	UnderlyingRequest() *http.Request
}

// ResponseWriter interface abstracts HTTP response
type ResponseWriter interface {
	SetHeader(key, value string)
	WriteHeader(statusCode int)
	Write(data []byte) (int, error)
	WriteJSON(data interface{}) error
	UnderlyingResponseWriter() http.ResponseWriter
}

// HTTPHandlerFunc type for HTTP handlers
type HTTPHandlerFunc func(ResponseWriter, Request)

// WrapHTTPRequest wraps standard http.ResponseWriter and *http.Request into common interfaces.
// Path parameters are supplied by the caller since the standard library has no router state.
func WrapHTTPRequest(w http.ResponseWriter, r *http.Request, vars map[string]string) (ResponseWriter, Request) {
	return &StandardResponseWriter{w: w}, &StandardRequest{r: r, vars: vars}
}

// StandardResponseWriter adapts http.ResponseWriter to ResponseWriter interface
type StandardResponseWriter struct {
	w      http.ResponseWriter
	status int
}

func (s *StandardResponseWriter) SetHeader(key, value string) {
	s.w.Header().Set(key, value)
}

func (s *StandardResponseWriter) WriteHeader(statusCode int) {
	s.status = statusCode
	s.w.WriteHeader(statusCode)
}

func (s *StandardResponseWriter) Write(data []byte) (int, error) {
	return s.w.Write(data)
}

func (s *StandardResponseWriter) WriteJSON(data interface{}) error {
	s.SetHeader("Content-Type", "application/json")
	return json.NewEncoder(s.w).Encode(data)
}

// Status returns the status written so far, or 0
func (s *StandardResponseWriter) Status() int {
	return s.status
}

func (s *StandardResponseWriter) UnderlyingResponseWriter() http.ResponseWriter {
	return s.w
}

// StandardRequest adapts *http.Request to Request interface
type StandardRequest struct {
	r    *http.Request
	vars map[string]string
	body []byte
}

func (s *StandardRequest) Method() string {
	return s.r.Method
}

func (s *StandardRequest) URL() string {
	return s.r.URL.String()
}

func (s *StandardRequest) Context() context.Context {
	return s.r.Context()
}

func (s *StandardRequest) Header(key string) string {
	return s.r.Header.Get(key)
}

func (s *StandardRequest) Body() ([]byte, error) {
	if s.body != nil {
		return s.body, nil
	}
	if s.r.Body == nil {
		return nil, nil
	}
	defer s.r.Body.Close()
	body, err := io.ReadAll(s.r.Body)
	if err != nil {
		return nil, err
	}
	s.body = body
	return body, nil
}

func (s *StandardRequest) PathParam(key string) string {
	return s.vars[key]
}

func (s *StandardRequest) QueryParam(key string) string {
	return s.r.URL.Query().Get(key)
}

func (s *StandardRequest) AllQueryParams() map[string]string {
	params := make(map[string]string)
	for key, values := range s.r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func (s *StandardRequest) UnderlyingRequest() *http.Request {
	return s.r
}
