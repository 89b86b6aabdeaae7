package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stable error codes carried by OpError.  These survive into result
// summaries, so renaming one is a breaking change for consumers.
const (
	CodeMissingSource        = "missing-source"
	CodeBadConfig            = "bad-config"
	CodeUnknownFormat        = "unknown-format"
	CodePathEscape           = "path-escape"
	CodeArchiveExtraction    = "archive-extraction-failure"
	CodeArchiveWrite         = "archive-write-failure"
	CodeParseFailure         = "parse-failure"
	CodeAttachmentParent     = "attachment-parent-not-found"
	CodeContentTooLarge      = "content-too-large"
	CodeChecksumFailure      = "checksum-failure"
	CodeRepositoryCall       = "repository-call-failed"
	CodeDependencyMissing    = "dependency-unavailable"
	CodeDependencyTimeout    = "dependency-load-timeout"
	CodeFileRead             = "file-read-failure"
	CodeFileWrite            = "file-write-failure"
	CodeVCSFailure           = "vcs-failure"
	CodeUnsupportedOperation = "unsupported-operation"
)

// OpError is the typed item-level failure that lands in FileResult.Err and in
// the summary's error list.  Raw untyped failures never propagate past the
// item boundary.
type OpError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Time    time.Time         `json:"time"`
}

func (e *OpError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	parts := make([]string, 0, len(e.Details))
	for k, v := range e.Details {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, " "))
}

// Errf builds an OpError from a format string.
func Errf(code string, format string, args ...any) *OpError {
	return &OpError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Time:    time.Now(),
	}
}

// WrapErr converts an arbitrary error into an OpError, reusing it when it
// already is one.
func WrapErr(code string, err error) *OpError {
	var op *OpError
	if ok := asOpError(err, &op); ok {
		return op
	}
	return &OpError{
		Code:    code,
		Message: err.Error(),
		Time:    time.Now(),
	}
}

func asOpError(err error, target **OpError) bool {
	for err != nil {
		if op, ok := err.(*OpError); ok {
			*target = op
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// WithDetail attaches one contextual key/value and returns the error for
// chaining.
func (e *OpError) WithDetail(key, value string) *OpError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// ErrorCollector accumulates typed errors and free-text warnings across one
// operation.  It never fails itself; appending is all it does.  Safe for use
// from batch workers.
type ErrorCollector struct {
	mu       sync.Mutex
	errors   []OpError
	warnings []string
}

func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

func (c *ErrorCollector) Add(err *OpError) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, *err)
}

func (c *ErrorCollector) Addf(code string, format string, args ...any) {
	c.Add(Errf(code, format, args...))
}

func (c *ErrorCollector) Warn(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *ErrorCollector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

func (c *ErrorCollector) Errors() []OpError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OpError, len(c.errors))
	copy(out, c.errors)
	return out
}

func (c *ErrorCollector) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Sample returns at most n collected errors, for bounded summary output.
func (c *ErrorCollector) Sample(n int) []OpError {
	errs := c.Errors()
	if len(errs) > n {
		errs = errs[:n]
	}
	return errs
}
