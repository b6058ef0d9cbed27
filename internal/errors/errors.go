package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType is the pipeline stage or concern an error belongs to.
type ErrorType int

const (
	// ErrorTypeConfig - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// ErrorTypeScan - the source tree could not be enumerated
	ErrorTypeScan
	// ErrorTypeParse - a file produced no usable syntax tree
	ErrorTypeParse
	// ErrorTypeEmbedding - the embedding service failed for one input
	ErrorTypeEmbedding
	// ErrorTypeUpsert - a vector batch was rejected by the store
	ErrorTypeUpsert
	// ErrorTypeGraph - a graph write failed
	ErrorTypeGraph
	// ErrorTypeGraphExpansion - neighbor lookup for a retrieved chunk failed
	ErrorTypeGraphExpansion
	// ErrorTypeGeneration - the generative model call failed
	ErrorTypeGeneration
	// ErrorTypeInternal - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - the pipeline continues with degraded output
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - the current unit of work (a turn, a file) fails
	SeverityHigh
	// SeverityCritical - stops execution
	SeverityCritical
)

// Error is a structured error carrying a type, severity and context.
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]any
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is matches any *Error of the same type, so callers can write
// errors.Is(err, &Error{Type: ErrorTypeUpsert}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString renders the error with its cause, sorted context and stack.
func (e *Error) DetailedString() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Type, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&sb, "Caused by: %v\n", e.Cause)
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
		}
	}

	if e.StackTrace != "" {
		fmt.Fprintf(&sb, "Stack trace:\n%s\n", e.StackTrace)
	}

	return sb.String()
}

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeScan:
		return "SCAN"
	case ErrorTypeParse:
		return "PARSE"
	case ErrorTypeEmbedding:
		return "EMBEDDING"
	case ErrorTypeUpsert:
		return "UPSERT"
	case ErrorTypeGraph:
		return "GRAPH"
	case ErrorTypeGraphExpansion:
		return "GRAPH_EXPANSION"
	case ErrorTypeGeneration:
		return "GENERATION"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		fmt.Fprintf(&sb, "  %s:%d %s\n", file, line, fn.Name())
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]any),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error. A nil err yields nil.
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]any),
		StackTrace: captureStackTrace(2),
	}
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...any) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ScanError aborts ingestion: the root could not be walked.
func ScanError(err error, root string) *Error {
	return Wrap(err, ErrorTypeScan, SeverityCritical, "failed to scan source tree").
		WithContext("root", root)
}

// ParseError is recoverable; the file falls back to a single module chunk.
func ParseError(err error, file string) *Error {
	return Wrap(err, ErrorTypeParse, SeverityLow, "failed to parse file").
		WithContext("file", file)
}

// EmbeddingError drops the affected record and nothing else.
func EmbeddingError(err error, id string) *Error {
	return Wrap(err, ErrorTypeEmbedding, SeverityLow, "failed to embed chunk").
		WithContext("id", id)
}

// UpsertError is fatal for the batch. sample is serialized into the context
// so operators can see the shape of what the store rejected.
func UpsertError(err error, batch int, sample any) *Error {
	e := Wrap(err, ErrorTypeUpsert, SeverityCritical, fmt.Sprintf("failed to upsert vector batch %d", batch)).
		WithContext("batch", batch)
	if sample != nil {
		if data, mErr := json.Marshal(sample); mErr == nil {
			e.WithContext("sample_record", string(data))
		}
	}
	return e
}

// GraphError wraps a failed graph write.
func GraphError(err error, message string) *Error {
	return Wrap(err, ErrorTypeGraph, SeverityCritical, message)
}

// GraphExpansionError is recoverable; the chunk gets no neighbors.
func GraphExpansionError(err error, id string) *Error {
	return Wrap(err, ErrorTypeGraphExpansion, SeverityLow, "failed to expand graph neighbors").
		WithContext("id", id)
}

// GenerationError fails the current conversational turn.
func GenerationError(err error, model string) *Error {
	return Wrap(err, ErrorTypeGeneration, SeverityHigh, "answer generation failed").
		WithContext("model", model)
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...any) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err (or anything it wraps) is a critical *Error.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity
	}
	return SeverityMedium
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err wraps an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}
