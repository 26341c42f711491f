package texsnap

import (
	"errors"
	"fmt"

	"github.com/alnah/go-texsnap/internal/texlog"
)

// Sentinel errors for request and renderer validation.
var (
	ErrEmptyBody         = errors.New("body cannot be empty")
	ErrInvalidEngine     = errors.New("invalid bibliography engine")
	ErrInvalidPasses     = errors.New("invalid pass count")
	ErrFieldTooLong      = errors.New("field exceeds maximum length")
	ErrInvalidResolution = errors.New("invalid resolution")
)

// Sentinel errors for pipeline failures. A *RenderError matches the one for
// its Kind with errors.Is.
var (
	ErrInvalidRequest     = errors.New("invalid render request")
	ErrToolNotFound       = errors.New("required tool not found")
	ErrCompilation        = errors.New("LaTeX compilation failed")
	ErrCompilationTimeout = errors.New("LaTeX compilation timed out")
	ErrConversion         = errors.New("PDF to PNG conversion failed")
	ErrConversionTimeout  = errors.New("PDF to PNG conversion timed out")
	ErrUnexpected         = errors.New("unexpected render error")
)

// Kind classifies a render failure.
type Kind string

// Failure kinds, as reported in responses.
const (
	KindInvalidRequest     Kind = "InvalidRequest"
	KindToolNotFound       Kind = "ToolNotFound"
	KindCompilationFailure Kind = "CompilationFailure"
	KindCompilationTimeout Kind = "CompilationTimeout"
	KindConversionFailure  Kind = "ConversionFailure"
	KindConversionTimeout  Kind = "ConversionTimeout"
	KindUnexpected         Kind = "UnexpectedError"
)

var kindSentinels = map[Kind]error{
	KindInvalidRequest:     ErrInvalidRequest,
	KindToolNotFound:       ErrToolNotFound,
	KindCompilationFailure: ErrCompilation,
	KindCompilationTimeout: ErrCompilationTimeout,
	KindConversionFailure:  ErrConversion,
	KindConversionTimeout:  ErrConversionTimeout,
	KindUnexpected:         ErrUnexpected,
}

// Diagnostic is one compiler error with its source line.
type Diagnostic = texlog.Diagnostic

// RenderError is the structured failure returned by Renderer.Render.
// Log, Source and Diagnostics are set for compilation failures only.
type RenderError struct {
	Kind        Kind
	Message     string
	Log         string
	Source      string
	Diagnostics []Diagnostic
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *RenderError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the Kind of err: empty for nil, KindUnexpected for errors
// that are not a *RenderError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *RenderError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnexpected
}

func newRenderError(kind Kind, err error) *RenderError {
	msg := string(kind)
	if err != nil {
		msg = err.Error()
	}
	return &RenderError{Kind: kind, Message: msg, Err: err}
}
