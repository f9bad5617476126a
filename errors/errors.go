package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode       Phase = "encode"        // Go to guest memory
	PhaseDecode       Phase = "decode"        // guest memory to Go
	PhaseCompile      Phase = "compile"       // GLSL to SPIR-V
	PhaseCrossCompile Phase = "cross_compile" // SPIR-V to target language
	PhaseValidate     Phase = "validate"      // variant and input validation
	PhaseLoad         Phase = "load"          // compiler module loading
	PhaseRuntime      Phase = "runtime"       // guest calls
	PhaseIO           Phase = "io"            // shader sources and artifacts
)

// Kind categorizes the error
type Kind string

const (
	KindCompilation   Kind = "compilation"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindOverflow      Kind = "overflow"
	KindAllocation    Kind = "allocation"
	KindNilPointer    Kind = "nil_pointer"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidEnum   Kind = "invalid_enum"
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
	KindMissingStage  Kind = "missing_stage"
	KindMissingExport Kind = "missing_export"
	KindInstantiation Kind = "instantiation"
	KindTrap          Kind = "trap"
	KindInternal      Kind = "internal"
)

// Error is a failure at one point of the compile pipeline. Path locates the
// offending field inside a boundary record or variant description, and
// Record names the packed record type it belongs to.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Record string
	Detail string
	Path   []string
}

// Error formats as "[phase] kind at a.b (Record): detail (caused by: ...)".
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Phase, e.Kind)
	if len(e.Path) > 0 {
		msg += " at " + strings.Join(e.Path, ".")
	}
	if e.Record != "" {
		msg += " (" + e.Record + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += " (caused by: " + e.Cause.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same phase and kind, so callers can
// test with errors.Is(err, &Error{Phase: ..., Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder assembles an Error field by field.
type Builder struct {
	err Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) Record(name string) *Builder {
	b.err.Record = name
	return b
}

func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the message, formatting it when args are given.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	b.err.Detail = msg
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Compilation creates a native compilation failure carrying the compiler's
// diagnostic text verbatim in Detail.
func Compilation(phase Phase, message string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCompilation,
		Detail: message,
	}
}

// AllocationFailed reports a failed guest malloc.
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds reports an element index past the end of a descriptor.
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Overflow reports a count or size above a decode limit.
func Overflow(phase Phase, path []string, value any, limit any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("count %v exceeds maximum %v", value, limit),
		Value:  value,
	}
}

// NilPointer reports a zero guest address where a record was expected.
func NilPointer(phase Phase, path []string, record string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Record: record,
		Detail: "null address",
	}
}

// InvalidEnum reports an ordinal outside a closed enum.
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Path:   path,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
	}
}

// Unsupported reports a request the pipeline has no route for.
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// MissingStage creates an error for a variant lacking a required stage
func MissingStage(variant, stage string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindMissingStage,
		Detail: fmt.Sprintf("variant %q is missing a %s shader", variant, stage),
		Value:  variant,
	}
}

// MissingExport creates an error for a compiler module lacking an export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("compiler module does not export %q", name),
		Value:  name,
	}
}

// Instantiation reports a failed compiler module instantiation.
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate compiler module",
		Cause:  cause,
	}
}

// Trap creates an error for a guest call that did not return normally
func Trap(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Detail: fmt.Sprintf("call %s", export),
		Value:  export,
		Cause:  cause,
	}
}

// Internal creates an error for states the caller cannot produce
func Internal(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
	}
}

// Wrap attaches a phase and kind to an error from outside the module.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load reports a compiler module that could not be read or compiled.
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
