package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // boundary array to native value
	PhaseCast     Phase = "cast"     // native value to boundary array
	PhaseBind     Phase = "bind"     // signature analysis and overload resolution
	PhaseHost     Phase = "host"     // registration with a scripting environment
	PhaseValidate Phase = "validate" // data validation
	PhaseRuntime  Phase = "runtime"  // runtime operations
)

// Kind categorizes the error
type Kind string

const (
	KindNotConvertible            Kind = "not_convertible"
	KindUnsupportedDimensionality Kind = "unsupported_dimensionality"
	KindUnsupportedElementType    Kind = "unsupported_element_type"
	KindTypeMismatch              Kind = "type_mismatch"
	KindOutOfBounds               Kind = "out_of_bounds"
	KindInvalidData               Kind = "invalid_data"
	KindInvalidInput              Kind = "invalid_input"
	KindAllocation                Kind = "allocation"
	KindNilPointer                Kind = "nil_pointer"
	KindRegistration              Kind = "registration"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	ArrayType string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ArrayType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ArrayType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", array ")
			b.WriteString(e.ArrayType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("array ")
			b.WriteString(e.ArrayType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ArrayType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ArrayType sets the boundary array description, e.g. "float32[4,4]"
func (b *Builder) ArrayType(t string) *Builder {
	b.err.ArrayType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the first *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotConvertible reports whether err only signals that a value does not
// fit the requested type, so another overload may be tried.
func IsNotConvertible(err error) bool {
	return IsKind(err, KindNotConvertible)
}

// WithPath returns a copy of err prefixed with path. Non-structured errors
// are wrapped as invalid data.
func WithPath(err error, path ...string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return &Error{Phase: PhaseRuntime, Kind: KindInvalidData, Path: path, Cause: err}
	}
	cp := *e
	cp.Path = append(append([]string(nil), path...), e.Path...)
	return &cp
}

// Convenience constructors for common error patterns

// NotConvertible creates a soft error telling the caller the value does not
// match the target type.
func NotConvertible(phase Phase, goType, reason string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotConvertible,
		GoType: goType,
		Detail: reason,
	}
}

// UnsupportedDimensionality creates an error for an array of unsupported rank
func UnsupportedDimensionality(phase Phase, rank int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedDimensionality,
		Detail: fmt.Sprintf("unsupported dim %d, only 2-d or 3-d arrays are supported", rank),
		Value:  rank,
	}
}

// UnsupportedElementType creates an error for an element type outside the
// supported set. what names the offending type.
func UnsupportedElementType(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedElementType,
		Detail: fmt.Sprintf("unsupported element type %s, only uint8, uint16, int32, float32 are supported", what),
		Value:  what,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, arrayType string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTypeMismatch,
		Path:      path,
		GoType:    goType,
		ArrayType: arrayType,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
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

// Registration creates a registration error
func Registration(phase Phase, module, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s.%s", module, name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
