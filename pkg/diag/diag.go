// Package diag defines the fixed error taxonomy every compilation stage
// reports through: one Kind per category of fatal diagnostic, wrapped in
// a single *Error type carrying an optional source position.
//
// The teacher reports errors with one bespoke struct per failure mode
// (pkg/cpp/include.go's IncludeError, CircularIncludeError — each its own
// type with its own Error() method). This package generalizes that same
// pointer-receiver-struct-with-Error()-method shape to a fixed, closed
// set of compiler diagnostics sharing one struct discriminated by Kind,
// since the taxonomy is known up front and every stage needs to report
// through the same vocabulary rather than inventing a new type per site.
package diag

import "fmt"

// Kind discriminates the fixed set of fatal diagnostics this compiler
// reports. Every compilation stops at the first diagnostic — there is no
// error recovery.
type Kind int

const (
	SyntaxError Kind = iota
	UndefinedIdentifier
	DuplicateDefinition
	NonConstInConstContext
	AssignToConstant
	UnsupportedOperator
	ArityMismatch
	BreakOutsideLoop
	ContinueOutsideLoop
	IRParseError
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case UndefinedIdentifier:
		return "UndefinedIdentifier"
	case DuplicateDefinition:
		return "DuplicateDefinition"
	case NonConstInConstContext:
		return "NonConstInConstContext"
	case AssignToConstant:
		return "AssignToConstant"
	case UnsupportedOperator:
		return "UnsupportedOperator"
	case ArityMismatch:
		return "ArityMismatch"
	case BreakOutsideLoop:
		return "BreakOutsideLoop"
	case ContinueOutsideLoop:
		return "ContinueOutsideLoop"
	case IRParseError:
		return "IRParseError"
	default:
		return "UnknownError"
	}
}

// Pos is a source location, line/column both 1-based. A zero Pos means
// no position information is available (e.g. an error raised after the
// token stream has been discarded).
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Error is a single fatal diagnostic.
type Error struct {
	Kind    Kind
	Pos     Pos
	Msg     string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Pos.Line != 0 {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an Error with no position information.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// At builds an Error carrying a source position.
func At(kind Kind, pos Pos, msg string) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: msg}
}

// Wrap builds an Error that carries an underlying cause, unwrappable via
// errors.Is/errors.As (e.g. wrapping pkg/constfold.ErrNotConst under
// NonConstInConstContext).
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Wrapped: cause}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
