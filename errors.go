package kinetex

import (
	"errors"
	"fmt"
)

// Standard error variables. Callers match them with errors.Is.
var (
	// Name resolution
	ErrNameNotFound  = errors.New("name not found")
	ErrWrongKind     = errors.New("name has the wrong kind")
	ErrDuplicateName = errors.New("name already exists")
	ErrProtectedName = errors.New("name is protected")
	ErrNameInUse     = errors.New("name is still referenced")

	// Symbol table mutation
	ErrKeyNotFound = errors.New("key not found")

	// Rules and expressions
	ErrInvalidRule           = errors.New("invalid rule")
	ErrArityMismatch         = errors.New("arity mismatch")
	ErrUnknownSymbol         = errors.New("unknown symbol")
	ErrUnsupportedExpression = errors.New("unsupported expression")

	// Persistence
	ErrIO = errors.New("i/o error")
)

// NameError reports an identifier that could not be resolved for an operation.
type NameError struct {
	Op   string
	Name string
	Err  error
}

func newNameError(op, name string) *NameError {
	return &NameError{Op: op, Name: name, Err: ErrNameNotFound}
}

func (e *NameError) Error() string { return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err) }
func (e *NameError) Unwrap() error { return e.Err }

// UnsupportedExpressionError names the construct the compiler could not
// translate. It is fatal for one rendering only.
type UnsupportedExpressionError struct {
	Construct string
	Entity    string
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s in %q", ErrUnsupportedExpression, e.Construct, e.Entity)
	}
	return fmt.Sprintf("%s: %s", ErrUnsupportedExpression, e.Construct)
}

func (e *UnsupportedExpressionError) Is(target error) bool {
	return target == ErrUnsupportedExpression
}

// IsNotFound reports whether err stems from an unknown identifier or key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNameNotFound) || errors.Is(err, ErrKeyNotFound)
}
