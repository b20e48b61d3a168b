// Package errext contains helpers for decorating error chains with a
// machine-readable kind, so that callers deep in the stack can classify an
// error without string matching, no matter how many times it was wrapped.
package errext

import "errors"

// Kind classifies the failures the module cache can produce.
type Kind uint8

// The error kinds, in rough order of where they occur on the load path.
const (
	KindNone Kind = iota
	BadName
	NotFound
	IoError
	LoadError
	SymbolNotFound
	NoSuchModule
	OutOfMemory
	NativeError
)

func (k Kind) String() string {
	switch k {
	case BadName:
		return "bad name"
	case NotFound:
		return "not found"
	case IoError:
		return "I/O error"
	case LoadError:
		return "load error"
	case SymbolNotFound:
		return "symbol not found"
	case NoSuchModule:
		return "no such module"
	case OutOfMemory:
		return "out of memory"
	case NativeError:
		return "native error"
	default:
		return "unknown"
	}
}

// HasKind is the interface implemented by errors carrying a Kind.
type HasKind interface {
	error
	Kind() Kind
}

var _ HasKind = withKindError{}

type withKindError struct {
	error
	kind Kind
}

func (wk withKindError) Kind() Kind {
	return wk.kind
}

func (wk withKindError) Unwrap() error {
	return wk.error
}

// WithKind returns an error with the given kind attached. The innermost kind
// wins, so wrapping an already classified error does not reclassify it.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil // this is the same behavior as errors.Wrap()
	}
	if KindOf(err) != KindNone {
		return err
	}
	return withKindError{error: err, kind: kind}
}

// KindOf returns the kind carried anywhere in err's chain, or KindNone.
func KindOf(err error) Kind {
	var typed HasKind
	if errors.As(err, &typed) {
		return typed.Kind()
	}
	return KindNone
}
