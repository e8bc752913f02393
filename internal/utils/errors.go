// Package utils provides small cross-cutting helpers shared by the
// storage engine: error wrapping, buffer pooling, endian helpers and
// overflow-checked arithmetic.
package utils

import "fmt"

// WrappedError carries the operation context a low-level failure
// occurred in, alongside the underlying cause.
type WrappedError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Is/errors.As.
func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// WrapError attaches context to a lower-level error. Returns nil when
// cause is nil so call sites can write `return utils.WrapError(ctx, err)`
// unconditionally.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &WrappedError{Context: context, Cause: cause}
}
