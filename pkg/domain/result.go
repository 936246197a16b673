package domain

// Result wraps the outcome of a repository operation. A failed Result carries
// the underlying error; its message is surfaced to callers unchanged.
type Result[T any] struct {
	value T
	err   error
}

// Success returns a successful Result carrying v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure returns a failed Result carrying err.
func Failure[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.err == nil }

// Value returns the carried value; zero on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure cause, nil on success.
func (r Result[T]) Err() error { return r.err }

// Message returns the failure message, empty on success.
func (r Result[T]) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// Unwrap returns value and error in the conventional Go pair.
func (r Result[T]) Unwrap() (T, error) { return r.value, r.err }
