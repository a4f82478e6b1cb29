// Package errors provides categorized error handling for the notification bridge.
//
// Every error surfaced by the library carries a Category identifying which of
// the five failure kinds occurred, and, where applicable, the name of the
// notifier involved. Errors are built through a fluent builder and remain
// compatible with the standard errors.Is/errors.As machinery via the category
// sentinels (ErrValidation, ErrNotification, ...).
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// Category represents the kind of failure for grouping and programmatic checks.
type Category string

const (
	// CategoryConfiguration covers invalid setup values (negative timeout,
	// missing assemble strategy). Raised at construction, never during send.
	CategoryConfiguration Category = "configuration"

	// CategoryValidation covers request fields failing schema or
	// message-type checks. Raised before any network I/O.
	CategoryValidation Category = "validation"

	// CategoryNotFound covers lookups of notifier names absent from the registry.
	CategoryNotFound Category = "no-such-notifier"

	// CategoryNotification covers transport and platform-level send failures,
	// raised after an HTTP attempt was made.
	CategoryNotification Category = "notification"

	// CategoryPlugin covers registered constructors that could not be
	// resolved or instantiated.
	CategoryPlugin Category = "plugin"
)

// Category sentinels for use with errors.Is. Matching is by category only:
// errors.Is(err, ErrValidation) reports whether err is any validation error.
var (
	ErrConfiguration  = &sentinel{CategoryConfiguration}
	ErrValidation     = &sentinel{CategoryValidation}
	ErrNoSuchNotifier = &sentinel{CategoryNotFound}
	ErrNotification   = &sentinel{CategoryNotification}
	ErrPlugin         = &sentinel{CategoryPlugin}
)

type sentinel struct {
	category Category
}

func (s *sentinel) Error() string {
	return string(s.category) + " error"
}

// Error is a categorized error with optional notifier attribution and context.
type Error struct {
	Err       error
	Category  Category
	Notifier  string
	Context   map[string]any
	Timestamp time.Time
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Notifier != "" {
		return fmt.Sprintf("%s: notifier %q: %s", e.Category, e.Notifier, msg)
	}
	return fmt.Sprintf("%s: %s", e.Category, msg)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the category sentinels, so callers can write
// errors.Is(err, ErrNotification) without knowing the concrete type.
func (e *Error) Is(target error) bool {
	if s, ok := target.(*sentinel); ok {
		return e.Category == s.category
	}
	return false
}

// GetContext returns a copy of the attached context data.
func (e *Error) GetContext() map[string]any {
	if e.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(e.Context))
	maps.Copy(cp, e.Context)
	return cp
}

// Builder provides a fluent interface for creating categorized errors.
type Builder struct {
	err      error
	category Category
	notifier string
	context  map[string]any
}

// New starts building a categorized error wrapping err.
func New(err error) *Builder {
	return &Builder{err: err}
}

// Newf starts building a categorized error from a formatted message.
func Newf(format string, args ...any) *Builder {
	return New(fmt.Errorf(format, args...))
}

// Category sets the error category.
func (b *Builder) Category(category Category) *Builder {
	b.category = category
	return b
}

// Notifier attributes the error to a notifier by its registered name.
func (b *Builder) Notifier(name string) *Builder {
	b.notifier = name
	return b
}

// Context adds a key/value pair of diagnostic context.
func (b *Builder) Context(key string, value any) *Builder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the error.
func (b *Builder) Build() *Error {
	category := b.category
	if category == "" {
		category = CategoryNotification
	}
	return &Error{
		Err:       b.err,
		Category:  category,
		Notifier:  b.notifier,
		Context:   b.context,
		Timestamp: time.Now(),
	}
}

// NotifierName extracts the notifier attribution from an error chain,
// or returns the empty string when none is attached.
func NotifierName(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Notifier
	}
	return ""
}

// CategoryOf returns the category of err, or the empty category when err is
// not produced by this package.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need only one errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join wraps the standard errors.Join.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
