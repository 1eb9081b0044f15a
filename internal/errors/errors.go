// Package errors provides a categorized, component-tagged error type used
// throughout the audio core. It is a drop-in companion to the standard
// library errors package: Is/As/Unwrap/Join all pass through.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCategory groups errors for metrics and diagnostic-ring classification.
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "validation"
	CategoryResource     ErrorCategory = "resource"
	CategoryState        ErrorCategory = "state"
	CategoryPlatform     ErrorCategory = "platform"
	CategoryIO           ErrorCategory = "io"
	CategoryTimeout      ErrorCategory = "timeout"
	CategoryCancellation ErrorCategory = "cancellation"
	CategoryAudio        ErrorCategory = "audio-processing"
	CategoryBuffer       ErrorCategory = "audio-buffer"
	CategoryWorker       ErrorCategory = "worker-pool"
	CategoryCache        ErrorCategory = "decode-cache"
	CategoryGeneric      ErrorCategory = "generic"
)

// ComponentUnknown is used when no component was specified.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with a component, category and free-form context.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }
func (ee *EnhancedError) Unwrap() error { return ee.Err }

func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the tagged component, defaulting to ComponentUnknown.
func (ee *EnhancedError) GetComponent() string {
	if ee.Component == "" {
		return ComponentUnknown
	}
	return ee.Component
}

// GetContext returns a defensive copy of the error's context map.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	out := make(map[string]any, len(ee.Context))
	maps.Copy(out, ee.Context)
	return out
}

// ErrorBuilder is a fluent constructor for EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around an existing error. err may be nil, in which
// case Build synthesizes one from the category name.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build finalizes the EnhancedError. Component and Category default to
// ComponentUnknown and CategoryGeneric respectively when unset.
func (eb *ErrorBuilder) Build() *EnhancedError {
	err := eb.err
	category := eb.category
	if category == "" {
		category = CategoryGeneric
	}
	if err == nil {
		err = stderrors.New(string(category))
	}

	component := eb.component
	if component == "" {
		component = ComponentUnknown
	}

	return &EnhancedError{
		Err:       err,
		Component: component,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// Standard-library passthroughs so this package can be used in place of "errors".

func NewStd(text string) error      { return stderrors.New(text) }
func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Unwrap(err error) error        { return stderrors.Unwrap(err) }
func Join(errs ...error) error      { return stderrors.Join(errs...) }

// IsCategory reports whether err is an EnhancedError tagged with category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// Convenience constructors for the categories this module actually raises.

func ValidationError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryValidation).Build()
}

func ResourceError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryResource).Build()
}

func StateError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryState).Build()
}

func PlatformError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryPlatform).Build()
}

func IOError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryIO).Build()
}

func TimeoutError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryTimeout).Build()
}

func CancellationError(component string, err error) *EnhancedError {
	return New(err).Component(component).Category(CategoryCancellation).Build()
}
