package gotlm

import (
	"errors"
	"fmt"
)

// ErrEmptyPath is returned when a segment with an empty path is unwrapped.
var ErrEmptyPath = errors.New("segment path is empty")

// MissingTranslationError indicates a source string has no translation in
// the requested locale.
type MissingTranslationError struct {
	Path   string // Context path of the segment
	Locale string // Locale the translation was requested in
	Source string // Source text (html with ids)
}

func (e *MissingTranslationError) Error() string {
	return fmt.Sprintf("missing translation for %q in locale %s", e.Path, e.Locale)
}

// MissingRelatedObjectError indicates a related object has not been
// translated into the target locale yet.
type MissingRelatedObjectError struct {
	Path           string
	ContentType    string
	TranslationKey string
	Locale         string
}

func (e *MissingRelatedObjectError) Error() string {
	return fmt.Sprintf("related %s %s at %q has no translation in locale %s",
		e.ContentType, e.TranslationKey, e.Path, e.Locale)
}

// MissingSegmentsError indicates fewer (or more) segments than required were
// supplied for a target.
type MissingSegmentsError struct {
	Target   string // Object or translation the segments were meant for
	Path     string // Path of the template or field, if known
	Expected int
	Got      int
}

func (e *MissingSegmentsError) Error() string {
	where := e.Target
	if e.Path != "" {
		where += " at " + e.Path
	}
	return fmt.Sprintf("missing segments for %s: expected %d, got %d", where, e.Expected, e.Got)
}

// UnrecognizedTypeError indicates a field or block kind the walkers cannot
// handle and that exposes no segment hook.
type UnrecognizedTypeError struct {
	Path string
	Kind string
}

func (e *UnrecognizedTypeError) Error() string {
	return fmt.Sprintf("unrecognised field or block type %q at %q: implement a segment hook for it", e.Kind, e.Path)
}

// FieldValidationError indicates a reconstructed value was rejected by its
// field declaration.
type FieldValidationError struct {
	Field   string
	Message string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Message)
}

// ProviderError indicates a machine translation provider failure (API error, rate limit, etc.).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure (parse error, etc.).
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the provider returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
