package gotlm

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&MissingTranslationError{Path: "body.abc", Locale: "fr"}, `missing translation for "body.abc" in locale fr`},
		{&MissingRelatedObjectError{Path: "author", ContentType: "person", TranslationKey: "k1", Locale: "de"}, `related person k1 at "author" has no translation in locale de`},
		{&MissingSegmentsError{Target: "page 1", Path: "body", Expected: 3, Got: 2}, "missing segments for page 1 at body: expected 3, got 2"},
		{&MissingSegmentsError{Target: "translation x", Expected: 4, Got: 1}, "missing segments for translation x: expected 4, got 1"},
		{&UnrecognizedTypeError{Path: "body.u1", Kind: "video"}, `unrecognised field or block type "video" at "body.u1": implement a segment hook for it`},
		{&FieldValidationError{Field: "title", Message: "too long"}, "field title: too long"},
		{&ProviderError{Message: "rate limited", Retryable: true}, "provider error: rate limited"},
		{&ProviderError{Message: "call failed", Cause: io.ErrUnexpectedEOF}, "provider error: call failed: unexpected EOF"},
		{&CacheError{Message: "connection failed"}, "cache error: connection failed"},
		{&ProcessorError{Message: "parse failed", ContentType: "html"}, "processor error (html): parse failed"},
		{&CountMismatchError{Expected: 5, Got: 3}, "translation count mismatch: expected 5, got 3"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T", tt.err), func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q\nwant      %q", got, tt.want)
			}
		})
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("publishing page 7: %w", &MissingTranslationError{Path: "body.abc", Locale: "fr"})

	var mt *MissingTranslationError
	if !errors.As(err, &mt) {
		t.Fatal("errors.As should find MissingTranslationError")
	}
	if mt.Path != "body.abc" {
		t.Errorf("Path = %q", mt.Path)
	}
}

func TestErrorsUnwrapCause(t *testing.T) {
	cause := errors.New("boom")
	for _, err := range []error{
		&ProviderError{Message: "call failed", Cause: cause},
		&CacheError{Message: "set", Cause: cause},
		&ProcessorError{Message: "render", Cause: cause, ContentType: "html"},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T should unwrap to its cause", err)
		}
	}
}
