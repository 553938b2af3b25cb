package ai

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestModelErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := fmt.Errorf("score candidate: %w", &ModelError{Kind: ModelErrorTransport, Err: cause})

	if !IsModelError(err) {
		t.Fatal("expected model error to be detected through wrapping")
	}
	if IsParseError(err) {
		t.Fatal("model error must not be reported as parse error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}

	var me *ModelError
	if !errors.As(err, &me) || !me.Temporary() {
		t.Fatalf("expected temporary transport error, got %+v", me)
	}
}

func TestModelErrorTemporary(t *testing.T) {
	t.Parallel()

	tests := map[ModelErrorKind]bool{
		ModelErrorTransport: true,
		ModelErrorQuota:     true,
		ModelErrorAuth:      false,
		ModelErrorBlocked:   false,
		ModelErrorEmpty:     false,
	}

	for kind, want := range tests {
		if got := (&ModelError{Kind: kind}).Temporary(); got != want {
			t.Fatalf("%s: expected temporary=%v, got %v", kind, want, got)
		}
	}
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ParseError{Kind: ParseErrorMissingKey, Detail: "score"}
	if !strings.Contains(err.Error(), "missing_key") || !strings.Contains(err.Error(), "score") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !IsParseError(fmt.Errorf("wrapped: %w", err)) {
		t.Fatal("expected parse error to be detected through wrapping")
	}
}
