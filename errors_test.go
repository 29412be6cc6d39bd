package persist

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "{a: missing}", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "{a: missing}" {
		t.Fatalf("unexpected metadata engine=%q expr=%q", evalErr.Engine, evalErr.Expr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
}

func TestDecodeErrorUnwraps(t *testing.T) {
	base := errors.New("unexpected token")
	err := error(&DecodeError{Path: "/tmp/store.json", Err: base})

	if !errors.Is(err, base) {
		t.Fatalf("expected decode error to unwrap")
	}
	if !strings.Contains(err.Error(), `"/tmp/store.json"`) {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}

func TestInvalidConfigWrapsSentinel(t *testing.T) {
	err := invalidConfig("storage location is required")
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if err.Error() != "persist: invalid configuration: storage location is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
