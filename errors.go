package persist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is returned by New when the configuration cannot be
// used. The wrapping error names the offending field.
var ErrInvalidConfiguration = errors.New("persist: invalid configuration")

// ErrNoEvaluator is returned when an expression reducer has no engine.
var ErrNoEvaluator = errors.New("persist: evaluator not configured")

// DecodeError reports a snapshot that exists but cannot be decoded into state.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("persist: decode %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("persist: %s evaluator %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		return evalErr
	}
	if strings.HasPrefix(err.Error(), "persist:") {
		return err
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
