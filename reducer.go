package persist

import (
	"fmt"
	"time"
)

// NewReducer compiles expression with evaluator and returns a Reducer that
// evaluates it against the state on every save. The expression result becomes
// the persisted value.
func NewReducer(evaluator Evaluator, expression string) (Reducer, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	return func(state State) (any, error) {
		return rule.Evaluate(RuleContext{Snapshot: state})
	}, nil
}

// NewEvaluator returns the built-in evaluator for engine.
func NewEvaluator(engine string, opts ...EvaluatorOption) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

// resolveReducer picks the configured Reducer, compiling ReducerExpression
// when no function was supplied. The returned reducer reports timings to
// the configured logger.
func resolveReducer(cfg Config, options persisterConfig) (Reducer, error) {
	reducer := cfg.Reducer
	logger := options.logger
	if reducer == nil && cfg.ReducerExpression != "" {
		evaluator := options.evaluator
		if evaluator == nil {
			var evalOpts []EvaluatorOption
			if options.cache != nil {
				evalOpts = append(evalOpts, EvaluatorWithProgramCache(options.cache))
			}
			if options.functions != nil {
				evalOpts = append(evalOpts, EvaluatorWithFunctions(options.functions))
			}
			var err error
			evaluator, err = NewEvaluator(cfg.ReducerEngine, evalOpts...)
			if err != nil {
				return nil, fmt.Errorf("%w: reducer: %w", ErrInvalidConfiguration, err)
			}
		}
		compiled, err := NewReducer(evaluator, cfg.ReducerExpression)
		if err != nil {
			return nil, fmt.Errorf("%w: reducer: %w", ErrInvalidConfiguration, err)
		}
		reducer = compiled
	}
	if reducer == nil {
		return nil, nil
	}
	return func(state State) (any, error) {
		start := time.Now()
		value, err := reducer(state)
		logger.LogPersist(LogEvent{Op: LogOpReduce, Duration: time.Since(start), Err: err})
		return value, err
	}, nil
}
