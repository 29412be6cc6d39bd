//go:build js_eval

package persist

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja. Expressions are
// wrapped in a function body, so object literals need parentheses: ({a: a}).
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineJS, expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx.withDefaults(), expression, program)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineJS, expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) compile(expression string) (*goja.Program, error) {
	key := EngineJS + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("reducer", wrapJSExpression(expression), true)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	// A fresh runtime per call keeps reducers free of shared globals.
	vm := goja.New()
	snapshot := ctx.snapshotMap()
	for key, value := range snapshot {
		if err := vm.Set(key, value); err != nil {
			return nil, wrapEvaluationError(EngineJS, expression, err)
		}
	}
	for key, value := range map[string]any{
		"state":    snapshot,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	} {
		if err := vm.Set(key, value); err != nil {
			return nil, wrapEvaluationError(EngineJS, expression, err)
		}
	}
	if err := e.injectFunctions(vm); err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, err)
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectFunctions(vm *goja.Runtime) error {
	if e.registry == nil {
		return nil
	}
	if err := vm.Set("call", func(name string, args ...any) (any, error) {
		return e.registry.Call(name, args...)
	}); err != nil {
		return err
	}
	for _, name := range e.registry.Names() {
		fn := name
		if err := vm.Set(fn, func(args ...any) (any, error) {
			return e.registry.Call(fn, args...)
		}); err != nil {
			return err
		}
	}
	return nil
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}

func jsEvaluatorAvailable() bool {
	return true
}
