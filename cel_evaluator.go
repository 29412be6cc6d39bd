package persist

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"google.golang.org/protobuf/types/known/structpb"
)

var celIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var celReserved = map[string]struct{}{
	"true": {}, "false": {}, "null": {}, "in": {}, "as": {}, "break": {},
	"const": {}, "continue": {}, "else": {}, "for": {}, "function": {},
	"if": {}, "import": {}, "let": {}, "loop": {}, "package": {},
	"namespace": {}, "return": {}, "var": {}, "void": {}, "while": {},
	"state": {}, "now": {}, "args": {}, "metadata": {},
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Top-level state
// keys that are valid CEL identifiers are declared as dyn variables; every key
// is reachable through state["key"]. Registered functions take one or two
// arguments, or any number through call("name", [args]).
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &celEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineCEL, expression, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	snapshot := ctx.snapshotMap()
	program, err := e.compile(expression, snapshot)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, err)
	}
	out, _, err := program.Eval(e.activation(ctx, snapshot))
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, err)
	}
	value, err := celNative(out)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, err)
	}
	return value, nil
}

// Compile parses expression once against an empty environment so syntax
// errors surface early. Type checking runs per evaluation because the declared
// variables follow the state's keys.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineCEL, expression, fmt.Errorf("expression must not be empty"))
	}
	env, err := e.buildEnv(nil)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, issues.Err())
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

// compile type-checks expression against the declared variables of
// snapshot. Cached programs are keyed by expression and key set, since the
// environment follows the state's shape.
func (e *celEvaluator) compile(expression string, snapshot map[string]any) (celgo.Program, error) {
	key := celCacheKey(expression, snapshot)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := e.buildEnv(snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func celCacheKey(expression string, snapshot map[string]any) string {
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return EngineCEL + ":" + strings.Join(keys, ",") + ":" + expression
}

func (e *celEvaluator) buildEnv(snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("state", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	opts = append(opts, e.functionOptions()...)
	for key := range snapshot {
		if !celIdentifier.MatchString(key) {
			continue
		}
		if _, reserved := celReserved[key]; reserved {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext, snapshot map[string]any) map[string]any {
	activation := map[string]any{
		"state":    snapshot,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range snapshot {
		if _, reserved := celReserved[key]; reserved {
			continue
		}
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}

func (e *celEvaluator) functionOptions() []celgo.EnvOption {
	if e.registry == nil {
		return nil
	}
	opts := []celgo.EnvOption{
		celgo.Function("call",
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(func(name, args ref.Val) ref.Val {
					fn, ok := name.Value().(string)
					if !ok {
						return types.NewErr("persist: call name must be string")
					}
					native, err := celNative(args)
					if err != nil {
						return types.NewErr("%v", err)
					}
					list, _ := native.([]any)
					return e.callRegistry(fn, list...)
				}),
			),
		),
	}
	for _, name := range e.registry.Names() {
		if !celIdentifier.MatchString(name) {
			continue
		}
		if _, reserved := celReserved[name]; reserved || name == "call" {
			continue
		}
		fn := name
		opts = append(opts, celgo.Function(fn,
			celgo.Overload(fn+"_dyn",
				[]*celgo.Type{celgo.DynType},
				celgo.DynType,
				celgo.UnaryBinding(func(arg ref.Val) ref.Val {
					return e.callValues(fn, arg)
				}),
			),
			celgo.Overload(fn+"_dyn_dyn",
				[]*celgo.Type{celgo.DynType, celgo.DynType},
				celgo.DynType,
				celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return e.callValues(fn, lhs, rhs)
				}),
			),
		))
	}
	return opts
}

func (e *celEvaluator) callValues(name string, values ...ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, val := range values {
		native, err := celNative(val)
		if err != nil {
			return types.NewErr("%v", err)
		}
		args = append(args, native)
	}
	return e.callRegistry(name, args...)
}

func (e *celEvaluator) callRegistry(name string, args ...any) ref.Val {
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%v", err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

// celNative converts CEL aggregates into plain JSON-shaped Go values.
func celNative(val ref.Val) (any, error) {
	switch val.Type() {
	case types.MapType, types.ListType:
		native, err := val.ConvertToNative(reflect.TypeOf(&structpb.Value{}))
		if err != nil {
			return nil, err
		}
		pb, ok := native.(*structpb.Value)
		if !ok {
			return nil, fmt.Errorf("unexpected cel conversion result %T", native)
		}
		return pb.AsInterface(), nil
	case types.NullType:
		return nil, nil
	default:
		return val.Value(), nil
	}
}
