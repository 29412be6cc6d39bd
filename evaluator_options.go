package persist

// EvaluatorOption configures the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EvaluatorWithProgramCache reuses compiled programs across evaluations.
func EvaluatorWithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorWithFunctions exposes the registry's functions to expressions,
// both by name and through call(name, args...).
func EvaluatorWithFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
