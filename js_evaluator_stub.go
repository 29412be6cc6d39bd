//go:build !js_eval

package persist

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
