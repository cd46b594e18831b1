// Package transform implements the pipeline's transformer node variants:
// passthrough, extract_field, format_string, math, and json_path. Every
// transformer is fail-open — an error leaves the payload unchanged and
// is only logged by the caller, never propagated as a pruned branch.
package transform

// Transformer maps an input payload to an output payload.
type Transformer interface {
	// Transform returns the new payload, or an error. Callers (the
	// executor) are responsible for falling back to the original
	// payload unchanged on error — Transform itself never does that
	// substitution, so it can be tested independently of the fail-open
	// policy.
	Transform(payload map[string]any) (map[string]any, error)
}

// Factory builds a Transformer from its params blob.
type Factory func(params map[string]any) (Transformer, error)

var registry = map[string]Factory{}

func register(name string, f Factory) {
	registry[name] = f
}

func init() {
	register("passthrough", newPassthroughTransformer)
	register("extract_field", newExtractFieldTransformer)
	register("format_string", newFormatStringTransformer)
	register("math", newMathTransformer)
	register("json_path", newJSONPathTransformer)
}

// New builds the named transformer type from params. An unknown type
// name is a construction-time error, rejecting the whole pipeline load.
func New(transformerType string, params map[string]any) (Transformer, error) {
	factory, ok := registry[transformerType]
	if !ok {
		return nil, unknownTypeError(transformerType)
	}
	return factory(params)
}

type unknownTypeError string

func (e unknownTypeError) Error() string { return "unknown transformer type: " + string(e) }

type passthroughTransformer struct{}

func newPassthroughTransformer(map[string]any) (Transformer, error) {
	return passthroughTransformer{}, nil
}

func (passthroughTransformer) Transform(payload map[string]any) (map[string]any, error) {
	return payload, nil
}
