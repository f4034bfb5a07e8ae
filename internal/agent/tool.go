package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/bobmcallan/tickerwise/internal/common"
)

// FunctionTool is a tool the model can call by name with JSON arguments.
type FunctionTool struct {
	Name        string
	Description string

	// ParamsJSONSchema describes the arguments object
	ParamsJSONSchema map[string]any

	// Invoke runs the tool with the raw JSON arguments and returns the text
	// handed back to the model.
	Invoke func(ctx context.Context, arguments string) (string, error)
}

// NewFunctionTool builds a FunctionTool whose arguments are decoded into T
// and whose result is JSON encoded. The schema is reflected from T.
func NewFunctionTool[T, R any](name, description string, handler func(ctx context.Context, args T) (R, error)) FunctionTool {
	return FunctionTool{
		Name:             name,
		Description:      description,
		ParamsJSONSchema: common.ReflectSchema(reflect.TypeFor[T]()),
		Invoke: func(ctx context.Context, arguments string) (string, error) {
			var args T
			if arguments == "" {
				arguments = "{}"
			}
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return "", fmt.Errorf("failed to parse arguments for %s: %w", name, err)
			}
			out, err := handler(ctx, args)
			if err != nil {
				return "", err
			}
			data, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("failed to encode %s result: %w", name, err)
			}
			return string(data), nil
		},
	}
}
