// Package tool implements the function calling subsystem that lets the
// generation backend invoke structured capabilities (partner APIs,
// side effects) with schema validated arguments and results, and consistent
// error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/schema"
)

// Handler implements a tool. It receives arguments already validated
// against the tool's input descriptor, with defaults applied.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition declares a tool the backend may call during a flow.
//
// Expected business failures (a partner rejecting an order) belong in the
// handler's output. A returned error is an unexpected failure and is
// reported as a *core.ToolExecutionError.
type Definition struct {
	// Name is the identifier the backend uses to request the tool.
	Name string
	// Description is shown to the backend to help it decide when to call.
	Description string
	// Input describes accepted arguments. It must be an object descriptor.
	Input *schema.Descriptor
	// Output, when set, is enforced on the handler's result.
	Output  *schema.Descriptor
	Handler Handler
}

// Validate checks the definition is complete.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("tool definition is nil")
	}
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if d.Input == nil || d.Input.Unwrap().Kind != schema.KindObject {
		return fmt.Errorf("tool %s: input must be an object schema", d.Name)
	}
	if d.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", d.Name)
	}
	return nil
}

// ModelDefinition is the declaration sent to the backend.
func (d *Definition) ModelDefinition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Input,
	}
}

// Definitions converts a tool set into backend declarations.
func Definitions(tools []*Definition) []model.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	out := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.ModelDefinition())
	}
	return out
}
