package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/decalflow/schema"
)

// NewFunction exposes a plain Go function as a tool.
//
// Example:
//
//	lookup := tool.NewFunction(
//	  "lookupDesign",
//	  "Fetch a published design by id",
//	  schema.Object(schema.Prop("designId", schema.String().NonEmpty())),
//	  nil,
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return gallery.Get(ctx, args["designId"].(string))
//	  },
//	)
func NewFunction(name, description string, input, output *schema.Descriptor, fn Handler) *Definition {
	return &Definition{
		Name:        name,
		Description: description,
		Input:       input,
		Output:      output,
		Handler:     fn,
	}
}

// NewTypedFunction is NewFunction for handlers working on Go structs. The
// validated arguments are decoded into In through their JSON form, so In's
// json tags must match the input descriptor's field names.
func NewTypedFunction[In, Out any](
	name, description string,
	input, output *schema.Descriptor,
	fn func(ctx context.Context, in In) (Out, error),
) *Definition {
	return NewFunction(name, description, input, output, func(ctx context.Context, args map[string]any) (any, error) {
		var in In
		if err := decode(args, &in); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		return fn(ctx, in)
	})
}

func decode(args map[string]any, target any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}
