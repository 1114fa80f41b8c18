package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/schema"
)

// ToolResultPayload renders a tool response as the object handed back to a
// backend: the handler's object output as-is, scalars under "result", and
// failures under "error".
func ToolResultPayload(fr core.FunctionResponse) map[string]any {
	if fr.Error != "" {
		return map[string]any{"error": fr.Error}
	}
	v, err := schema.Normalize(fr.Response)
	if err != nil {
		return map[string]any{"result": fmt.Sprintf("%v", fr.Response)}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": v}
}

// ToolResultJSON is ToolResultPayload encoded as a JSON string, for
// providers that take tool results as text.
func ToolResultJSON(fr core.FunctionResponse) string {
	b, err := json.Marshal(ToolResultPayload(fr))
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}

// StructuredShape returns the JSON-object shape the backend should produce
// for out, or nil when plain text is expected.
func StructuredShape(out *schema.Descriptor) *schema.Descriptor {
	d := schema.WithoutMedia(out)
	if d == nil {
		return nil
	}
	if inner := d.Unwrap(); inner == nil || inner.Kind != schema.KindObject || len(inner.Fields) == 0 {
		return nil
	}
	return d
}

// SchemaInstruction is a system prompt suffix asking for JSON conforming to
// d, used by providers without native structured output.
func SchemaInstruction(d *schema.Descriptor) string {
	b, err := json.Marshal(schema.ToJSONSchema(d))
	if err != nil {
		return ""
	}
	return "Respond only with a single JSON object, without markdown fences, that conforms to this JSON schema:\n" + string(b)
}

// ParseArguments decodes a tool call's JSON argument string. An empty string
// yields an empty object.
func ParseArguments(args string) (map[string]any, error) {
	out := map[string]any{}
	if args == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(args), &out); err != nil {
		return nil, err
	}
	return out, nil
}
