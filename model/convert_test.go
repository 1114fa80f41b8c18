package model

import (
	"testing"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/media"
	"github.com/hupe1980/decalflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResultPayload(t *testing.T) {
	type result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	assert.Equal(t,
		map[string]any{"success": true, "message": "ok"},
		ToolResultPayload(core.FunctionResponse{Name: "t", Response: result{Success: true, Message: "ok"}}),
	)
	assert.Equal(t,
		map[string]any{"result": "plain"},
		ToolResultPayload(core.FunctionResponse{Name: "t", Response: "plain"}),
	)
	assert.Equal(t,
		map[string]any{"error": "boom"},
		ToolResultPayload(core.FunctionResponse{Name: "t", Error: "boom", Response: "ignored"}),
	)
	assert.JSONEq(t, `{"error":"boom"}`, ToolResultJSON(core.FunctionResponse{Error: "boom"}))
}

func TestStructuredShape(t *testing.T) {
	assert.Nil(t, StructuredShape(nil))
	assert.Nil(t, StructuredShape(schema.String()))
	assert.Nil(t, StructuredShape(schema.Object(schema.Prop("image", schema.Media("image/png")))))

	out := schema.Object(
		schema.Prop("audio", schema.PCMAudio(media.Params{Channels: 1, SampleRate: 24000, BitDepth: 16})),
		schema.Prop("title", schema.String()),
	)
	shape := StructuredShape(out)
	require.NotNil(t, shape)
	require.Len(t, shape.Fields, 1)
	assert.Equal(t, "title", shape.Fields[0].Name)

	assert.Contains(t, SchemaInstruction(shape), `"title"`)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments("")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseArguments(`{"quantity": 2}`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), args["quantity"])

	_, err = ParseArguments(`{`)
	assert.Error(t, err)
}
