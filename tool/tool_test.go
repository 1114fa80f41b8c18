package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/schema"
)

type orderArgs struct {
	DesignID string  `json:"designId"`
	Quantity float64 `json:"quantity"`
}

type orderResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var (
	orderInput = schema.Object(
		schema.Prop("designId", schema.String().NonEmpty()),
		schema.Prop("quantity", schema.Number()),
		schema.Prop("rush", schema.OptionalWithDefault(schema.Boolean(), false)),
	)
	orderOutput = schema.Object(
		schema.Prop("success", schema.Boolean()),
		schema.Prop("message", schema.String()),
	)
)

func call(id, name, args string) core.FunctionCall {
	return core.FunctionCall{ID: id, Name: name, Arguments: args}
}

func TestDefinitionValidate(t *testing.T) {
	ok := NewFunction("send", "", orderInput, nil, func(context.Context, map[string]any) (any, error) { return nil, nil })
	assert.NoError(t, ok.Validate())

	assert.Error(t, (&Definition{Input: orderInput, Handler: ok.Handler}).Validate())
	assert.Error(t, (&Definition{Name: "x", Input: schema.String(), Handler: ok.Handler}).Validate())
	assert.Error(t, (&Definition{Name: "x", Input: orderInput}).Validate())

	defs := Definitions([]*Definition{ok})
	require.Len(t, defs, 1)
	assert.Equal(t, "send", defs[0].Name)
	assert.Same(t, orderInput, defs[0].Parameters)
}

func TestDispatchSuccessPassesValidatedArgs(t *testing.T) {
	var received map[string]any
	send := NewFunction("send", "", orderInput, orderOutput, func(_ context.Context, args map[string]any) (any, error) {
		received = args
		return orderResult{Success: true, Message: "queued"}, nil
	})

	results := NewDispatcher().Dispatch(context.Background(), []*Definition{send}, []core.FunctionCall{
		call("c1", "send", `{"designId":"d-1","quantity":2}`),
	})

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Err)
	assert.Equal(t, map[string]any{"designId": "d-1", "quantity": float64(2), "rush": false}, received)
	assert.Equal(t, "c1", results[0].Response.ID)
	assert.Equal(t, map[string]any{"success": true, "message": "queued"}, results[0].Response.Response)
}

func TestDispatchTypedFunction(t *testing.T) {
	var got orderArgs
	send := NewTypedFunction("send", "", orderInput, orderOutput, func(_ context.Context, in orderArgs) (orderResult, error) {
		got = in
		return orderResult{Success: false, Message: "out of stock"}, nil
	})

	res := NewDispatcher().Execute(context.Background(), []*Definition{send}, call("c1", "send", `{"designId":"d-9","quantity":1}`))
	require.Nil(t, res.Err)
	assert.Equal(t, orderArgs{DesignID: "d-9", Quantity: 1}, got)
	assert.Equal(t, false, res.Response.Response.(map[string]any)["success"])
}

func TestDispatchFailures(t *testing.T) {
	boom := errors.New("partner exploded")
	tools := []*Definition{
		NewFunction("send", "", orderInput, orderOutput, func(context.Context, map[string]any) (any, error) {
			return nil, boom
		}),
		NewFunction("panics", "", schema.Object(), nil, func(context.Context, map[string]any) (any, error) {
			panic("nil map")
		}),
		NewFunction("badResult", "", schema.Object(), orderOutput, func(context.Context, map[string]any) (any, error) {
			return map[string]any{"success": "yes"}, nil
		}),
	}

	tests := []struct {
		name string
		call core.FunctionCall
		code string
	}{
		{"unknown tool", call("1", "missing", `{}`), core.CodeUnknownTool},
		{"malformed json", call("2", "send", `{`), core.CodeInvalidArguments},
		{"schema mismatch", call("3", "send", `{"designId":"","quantity":1}`), core.CodeInvalidArguments},
		{"handler error", call("4", "send", `{"designId":"d","quantity":1}`), core.CodeExecution},
		{"panic", call("5", "panics", `{}`), core.CodePanic},
		{"invalid result", call("6", "badResult", ``), core.CodeInvalidResult},
	}

	d := NewDispatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Execute(context.Background(), tools, tt.call)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.code, res.Err.Code)
			assert.Equal(t, tt.call.Name, res.Err.Tool)
			assert.Equal(t, tt.call.ID, res.Response.ID)
			assert.NotEmpty(t, res.Response.Error)
			assert.Nil(t, res.Response.Response)
		})
	}

	res := d.Execute(context.Background(), tools, call("4", "send", `{"designId":"d","quantity":1}`))
	assert.ErrorIs(t, res.Err, boom)
}

func TestDispatchCanceledContext(t *testing.T) {
	calls := 0
	send := NewFunction("send", "", schema.Object(), nil, func(context.Context, map[string]any) (any, error) {
		calls++
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewDispatcher().Dispatch(ctx, []*Definition{send}, []core.FunctionCall{call("1", "send", ""), call("2", "send", "")})
	require.Len(t, results, 2)
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}
