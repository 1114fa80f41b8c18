package testutil

import (
	"encoding/json"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/model"
)

// ResponseBuilder provides a fluent helper for constructing backend
// responses in tests.
// Example:
//
//	resp := NewResponseBuilder().JSON(map[string]any{"title": "Neon Fox"}).Build()
//
// Chain only the parts you need; the finish reason is derived unless set.
type ResponseBuilder struct {
	parts        []core.Part
	finishReason string
	refusal      *model.Refusal
	usage        *model.TokenUsage
}

// NewResponseBuilder creates an empty builder.
func NewResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// Text appends a text part (chainable).
func (b *ResponseBuilder) Text(text string) *ResponseBuilder {
	b.parts = append(b.parts, core.TextPart{Text: text})
	return b
}

// JSON appends v encoded as a JSON text part (chainable). It panics when v
// cannot be encoded.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b.Text(string(raw))
}

// ToolCall appends a function call with JSON encoded args (chainable).
func (b *ResponseBuilder) ToolCall(id, name string, args any) *ResponseBuilder {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: string(raw)}})
	return b
}

// Media appends an inline media part (chainable).
func (b *ResponseBuilder) Media(mimeType string, data []byte) *ResponseBuilder {
	b.parts = append(b.parts, core.MediaPart{MIMEType: mimeType, Data: data})
	return b
}

// Refusal marks the response as refused (chainable).
func (b *ResponseBuilder) Refusal(reason string) *ResponseBuilder {
	b.refusal = &model.Refusal{Reason: reason}
	return b
}

// FinishReason overrides the derived finish reason (chainable).
func (b *ResponseBuilder) FinishReason(r string) *ResponseBuilder { b.finishReason = r; return b }

// Usage sets token usage (chainable).
func (b *ResponseBuilder) Usage(prompt, completion int) *ResponseBuilder {
	b.usage = &model.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	return b
}

// Build assembles the response.
func (b *ResponseBuilder) Build() *model.Response {
	resp := &model.Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: append([]core.Part(nil), b.parts...)},
		FinishReason: b.finishReason,
		Refusal:      b.refusal,
		Usage:        b.usage,
	}
	if resp.FinishReason == "" {
		switch {
		case b.refusal != nil:
			resp.FinishReason = model.FinishRefusal
		case len(resp.FunctionCalls()) > 0:
			resp.FinishReason = model.FinishToolCalls
		default:
			resp.FinishReason = model.FinishStop
		}
	}
	return resp
}

// TextResponse is a plain text response.
func TextResponse(text string) *model.Response { return NewResponseBuilder().Text(text).Build() }

// JSONResponse is a response whose text is v encoded as JSON.
func JSONResponse(v any) *model.Response { return NewResponseBuilder().JSON(v).Build() }

// ToolCallResponse requests a single tool call.
func ToolCallResponse(id, name string, args any) *model.Response {
	return NewResponseBuilder().ToolCall(id, name, args).Build()
}

// MediaResponse carries a single inline media part.
func MediaResponse(mimeType string, data []byte) *model.Response {
	return NewResponseBuilder().Media(mimeType, data).Build()
}

// RefusalResponse is a safety refusal with no content.
func RefusalResponse(reason string) *model.Response { return NewResponseBuilder().Refusal(reason).Build() }
