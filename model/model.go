package model

import (
	"context"
	"slices"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/schema"
)

// Modality is an output kind a request asks the backend to produce.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
)

// Finish reasons normalized across providers.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
	FinishRefusal   = "refusal"
)

// ToolDefinition declaratively exposes a callable function to the backend.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *schema.Descriptor `json:"-"`
}

// Request captures the normalized model input produced by flows.
type Request struct {
	// Model overrides the adapter's default model id when set.
	Model string `json:"model,omitempty"`
	// System is an optional system instruction.
	System string `json:"system,omitempty"`
	// Contents is the conversation so far: the rendered user prompt, and on a
	// tool continuation the assistant call and the tool responses.
	Contents []core.Content `json:"contents"`
	// OutputSchema asks for structured output of this shape. Media fields are
	// stripped before it is sent.
	OutputSchema *schema.Descriptor `json:"-"`
	Tools        []ToolDefinition   `json:"tools,omitempty"`
	Modalities   []Modality         `json:"modalities,omitempty"`
}

// Wants reports whether the request asks for modality m.
func (r Request) Wants(m Modality) bool {
	for _, have := range r.Modalities {
		if have == m {
			return true
		}
	}
	return false
}

// CheckModalities returns a *core.UnsupportedModalityError for the first
// modality req asks for that is neither text nor in supported.
func CheckModalities(provider string, req Request, supported ...Modality) error {
	for _, want := range req.Modalities {
		if want == ModalityText || slices.Contains(supported, want) {
			continue
		}
		return &core.UnsupportedModalityError{Provider: provider, Modality: string(want)}
	}
	return nil
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Refusal is set when the backend withheld content for policy or safety
// reasons.
type Refusal struct {
	Reason string `json:"reason"`
}

// Response is the final result of one generation call.
type Response struct {
	ID           string       `json:"id,omitempty"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"`
	Refusal      *Refusal     `json:"refusal,omitempty"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Text concatenates the text parts of the response.
func (r *Response) Text() string { return r.Content.Text() }

// FunctionCalls returns the tool calls requested by the backend.
func (r *Response) FunctionCalls() []core.FunctionCall { return r.Content.FunctionCalls() }

// Media returns the generated media parts.
func (r *Response) Media() []core.MediaPart { return r.Content.Media() }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by flows to drive generation.
// Implementations must be safe for concurrent use.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
