// Package flow declares, registers and invokes generation flows.
//
// A flow is a named unit of work with a declared input and output schema.
// Template flows render a prompt from their input and make a single call to
// the generation backend, optionally with one tool round trip. Handler flows
// run Go code that may compose other flows through a Caller. Either way the
// invoker validates input before any network call and output before
// returning it.
package flow

import (
	"context"

	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/prompt"
	"github.com/hupe1980/decalflow/schema"
	"github.com/hupe1980/decalflow/tool"
)

// Kind distinguishes how a flow produces its output.
type Kind string

const (
	KindTemplate Kind = "template"
	KindHandler  Kind = "handler"
)

// Caller invokes flows by name. Handler flows receive one to compose other
// flows; the Invoker implements it.
type Caller interface {
	Invoke(ctx context.Context, name string, input any) (any, error)
}

// HandlerFunc implements a handler flow. input has been validated against
// the flow's input schema. Returned errors are passed through to the caller
// unchanged.
type HandlerFunc func(ctx context.Context, c Caller, input any) (any, error)

// Definition declares a flow.
type Definition struct {
	Name        string
	Description string

	Input  *schema.Descriptor
	Output *schema.Descriptor

	// Template is the prompt template for template flows.
	Template string
	// System is an optional system instruction, rendered like Template.
	System string
	// Model overrides the backend's default model id.
	Model      string
	Modalities []model.Modality
	Tools      []*tool.Definition
	// FailOnToolError raises tool execution failures to the caller instead
	// of reporting them back to the backend.
	FailOnToolError bool

	// Handler implements a handler flow.
	Handler HandlerFunc

	prompt *prompt.Template
	system *prompt.Template
}

// Kind reports whether d is a template or a handler flow.
func (d *Definition) Kind() Kind {
	if d.Handler != nil {
		return KindHandler
	}
	return KindTemplate
}
