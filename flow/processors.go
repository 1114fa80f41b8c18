package flow

import (
	"fmt"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/tool"
)

// Invocation is the per-call state request processors work on.
type Invocation struct {
	Flow *Definition
	// Input is the validated input.
	Input any
}

// data exposes the input to templates. Non-object inputs are available as
// {{.input}}.
func (inv *Invocation) data() map[string]any {
	if m, ok := inv.Input.(map[string]any); ok {
		return m
	}
	return map[string]any{"input": inv.Input}
}

// RequestProcessor contributes to the backend request before it is sent.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request.
	ProcessRequest(inv *Invocation, req *model.Request) error
}

// DefaultRequestProcessors returns the processors every template flow runs,
// in order.
func DefaultRequestProcessors() []RequestProcessor {
	return []RequestProcessor{
		NewInstructionsProcessor(),
		NewContentsProcessor(),
		NewToolsProcessor(),
		NewOutputProcessor(),
	}
}

// InstructionsProcessor renders the flow's system instruction.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets the system instruction.
func (p *InstructionsProcessor) ProcessRequest(inv *Invocation, req *model.Request) error {
	if inv.Flow.system == nil {
		return nil
	}
	rendered, err := inv.Flow.system.Render(inv.data())
	if err != nil {
		return err
	}
	req.System = rendered.Text()
	return nil
}

// ContentsProcessor renders the prompt template into the user content.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest adds the rendered prompt as a user message.
func (p *ContentsProcessor) ProcessRequest(inv *Invocation, req *model.Request) error {
	if inv.Flow.prompt == nil {
		return fmt.Errorf("flow %s has no prompt template", inv.Flow.Name)
	}
	rendered, err := inv.Flow.prompt.Render(inv.data())
	if err != nil {
		return err
	}
	req.Contents = append(req.Contents, core.Content{Role: core.RoleUser, Parts: rendered.Parts})
	return nil
}

// ToolsProcessor declares the flow's tools.
type ToolsProcessor struct{}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest adds tool declarations.
func (p *ToolsProcessor) ProcessRequest(inv *Invocation, req *model.Request) error {
	req.Tools = tool.Definitions(inv.Flow.Tools)
	return nil
}

// OutputProcessor declares the output contract: schema, modalities and
// model override.
type OutputProcessor struct{}

// NewOutputProcessor creates a new output processor.
func NewOutputProcessor() *OutputProcessor { return &OutputProcessor{} }

// Name returns the processor's identifier.
func (p *OutputProcessor) Name() string { return "output" }

// ProcessRequest sets the output schema and modalities.
func (p *OutputProcessor) ProcessRequest(inv *Invocation, req *model.Request) error {
	req.OutputSchema = inv.Flow.Output
	req.Modalities = inv.Flow.Modalities
	req.Model = inv.Flow.Model
	return nil
}
