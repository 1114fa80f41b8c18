// Package gemini provides an implementation of model.Model on top of the
// Google Gemini API (github.com/google/generative-ai-go). It is the default
// backend for decal flows.
//
// Structured output uses the API's JSON response mode with a response
// schema derived from the flow's output descriptor. Tool calls are mapped to
// function declarations. Gemini does not assign call ids, so the adapter
// generates one per call to keep responses correlatable.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/schema"
)

// DefaultModel is used when no model id is configured.
const DefaultModel = "gemini-1.5-flash"

// Options configure the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Model wraps the Gemini generateContent API behind the generic model.Model
// interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini client authenticated with Options.APIKey.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions(optFns)
	if opts.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:           DefaultModel,
		Temperature:     0.7,
		MaxOutputTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Close releases the underlying client.
func (m *Model) Close() error { return m.client.Close() }

// Generate implements model.Model.
//
// The request contents become the chat history; the last content is sent as
// the new message. A blocked prompt or candidate is reported as a refusal,
// not as an error.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	if len(req.Contents) == 0 {
		return nil, errors.New("gemini: no contents provided")
	}
	// The genai SDK cannot request response modalities, so only text is
	// produced.
	if err := model.CheckModalities("gemini", req); err != nil {
		return nil, err
	}

	name := m.opts.Model
	if req.Model != "" {
		name = req.Model
	}
	gm := m.client.GenerativeModel(name)
	configure(gm, m.opts, req)

	history, err := toContents(req.Contents[:len(req.Contents)-1])
	if err != nil {
		return nil, err
	}
	last, err := toParts(req.Contents[len(req.Contents)-1].Parts)
	if err != nil {
		return nil, err
	}

	cs := gm.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return refusal(blocked), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &core.UpstreamUnavailableError{Service: "gemini", Err: errors.Wrap(err, "generate content")}
	}

	return fromResponse(resp)
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}

func configure(gm *genai.GenerativeModel, opts Options, req model.Request) {
	gm.Temperature = genai.Ptr(opts.Temperature)
	gm.MaxOutputTokens = genai.Ptr(opts.MaxOutputTokens)

	if req.System != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	// JSON response mode cannot be combined with function calling.
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toSchema(t.Parameters),
			})
		}
		gm.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		return
	}

	if shape := model.StructuredShape(req.OutputSchema); shape != nil {
		gm.ResponseMIMEType = "application/json"
		gm.ResponseSchema = toSchema(shape)
	}
}

// toSchema converts a descriptor to the OpenAPI subset Gemini accepts.
func toSchema(d *schema.Descriptor) *genai.Schema {
	if d == nil {
		return nil
	}
	if d.Kind == schema.KindOptional {
		s := toSchema(d.Elem)
		if s != nil {
			s.Nullable = true
			if d.Description != "" {
				s.Description = d.Description
			}
		}
		return s
	}

	s := &genai.Schema{Description: d.Description}
	switch d.Kind {
	case schema.KindString, schema.KindMedia:
		s.Type = genai.TypeString
	case schema.KindNumber:
		s.Type = genai.TypeNumber
	case schema.KindBoolean:
		s.Type = genai.TypeBoolean
	case schema.KindEnum:
		s.Type = genai.TypeString
		s.Format = "enum"
		s.Enum = append([]string(nil), d.Values...)
	case schema.KindArray:
		s.Type = genai.TypeArray
		s.Items = toSchema(d.Elem)
	case schema.KindObject:
		s.Type = genai.TypeObject
		s.Properties = make(map[string]*genai.Schema, len(d.Fields))
		for _, f := range d.Fields {
			s.Properties[f.Name] = toSchema(f.Schema)
			if f.Schema == nil || f.Schema.Kind != schema.KindOptional {
				s.Required = append(s.Required, f.Name)
			}
		}
	}
	return s
}

func toContents(contents []core.Content) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		parts, err := toParts(c.Parts)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		role := "user"
		if c.Role == core.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out, nil
}

func toParts(parts []core.Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				out = append(out, genai.Text(part.Text))
			}
		case core.MediaPart:
			if part.IsInline() {
				out = append(out, genai.Blob{MIMEType: part.MIMEType, Data: part.Data})
			} else if part.URI != "" {
				out = append(out, genai.FileData{MIMEType: part.MIMEType, URI: part.URI})
			}
		case core.FunctionCallPart:
			args, err := model.ParseArguments(part.FunctionCall.Arguments)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid arguments for %s", part.FunctionCall.Name)
			}
			out = append(out, genai.FunctionCall{Name: part.FunctionCall.Name, Args: args})
		case core.FunctionResponsePart:
			out = append(out, genai.FunctionResponse{
				Name:     part.FunctionResponse.Name,
				Response: model.ToolResultPayload(part.FunctionResponse),
			})
		}
	}
	return out, nil
}

func fromResponse(resp *genai.GenerateContentResponse) (*model.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &core.UpstreamUnavailableError{Service: "gemini", Err: errors.New("no candidates returned")}
	}

	cand := resp.Candidates[0]
	out := &model.Response{
		Content:      core.Content{Role: core.RoleAssistant},
		FinishReason: finishReason(cand.FinishReason),
	}

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			switch part := p.(type) {
			case genai.Text:
				out.Content.Parts = append(out.Content.Parts, core.TextPart{Text: string(part)})
			case genai.Blob:
				out.Content.Parts = append(out.Content.Parts, core.MediaPart{MIMEType: part.MIMEType, Data: part.Data})
			case genai.FileData:
				out.Content.Parts = append(out.Content.Parts, core.MediaPart{MIMEType: part.MIMEType, URI: part.URI})
			case genai.FunctionCall:
				args, err := json.Marshal(part.Args)
				if err != nil {
					return nil, errors.Wrapf(err, "encode arguments for %s", part.Name)
				}
				out.Content.Parts = append(out.Content.Parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        uuid.NewString(),
					Name:      part.Name,
					Arguments: string(args),
				}})
				out.FinishReason = model.FinishToolCalls
			}
		}
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func refusal(blocked *genai.BlockedError) *model.Response {
	reason := "blocked"
	switch {
	case blocked.PromptFeedback != nil:
		reason = fmt.Sprintf("prompt blocked: %s", blocked.PromptFeedback.BlockReason)
	case blocked.Candidate != nil:
		reason = fmt.Sprintf("candidate blocked: %s", blocked.Candidate.FinishReason)
	}
	return &model.Response{
		Content:      core.Content{Role: core.RoleAssistant},
		FinishReason: model.FinishRefusal,
		Refusal:      &model.Refusal{Reason: reason},
	}
}

func finishReason(r genai.FinishReason) string {
	switch r {
	case genai.FinishReasonMaxTokens:
		return model.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return model.FinishRefusal
	default:
		return model.FinishStop
	}
}
