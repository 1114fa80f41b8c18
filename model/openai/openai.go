// Package openai provides an implementation of model.Model using the OpenAI
// API. Text requests go through Chat Completions (with function calling and
// JSON-schema structured output); image and audio modalities are served by
// the Images and Speech endpoints.
package openai

import (
	"context"
	"encoding/base64"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/schema"
)

// SpeechMIMEType is the layout of audio returned for the audio modality:
// raw 16-bit little-endian mono PCM at 24kHz.
const SpeechMIMEType = "audio/L16;rate=24000"

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	ImageModel          openai.ImageModel
	ImageSize           openai.ImageGenerateParamsSize
	SpeechModel         openai.SpeechModel
	Voice               openai.AudioSpeechNewParamsVoice
}

// Model wraps the OpenAI APIs behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		ImageModel:          openai.ImageModelDallE3,
		ImageSize:           openai.ImageGenerateParamsSize1024x1024,
		SpeechModel:         openai.SpeechModelTTS1,
		Voice:               openai.AudioSpeechNewParamsVoiceAlloy,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements model.Model. Requests asking for the image or audio
// modality without tools are routed to the dedicated endpoints; everything
// else is a chat completion.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	if len(req.Contents) == 0 {
		return nil, errors.New("openai: no contents provided")
	}

	if err := model.CheckModalities("openai", req, model.ModalityImage, model.ModalityAudio); err != nil {
		return nil, err
	}

	// The Images and Speech endpoints take no tools.
	switch {
	case req.Wants(model.ModalityImage) && len(req.Tools) == 0:
		return m.generateImage(ctx, req)
	case req.Wants(model.ModalityAudio) && len(req.Tools) == 0:
		return m.generateSpeech(ctx, req)
	case req.Wants(model.ModalityImage):
		return nil, &core.UnsupportedModalityError{Provider: "openai", Modality: string(model.ModalityImage)}
	case req.Wants(model.ModalityAudio):
		return nil, &core.UnsupportedModalityError{Provider: "openai", Modality: string(model.ModalityAudio)}
	}

	toolResponses, order := collectToolResponses(req)
	messages := buildMessages(req, toolResponses, order)
	params := m.buildParams(req, messages)

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return m.handleError(ctx, err, "chat completion")
	}
	return fromCompletion(resp)
}

// collectToolResponses indexes tool (function) responses by id preserving first-seen order.
func collectToolResponses(req model.Request) (map[string]string, []string) {
	responses := map[string]string{}
	order := []string{}
	for _, c := range req.Contents {
		if c.Role != core.RoleTool {
			continue
		}
		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.ID == "" {
				continue
			}
			if _, exists := responses[fr.FunctionResponse.ID]; exists {
				continue
			}
			responses[fr.FunctionResponse.ID] = model.ToolResultJSON(fr.FunctionResponse)
			order = append(order, fr.FunctionResponse.ID)
		}
	}
	return responses, order
}

// buildMessages converts normalized contents into OpenAI chat messages while
// attaching matching tool responses immediately after assistant tool calls.
func buildMessages(
	req model.Request,
	toolResponses map[string]string,
	order []string,
) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, c := range req.Contents {
		switch c.Role {
		case core.RoleTool:
			continue
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(c.Text()))
		case core.RoleAssistant:
			toolCalls, callIDs := extractToolCalls(c)
			if len(toolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(c.Text()))
				continue
			}
			messages = append(
				messages,
				openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				}},
			)
			for _, id := range callIDs {
				if resp, ok := toolResponses[id]; ok {
					messages = append(messages, openai.ToolMessage(resp, id))
					delete(toolResponses, id)
				}
			}
		default:
			if msg, ok := userMessage(c); ok {
				messages = append(messages, msg)
			}
		}
	}
	for _, id := range order {
		if resp, ok := toolResponses[id]; ok {
			messages = append(messages, openai.ToolMessage(resp, id))
		}
	}
	return messages
}

// userMessage renders text-only content as a plain message and mixed
// content as content parts. Images are passed by URL or inline data URI.
func userMessage(c core.Content) (openai.ChatCompletionMessageParamUnion, bool) {
	if len(c.Media()) == 0 {
		text := c.Text()
		return openai.UserMessage(text), text != ""
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	for _, p := range c.Parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				parts = append(parts, openai.TextContentPart(part.Text))
			}
		case core.MediaPart:
			url := part.URI
			if part.IsInline() {
				url = "data:" + part.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(part.Data)
			}
			if url != "" {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			}
		}
	}
	return openai.UserMessage(parts), len(parts) > 0
}

// extractToolCalls extracts tool call parts and returns OpenAI formatted tool calls + ordered IDs.
func extractToolCalls(c core.Content) ([]openai.ChatCompletionMessageToolCallParam, []string) {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	var callIDs []string
	for _, fc := range c.FunctionCalls() {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   fc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: fc.Arguments,
			},
		})
		callIDs = append(callIDs, fc.ID)
	}
	return toolCalls, callIDs
}

// buildParams assembles the OpenAI request parameters including tool
// definitions and the structured output format.
func (m *Model) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	name := m.opts.Model
	if req.Model != "" {
		name = req.Model
	}
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               name,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if shape := model.StructuredShape(req.OutputSchema); shape != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "output",
					Schema: schema.ToMap(shape),
					Strict: openai.Bool(false),
				},
			},
		}
	}

	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  schema.ToMap(tdef.Parameters),
			},
		}
	}
	params.Tools = tools
	return params
}

func fromCompletion(resp *openai.ChatCompletion) (*model.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, &core.UpstreamUnavailableError{Service: "openai", Err: errors.New("no choices returned")}
	}
	ch0 := resp.Choices[0]

	out := &model.Response{
		ID:           resp.ID,
		Content:      core.Content{Role: core.RoleAssistant},
		FinishReason: ch0.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	if ch0.Message.Refusal != "" || ch0.FinishReason == "content_filter" {
		reason := ch0.Message.Refusal
		if reason == "" {
			reason = "content_filter"
		}
		out.Refusal = &model.Refusal{Reason: reason}
		out.FinishReason = model.FinishRefusal
		return out, nil
	}

	if ch0.Message.Content != "" {
		out.Content.Parts = append(out.Content.Parts, core.TextPart{Text: ch0.Message.Content})
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.Content.Parts = append(out.Content.Parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}
	return out, nil
}

// generateImage renders the prompt text with the Images API. req.Model
// overrides the configured image model.
func (m *Model) generateImage(ctx context.Context, req model.Request) (*model.Response, error) {
	imageModel := m.opts.ImageModel
	if req.Model != "" {
		imageModel = openai.ImageModel(req.Model)
	}
	resp, err := m.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         promptText(req),
		Model:          imageModel,
		Size:           m.opts.ImageSize,
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return m.handleError(ctx, err, "image generation")
	}
	if len(resp.Data) == 0 {
		return nil, &core.UpstreamUnavailableError{Service: "openai", Err: errors.New("no image returned")}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	parts := []core.Part{core.MediaPart{MIMEType: "image/png", Data: data}}
	if rp := resp.Data[0].RevisedPrompt; rp != "" {
		parts = append(parts, core.TextPart{Text: rp})
	}
	return &model.Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: model.FinishStop,
	}, nil
}

// generateSpeech synthesizes the prompt text as raw PCM. req.Model
// overrides the configured speech model.
func (m *Model) generateSpeech(ctx context.Context, req model.Request) (*model.Response, error) {
	speechModel := m.opts.SpeechModel
	if req.Model != "" {
		speechModel = openai.SpeechModel(req.Model)
	}
	params := openai.AudioSpeechNewParams{
		Input:          promptText(req),
		Model:          speechModel,
		Voice:          m.opts.Voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}

	resp, err := m.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return m.handleError(ctx, err, "speech synthesis")
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.UpstreamUnavailableError{Service: "openai", Err: errors.Wrap(err, "read speech body")}
	}
	return &model.Response{
		Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{
			core.MediaPart{MIMEType: SpeechMIMEType, Data: pcm},
		}},
		FinishReason: model.FinishStop,
	}, nil
}

// handleError maps SDK failures. Content policy rejections become refusal
// responses; everything else is an upstream failure.
func (m *Model) handleError(ctx context.Context, err error, op string) (*model.Response, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Code == "content_policy_violation" {
		return &model.Response{
			Content:      core.Content{Role: core.RoleAssistant},
			FinishReason: model.FinishRefusal,
			Refusal:      &model.Refusal{Reason: apiErr.Message},
		}, nil
	}
	return nil, &core.UpstreamUnavailableError{Service: "openai", Err: errors.Wrap(err, op)}
}

func promptText(req model.Request) string {
	var b strings.Builder
	for _, c := range req.Contents {
		if c.Role == core.RoleUser {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(c.Text())
		}
	}
	return b.String()
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
