package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/schema"
)

type capture struct {
	path string
	body map[string]any
}

func newTestModel(t *testing.T, status int, reply string, got *capture) *Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if got != nil {
			got.path = r.URL.Path
			_ = json.Unmarshal(b, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	return NewModelFromClient(&client)
}

func userRequest(text string) model.Request {
	return model.Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, text)}}
}

func TestGenerateStructuredOutput(t *testing.T) {
	var got capture
	m := newTestModel(t, http.StatusOK, `{
		"id": "cmpl-1",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"title\":\"Neon Fox\"}"}}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
	}`, &got)

	req := userRequest("a fox")
	req.System = "You name decals."
	req.OutputSchema = schema.Object(schema.Prop("title", schema.String().NonEmpty()))

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Neon Fox"}`, resp.Text())
	assert.Equal(t, 8, resp.Usage.TotalTokens)

	assert.Equal(t, "/chat/completions", got.path)
	format := got.body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	messages := got.body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestGenerateRefusalField(t *testing.T) {
	m := newTestModel(t, http.StatusOK, `{
		"id": "cmpl-2",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "", "refusal": "I can't help with that."}}]
	}`, nil)

	resp, err := m.Generate(context.Background(), userRequest("something bad"))
	require.NoError(t, err)
	require.NotNil(t, resp.Refusal)
	assert.Equal(t, "I can't help with that.", resp.Refusal.Reason)
	assert.Equal(t, model.FinishRefusal, resp.FinishReason)
}

func TestGenerateContentPolicyError(t *testing.T) {
	m := newTestModel(t, http.StatusBadRequest, `{"error": {"code": "content_policy_violation", "message": "rejected", "type": "invalid_request_error", "param": ""}}`, nil)

	resp, err := m.Generate(context.Background(), userRequest("x"))
	require.NoError(t, err)
	require.NotNil(t, resp.Refusal)
	assert.Equal(t, "rejected", resp.Refusal.Reason)
}

func TestGenerateServerErrorIsUpstream(t *testing.T) {
	m := newTestModel(t, http.StatusInternalServerError, `{"error": {"message": "down", "type": "server_error", "code": "", "param": ""}}`, nil)

	_, err := m.Generate(context.Background(), userRequest("x"))
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
}

func TestGenerateToolCallsAndContinuation(t *testing.T) {
	var got capture
	m := newTestModel(t, http.StatusOK, `{
		"id": "cmpl-3",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {"role": "assistant", "content": "",
			"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "sendOrderToPodService", "arguments": "{\"quantity\":1}"}}]}}]
	}`, &got)

	req := userRequest("order it")
	req.Tools = []model.ToolDefinition{{
		Name:        "sendOrderToPodService",
		Description: "Send an order",
		Parameters:  schema.Object(schema.Prop("quantity", schema.Number())),
	}}

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	calls := resp.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, `{"quantity":1}`, calls[0].Arguments)
	assert.Len(t, got.body["tools"].([]any), 1)

	req.Contents = append(req.Contents, resp.Content, core.Content{Role: core.RoleTool, Parts: []core.Part{
		core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "call_1", Name: "sendOrderToPodService", Response: map[string]any{"success": true}}},
	}})
	_, err = m.Generate(context.Background(), req)
	require.NoError(t, err)

	messages := got.body["messages"].([]any)
	require.Len(t, messages, 3)
	tool := messages[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_1", tool["tool_call_id"])
	assert.JSONEq(t, `{"success":true}`, tool["content"].(string))
}

func TestGenerateImageModality(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	var got capture
	m := newTestModel(t, http.StatusOK, `{"created": 1, "data": [{"b64_json": "`+base64.StdEncoding.EncodeToString(png)+`"}]}`, &got)

	req := userRequest("a neon fox sticker")
	req.Modalities = []model.Modality{model.ModalityImage}

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/images/generations", got.path)
	assert.Equal(t, "a neon fox sticker", got.body["prompt"])
	require.Len(t, resp.Media(), 1)
	assert.Equal(t, png, resp.Media()[0].Data)
	assert.Equal(t, "image/png", resp.Media()[0].MIMEType)
}

func TestUserMessageWithImage(t *testing.T) {
	msg, ok := userMessage(core.Content{Role: core.RoleUser, Parts: []core.Part{
		core.TextPart{Text: "moderate"},
		core.MediaPart{MIMEType: "image/png", Data: []byte{1}},
	}})
	require.True(t, ok)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `data:image/png;base64,AQ==`)
	assert.Contains(t, string(b), `"moderate"`)
}

func TestGenerateImageHonorsRequestModel(t *testing.T) {
	var got capture
	m := newTestModel(t, http.StatusOK, `{"created": 1, "data": [{"b64_json": "iVBORw==", "revised_prompt": "a neon fox"}]}`, &got)

	req := userRequest("a neon fox sticker")
	req.Model = "gpt-image-1"
	req.Modalities = []model.Modality{model.ModalityText, model.ModalityImage}

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "gpt-image-1", got.body["model"])
	require.Len(t, resp.Media(), 1)
	assert.Equal(t, "a neon fox", resp.Text())
}

func TestGenerateSpeechHonorsRequestModel(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pcm)
	}))
	t.Cleanup(srv.Close)
	client := openai.NewClient(option.WithBaseURL(srv.URL), option.WithAPIKey("test"), option.WithMaxRetries(0))
	m := NewModelFromClient(&client)

	req := userRequest("Neon fox, glowing at night")
	req.Model = "gpt-4o-mini-tts"
	req.Modalities = []model.Modality{model.ModalityAudio}

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/audio/speech", path)
	assert.Equal(t, "gpt-4o-mini-tts", body["model"])
	assert.Equal(t, "pcm", body["response_format"])
	require.Len(t, resp.Media(), 1)
	assert.Equal(t, SpeechMIMEType, resp.Media()[0].MIMEType)
	assert.Equal(t, pcm, resp.Media()[0].Data)
}

func TestGenerateMediaModalityWithToolsUnsupported(t *testing.T) {
	var got capture
	m := newTestModel(t, http.StatusOK, `{}`, &got)

	req := userRequest("draw and order")
	req.Modalities = []model.Modality{model.ModalityImage}
	req.Tools = []model.ToolDefinition{{Name: "send", Parameters: schema.Object()}}

	_, err := m.Generate(context.Background(), req)
	var um *core.UnsupportedModalityError
	require.ErrorAs(t, err, &um)
	assert.Empty(t, got.path)
}
