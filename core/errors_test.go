package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `flow "x" not found`, (&NotFoundError{Flow: "x"}).Error())
	assert.Equal(t, `generation refused for flow "t"`, (&GenerationRefusedError{Flow: "t"}).Error())
	assert.Equal(t, `generation refused for flow "t": SAFETY`, (&GenerationRefusedError{Flow: "t", Reason: "SAFETY"}).Error())
	assert.Equal(t, "tool error [PANIC] in send: boom", (&ToolExecutionError{Tool: "send", Code: CodePanic, Message: "boom"}).Error())
	assert.Equal(t, "gemini backend does not support image output", (&UnsupportedModalityError{Provider: "gemini", Modality: "image"}).Error())
}

func TestUnwrapChains(t *testing.T) {
	root := errors.New("dial tcp: refused")
	err := fmt.Errorf("invoke: %w", &UpstreamUnavailableError{Service: "gemini", Err: root})

	assert.True(t, errors.Is(err, root))
	assert.True(t, IsRetryable(err))
	assert.True(t, IsTyped(err))

	assert.False(t, IsRetryable(&InvalidInputError{Flow: "f", Err: root}))
	assert.False(t, IsTyped(root))
	assert.True(t, IsTyped(fmt.Errorf("x: %w", &UnsupportedModalityError{Provider: "p", Modality: "audio"})))
	assert.False(t, IsRetryable(&UnsupportedModalityError{}))
}

func TestContentAccessors(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		MediaPart{MIMEType: "image/png", Data: []byte{1}},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "tool"}},
		TextPart{Text: "b"},
	}}

	assert.Equal(t, "ab", c.Text())
	assert.Len(t, c.Media(), 1)
	assert.True(t, c.Media()[0].IsInline())
	assert.Equal(t, []FunctionCall{{Name: "tool"}}, c.FunctionCalls())
}
