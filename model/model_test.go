package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/decalflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRequest(text string) Request {
	return Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, text)}}
}

func TestMockModelQueueThenFallback(t *testing.T) {
	m := NewMockModel("mock", "test")
	boom := errors.New("boom")
	m.Enqueue(&Response{Content: core.NewTextContent(core.RoleAssistant, "first")}).EnqueueError(boom)
	m.AddResponse("hello", "canned")

	resp, err := m.Generate(context.Background(), userRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text())

	_, err = m.Generate(context.Background(), userRequest("x"))
	assert.ErrorIs(t, err, boom)

	resp, err = m.Generate(context.Background(), userRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text())

	resp, err = m.Generate(context.Background(), userRequest("other"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Text())
	assert.Equal(t, FinishStop, resp.FinishReason)

	assert.Equal(t, 4, m.Calls())
	last, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "other", last.Contents[0].Text())
}

func TestMockModelHandler(t *testing.T) {
	m := NewMockModel("mock", "test").SetHandler(func(_ context.Context, req Request) (*Response, error) {
		return &Response{Content: core.NewTextContent(core.RoleAssistant, req.System)}, nil
	})

	resp, err := m.Generate(context.Background(), Request{System: "sys"})
	require.NoError(t, err)
	assert.Equal(t, "sys", resp.Text())
	assert.Len(t, m.Requests(), 1)
}

func TestMockModelCanceledContext(t *testing.T) {
	m := NewMockModel("mock", "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, userRequest("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.Calls())
}

func TestRequestWants(t *testing.T) {
	r := Request{Modalities: []Modality{ModalityText, ModalityAudio}}
	assert.True(t, r.Wants(ModalityAudio))
	assert.False(t, r.Wants(ModalityImage))
}

func TestCheckModalities(t *testing.T) {
	req := userRequest("owl")
	assert.NoError(t, CheckModalities("p", req))

	req.Modalities = []Modality{ModalityText, ModalityImage}
	assert.NoError(t, CheckModalities("p", req, ModalityImage))

	err := CheckModalities("p", req)
	var um *core.UnsupportedModalityError
	require.ErrorAs(t, err, &um)
	assert.Equal(t, "p", um.Provider)
	assert.Equal(t, "image", um.Modality)
}
