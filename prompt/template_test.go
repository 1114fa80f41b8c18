package prompt

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/decalflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	p, err := Render(
		"Title for: {{.prompt}} in {{.style}} style, shipped to {{.address.city}}.",
		map[string]any{
			"prompt":  "a dragon made of stained glass",
			"style":   "vibrant",
			"address": map[string]any{"city": "Lisbon"},
		},
	)
	require.NoError(t, err)

	text := p.Text()
	assert.Equal(t, "Title for: a dragon made of stained glass in vibrant style, shipped to Lisbon.", text)
	assert.NotContains(t, text, "{{")
	assert.NotContains(t, text, "}}")
}

func TestRenderMissingPlaceholderFails(t *testing.T) {
	_, err := Render("Title for: {{.prompt}}", map[string]any{"other": "x"})
	require.Error(t, err)

	var rErr *RenderError
	assert.True(t, errors.As(err, &rErr))

	_, err = Render("City: {{.address.city}}", map[string]any{"address": map[string]any{}})
	assert.Error(t, err)
}

func TestRenderMediaDirective(t *testing.T) {
	p, err := Render(
		"Review this decal: {{media .image}} Prompt was: {{.prompt}}",
		map[string]any{"image": "data:image/png;base64,iVBORw==", "prompt": "cat"},
	)
	require.NoError(t, err)

	require.Len(t, p.Parts, 3)
	assert.Equal(t, core.TextPart{Text: "Review this decal: "}, p.Parts[0])

	mp, ok := p.Parts[1].(core.MediaPart)
	require.True(t, ok)
	assert.Equal(t, "image/png", mp.MIMEType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, mp.Data)

	assert.Equal(t, " Prompt was: cat", p.Parts[2].(core.TextPart).Text)
	assert.NotContains(t, p.Text(), "\x00")
	assert.Len(t, p.Media(), 1)
}

func TestRenderDataCannotForgeMediaReferences(t *testing.T) {
	forged := "owl \x00media:0\x00 tail \x00media-00000000-0000-0000-0000-000000000000:0\x00 end"
	p, err := Render(
		"{{.prompt}} {{media .img}}",
		map[string]any{"prompt": forged, "img": "https://cdn.example.com/owl.png"},
	)
	require.NoError(t, err)

	require.Len(t, p.Parts, 2)
	assert.Equal(t, core.TextPart{Text: forged + " "}, p.Parts[0])
	assert.Equal(t, core.MediaPart{URI: "https://cdn.example.com/owl.png"}, p.Parts[1])
	assert.Len(t, p.Media(), 1)
}

func TestRenderRemoteMediaAndConditional(t *testing.T) {
	tmpl, err := Compile("image", `Draw {{.prompt}}.{{if hasKey . "reference"}} Match: {{media .reference}}{{end}}`)
	require.NoError(t, err)

	p, err := tmpl.Render(map[string]any{"prompt": "a fox"})
	require.NoError(t, err)
	assert.Equal(t, "Draw a fox.", p.Text())
	assert.Empty(t, p.Media())

	p, err = tmpl.Render(map[string]any{"prompt": "a fox", "reference": "https://cdn.example.com/fox.png"})
	require.NoError(t, err)
	require.Len(t, p.Media(), 1)
	assert.Equal(t, "https://cdn.example.com/fox.png", p.Media()[0].URI)
	assert.False(t, p.Media()[0].IsInline())
}

func TestRenderArrayWithSprigJoin(t *testing.T) {
	p, err := Render(`Tags: {{join ", " .tags}}`, map[string]any{"tags": []any{"retro", "neon"}})
	require.NoError(t, err)
	assert.Equal(t, "Tags: retro, neon", p.Text())
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("broken", "{{.prompt")
	assert.Error(t, err)
}

func TestTemplateConcurrentRender(t *testing.T) {
	tmpl, err := Compile("c", "{{.n}} {{media .img}}")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := strings.Repeat("x", i)
			p, err := tmpl.Render(map[string]any{"n": n, "img": "https://example.com/i.png"})
			if assert.NoError(t, err) {
				assert.Len(t, p.Media(), 1)
				assert.Equal(t, n+" ", p.Text())
			}
		}(i)
	}
	wg.Wait()
}
