// Package prompt renders flow prompt templates into model input parts.
//
// Templates use Go text/template syntax with the sprig function library:
//
//	Create a short title for a decal described as: {{.prompt}}
//	Ship to {{.shippingAddress.city}}.
//	{{media .referenceImage}}
//
// The media directive does not print text; it splits the rendered prompt and
// inserts a core.MediaPart so the backend attaches the referenced image.
// Referencing a key the data does not contain is an error.
package prompt

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/google/uuid"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/media"
)

// newMediaMarker returns the prefix that brackets the index of a collected
// media reference in one execution's output. It carries a fresh random
// nonce so text taken from the data can never forge a reference.
func newMediaMarker() string {
	return "\x00media-" + uuid.NewString() + ":"
}

// RenderError reports a template that could not be compiled or rendered.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render template %q: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Prompt is a rendered template.
type Prompt struct {
	Parts []core.Part
}

// Text returns the rendered text with media references omitted.
func (p *Prompt) Text() string {
	var b strings.Builder
	for _, part := range p.Parts {
		if tp, ok := part.(core.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// Media returns the referenced media in template order.
func (p *Prompt) Media() []core.MediaPart {
	return core.Content{Parts: p.Parts}.Media()
}

// Template is a compiled prompt template. It is safe for concurrent use.
type Template struct {
	name string
	tmpl *template.Template
}

// Compile parses text once so syntax errors surface at flow registration.
func Compile(name, text string) (*Template, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(funcMap(nil, "")).
		Parse(text)
	if err != nil {
		return nil, &RenderError{Template: name, Err: err}
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Render executes the template against data.
func (t *Template) Render(data map[string]any) (*Prompt, error) {
	clone, err := t.tmpl.Clone()
	if err != nil {
		return nil, &RenderError{Template: t.name, Err: err}
	}

	var refs []core.MediaPart
	marker := newMediaMarker()
	clone.Funcs(funcMap(&refs, marker))

	var buf bytes.Buffer
	if err := clone.Execute(&buf, data); err != nil {
		return nil, &RenderError{Template: t.name, Err: err}
	}

	return &Prompt{Parts: split(buf.String(), marker, refs)}, nil
}

// Render compiles and renders text in one step.
func Render(text string, data map[string]any) (*Prompt, error) {
	t, err := Compile("prompt", text)
	if err != nil {
		return nil, err
	}
	return t.Render(data)
}

func funcMap(refs *[]core.MediaPart, marker string) template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["media"] = func(ref any) (string, error) {
		if refs == nil {
			return "", nil
		}
		uri, ok := ref.(string)
		if !ok || uri == "" {
			return "", fmt.Errorf("media reference must be a non-empty string, got %T", ref)
		}
		part := core.MediaPart{URI: uri}
		if mimeType, data, err := media.ParseDataURI(uri); err == nil {
			part = core.MediaPart{MIMEType: mimeType, Data: data, URI: uri}
		}
		*refs = append(*refs, part)
		return marker + strconv.Itoa(len(*refs)-1) + "\x00", nil
	}
	return fm
}

func split(rendered, marker string, refs []core.MediaPart) []core.Part {
	var parts []core.Part
	rest := rendered
	for {
		i := strings.Index(rest, marker)
		if i < 0 {
			break
		}
		if text := rest[:i]; text != "" {
			parts = append(parts, core.TextPart{Text: text})
		}
		rest = rest[i+len(marker):]
		end := strings.IndexByte(rest, 0)
		if end < 0 {
			break
		}
		idx, err := strconv.Atoi(rest[:end])
		if err == nil && idx < len(refs) {
			parts = append(parts, refs[idx])
		}
		rest = rest[end+1:]
	}
	if rest != "" {
		parts = append(parts, core.TextPart{Text: rest})
	}
	return parts
}
