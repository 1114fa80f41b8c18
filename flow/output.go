package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/media"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/schema"
)

// assembleOutput turns a backend response into the flow's validated output.
// A string root takes the response text, media roots take the first media
// part, anything else is parsed as JSON with media fields filled from the
// response's media parts in declaration order. Objects made only of media
// fields ignore the response text.
func assembleOutput(def *Definition, resp *model.Response) (any, error) {
	out := def.Output
	root := out.Unwrap()

	var value any
	switch root.Kind {
	case schema.KindString:
		if text := resp.Text(); text != "" {
			value = text
		}
	case schema.KindMedia:
		if parts := resp.Media(); len(parts) > 0 {
			value = parts[0]
		}
	case schema.KindObject:
		if schema.WithoutMedia(root) == nil {
			value = fillMedia(out, map[string]any{}, resp.Media())
			break
		}
		fallthrough
	default:
		parsed, err := parseJSON(resp.Text(), len(out.MediaFields()) > 0)
		if err != nil {
			return nil, &core.OutputContractViolationError{Flow: def.Name, Path: "$", Err: err}
		}
		value = fillMedia(out, parsed, resp.Media())
	}

	validated, err := schema.Validate(out, value)
	if err != nil {
		return nil, contractViolation(def.Name, err)
	}

	processed, err := postProcess(out, validated)
	if err != nil {
		return nil, &core.OutputContractViolationError{Flow: def.Name, Path: "$", Err: err}
	}
	return processed, nil
}

// validateOutput checks a handler flow's result.
func validateOutput(def *Definition, result any) (any, error) {
	normalized, err := schema.Normalize(result)
	if err != nil {
		return nil, &core.OutputContractViolationError{Flow: def.Name, Path: "$", Err: err}
	}
	validated, err := schema.Validate(def.Output, normalized)
	if err != nil {
		return nil, contractViolation(def.Name, err)
	}
	return postProcess(def.Output, validated)
}

func contractViolation(flow string, err error) error {
	v := &core.OutputContractViolationError{Flow: flow, Err: err}
	var vErr *schema.ValidationError
	if errors.As(err, &vErr) {
		v.Path = vErr.Path
	}
	return v
}

// parseJSON decodes the backend's text. Markdown code fences are tolerated.
// Empty text yields an empty object when media may supply the fields.
func parseJSON(text string, allowEmpty bool) (any, error) {
	text = stripCodeFence(text)
	if text == "" {
		if allowEmpty {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("empty response")
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	return v, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func fillMedia(out *schema.Descriptor, value any, parts []core.MediaPart) any {
	obj, ok := value.(map[string]any)
	if !ok || len(parts) == 0 {
		return value
	}
	next := 0
	for _, name := range out.MediaFields() {
		if next >= len(parts) {
			break
		}
		if existing, present := obj[name]; present && existing != nil {
			continue
		}
		obj[name] = parts[next]
		next++
	}
	return obj
}

// postProcess replaces validated media parts with data URIs, transcoding
// them as their descriptors require.
func postProcess(out *schema.Descriptor, value any) (any, error) {
	root := out.Unwrap()
	switch root.Kind {
	case schema.KindMedia:
		return encodeMedia(root.Media, value)
	case schema.KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return value, nil
		}
		for _, name := range out.MediaFields() {
			v, present := obj[name]
			if !present {
				continue
			}
			field, _ := root.Field(name)
			encoded, err := encodeMedia(field.Unwrap().Media, v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			obj[name] = encoded
		}
		return obj, nil
	}
	return value, nil
}

func encodeMedia(spec *schema.MediaSpec, v any) (any, error) {
	part, ok := v.(core.MediaPart)
	if !ok {
		return v, nil
	}
	if !part.IsInline() {
		return part.URI, nil
	}

	mimeType := part.MIMEType
	format := media.FormatRaw
	var params media.Params
	if spec != nil {
		format = spec.Format
		params = spec.Params
		if mimeType == "" {
			mimeType = spec.MIMEType
		}
	}
	if format == media.FormatWAV && isWAV(part.MIMEType) {
		format = media.FormatRaw
	}
	return media.Transcode(part.Data, format, mimeType, params)
}

func isWAV(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return true
	}
	return false
}
