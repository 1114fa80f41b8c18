package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToJSONSchema renders d as a JSON Schema document suitable for provider
// structured-output and tool declarations. Optional fields are left out of
// "required"; closed objects forbid additional properties.
func ToJSONSchema(d *Descriptor) *jsonschema.Schema {
	if d == nil {
		return nil
	}

	s := &jsonschema.Schema{Description: d.Description}

	switch d.Kind {
	case KindString:
		s.Type = "string"
		if d.NonEmptyString {
			s.Pattern = `\S`
		}
	case KindNumber:
		s.Type = "number"
	case KindBoolean:
		s.Type = "boolean"
	case KindEnum:
		s.Type = "string"
		for _, v := range d.Values {
			s.Enum = append(s.Enum, v)
		}
	case KindArray:
		s.Type = "array"
		s.Items = ToJSONSchema(d.Elem)
	case KindObject:
		s.Type = "object"
		s.Properties = jsonschema.NewProperties()
		for _, f := range d.Fields {
			s.Properties.Set(f.Name, ToJSONSchema(f.Schema))
			if f.Schema == nil || f.Schema.Kind != KindOptional {
				s.Required = append(s.Required, f.Name)
			}
		}
		if !d.AllowUnknown {
			s.AdditionalProperties = jsonschema.FalseSchema
		}
	case KindOptional:
		inner := ToJSONSchema(d.Elem)
		if inner == nil {
			return nil
		}
		if d.Description != "" {
			inner.Description = d.Description
		}
		if d.Default != nil {
			inner.Default = d.Default
		}
		return inner
	case KindMedia:
		s.Type = "string"
		if d.Media != nil {
			s.ContentMediaType = d.Media.MIMEType
		}
		s.ContentEncoding = "base64"
	}

	return s
}

// ToMap renders d as a generic JSON Schema map, the shape most provider SDKs
// accept for parameters.
func ToMap(d *Descriptor) map[string]any {
	s := ToJSONSchema(d)
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
