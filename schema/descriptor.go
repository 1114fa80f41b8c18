package schema

import (
	"github.com/hupe1980/decalflow/media"
)

// Kind identifies the shape a Descriptor accepts.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindBoolean
	KindEnum
	KindArray
	KindObject
	KindOptional
	KindMedia
)

// String returns the kind name used in validation messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindOptional:
		return "optional"
	case KindMedia:
		return "media"
	default:
		return "unknown"
	}
}

// Descriptor is a node of a declarative schema tree.
type Descriptor struct {
	Kind        Kind
	Description string

	// NonEmpty rejects blank strings (KindString).
	NonEmptyString bool
	// Values lists the allowed literals (KindEnum).
	Values []string
	// Elem is the element (KindArray) or wrapped (KindOptional) descriptor.
	Elem *Descriptor
	// Fields are the declared properties in declaration order (KindObject).
	Fields []Field
	// AllowUnknown disables rejection of undeclared properties (KindObject).
	AllowUnknown bool
	// Default is applied when an optional value is absent (KindOptional).
	Default any
	// Media describes generated media and its post-processing (KindMedia).
	Media *MediaSpec
}

// Field is a named object property.
type Field struct {
	Name   string
	Schema *Descriptor
}

// MediaSpec declares the MIME type a media field carries and how raw
// backend bytes are transcoded before being returned.
type MediaSpec struct {
	MIMEType string
	Format   media.Format
	Params   media.Params
}

// String declares a string.
func String() *Descriptor { return &Descriptor{Kind: KindString} }

// Number declares a number. Validated values are returned as float64.
func Number() *Descriptor { return &Descriptor{Kind: KindNumber} }

// Boolean declares a boolean.
func Boolean() *Descriptor { return &Descriptor{Kind: KindBoolean} }

// Enum declares a string restricted to the given literals.
func Enum(values ...string) *Descriptor {
	return &Descriptor{Kind: KindEnum, Values: append([]string(nil), values...)}
}

// Array declares an ordered list of elem.
func Array(elem *Descriptor) *Descriptor { return &Descriptor{Kind: KindArray, Elem: elem} }

// Object declares a closed object with the given fields.
func Object(fields ...Field) *Descriptor {
	return &Descriptor{Kind: KindObject, Fields: append([]Field(nil), fields...)}
}

// Prop declares an object field.
func Prop(name string, d *Descriptor) Field { return Field{Name: name, Schema: d} }

// Optional wraps d so that an absent value is accepted.
func Optional(d *Descriptor) *Descriptor { return &Descriptor{Kind: KindOptional, Elem: d} }

// OptionalWithDefault wraps d and fills def when the value is absent.
func OptionalWithDefault(d *Descriptor, def any) *Descriptor {
	return &Descriptor{Kind: KindOptional, Elem: d, Default: def}
}

// Media declares generated media of the given MIME type that is returned
// as a data URI without transcoding.
func Media(mimeType string) *Descriptor {
	return &Descriptor{Kind: KindMedia, Media: &MediaSpec{MIMEType: mimeType, Format: media.FormatRaw}}
}

// PCMAudio declares generated raw PCM audio that is framed as WAV before
// being returned. p must match the layout the backend produces.
func PCMAudio(p media.Params) *Descriptor {
	return &Descriptor{Kind: KindMedia, Media: &MediaSpec{MIMEType: "audio/L16", Format: media.FormatWAV, Params: p}}
}

// Describe returns a copy of d with a description attached.
func (d *Descriptor) Describe(description string) *Descriptor {
	cp := *d
	cp.Description = description
	return &cp
}

// NonEmpty returns a copy of a string descriptor that rejects blank values.
func (d *Descriptor) NonEmpty() *Descriptor {
	cp := *d
	cp.NonEmptyString = true
	return &cp
}

// Open returns a copy of an object descriptor that tolerates unknown fields.
// Unknown fields are dropped from the validated value.
func (d *Descriptor) Open() *Descriptor {
	cp := *d
	cp.AllowUnknown = true
	return &cp
}

// Field looks up a declared object field.
func (d *Descriptor) Field(name string) (*Descriptor, bool) {
	if d == nil {
		return nil, false
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Schema, true
		}
	}
	return nil, false
}

// Unwrap strips Optional wrappers.
func (d *Descriptor) Unwrap() *Descriptor {
	for d != nil && d.Kind == KindOptional {
		d = d.Elem
	}
	return d
}

// MediaFields returns the names of top-level media fields of an object
// descriptor in declaration order.
func (d *Descriptor) MediaFields() []string {
	if d == nil || d.Kind != KindObject {
		return nil
	}
	var names []string
	for _, f := range d.Fields {
		if inner := f.Schema.Unwrap(); inner != nil && inner.Kind == KindMedia {
			names = append(names, f.Name)
		}
	}
	return names
}

// WithoutMedia returns the structured shape a text backend is asked to
// produce: d minus its top-level media fields. It returns nil when nothing
// structured remains.
func WithoutMedia(d *Descriptor) *Descriptor {
	if d == nil {
		return nil
	}
	if d.Kind == KindMedia {
		return nil
	}
	if d.Kind != KindObject {
		return d
	}
	cp := *d
	cp.Fields = nil
	for _, f := range d.Fields {
		if inner := f.Schema.Unwrap(); inner != nil && inner.Kind == KindMedia {
			continue
		}
		cp.Fields = append(cp.Fields, f)
	}
	if len(cp.Fields) == 0 {
		return nil
	}
	return &cp
}
