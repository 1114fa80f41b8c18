// Package schema declares the shapes flows and tools accept and produce, and
// validates JSON-shaped values against them.
//
// A Descriptor is plain data: a tree of kinds (string, number, boolean, enum,
// array, object, optional, media) built with the constructors in this
// package. Objects are closed unless marked Open, so anything not declared is
// rejected. Validate walks the tree, fills documented defaults for absent
// optional fields and returns a normalized copy of the value:
//
//	title := schema.Object(
//	  schema.Prop("title", schema.String().NonEmpty().Describe("Short catchy title")),
//	)
//	out, err := schema.Validate(title, map[string]any{"title": "Glass Dragon"})
//
// Descriptors can be rendered as JSON Schema for provider APIs via ToJSONSchema.
package schema
