// Package model defines the provider-agnostic generation backend used by
// flows.
//
// A Request carries a rendered prompt, an optional system instruction, the
// declared output schema, tool definitions and the requested output
// modalities. Providers (Gemini, OpenAI, Anthropic) implement Model so the
// flow layer stays decoupled from vendor SDKs. MockModel is a scripted
// in-memory implementation for tests and examples.
package model
