// Package core holds the small set of domain types shared by every layer of
// decalflow:
//
//   - Content and its closed set of Parts (text, media, tool calls, tool results)
//   - the typed failure taxonomy returned by flow invocations
//   - the ArtifactStore contract implemented by media storage backends
//   - shopping cart Sessions and the SessionStore contract
//
// The package has no dependencies on other decalflow packages so that schema,
// model, tool and flow can all build on it without cycles.
package core
