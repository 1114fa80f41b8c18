// Package catalog declares the decal application's flows: text generation
// for titles, prompts and tags, image and narration generation, content
// moderation, order fulfillment through a print partner tool, and the
// publish and checkout handler flows that compose them.
//
// Register adds every flow to a registry:
//
//	reg := flow.NewRegistry()
//	if err := catalog.Register(reg, catalog.Deps{}); err != nil {
//		log.Fatal(err)
//	}
//	reg.Seal()
package catalog
