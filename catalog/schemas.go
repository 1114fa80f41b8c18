package catalog

import (
	"github.com/hupe1980/decalflow/media"
	"github.com/hupe1980/decalflow/schema"
)

// Styles lists the decal styles the image and prompt flows understand.
var Styles = []string{"sticker", "vinyl", "minimal", "retro", "anime", "photoreal"}

// NarrationParams is the PCM layout of narrate-decal audio.
var NarrationParams = media.Params{Channels: 1, SampleRate: 24000, BitDepth: 16}

var (
	promptField = schema.Prop("prompt", schema.String().NonEmpty().Describe("Free text description of the decal"))
	styleField  = schema.Prop("style", schema.OptionalWithDefault(schema.Enum(Styles...), "sticker"))

	titleInput  = schema.Object(promptField)
	titleOutput = schema.Object(
		schema.Prop("title", schema.String().NonEmpty().Describe("A short catchy title, at most six words")),
	)

	enhanceInput  = schema.Object(promptField, styleField)
	enhanceOutput = schema.Object(
		schema.Prop("enhancedPrompt", schema.String().NonEmpty()),
	)

	tagsInput  = schema.Object(promptField)
	tagsOutput = schema.Object(
		schema.Prop("tags", schema.Array(schema.String().NonEmpty()).Describe("Three to eight lowercase tags")),
	)

	imageInput = schema.Object(
		promptField,
		styleField,
		schema.Prop("referenceImage", schema.Optional(schema.Media("image/*").Describe("Data URI or URL of a reference image"))),
	)
	imageOutput = schema.Object(
		schema.Prop("imageDataUri", schema.Media("image/png")),
	)

	moderationVerdicts = []string{"approved", "rejected", "needs_review"}
	moderateInput      = schema.Object(
		promptField,
		schema.Prop("imageDataUri", schema.Media("image/*")),
	)
	moderateOutput = schema.Object(
		schema.Prop("verdict", schema.Enum(moderationVerdicts...)),
		schema.Prop("reason", schema.String()),
	)

	narrateInput = schema.Object(
		schema.Prop("text", schema.String().NonEmpty()),
	)
	narrateOutput = schema.Object(
		schema.Prop("audioDataUri", schema.PCMAudio(NarrationParams)),
	)

	addressSchema = schema.Object(
		schema.Prop("line1", schema.String().NonEmpty()),
		schema.Prop("line2", schema.Optional(schema.String())),
		schema.Prop("city", schema.String().NonEmpty()),
		schema.Prop("postalCode", schema.String()),
		schema.Prop("country", schema.String().NonEmpty()),
	)

	orderSchema = schema.Object(
		schema.Prop("orderId", schema.String().NonEmpty()),
		schema.Prop("customerName", schema.String().NonEmpty()),
		schema.Prop("shippingAddress", addressSchema),
		schema.Prop("imageUrl", schema.String().NonEmpty()),
		schema.Prop("productType", schema.String().NonEmpty()),
		schema.Prop("partnerId", schema.String()),
		schema.Prop("quantity", schema.OptionalWithDefault(schema.Number(), float64(1))),
	)

	orderResultSchema = schema.Object(
		schema.Prop("success", schema.Boolean()),
		schema.Prop("confirmationNumber", schema.Optional(schema.String())),
		schema.Prop("message", schema.String()),
	)

	publishInput = schema.Object(
		promptField,
		schema.Prop("imageDataUri", schema.Media("image/*")),
		schema.Prop("authorId", schema.String().NonEmpty()),
	)
	publishOutput = schema.Object(
		schema.Prop("designId", schema.String().NonEmpty()),
		schema.Prop("title", schema.String().NonEmpty()),
		schema.Prop("tags", schema.Array(schema.String())),
		schema.Prop("status", schema.Enum("pending", "approved", "rejected")),
		schema.Prop("imageUri", schema.String().NonEmpty()),
	)

	checkoutInput = schema.Object(
		schema.Prop("sessionId", schema.String().NonEmpty()),
		schema.Prop("customerName", schema.String().NonEmpty()),
		schema.Prop("shippingAddress", addressSchema),
		schema.Prop("partnerId", schema.OptionalWithDefault(schema.String(), "")),
		schema.Prop("productType", schema.OptionalWithDefault(schema.String().NonEmpty(), "laptop-skin")),
	)
	checkoutOutput = schema.Object(
		schema.Prop("orders", schema.Array(schema.Object(
			schema.Prop("designId", schema.String()),
			schema.Prop("orderId", schema.String()),
			schema.Prop("success", schema.Boolean()),
			schema.Prop("confirmationNumber", schema.Optional(schema.String())),
			schema.Prop("message", schema.String()),
		))),
		schema.Prop("allSucceeded", schema.Boolean()),
	)
)
