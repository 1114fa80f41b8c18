package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/decalflow/artifact"
	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/flow"
	"github.com/hupe1980/decalflow/fulfillment"
	"github.com/hupe1980/decalflow/gallery"
	"github.com/hupe1980/decalflow/logging"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/session"
	"github.com/hupe1980/decalflow/tool"
)

// Flow names.
const (
	FlowGenerateTitle = "generate-decal-title"
	FlowEnhancePrompt = "enhance-decal-prompt"
	FlowSuggestTags   = "suggest-decal-tags"
	FlowGenerateImage = "generate-decal-image"
	FlowModerate      = "moderate-decal"
	FlowNarrate       = "narrate-decal"
	FlowFulfillOrder  = "fulfill-order"
	FlowPublish       = "publish-decal"
	FlowCheckout      = "checkout"
)

// SendOrderToolName is the tool fulfill-order exposes to the backend.
const SendOrderToolName = "sendOrderToPodService"

// ArtifactNamespace groups stored design images.
const ArtifactNamespace = "designs"

// OrderSubmitter sends orders to a fulfillment partner.
type OrderSubmitter interface {
	Submit(ctx context.Context, order fulfillment.Order) (*fulfillment.Result, error)
}

// Deps are the services catalog flows use. Nil fields get in-memory or
// simulated defaults.
type Deps struct {
	Partners  OrderSubmitter
	Artifacts core.ArtifactStore
	Gallery   gallery.Store
	Sessions  core.SessionStore
	Logger    logging.Logger

	// ImageModel and SpeechModel override the backend model for the image
	// and narration flows.
	ImageModel  string
	SpeechModel string

	// NewID generates design and order ids.
	NewID func() string
	Now   func() time.Time
}

func (d *Deps) withDefaults() {
	if d.Partners == nil {
		d.Partners = fulfillment.NewDirectory(fulfillment.NewSimulatedPartner("simulated"))
	}
	if d.Artifacts == nil {
		d.Artifacts = artifact.NewInMemoryStore()
	}
	if d.Gallery == nil {
		d.Gallery = gallery.NewInMemoryStore()
	}
	if d.Sessions == nil {
		d.Sessions = session.NewInMemoryStore()
	}
	if d.Logger == nil {
		d.Logger = logging.NoOpLogger{}
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
}

// Definitions returns the catalog's flow definitions.
func Definitions(deps Deps) []flow.Definition {
	deps.withDefaults()
	return []flow.Definition{
		{
			Name:        FlowGenerateTitle,
			Description: "Suggest a catchy title for a decal idea",
			Input:       titleInput,
			Output:      titleOutput,
			System:      titleSystem,
			Template:    titlePrompt,
		},
		{
			Name:        FlowEnhancePrompt,
			Description: "Expand a decal idea into a detailed image prompt",
			Input:       enhanceInput,
			Output:      enhanceOutput,
			Template:    enhancePrompt,
		},
		{
			Name:        FlowSuggestTags,
			Description: "Suggest gallery search tags for a decal idea",
			Input:       tagsInput,
			Output:      tagsOutput,
			Template:    tagsPrompt,
		},
		{
			Name:        FlowGenerateImage,
			Description: "Generate decal artwork, optionally guided by a reference image",
			Input:       imageInput,
			Output:      imageOutput,
			Template:    imagePrompt,
			Model:       deps.ImageModel,
			Modalities:  []model.Modality{model.ModalityText, model.ModalityImage},
		},
		{
			Name:        FlowModerate,
			Description: "Check a decal design against the content policy",
			Input:       moderateInput,
			Output:      moderateOutput,
			System:      moderateSystem,
			Template:    moderatePrompt,
		},
		{
			Name:        FlowNarrate,
			Description: "Read a decal description aloud",
			Input:       narrateInput,
			Output:      narrateOutput,
			Template:    narratePrompt,
			Model:       deps.SpeechModel,
			Modalities:  []model.Modality{model.ModalityAudio},
		},
		{
			Name:        FlowFulfillOrder,
			Description: "Send an order to the print-on-demand partner",
			Input:       orderSchema,
			Output:      orderResultSchema,
			System:      fulfillSystem,
			Template:    fulfillPrompt,
			Tools:       []*tool.Definition{sendOrderTool(deps.Partners)},
		},
		{
			Name:        FlowPublish,
			Description: "Title, tag and moderate a design, then publish it to the gallery",
			Input:       publishInput,
			Output:      publishOutput,
			Handler:     publishHandler(deps),
		},
		{
			Name:        FlowCheckout,
			Description: "Order every design in a session's cart",
			Input:       checkoutInput,
			Output:      checkoutOutput,
			Handler:     checkoutHandler(deps),
		},
	}
}

// Register adds the catalog flows to reg.
func Register(reg *flow.Registry, deps Deps) error {
	for _, def := range Definitions(deps) {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return nil
}

func sendOrderTool(partners OrderSubmitter) *tool.Definition {
	return tool.NewTypedFunction(
		SendOrderToolName,
		"Submit a print order to the print-on-demand partner and return its answer",
		orderSchema,
		orderResultSchema,
		func(ctx context.Context, order fulfillment.Order) (*fulfillment.Result, error) {
			return partners.Submit(ctx, order)
		},
	)
}

var errEmptyCart = errors.New("cart is empty")
