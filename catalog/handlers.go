package catalog

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/flow"
	"github.com/hupe1980/decalflow/fulfillment"
	"github.com/hupe1980/decalflow/gallery"
	"github.com/hupe1980/decalflow/media"
)

// PublishRequest is the input of publish-decal.
type PublishRequest struct {
	Prompt       string `json:"prompt"`
	ImageDataURI string `json:"imageDataUri"`
	AuthorID     string `json:"authorId"`
}

// PublishResult is the output of publish-decal.
type PublishResult struct {
	DesignID string   `json:"designId"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Status   string   `json:"status"`
	ImageURI string   `json:"imageUri"`
}

type titleResult struct {
	Title string `json:"title"`
}

type tagsResult struct {
	Tags []string `json:"tags"`
}

type moderationResult struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

func publishHandler(deps Deps) flow.HandlerFunc {
	return func(ctx context.Context, c flow.Caller, input any) (any, error) {
		req, err := flow.Decode[PublishRequest](input)
		if err != nil {
			return nil, err
		}
		promptOnly := map[string]any{"prompt": req.Prompt}

		title, err := flow.InvokeAs[titleResult](ctx, c, FlowGenerateTitle, promptOnly)
		if err != nil {
			return nil, err
		}
		tags, err := flow.InvokeAs[tagsResult](ctx, c, FlowSuggestTags, promptOnly)
		if err != nil {
			return nil, err
		}
		verdict, err := flow.InvokeAs[moderationResult](ctx, c, FlowModerate, map[string]any{
			"prompt":       req.Prompt,
			"imageDataUri": req.ImageDataURI,
		})
		if err != nil {
			return nil, err
		}

		id := deps.NewID()
		imageURI, err := storeImage(ctx, deps.Artifacts, id, req.ImageDataURI)
		if err != nil {
			return nil, err
		}

		now := deps.Now()
		design := &gallery.Design{
			ID:               id,
			Title:            title.Title,
			Prompt:           req.Prompt,
			Tags:             normalizeTags(tags.Tags),
			ImageURI:         imageURI,
			AuthorID:         req.AuthorID,
			Status:           statusFor(verdict.Verdict),
			ModerationReason: verdict.Reason,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := deps.Gallery.Save(ctx, design); err != nil {
			return nil, fmt.Errorf("save design: %w", err)
		}
		deps.Logger.Info("catalog.design.published", "design_id", id, "status", design.Status, "author_id", req.AuthorID)

		return PublishResult{
			DesignID: id,
			Title:    design.Title,
			Tags:     design.Tags,
			Status:   string(design.Status),
			ImageURI: imageURI,
		}, nil
	}
}

// storeImage persists inline images and passes remote URLs through.
func storeImage(ctx context.Context, store core.ArtifactStore, id, uri string) (string, error) {
	if !media.IsDataURI(uri) {
		return uri, nil
	}
	mimeType, data, err := media.ParseDataURI(uri)
	if err != nil {
		return "", &core.InvalidInputError{Flow: FlowPublish, Path: "$.imageDataUri", Err: err}
	}
	name := id
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		name += exts[0]
	}
	stored, err := store.Save(ctx, ArtifactNamespace, name, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return stored, nil
}

func statusFor(verdict string) gallery.Status {
	switch verdict {
	case "approved":
		return gallery.StatusApproved
	case "rejected":
		return gallery.StatusRejected
	default:
		return gallery.StatusPending
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CheckoutRequest is the input of checkout.
type CheckoutRequest struct {
	SessionID       string              `json:"sessionId"`
	CustomerName    string              `json:"customerName"`
	ShippingAddress fulfillment.Address `json:"shippingAddress"`
	PartnerID       string              `json:"partnerId"`
	ProductType     string              `json:"productType"`
}

// OrderOutcome reports the fulfillment of one cart item.
type OrderOutcome struct {
	DesignID           string `json:"designId"`
	OrderID            string `json:"orderId"`
	Success            bool   `json:"success"`
	ConfirmationNumber string `json:"confirmationNumber,omitempty"`
	Message            string `json:"message"`
}

// CheckoutResult is the output of checkout.
type CheckoutResult struct {
	Orders       []OrderOutcome `json:"orders"`
	AllSucceeded bool           `json:"allSucceeded"`
}

func checkoutHandler(deps Deps) flow.HandlerFunc {
	return func(ctx context.Context, c flow.Caller, input any) (any, error) {
		req, err := flow.Decode[CheckoutRequest](input)
		if err != nil {
			return nil, err
		}

		sess, err := deps.Sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		items := sess.GetItems()
		if len(items) == 0 {
			return nil, &core.InvalidInputError{Flow: FlowCheckout, Path: "$.sessionId", Err: errEmptyCart}
		}

		// Fulfilled items leave the cart immediately; it only ever holds
		// open items.
		result := CheckoutResult{Orders: make([]OrderOutcome, 0, len(items)), AllSucceeded: true}
		var fulfilled []string
		for _, item := range items {
			outcome, err := placeOrder(ctx, c, deps, req, item)
			if err != nil {
				if len(fulfilled) > 0 {
					return nil, fmt.Errorf("checkout aborted after fulfilling %s: %w", strings.Join(fulfilled, ", "), err)
				}
				return nil, err
			}
			result.Orders = append(result.Orders, *outcome)
			if !outcome.Success {
				result.AllSucceeded = false
				continue
			}
			fulfilled = append(fulfilled, outcome.OrderID)
			if _, err := deps.Sessions.RemoveItem(ctx, req.SessionID, item.DesignID); err != nil {
				return nil, fmt.Errorf("remove %s from cart after order %s: %w", item.DesignID, outcome.OrderID, err)
			}
		}
		return result, nil
	}
}

func placeOrder(ctx context.Context, c flow.Caller, deps Deps, req CheckoutRequest, item core.CartItem) (*OrderOutcome, error) {
	imageURI, err := resolveImage(ctx, deps.Gallery, item)
	if err != nil {
		return nil, err
	}
	order := fulfillment.Order{
		OrderID:         "ord-" + deps.NewID(),
		CustomerName:    req.CustomerName,
		ShippingAddress: req.ShippingAddress,
		ImageURL:        imageURI,
		ProductType:     req.ProductType,
		PartnerID:       req.PartnerID,
		Quantity:        item.Quantity,
	}

	res, err := flow.InvokeAs[fulfillment.Result](ctx, c, FlowFulfillOrder, order)
	if err != nil {
		return nil, err
	}
	deps.Logger.Info("catalog.order.fulfilled", "session_id", req.SessionID, "order_id", order.OrderID, "design_id", item.DesignID, "success", res.Success)

	return &OrderOutcome{
		DesignID:           item.DesignID,
		OrderID:            order.OrderID,
		Success:            res.Success,
		ConfirmationNumber: res.ConfirmationNumber,
		Message:            res.Message,
	}, nil
}

func resolveImage(ctx context.Context, designs gallery.Store, item core.CartItem) (string, error) {
	if item.ImageURI != "" {
		return item.ImageURI, nil
	}
	d, err := designs.Get(ctx, item.DesignID)
	if err != nil {
		return "", fmt.Errorf("design %s: %w", item.DesignID, err)
	}
	return d.ImageURI, nil
}
