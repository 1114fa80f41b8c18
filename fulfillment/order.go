package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Address is a shipping address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// String formats the address on one line.
func (a Address) String() string {
	parts := []string{a.Line1}
	if a.Line2 != "" {
		parts = append(parts, a.Line2)
	}
	parts = append(parts, strings.TrimSpace(a.PostalCode+" "+a.City), a.Country)
	return strings.Join(parts, ", ")
}

// Order is a request to print and ship one decal design.
type Order struct {
	OrderID         string  `json:"orderId"`
	CustomerName    string  `json:"customerName"`
	ShippingAddress Address `json:"shippingAddress"`
	ImageURL        string  `json:"imageUrl"`
	ProductType     string  `json:"productType"`
	PartnerID       string  `json:"partnerId"`
	Quantity        int     `json:"quantity,omitempty"`
}

// Validate checks the fields every partner requires.
func (o Order) Validate() error {
	var missing []string
	if o.OrderID == "" {
		missing = append(missing, "orderId")
	}
	if o.CustomerName == "" {
		missing = append(missing, "customerName")
	}
	if o.ShippingAddress.Line1 == "" || o.ShippingAddress.Country == "" {
		missing = append(missing, "shippingAddress")
	}
	if o.ImageURL == "" {
		missing = append(missing, "imageUrl")
	}
	if o.ProductType == "" {
		missing = append(missing, "productType")
	}
	if len(missing) > 0 {
		return fmt.Errorf("order is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Result is a partner's answer to an order submission.
type Result struct {
	Success            bool   `json:"success"`
	ConfirmationNumber string `json:"confirmationNumber,omitempty"`
	Message            string `json:"message"`
}

// Partner submits orders to a print-on-demand service.
type Partner interface {
	// ID identifies the partner, e.g. "printful".
	ID() string
	// Submit sends the order. A rejected order is a successful call whose
	// Result has Success false.
	Submit(ctx context.Context, order Order) (*Result, error)
}

// ErrUnknownPartner is returned by Directory.Submit for unregistered
// partner ids when no default partner is configured.
var ErrUnknownPartner = errors.New("unknown fulfillment partner")

// Directory routes orders to partners by Order.PartnerID.
type Directory struct {
	mu       sync.RWMutex
	partners map[string]Partner
	fallback Partner
}

// NewDirectory creates a Directory. The first partner also serves orders
// without a partner id.
func NewDirectory(partners ...Partner) *Directory {
	d := &Directory{partners: make(map[string]Partner, len(partners))}
	for _, p := range partners {
		d.Add(p)
	}
	return d
}

// Add registers p, replacing any partner with the same id.
func (d *Directory) Add(p Partner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.partners[p.ID()] = p
	if d.fallback == nil {
		d.fallback = p
	}
}

// Partner returns the partner for id, or the default for an empty id.
func (d *Directory) Partner(id string) (Partner, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id == "" {
		return d.fallback, d.fallback != nil
	}
	p, ok := d.partners[id]
	return p, ok
}

// Submit validates the order and forwards it to its partner.
func (d *Directory) Submit(ctx context.Context, order Order) (*Result, error) {
	if err := order.Validate(); err != nil {
		return &Result{Success: false, Message: err.Error()}, nil
	}
	p, ok := d.Partner(order.PartnerID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartner, order.PartnerID)
	}
	return p.Submit(ctx, order)
}
