package fulfillment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/decalflow/logging"
)

// SimulatedPartnerOptions configure a SimulatedPartner.
type SimulatedPartnerOptions struct {
	// FailureRate is the probability in [0,1] that an order is rejected.
	FailureRate float64
	// Latency is waited before answering.
	Latency time.Duration
	// Rand returns values in [0,1). Defaults to math/rand/v2.
	Rand   func() float64
	Logger logging.Logger
}

// SimulatedPartner accepts or rejects orders at random without contacting
// any service.
type SimulatedPartner struct {
	id   string
	opts SimulatedPartnerOptions
}

// NewSimulatedPartner creates a SimulatedPartner that rejects one in ten
// orders unless configured otherwise.
func NewSimulatedPartner(id string, optFns ...func(o *SimulatedPartnerOptions)) *SimulatedPartner {
	opts := SimulatedPartnerOptions{
		FailureRate: 0.1,
		Rand:        rand.Float64,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SimulatedPartner{id: id, opts: opts}
}

// ID returns the partner id.
func (p *SimulatedPartner) ID() string { return p.id }

// Submit simulates an order submission.
func (p *SimulatedPartner) Submit(ctx context.Context, order Order) (*Result, error) {
	if p.opts.Latency > 0 {
		timer := time.NewTimer(p.opts.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.opts.Rand() < p.opts.FailureRate {
		p.opts.Logger.Warn("fulfillment.order.rejected", "partner", p.id, "order_id", order.OrderID)
		return &Result{
			Success: false,
			Message: fmt.Sprintf("Partner %s could not accept order %s at this time.", p.id, order.OrderID),
		}, nil
	}

	confirmation := "POD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	p.opts.Logger.Info("fulfillment.order.accepted", "partner", p.id, "order_id", order.OrderID, "confirmation", confirmation)
	return &Result{
		Success:            true,
		ConfirmationNumber: confirmation,
		Message:            fmt.Sprintf("Order %s sent to %s for %s.", order.OrderID, p.id, order.CustomerName),
	}, nil
}
