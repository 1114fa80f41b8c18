package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/logging"
)

// HTTPPartnerOptions configure an HTTPPartner.
type HTTPPartnerOptions struct {
	// APIKey is sent as a bearer token when set.
	APIKey     string
	HTTPClient *http.Client
	// MaxRetries bounds retries of transport and 5xx failures.
	MaxRetries uint64
	// Backoff is the initial exponential backoff delay.
	Backoff time.Duration
	Logger  logging.Logger
}

// HTTPPartner submits orders to a partner REST API with POST {base}/orders.
//
// 2xx responses carry a Result. 4xx responses are business rejections and
// become a Result with Success false. Transport errors and 5xx responses are
// retried; once retries are exhausted Submit returns
// *core.UpstreamUnavailableError.
type HTTPPartner struct {
	id      string
	baseURL string
	opts    HTTPPartnerOptions
}

// NewHTTPPartner creates an HTTPPartner.
func NewHTTPPartner(id, baseURL string, optFns ...func(o *HTTPPartnerOptions)) *HTTPPartner {
	opts := HTTPPartnerOptions{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
		Backoff:    200 * time.Millisecond,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &HTTPPartner{id: id, baseURL: strings.TrimRight(baseURL, "/"), opts: opts}
}

// ID returns the partner id.
func (p *HTTPPartner) ID() string { return p.id }

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit posts the order.
func (p *HTTPPartner) Submit(ctx context.Context, order Order) (*Result, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	var result *Result
	attempt := 0
	b := retry.WithMaxRetries(p.opts.MaxRetries, retry.NewExponential(p.opts.Backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		res, err := p.post(ctx, body)
		if err != nil {
			p.opts.Logger.Warn("fulfillment.partner.retry", "partner", p.id, "order_id", order.OrderID, "attempt", attempt, "error", err.Error())
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		p.opts.Logger.Error("fulfillment.partner.unavailable", "partner", p.id, "order_id", order.OrderID, "attempts", attempt, "error", err.Error())
		return nil, &core.UpstreamUnavailableError{Service: "partner:" + p.id, Err: err}
	}

	p.opts.Logger.Info("fulfillment.partner.response", "partner", p.id, "order_id", order.OrderID, "success", result.Success)
	return result, nil
}

func (p *HTTPPartner) post(ctx context.Context, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	}

	resp, err := p.opts.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, retry.RetryableError(fmt.Errorf("partner returned %s", resp.Status))
	case resp.StatusCode >= 400:
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("partner rejected the order (%s)", resp.Status)
		}
		return &Result{Success: false, Message: msg}, nil
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode partner response: %w", err)
	}
	return &result, nil
}
