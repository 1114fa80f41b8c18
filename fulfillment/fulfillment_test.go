package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decalflow/core"
)

func testOrder() Order {
	return Order{
		OrderID:      "ord-1",
		CustomerName: "Ada Lovelace",
		ShippingAddress: Address{
			Line1: "12 Analytical Way", City: "London", PostalCode: "NW1", Country: "GB",
		},
		ImageURL:    "https://cdn.example.com/d1.png",
		ProductType: "laptop-skin",
		PartnerID:   "printco",
		Quantity:    1,
	}
}

func TestOrderValidate(t *testing.T) {
	require.NoError(t, testOrder().Validate())

	o := testOrder()
	o.CustomerName = ""
	o.ImageURL = ""
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customerName, imageUrl")
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "12 Analytical Way, NW1 London, GB", testOrder().ShippingAddress.String())
}

func fixedRand(v float64) func(o *SimulatedPartnerOptions) {
	return func(o *SimulatedPartnerOptions) { o.Rand = func() float64 { return v } }
}

func TestSimulatedPartner(t *testing.T) {
	ctx := context.Background()

	ok := NewSimulatedPartner("printco", fixedRand(0.9))
	res, err := ok.Submit(ctx, testOrder())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.ConfirmationNumber, "POD-"))
	assert.Len(t, res.ConfirmationNumber, 14)

	rejecting := NewSimulatedPartner("printco", fixedRand(0.05))
	res, err = rejecting.Submit(ctx, testOrder())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.ConfirmationNumber)
	assert.Contains(t, res.Message, "ord-1")

	always := NewSimulatedPartner("printco", func(o *SimulatedPartnerOptions) { o.FailureRate = 1 })
	res, _ = always.Submit(ctx, testOrder())
	assert.False(t, res.Success)
}

func TestSimulatedPartnerHonorsContext(t *testing.T) {
	p := NewSimulatedPartner("printco", func(o *SimulatedPartnerOptions) { o.Latency = time.Second })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := p.Submit(ctx, testOrder())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	a := NewSimulatedPartner("a", fixedRand(0.9))
	b := NewSimulatedPartner("b", fixedRand(0.0))
	dir := NewDirectory(a, b)

	p, ok := dir.Partner("")
	require.True(t, ok)
	assert.Equal(t, "a", p.ID())

	o := testOrder()
	o.PartnerID = "b"
	res, err := dir.Submit(ctx, o)
	require.NoError(t, err)
	assert.False(t, res.Success)

	o.PartnerID = "zzz"
	_, err = dir.Submit(ctx, o)
	assert.ErrorIs(t, err, ErrUnknownPartner)

	o.ImageURL = ""
	res, err = dir.Submit(ctx, o)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "imageUrl")
}

func fastRetries(o *HTTPPartnerOptions) {
	o.Backoff = time.Millisecond
	o.APIKey = "secret"
}

func TestHTTPPartnerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var o Order
		require.NoError(t, json.NewDecoder(r.Body).Decode(&o))
		assert.Equal(t, testOrder(), o)

		_ = json.NewEncoder(w).Encode(Result{Success: true, ConfirmationNumber: "PC-1", Message: "queued"})
	}))
	defer srv.Close()

	p := NewHTTPPartner("printco", srv.URL+"/", fastRetries)
	res, err := p.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, &Result{Success: true, ConfirmationNumber: "PC-1", Message: "queued"}, res)
}

func TestHTTPPartnerRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Result{Success: true, Message: "ok"})
	}))
	defer srv.Close()

	res, err := NewHTTPPartner("printco", srv.URL, fastRetries).Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPPartnerBusinessRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"artwork resolution too low"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPPartner("printco", srv.URL, fastRetries).Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "artwork resolution too low", res.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPPartnerExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPPartner("printco", srv.URL, fastRetries, func(o *HTTPPartnerOptions) { o.MaxRetries = 2 })
	_, err := p.Submit(context.Background(), testOrder())

	var upstream *core.UpstreamUnavailableError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "partner:printco", upstream.Service)
	assert.True(t, core.IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPPartnerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewHTTPPartner("printco", url, fastRetries, func(o *HTTPPartnerOptions) { o.MaxRetries = 1 })
	_, err := p.Submit(context.Background(), testOrder())
	assert.True(t, core.IsRetryable(err))
}
