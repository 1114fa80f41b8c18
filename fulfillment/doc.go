// Package fulfillment submits decal orders to print-on-demand partners.
//
// A Partner accepts an Order and answers with a Result. Expected business
// outcomes, such as a partner rejecting an order, are reported through
// Result.Success; errors are reserved for failures to reach the partner.
//
// SimulatedPartner stands in for a real partner during development and
// tests. HTTPPartner talks to a partner's REST API and retries transport
// level failures with exponential backoff.
package fulfillment
