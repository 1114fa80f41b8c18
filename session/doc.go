// Package session houses implementations of core.SessionStore, the
// persistence of shopping carts between catalog browsing and checkout.
// The interface and the Session type live in the core package so the
// checkout flow and the HTTP server depend only on the contract.
package session
