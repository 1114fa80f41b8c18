// Package testutil contains helper builders used across tests to reduce
// boilerplate when scripting backend responses for model.MockModel. They
// are not intended for production usage.
package testutil
