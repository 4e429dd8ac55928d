// Package resilience guards calls to out-of-process model backends.
//
// A CircuitBreaker fails fast once a backend keeps erroring, and a Bulkhead
// caps how many inference calls run against it at once. Neither retries:
// a failed call is reported to the caller unchanged.
package resilience
