// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the task dispatch engine, translating HTTP concerns to dispatcher
// operations.
package api
