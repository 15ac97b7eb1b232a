// Package domain contains the core business entities of the application.
// It defines the Task entity and its lifecycle states, independent of
// transport, queueing, and execution concerns.
package domain
