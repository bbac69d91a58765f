// Package event defines the domain event envelope, the closed registry of event types,
// the routing patterns used to bind consumer queues and the factory funcs that stamp
// payloads into envelopes.
package event
