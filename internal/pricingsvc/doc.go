// Package pricingsvc is a reference implementation of the remote pricing
// operation. It prices a Configuration against a Product (base price,
// option and add-on surcharges, expression based adjustment rules) and
// answers over HTTP and NATS using the pricing wire types.
//
// Optional latency jitter makes out-of-order completions easy to observe
// from a coordinator.
package pricingsvc
