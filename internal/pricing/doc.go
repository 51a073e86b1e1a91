// Package pricing holds the values exchanged with the remote pricing
// operation: the user's Configuration, the Product it refers to, and the
// Result (breakdown plus formatted total) that comes back.
//
// The coordinator in internal/quote treats all of these as opaque. Only the
// reference service in internal/pricingsvc looks inside them.
package pricing
