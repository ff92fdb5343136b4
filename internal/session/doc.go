// Package session tracks the subscriptions owned by client connections. A
// Session subscribes on behalf of one connection and, when the connection
// goes away, removes every subscription it made in a single call.
package session
