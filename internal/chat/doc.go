// Package chat manages a session with the chat service on top of a
// reconnecting transport.
//
// A Manager moves through Connecting, Ready and Closed, and ends in Stopped.
// Room operations wait until the connection is Ready, so callers can issue
// them right after NewManager. When the connection drops the manager
// reconnects with exponential backoff and applies its SessionPolicy to the
// active room.
//
// Inbound traffic is delivered as Event values to the EventHandler given to
// NewManager and to every Subscription, in the order the transport
// received it.
package chat
