// Package transport implements the connection to the chat service.
//
// A Transport owns one WebSocket:
//   - createSession / joinSession are request/reply, correlated by a uuid callbackId
//   - sendMessage / setTypingPresence are fire-and-forget
//   - every other inbound frame is handed to Handlers.OnMessage in arrival order
//   - a read failure or missed heartbeat calls Handlers.OnClose exactly once
//
// Reconnection is not handled here; see package chat.
package transport
