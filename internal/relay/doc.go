// Package relay implements the real-time message relay: room membership
// keyed by normalized identities, per-connection per-event rate limiting,
// private-message deduplication, and event routing with WebRTC signaling
// forwarding.
//
// The implementation is organized into specialized files for configuration,
// the hub, clients, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows.
package relay
