// Package session owns RCON connection handling on top of the packet codec.
//
// Ownership boundary:
// - receive buffering and incremental decode over net.Conn
// - packet length caps and malformed-peer rejection
// - client auth/exec flow with dial retry/backoff
// - a minimal server for local tooling and tests
package session
