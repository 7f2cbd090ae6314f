// Package rcon owns the RCON packet wire format.
//
// Ownership boundary:
// - packet layout and type tags
// - incremental decode over segmented sequences
// - single-pass encode into reserve/commit sinks
//
// Connection handling, length caps and auth semantics live in
// internal/protocol/session.
package rcon
