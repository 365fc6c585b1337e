// Package ir provides the canonical record types and encodings shared by the
// engine and the journal store.
//
// This package is a leaf: all other internal packages may import ir; ir
// imports nothing internal. That keeps the journal format independent of the
// engine's generic types.
//
// Key design constraints:
//   - Canonical JSON (RFC 8785 key order, NFC strings, no HTML escaping) is
//     the only encoding used for hashing and storage
//   - Hashes are domain separated and versioned
//   - Ordering uses logical sequence numbers (seq), never wall-clock time
//   - All JSON tags use snake_case
package ir
