package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainState  = "redux/state/v1"
	DomainCommit = "redux/commit/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash computes the content hash of an already canonical state document.
// Two states hash equal iff their canonical JSON is byte-identical.
func StateHash(canonicalState []byte) string {
	return hashWithDomain(DomainState, canonicalState)
}

// HashState canonicalizes an arbitrary state value and hashes it.
func HashState(state any) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("HashState: %w", err)
	}
	return StateHash(canonical), nil
}

// CommitID computes the content-addressed ID of a commit.
//
// The ID covers the chain, the logical sequence number, the action and the
// resulting state hash, so a replay that reproduces the same transition at
// the same position reproduces the same ID.
func CommitID(chain string, seq int64, actionType string, canonicalAction []byte, stateHash string) (string, error) {
	obj := map[string]any{
		"chain":       chain,
		"seq":         seq,
		"action_type": actionType,
		"action":      rawJSON(canonicalAction),
		"state_hash":  stateHash,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CommitID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommit, canonical), nil
}

// MustHashState is like HashState but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHashState(state any) string {
	h, err := HashState(state)
	if err != nil {
		panic(err)
	}
	return h
}

// rawJSON embeds pre-encoded JSON; an empty document encodes as null.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
