package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputeDigest hashes the canonical resolution trace. Identical
// (query, scored docs, config) inputs walk the identical trace, so the
// digest doubles as a determinism check for the evaluation contract.
func ComputeDigest(trace []string) string {
	h := sha256.Sum256([]byte(strings.Join(trace, "\n")))
	return hex.EncodeToString(h[:])
}
