package flow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed identity. Version suffix enables
// future algorithm migration without colliding with old hashes.
const domainContent = "botloom/content/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the content identity used by the publication differ.
// Two snapshots hash equal exactly when their trigger sets and ordered
// response blocks are equal. Trigger order does not affect the hash;
// response order does.
func ContentHash(c Content) (string, error) {
	canonical, err := MarshalCanonical(c.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(domainContent, canonical), nil
}
