package domain

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint derives the snapshot identifier from the canonical form of
// a raw document. Two byte-different encodings of the same document (key
// order, whitespace) hash identically, which is what makes re-ingestion
// of the same save a no-op.
func Fingerprint(raw []byte) (string, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("fingerprint: parse document: %w", err)
	}
	// encoding/json marshals map keys in sorted order, so a decode and
	// re-encode is a canonical form.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize document: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(canonical)), nil
}
