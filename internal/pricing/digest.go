package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Digest returns a short stable fingerprint of a configuration, used to
// correlate journal rows and log lines. Add-on order does not matter.
func Digest(cfg Configuration) string {
	norm := cfg.Clone()
	slices.Sort(norm.AddOns)
	// encoding/json sorts map keys, so Selections serialise deterministically.
	data, err := json.Marshal(norm)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
