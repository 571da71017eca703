package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Generate returns the SHA256 of the canonical JSON form of data.
// Map keys are sorted so equal content always hashes the same.
func Generate(data any) string {
	return hash(canonicalize(data))
}

// GenerateSet fingerprints a collection ignoring element order.
// An empty or nil collection has the fingerprint of "[]".
func GenerateSet(items []map[string]any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = canonicalize(item)
	}
	sort.Strings(parts)
	return hash("[" + strings.Join(parts, ",") + "]")
}

// HasChanged compares two fingerprints. An empty previous fingerprint means
// nothing was recorded yet and counts as a change.
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

func hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func canonicalize(data any) string {
	var b strings.Builder
	writeCanonical(&b, data)
	return b.String()
}

func writeCanonical(b *strings.Builder, data any) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			writeCanonical(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	default:
		raw, _ := json.Marshal(v)
		b.Write(raw)
	}
}
