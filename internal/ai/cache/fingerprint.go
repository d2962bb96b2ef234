// Package cache provides the fingerprint-keyed completion response cache.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// fingerprintPayload is the canonical key material. Only parameters that can
// change the completion output participate; timeouts and provider overrides
// are excluded. encoding/json emits struct fields in declaration order, so
// keeping these lexicographically ordered yields a canonical serialization.
type fingerprintPayload struct {
	MaxTokens   int     `json:"max_tokens"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

// Fingerprint computes the 128-bit cache key for a completion request.
func Fingerprint(prompt, model string, maxTokens int, temperature float64) string {
	payload, _ := json.Marshal(fingerprintPayload{
		MaxTokens:   maxTokens,
		Model:       model,
		Prompt:      prompt,
		Temperature: temperature,
	})
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}
