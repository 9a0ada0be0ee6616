package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeSpecialization lowercases and collapses a specialization tag into
// a safe key-path segment.
func sanitizeSpecialization(specialization string) string {
	lower := strings.ToLower(strings.TrimSpace(specialization))
	sanitized := nonAlphanumeric.ReplaceAllString(lower, "_")
	return strings.Trim(sanitized, "_")
}

// taskHash returns the first 8 hex characters of the SHA-256 digest of
// task, used as the uniquifying suffix of a specialist child job id.
func taskHash(task string) string {
	sum := sha256.Sum256([]byte(task))
	return hex.EncodeToString(sum[:])[:8]
}

// SpecialistJobID deterministically derives a specialist's child job id
// from its parent job id, specialization, and task text (spec §4.4):
// parentJobID + ":spec:" + sanitized-lowercase-specialization + ":" +
// 8-hex-char hash of the specific task. This guarantees no lock collision
// with the parent and idempotence across retries of the same task under
// the same parent.
func SpecialistJobID(parentJobID, specialization, task string) string {
	return parentJobID + ":spec:" + sanitizeSpecialization(specialization) + ":" + taskHash(task)
}
