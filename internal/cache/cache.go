package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores fetched post text between requests
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
}

// PostKey builds the cache key for a channel post. Channel names are
// case-insensitive on Telegram, so they are folded before hashing.
func PostKey(channel, messageID string) string {
	id := strings.ToLower(strings.TrimSpace(channel)) + "/" + strings.TrimSpace(messageID)
	hash := sha256.Sum256([]byte(id))
	return "findorigin:v1:post:" + hex.EncodeToString(hash[:])
}
