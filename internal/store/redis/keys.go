package redis

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/portal/internal/store"
)

const (
	// KeyPrefixDoc is the prefix for document keys
	KeyPrefixDoc = "portal:doc:"
)

// DocKey returns the Redis key for a document kind
func DocKey(kind store.Kind) string {
	return KeyPrefixDoc + string(kind)
}

// ExtractKind extracts the document kind from a Redis key
func ExtractKind(key string) (store.Kind, error) {
	if !strings.HasPrefix(key, KeyPrefixDoc) || len(key) == len(KeyPrefixDoc) {
		return "", fmt.Errorf("invalid document key: %s", key)
	}
	return store.Kind(key[len(KeyPrefixDoc):]), nil
}
