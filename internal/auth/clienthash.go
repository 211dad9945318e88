// Package auth holds the admin credential format and session tokens.
package auth

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// ClientHashPrefix marks a value produced by ClientHash.
const ClientHashPrefix = "h_"

// ClientHash reproduces the browser-side password digest the portal UI sends
// as passwordHash: a 31-multiplier rolling hash over UTF-16 code units with
// 32-bit wraparound, rendered in signed base36.
//
// It is an identifier, not a secret; the server only ever stores an argon2id
// hash of it.
func ClientHash(password string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(password)) {
		h = (h << 5) - h + int32(u)
	}
	return ClientHashPrefix + strconv.FormatInt(int64(h), 36)
}

// IsClientHash reports whether s looks like a ClientHash value.
func IsClientHash(s string) bool {
	return strings.HasPrefix(s, ClientHashPrefix) && len(s) > len(ClientHashPrefix)
}
