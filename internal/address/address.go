// Package address validates Solana account identifiers.
package address

import (
	"strings"

	"github.com/mr-tron/base58"
)

const (
	// MinLength is the shortest base58 encoding of a 32-byte key.
	MinLength = 32
	// MaxLength is the longest base58 encoding of a 32-byte key.
	MaxLength = 44
)

// IsValid reports whether addr looks like a base58 Solana address.
// It checks text format only; no network lookup is made.
func IsValid(addr string) bool {
	if len(addr) < MinLength || len(addr) > MaxLength {
		return false
	}
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return false
	}
	for i := 0; i < len(addr); i++ {
		if !isBase58(addr[i]) {
			return false
		}
	}
	return true
}

// IsPublicKey is stricter than IsValid: the address must also decode to
// exactly 32 bytes.
func IsPublicKey(addr string) bool {
	if !IsValid(addr) {
		return false
	}
	b, err := base58.Decode(addr)
	return err == nil && len(b) == 32
}

// isBase58 excludes 0, O, I and l.
func isBase58(c byte) bool {
	switch {
	case c >= '1' && c <= '9':
		return true
	case c >= 'A' && c <= 'Z':
		return c != 'I' && c != 'O'
	case c >= 'a' && c <= 'z':
		return c != 'l'
	}
	return false
}
