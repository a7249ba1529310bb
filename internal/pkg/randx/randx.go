/*
Package randx generates identifiers and random display values.

Entity and connection ids are UUID v4 strings; display names fall back to a
Base62 suffix drawn from crypto/rand.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))
)

// ID returns a new UUID v4 string for persisted entities.
func ID() string {
	return uuid.NewString()
}

// ConnID returns a new identifier for a live connection.
func ConnID() string {
	return "c_" + uuid.NewString()
}

// Base62 returns n random Base62 characters.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// UserNickname generates a random display name with a "User_" prefix and 6 Base62 characters.
func UserNickname() (string, error) {
	suffix, err := Base62(6)
	if err != nil {
		return "", err
	}
	return "User_" + suffix, nil
}
