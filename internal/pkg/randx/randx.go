/*
Package randx generates identifiers: UUIDs for rows created locally and short
Base62 tags that label a running client or relay instance in logs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the Base62 alphabet (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// InstanceTagLength is the length of an instance tag.
	InstanceTagLength = 8
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

// RowID returns a new UUID v4 string, the id format of every store table.
func RowID() string {
	return uuid.New().String()
}

// IsRowID reports whether id parses as a UUID.
func IsRowID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// InstanceTag returns a random Base62 tag of InstanceTagLength characters.
func InstanceTag() (string, error) {
	result := make([]byte, InstanceTagLength)

	for i := range result {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("failed to generate instance tag: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}
