// Package idgen produces correlation ids for authorization requests.
package idgen

import (
	"math/big"

	"github.com/google/uuid"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Size is the length of generated ids; 22 base62 digits cover 128 bits.
const Size = 22

// Generator produces ids that are unique for the process lifetime.
type Generator interface {
	Next() string
}

// Base62 encodes random v4 uuids with the base62 alphabet.
type Base62 struct{}

// Next returns a new random id.
func (Base62) Next() string {
	id := uuid.New()
	return Encode(id[:])
}

// Encode returns the fixed width base62 representation of data.
func Encode(data []byte) string {
	n := new(big.Int).SetBytes(data)
	base := big.NewInt(int64(len(alphabet)))
	mod := new(big.Int)
	buf := make([]byte, Size)
	for i := Size - 1; i >= 0; i-- {
		n.DivMod(n, base, mod)
		buf[i] = alphabet[mod.Int64()]
	}
	return string(buf)
}

// Func adapts a function to Generator.
type Func func() string

// Next calls f.
func (f Func) Next() string { return f() }

// New returns the default generator.
func New() Generator {
	return Base62{}
}
