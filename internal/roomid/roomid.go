package roomid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Crockford's base32 alphabet, without the ambiguous i/l/o/u.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// CodeLength is the length of a room join code.
const CodeLength = 6

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator handles room code generation with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new 6-character base32 room code. With a RandSource
// set the code is deterministic; otherwise crypto/rand is used.
func (g *Generator) Generate() string {
	var b strings.Builder
	b.Grow(CodeLength)

	if g.randSource != nil {
		for i := 0; i < CodeLength; i++ {
			b.WriteByte(alphabet[g.randSource.IntN(len(alphabet))])
		}
		return b.String()
	}

	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(alphabet[int(buf[i])%len(alphabet)])
	}
	return b.String()
}

// Validate checks if a room code is well-formed (6 characters, valid base32).
func Validate(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("room code must be exactly %d characters, got %d", CodeLength, len(code))
	}
	for i, char := range code {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
