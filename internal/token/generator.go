package token

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
)

// Length is the fixed size of every generated token.
const Length = 6

// Generator produces short tokens. Implementations do not check uniqueness;
// the link store rejects collisions and the caller draws again.
type Generator interface {
	Generate() string
}

// RandomGenerator draws tokens from a random 128-bit identifier.
type RandomGenerator struct{}

// NewRandomGenerator creates a generator backed by random UUIDs
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Generate returns a random base62 token of exactly Length characters
func (g *RandomGenerator) Generate() string {
	id := uuid.New()

	// fold both halves so every random bit contributes
	hi := binary.BigEndian.Uint64(id[:8])
	lo := binary.BigEndian.Uint64(id[8:])

	encoded := Encode(hi ^ lo)
	if len(encoded) < Length {
		encoded = strings.Repeat(string(alphabet[0]), Length-len(encoded)) + encoded
	}
	return encoded[:Length]
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func() string

// Generate calls f()
func (f GeneratorFunc) Generate() string {
	return f()
}
