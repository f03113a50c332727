// Package shortlink issues the public tokens that address share records.
package shortlink

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the URL-safe token alphabet: A-Z, a-z, 0-9, '_' and '-'.
const Alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength yields 60 bits of entropy per token.
const DefaultLength = 10

// Generator produces a fresh random token on every call.
type Generator interface {
	Generate() (string, error)
}

// NanoID draws fixed-length tokens from Alphabet using crypto/rand.
type NanoID struct {
	length int
}

// NewNanoID returns a generator of tokens of the given length.
// Non-positive lengths fall back to DefaultLength.
func NewNanoID(length int) *NanoID {
	if length <= 0 {
		length = DefaultLength
	}
	return &NanoID{length: length}
}

func (n *NanoID) Generate() (string, error) {
	id, err := gonanoid.Generate(Alphabet, n.length)
	if err != nil {
		return "", fmt.Errorf("generate short link: %w", err)
	}
	return id, nil
}

// Length reports the token length this generator produces.
func (n *NanoID) Length() int { return n.length }

// Valid reports whether s has the shape of a token: non-empty and drawn from Alphabet.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
