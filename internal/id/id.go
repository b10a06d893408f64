// Package id generates the prefixed identifiers used for books, loans and users.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Record kinds. The kind is joined to the random part with a hyphen.
const (
	PrefixBook  = "book"
	PrefixLoan  = "loan"
	PrefixUser  = "user"
	PrefixToken = "tok"
)

// alphabet leaves out '-' and '_' so the kind prefix is the only hyphenated part.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// size gives roughly 95 bits of randomness over the alphabet above.
const size = 16

// Generate returns an ID such as "loan-4fTq9ZkP0aBcX2mL".
func Generate(prefix string) (string, error) {
	random, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "-" + random, nil
}
