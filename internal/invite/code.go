// Package invite implements the invitation-code lifecycle: code generation,
// validity classification, and the client-to-agent assignment transaction.
package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// CodeLength is the number of characters in an invitation code.
const CodeLength = 6

// codeAlphabet is the 32-symbol alphabet for invitation codes: uppercase
// letters and digits, excluding the visually ambiguous 0, O, I and 1.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// maxGenerateAttempts bounds the collision-retry loop. With a 32^6 keyspace
// this is effectively unreachable at realistic invitation volumes.
const maxGenerateAttempts = 10

// ErrCodeGenerationExhausted is returned when code generation keeps
// colliding with existing codes. Treated as a fatal internal error for the
// creation request.
var ErrCodeGenerationExhausted = errors.New("invitation code generation exhausted retries")

// CodeChecker answers whether a code is already taken. Satisfied by
// store.InvitationStore.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// GenerateCode produces a unique 6-character invitation code, regenerating
// on collision up to maxGenerateAttempts times.
func GenerateCode(ctx context.Context, checker CodeChecker) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}

		exists, err := checker.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking code existence: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

// randomCode draws CodeLength characters uniformly from codeAlphabet.
// len(codeAlphabet) is 32, which divides 256, so indexing by byte modulo
// the alphabet size is unbiased.
func randomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	out := make([]byte, CodeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
