package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

const (
	MinSaltSize   = 8
	MinIterations = 1000
)

// PBKDF2Hash is a derived password hash and the parameters needed to verify it.
type PBKDF2Hash struct {
	SaltHex    string `json:"salt_hex"`
	HashHex    string `json:"hash_hex"`
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations"`
}

// ParameterError reports an out-of-range PBKDF2 parameter.
type ParameterError struct {
	Name  string
	Value int
	Min   int
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s must be at least %d, got %d", e.Name, e.Min, e.Value)
}
func (e *ParameterError) TypeName() string { return "ValueError" }

// HashLengthError rejects a stored hash whose length is not the digest size.
type HashLengthError struct {
	Algorithm string
	Got       int
	Want      int
}

func (e *HashLengthError) Error() string {
	return fmt.Sprintf("%s hash must be %d bytes, got %d", e.Algorithm, e.Want, e.Got)
}
func (e *HashLengthError) TypeName() string { return "ValueError" }

// PBKDF2 derives a key from password with a fresh random salt. The key length
// equals the digest size of algorithm.
func (u *Utils) PBKDF2(password, algorithm string, saltSize, iterations int) (r result.Result) {
	defer tracker.Catch(u.tracker, &r)
	params := map[string]any{"algorithm": algorithm, "salt_size": saltSize, "iterations": iterations}

	newHash, err := hasherFor(algorithm)
	if err != nil {
		return u.tracker.Return(err, tracker.WithParams(params))
	}
	if saltSize < MinSaltSize {
		return u.tracker.Return(&ParameterError{Name: "salt_size", Value: saltSize, Min: MinSaltSize}, tracker.WithParams(params))
	}
	if iterations < MinIterations {
		return u.tracker.Return(&ParameterError{Name: "iterations", Value: iterations, Min: MinIterations}, tracker.WithParams(params))
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return u.tracker.Return(errors.Wrap(err, "read salt"), tracker.WithParams(params))
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, newHash().Size(), newHash)

	return result.OK(PBKDF2Hash{
		SaltHex:    hex.EncodeToString(salt),
		HashHex:    hex.EncodeToString(key),
		Algorithm:  algorithm,
		Iterations: iterations,
	})
}

// VerifyPBKDF2 recomputes the key and compares it in constant time. Data is
// the match as bool.
func (u *Utils) VerifyPBKDF2(password, saltHex, hashHex, algorithm string, iterations int) (r result.Result) {
	defer tracker.Catch(u.tracker, &r)
	params := map[string]any{"algorithm": algorithm, "iterations": iterations}

	newHash, err := hasherFor(algorithm)
	if err != nil {
		return u.tracker.Return(err, tracker.WithParams(params))
	}
	if iterations < 1 {
		return u.tracker.Return(&ParameterError{Name: "iterations", Value: iterations, Min: 1}, tracker.WithParams(params))
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return u.tracker.Return(errors.Wrap(err, "decode salt"), tracker.WithParams(params))
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return u.tracker.Return(errors.Wrap(err, "decode hash"), tracker.WithParams(params))
	}
	size := newHash().Size()
	if len(want) != size {
		return u.tracker.Return(&HashLengthError{Algorithm: algorithm, Got: len(want), Want: size}, tracker.WithParams(params))
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, size, newHash)
	return result.OK(subtle.ConstantTimeCompare(got, want) == 1)
}
