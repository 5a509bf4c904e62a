package utils

import (
	"crypto/md5"  //nolint:gosec // G501: md5 offered for checksums, not secrets
	"crypto/sha1" //nolint:gosec // G505: sha1 offered for checksums, not secrets
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

//nolint:gochecknoglobals // fixed lookup table
var hashers = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// Algorithms lists the supported digest names.
func Algorithms() []string {
	out := make([]string, 0, len(hashers))
	for name := range hashers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UnsupportedAlgorithmError is returned for digest names outside Algorithms.
type UnsupportedAlgorithmError struct{ Algorithm string }

func (e *UnsupportedAlgorithmError) Error() string {
	return "unsupported hash algorithm: " + e.Algorithm
}
func (e *UnsupportedAlgorithmError) TypeName() string { return "UnsupportedAlgorithmError" }

func hasherFor(algorithm string) (func() hash.Hash, error) {
	h, ok := hashers[strings.ToLower(strings.TrimSpace(algorithm))]
	if !ok {
		return nil, &UnsupportedAlgorithmError{Algorithm: algorithm}
	}
	return h, nil
}

// Hash returns the hex digest of data.
func (u *Utils) Hash(data []byte, algorithm string) result.Result {
	newHash, err := hasherFor(algorithm)
	if err != nil {
		return u.tracker.Return(err, tracker.WithParams(map[string]any{"algorithm": algorithm}))
	}
	h := newHash()
	_, _ = h.Write(data)
	return result.OK(hex.EncodeToString(h.Sum(nil)))
}
