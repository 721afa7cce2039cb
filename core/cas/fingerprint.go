// Package cas computes content fingerprints for corpus snapshots.
// A fingerprint changes whenever any document's bytes or name change,
// so it serves as an ETag and as the cache key for derived indexes.
package cas

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"regexp"

	"github.com/zeebo/blake3"
)

// HashResult contains both SHA-256 and BLAKE3 digests of the same input.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// hexPattern matches a lowercase 256-bit hex digest.
var hexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Hasher accumulates named blobs in order. Each blob is length-prefixed so
// ("ab","c") and ("a","bc") never collide.
type Hasher struct {
	b3  *blake3.Hasher
	sha hash.Hash
	n   int
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{b3: blake3.New(), sha: sha256.New()}
}

// Add feeds one named blob.
func (h *Hasher) Add(name string, data []byte) {
	h.writeField([]byte(name))
	h.writeField(data)
	h.n++
}

func (h *Hasher) writeField(b []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(b)))
	h.b3.Write(prefix[:])
	h.b3.Write(b)
	h.sha.Write(prefix[:])
	h.sha.Write(b)
}

// Count returns how many blobs have been added.
func (h *Hasher) Count() int {
	return h.n
}

// Sum returns both digests of everything added so far.
func (h *Hasher) Sum() HashResult {
	return HashResult{
		SHA256: hex.EncodeToString(h.sha.Sum(nil)),
		BLAKE3: hex.EncodeToString(h.b3.Sum(nil)),
	}
}

// Fingerprint returns the BLAKE3 digest of everything added so far.
func (h *Hasher) Fingerprint() string {
	return h.Sum().BLAKE3
}

// Blake3Hash computes the BLAKE3 hash of data.
func Blake3Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Hash computes the SHA-256 hash of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsValidHash reports whether s looks like a digest produced by this package.
func IsValidHash(s string) bool {
	return hexPattern.MatchString(s)
}
