package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/lumen-app/lumen/internal/shared"
)

// Hasher produces and verifies password hashes. Implementations must never
// log or return the plaintext.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(encodedHash, plaintext string) (bool, error)
}

// Argon2idHasher hashes passwords with Argon2id and a random per-password
// salt, encoded in the standard PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
type Argon2idHasher struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewArgon2idHasher returns a hasher with fixed cost parameters.
// The parameters are process-wide constants, not user-tunable.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{
		memoryKiB:   64 * 1024,
		iterations:  3,
		parallelism: 1,
		saltLength:  16,
		keyLength:   32,
	}
}

// Hash derives an encoded Argon2id hash from the plaintext.
func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.iterations, h.memoryKiB, h.parallelism, h.keyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memoryKiB,
		h.iterations,
		h.parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the encoded hash. A malformed
// hash yields shared.ErrHashFormat instead of a silent non-match.
func (h *Argon2idHasher) Verify(encodedHash, plaintext string) (bool, error) {
	memoryKiB, iterations, parallelism, salt, expected, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	// Refuse parameters far above our own cost so an attacker-controlled
	// hash string cannot drive pathological resource usage.
	if memoryKiB > h.memoryKiB*2 || iterations > h.iterations*2 || uint32(parallelism) > uint32(h.parallelism)*4 {
		return false, shared.ErrHashFormat
	}

	key := argon2.IDKey([]byte(plaintext), salt, iterations, memoryKiB, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func decodeHash(encoded string) (memoryKiB, iterations uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, shared.ErrHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, shared.ErrHashFormat
	}

	var par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKiB, &iterations, &par); err != nil {
		return 0, 0, 0, nil, nil, shared.ErrHashFormat
	}
	if memoryKiB == 0 || iterations == 0 || par == 0 || par > 255 {
		return 0, 0, 0, nil, nil, shared.ErrHashFormat
	}

	b64 := base64.RawStdEncoding
	salt, err = b64.DecodeString(parts[4])
	if err != nil || len(salt) < 8 || len(salt) > 64 {
		return 0, 0, 0, nil, nil, shared.ErrHashFormat
	}
	key, err = b64.DecodeString(parts[5])
	if err != nil || len(key) < 16 || len(key) > 128 {
		return 0, 0, 0, nil, nil, shared.ErrHashFormat
	}

	return memoryKiB, iterations, uint8(par), salt, key, nil
}

var _ Hasher = (*Argon2idHasher)(nil)
