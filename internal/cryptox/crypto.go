// Package cryptox implements one-way password hashing for stored credentials.
// Hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned when a stored hash cannot be parsed.
var ErrInvalidHash = errors.New("invalid password hash")

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultParams follow the OWASP recommendation for Argon2id.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Argon2 is the Argon2id PasswordHasher.
type Argon2 struct {
	params Params
}

// NewArgon2 returns a hasher with the given parameters.
func NewArgon2(p Params) (*Argon2, error) {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return nil, errors.New("argon2: time, memory and threads must be positive")
	}
	if p.KeyLen < 16 || p.SaltLen < 8 {
		return nil, errors.New("argon2: key or salt too short")
	}
	return &Argon2{params: p}, nil
}

// Hash derives a fresh salted hash of password.
func (a *Argon2) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(int(a.params.SaltLen))
	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.Memory, a.params.Threads, a.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.Memory, a.params.Time, a.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. The parameters stored
// in the hash are used, so hashes made with older settings keep working.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	p, salt, key, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key))) //nolint:gosec // key length fits uint32
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodePHC(encoded string) (p Params, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	return p, salt, key, nil
}
