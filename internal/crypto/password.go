package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters. They are fixed here and never taken from callers so
// that a stored digest cannot be downgraded.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

// Schemes as stored in users.password_scheme.
const (
	SchemeLegacySHA256 = "legacy-sha256"
	SchemeArgon2id     = "argon2id"
)

var (
	ErrMalformedDigest = errors.New("malformed password digest")
	ErrUnknownScheme   = errors.New("unknown password scheme")
)

// Digest is a stored password digest. It is either a LegacyDigest or a
// ModernDigest.
type Digest interface {
	Scheme() string
}

// DigestFromRecord rebuilds the tagged digest from its stored columns.
func DigestFromRecord(scheme, hash string, salt *string) (Digest, error) {
	switch scheme {
	case SchemeArgon2id:
		return ModernDigest{Encoded: hash}, nil
	case SchemeLegacySHA256:
		if salt == nil {
			return nil, ErrMalformedDigest
		}
		return LegacyDigest{Hash: hash, Salt: *salt}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// LegacyDigest is the hex SHA-256 of password+salt written by the first
// versions of the service. It is only ever verified, never produced.
type LegacyDigest struct {
	Hash string
	Salt string
}

func (LegacyDigest) Scheme() string { return SchemeLegacySHA256 }

// ModernDigest is a self-describing argon2id string:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type ModernDigest struct {
	Encoded string
}

func (ModernDigest) Scheme() string { return SchemeArgon2id }

// HashPassword derives a new argon2id digest with a fresh random salt.
func HashPassword(password string) (ModernDigest, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return ModernDigest{}, err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return ModernDigest{
		Encoded: fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash),
	}, nil
}

// VerifyPassword reports whether password matches the digest. Malformed
// digests never match.
func VerifyPassword(password string, digest Digest) bool {
	switch d := digest.(type) {
	case ModernDigest:
		return verifyArgon2id(password, d.Encoded)
	case LegacyDigest:
		return verifyLegacy(password, d)
	default:
		return false
	}
}

// NeedsRehash reports whether a digest should be replaced by a fresh
// HashPassword result after a successful verification.
func NeedsRehash(digest Digest) bool {
	d, ok := digest.(ModernDigest)
	if !ok {
		return true
	}
	p, err := parseArgon2id(d.Encoded)
	if err != nil {
		return true
	}
	return p.memory != argonMemory || p.time != argonTime || p.threads != argonThreads || len(p.hash) != int(argonKeyLen)
}

// LegacyHash reproduces the legacy scheme. It exists for tests and for
// importing old records, not for new passwords.
func LegacyHash(password, salt string) LegacyDigest {
	sum := sha256.Sum256([]byte(password + salt))
	return LegacyDigest{Hash: hex.EncodeToString(sum[:]), Salt: salt}
}

func verifyLegacy(password string, d LegacyDigest) bool {
	want, err := hex.DecodeString(d.Hash)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	got := sha256.Sum256([]byte(password + d.Salt))
	return subtle.ConstantTimeCompare(got[:], want) == 1
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

func parseArgon2id(encoded string) (*argon2Params, error) {
	// "", "argon2id", "v=19", "m=65536,t=1,p=4", salt, hash
	sections := strings.Split(encoded, "$")
	if len(sections) != 6 || sections[0] != "" || sections[1] != "argon2id" {
		return nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrMalformedDigest
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, ErrMalformedDigest
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return nil, ErrMalformedDigest
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(sections[4]); err != nil || len(p.salt) == 0 {
		return nil, ErrMalformedDigest
	}
	if p.hash, err = base64.RawStdEncoding.DecodeString(sections[5]); err != nil || len(p.hash) == 0 {
		return nil, ErrMalformedDigest
	}

	return p, nil
}

func verifyArgon2id(password, encoded string) bool {
	p, err := parseArgon2id(encoded)
	if err != nil {
		return false
	}

	comparisonHash := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(comparisonHash, p.hash) == 1
}
