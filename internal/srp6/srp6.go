// Package srp6 derives and checks SRP6 password verifiers in the exact
// format the realm authentication server expects.
//
// The derivation is pinned bit-for-bit by that external server: SHA1 over
// the uppercased "USER:PASS" pair, SHA1 over salt||h1 interpreted as a
// little-endian integer, then g^h2 mod N serialized back to 32 little-endian
// bytes. Both the little-endian input and output conventions are
// load-bearing; changing either silently breaks login for every account
// registered afterwards.
package srp6

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"math/big"
	"strings"

	"github.com/dkosarev/acportal/internal/shared"
)

// SaltLength is the exact salt size the derivation accepts.
const SaltLength = 32

// VerifierLength is the size of the serialized verifier.
const VerifierLength = 32

var (
	g = big.NewInt(7)

	// N is the 256-bit modulus shared with the realm auth server,
	// big-endian hex as it appears in the realm's own sources.
	n, _ = new(big.Int).SetString("894B645E89E1535BBDAD5B8B290650530801B18EBFBF5E8FAB3C82872A3E9BB7", 16)
)

// GenerateSalt returns a fresh cryptographically random salt. It is called
// once per account at registration; password changes keep the original salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// CalculateVerifier derives the verifier for the given credentials and salt.
// Username and password are canonicalized to uppercase first. The only
// failure mode is a salt of the wrong length.
func CalculateVerifier(username, password string, salt []byte) ([]byte, error) {
	if len(salt) != SaltLength {
		return nil, shared.ErrorInvalidSaltLength
	}

	h1 := sha1.Sum([]byte(strings.ToUpper(username) + ":" + strings.ToUpper(password)))

	h := sha1.New()
	h.Write(salt)
	h.Write(h1[:])
	h2 := h.Sum(nil)

	x := littleEndianToInt(h2)
	v := new(big.Int).Exp(g, x, n)

	return intToLittleEndian(v, VerifierLength), nil
}

// Verify recomputes the verifier from the supplied password and compares it
// against the stored one. The comparison is constant-time over the full
// verifier length.
func Verify(username, password string, salt, storedVerifier []byte) bool {
	calculated, err := CalculateVerifier(username, password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(calculated, storedVerifier) == 1
}

// littleEndianToInt interprets b as a little-endian unsigned integer.
func littleEndianToInt(b []byte) *big.Int {
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(reversed)
}

// intToLittleEndian serializes v into exactly size little-endian bytes,
// zero-padded on the high end. math/big only speaks big-endian, so the
// buffer is filled big-endian and reversed in place.
func intToLittleEndian(v *big.Int, size int) []byte {
	out := make([]byte, size)
	v.FillBytes(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
