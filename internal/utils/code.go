package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
)

// GenerateVerificationCode generates a random numeric code of the given
// length, zero-padded to a fixed width. The source is crypto/rand so codes
// are not guessable from prior observations.
func GenerateVerificationCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// HashVerificationCode computes the digest stored in place of the plaintext
// code. The digest is keyed with a server-side pepper so a leaked challenge
// record alone is not enough to brute-force short codes offline.
func HashVerificationCode(code, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCodeHash compares a submitted code against a stored digest in
// constant time.
func VerifyCodeHash(code, pepper, storedHash string) bool {
	computed := HashVerificationCode(code, pepper)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// CodeFormatPattern returns the validation pattern for a submitted code of
// the configured length.
func CodeFormatPattern(length int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, length))
}
