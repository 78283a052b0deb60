// Package token generates external-facing order identifiers and
// one-time delivery codes, and verifies submitted codes against their
// stored hashes.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	orderIDPrefix   = "ORD-"
	orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderIDLength   = 8

	// Delivery codes are 4-digit decimals. A truncated digest of a
	// 4-digit code is a weak secret (9000 possibilities); acceptable
	// only because each code is single-use and scoped to one order.
	codeMin        = 1000
	codeMax        = 9999
	codeHashLength = 8
)

// NewOrderID returns an identifier of the form "ORD-XXXXXXXX" where X
// is an uppercase letter or digit.
func NewOrderID() (string, error) {
	buf := make([]byte, orderIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(orderIDAlphabet))))
		if err != nil {
			return "", fmt.Errorf("token: failed to generate order id: %w", err)
		}
		buf[i] = orderIDAlphabet[n.Int64()]
	}
	return orderIDPrefix + string(buf), nil
}

// NewDeliveryCode returns a fresh delivery code as plaintext together
// with its verification hash. Only the hash is ever persisted; the
// plaintext is shown to the buyer once in the placement receipt.
func NewDeliveryCode() (plaintext, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", "", fmt.Errorf("token: failed to generate delivery code: %w", err)
	}
	plaintext = fmt.Sprintf("%d", codeMin+n.Int64())
	return plaintext, hashCode(plaintext), nil
}

// VerifyDeliveryCode reports whether submitted hashes to storedHash.
// It fails closed on empty input.
func VerifyDeliveryCode(submitted, storedHash string) bool {
	if submitted == "" || storedHash == "" {
		return false
	}
	return hashCode(submitted) == storedHash
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])[:codeHashLength]
}
