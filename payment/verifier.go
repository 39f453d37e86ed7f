package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrSignatureInvalid is deliberately generic. The caller never learns
// the expected signature or why the comparison failed.
var ErrSignatureInvalid = errors.New("invalid payment signature")

// Signature computes the gateway signature for an order/payment pair:
// hex-encoded HMAC-SHA256 over "orderID|paymentID" keyed with the
// shared secret.
func Signature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the gateway signature and compares it to the one
// supplied by the client in constant time. It must complete, and
// succeed, before any gateway-originated order is created.
func Verify(orderID, paymentID, supplied, secret string) error {
	expected := Signature(orderID, paymentID, secret)
	if !hmac.Equal([]byte(expected), []byte(supplied)) {
		return ErrSignatureInvalid
	}
	return nil
}
