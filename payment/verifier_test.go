package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsCorrectSignature(t *testing.T) {
	secret := "test_key_secret"
	sig := validSignature("order_ABC123", "pay_XYZ789", secret)

	err := Verify("order_ABC123", "pay_XYZ789", sig, secret)
	assert.NoError(t, err)
}

func TestVerifyRejectsSingleCharacterMutation(t *testing.T) {
	secret := "test_key_secret"
	sig := validSignature("order_ABC123", "pay_XYZ789", secret)

	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		err := Verify("order_ABC123", "pay_XYZ789", string(mutated), secret)
		assert.ErrorIs(t, err, ErrSignatureInvalid, "mutation at index %d must be rejected", i)
	}
}

func TestVerifyRejectsWrongPair(t *testing.T) {
	secret := "test_key_secret"
	sig := validSignature("order_ABC123", "pay_XYZ789", secret)

	assert.ErrorIs(t, Verify("order_ABC124", "pay_XYZ789", sig, secret), ErrSignatureInvalid)
	assert.ErrorIs(t, Verify("order_ABC123", "pay_XYZ788", sig, secret), ErrSignatureInvalid)
	assert.ErrorIs(t, Verify("order_ABC123", "pay_XYZ789", sig, "other_secret"), ErrSignatureInvalid)
	assert.ErrorIs(t, Verify("order_ABC123", "pay_XYZ789", "", secret), ErrSignatureInvalid)
}

func TestVerifyErrorNeverLeaksExpectedSignature(t *testing.T) {
	secret := "test_key_secret"
	expected := validSignature("order_ABC123", "pay_XYZ789", secret)

	err := Verify("order_ABC123", "pay_XYZ789", "bogus", secret)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), expected)
}

func TestSignatureIsHexEncodedSHA256(t *testing.T) {
	sig := Signature("a", "b", "secret")
	assert.Len(t, sig, 64)
	_, err := hex.DecodeString(sig)
	assert.NoError(t, err)
}
