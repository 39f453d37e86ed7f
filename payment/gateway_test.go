package payment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/models"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(100), ToMinorUnits(1))
	assert.Equal(t, int64(49999), ToMinorUnits(499.99))
	assert.Equal(t, int64(1), ToMinorUnits(0.01))
	// Rounds instead of truncating: 19.99 is stored as 19.990000000000002
	// in some float paths.
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
}

func TestCreateOrderRejectsBadAmounts(t *testing.T) {
	g := NewGateway("", "", zap.NewNop())
	items := []models.OrderItem{{Title: "Tee", Qty: 1, Price: 499}}

	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := g.CreateOrder(amount, "INR", items, "")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %v", amount)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	g := NewGateway("", "", zap.NewNop())
	_, err := g.CreateOrder(499, "INR", nil, "")
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateOrderRequiresConfiguration(t *testing.T) {
	g := NewGateway("", "", zap.NewNop())
	items := []models.OrderItem{{Title: "Tee", Qty: 1, Price: 499}}

	_, err := g.CreateOrder(499, "INR", items, "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.False(t, NewGateway("key", "", zap.NewNop()).Configured())
	assert.False(t, NewGateway("", "secret", zap.NewNop()).Configured())
	assert.True(t, NewGateway("key", "secret", zap.NewNop()).Configured())
}

func TestVerifyCallbackRequiresConfiguration(t *testing.T) {
	g := NewGateway("", "", zap.NewNop())
	err := g.VerifyCallback("order_1", "pay_1", "sig")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifyCallbackUsesSharedSecret(t *testing.T) {
	g := NewGateway("key_id", "key_secret", zap.NewNop())

	sig := Signature("order_1", "pay_1", "key_secret")
	assert.NoError(t, g.VerifyCallback("order_1", "pay_1", sig))

	wrong := Signature("order_1", "pay_1", "another_secret")
	assert.ErrorIs(t, g.VerifyCallback("order_1", "pay_1", wrong), ErrSignatureInvalid)
}
