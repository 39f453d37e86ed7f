package payment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/metrics"
	"github.com/threadkart/threadkart-backend-go/models"
)

var (
	// ErrNotConfigured means the gateway keys are missing; surfaced to the
	// caller as a server-side configuration failure, not a client error.
	ErrNotConfigured = errors.New("payment gateway is not configured")

	ErrInvalidAmount = errors.New("invalid amount provided")
	ErrNoItems       = errors.New("no items in order")
)

// GatewayError wraps an upstream rejection. Safe to retry with backoff.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment provider rejected the request: %v", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// GatewayOrder is what the frontend needs to open the checkout widget.
// Amount is in minor currency units as the provider requires.
type GatewayOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// Gateway initiates provider orders and verifies provider callbacks.
type Gateway struct {
	keyID     string
	keySecret string
	client    *razorpay.Client
	log       *zap.Logger
}

func NewGateway(keyID, keySecret string, log *zap.Logger) *Gateway {
	g := &Gateway{
		keyID:     keyID,
		keySecret: keySecret,
		log:       log,
	}
	if g.Configured() {
		g.client = razorpay.NewClient(keyID, keySecret)
	}
	return g
}

func (g *Gateway) Configured() bool {
	return g.keyID != "" && g.keySecret != ""
}

// ToMinorUnits converts decimal currency units to the integer minor
// units the provider expects (rupees to paise).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateOrder registers an order with the provider. amount is in
// decimal currency units as submitted by the client.
func (g *Gateway) CreateOrder(amount float64, currency string, items []models.OrderItem, coupon string) (*GatewayOrder, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		currency = "INR"
	}
	if coupon == "" {
		coupon = "none"
	}

	summary := make([]string, 0, len(items))
	for _, item := range items {
		summary = append(summary, fmt.Sprintf("%s x%d", item.Title, item.Qty))
	}

	data := map[string]interface{}{
		"amount":   minor,
		"currency": currency,
		"receipt":  "order_" + uuid.NewString(),
		"notes": map[string]interface{}{
			"items":         strings.Join(summary, ", "),
			"appliedCoupon": coupon,
		},
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		g.log.Error("gateway order creation failed", zap.Error(err))
		return nil, &GatewayError{Err: err}
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, &GatewayError{Err: errors.New("provider response missing order id")}
	}
	if c, ok := body["currency"].(string); ok && c != "" {
		currency = c
	}

	return &GatewayOrder{
		OrderID:  orderID,
		Amount:   minor,
		Currency: currency,
		KeyID:    g.keyID,
	}, nil
}

// VerifyCallback checks a provider callback signature against the
// shared secret.
func (g *Gateway) VerifyCallback(orderID, paymentID, signature string) error {
	if !g.Configured() {
		return ErrNotConfigured
	}
	if err := Verify(orderID, paymentID, signature, g.keySecret); err != nil {
		metrics.PaymentVerifications.WithLabelValues("invalid").Inc()
		return err
	}
	metrics.PaymentVerifications.WithLabelValues("valid").Inc()
	return nil
}
