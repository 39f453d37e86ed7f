package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/middleware"
	"github.com/threadkart/threadkart-backend-go/models"
	"github.com/threadkart/threadkart-backend-go/orders"
	"github.com/threadkart/threadkart-backend-go/payment"
)

type PaymentHandler struct {
	gateway *payment.Gateway
	factory *orders.Factory
	log     *zap.Logger
}

func NewPaymentHandler(gateway *payment.Gateway, factory *orders.Factory, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, factory: factory, log: log}
}

type gatewayOrderRequest struct {
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	Items         []orderItemPayload `json:"items"`
	AppliedCoupon *struct {
		Code string `json:"code"`
	} `json:"appliedCoupon"`
}

// CreateGatewayOrder registers an order with the payment provider and
// returns what the checkout widget needs.
func (h *PaymentHandler) CreateGatewayOrder(c echo.Context) error {
	var req gatewayOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	coupon := ""
	if req.AppliedCoupon != nil {
		coupon = req.AppliedCoupon.Code
	}

	gatewayOrder, err := h.gateway.CreateOrder(req.Amount, req.Currency, toOrderItems(req.Items), coupon)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			return respondError(c, http.StatusBadRequest, "Invalid amount provided")
		case errors.Is(err, payment.ErrNoItems):
			return respondError(c, http.StatusBadRequest, "No items in order")
		case errors.Is(err, payment.ErrNotConfigured):
			return respondError(c, http.StatusInternalServerError, "Payment gateway keys not configured.")
		}
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			return respondError(c, http.StatusBadGateway, "Failed to create order with payment provider")
		}
		h.log.Error("gateway order creation failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Failed to create order")
	}
	return respondData(c, http.StatusOK, gatewayOrder)
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string             `json:"razorpayOrderId"`
	RazorpayPaymentID string             `json:"razorpayPaymentId"`
	RazorpaySignature string             `json:"razorpaySignature"`
	Items             []orderItemPayload `json:"items"`
	Total             float64            `json:"total"`
	Name              string             `json:"name"`
	Phone             string             `json:"phone"`
	Address           string             `json:"address"`
	City              string             `json:"city"`
	State             string             `json:"state"`
	Pincode           string             `json:"pincode"`
}

// Verify checks the provider callback signature, then creates the order
// through the shared factory with status paid. Verification must
// succeed strictly before the factory runs.
func (h *PaymentHandler) Verify(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}

	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	if strings.TrimSpace(req.RazorpayOrderID) == "" {
		return respondError(c, http.StatusBadRequest, "Missing or invalid Razorpay order ID")
	}
	if strings.TrimSpace(req.RazorpayPaymentID) == "" {
		return respondError(c, http.StatusBadRequest, "Missing or invalid Razorpay payment ID")
	}
	if strings.TrimSpace(req.RazorpaySignature) == "" {
		return respondError(c, http.StatusBadRequest, "Missing or invalid payment signature")
	}

	err := h.gateway.VerifyCallback(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return respondError(c, http.StatusInternalServerError, "Payment verification system not configured")
		}
		// Generic message only; never reveal why verification failed.
		return respondError(c, http.StatusBadRequest, "Invalid payment signature")
	}

	// Signature without order details: just acknowledge the verification.
	if len(req.Items) == 0 {
		return respondMessage(c, http.StatusOK, map[string]interface{}{
			"razorpayPaymentId": req.RazorpayPaymentID,
			"razorpayOrderId":   req.RazorpayOrderID,
		}, "Payment verified successfully")
	}

	input := orders.CreateOrderInput{
		UserID:        &user.ID,
		Name:          pick(req.Name, user.Name),
		Phone:         pick(req.Phone, user.Phone),
		Address:       pick(req.Address, user.Address),
		City:          pick(req.City, user.City),
		State:         pick(req.State, user.State),
		Pincode:       pick(req.Pincode, user.Pincode),
		Items:         toOrderItems(req.Items),
		Total:         req.Total,
		PaymentMethod: string(models.PaymentMethodGateway),
		Status:        string(models.OrderStatusPaid),
		NotifyEmail:   user.Email,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.factory.CreateOrder(ctx, input)
	if err != nil {
		return respondOrderError(c, h.log, err)
	}

	return respondMessage(c, http.StatusOK, map[string]interface{}{
		"order":             order,
		"razorpayPaymentId": req.RazorpayPaymentID,
		"razorpayOrderId":   req.RazorpayOrderID,
	}, "Payment verified successfully")
}

type manualPaymentRequest struct {
	TransactionID string             `json:"transactionId"`
	Amount        float64            `json:"amount"`
	PaymentMethod string             `json:"paymentMethod"`
	Items         []orderItemPayload `json:"items"`
	Name          string             `json:"name"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	State         string             `json:"state"`
	Pincode       string             `json:"pincode"`
}

// Manual handles offline UPI submissions. The order is always created
// pending; an admin verifies the transaction id by hand.
func (h *PaymentHandler) Manual(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}

	var req manualPaymentRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	txnID := strings.TrimSpace(req.TransactionID)
	if txnID == "" {
		return respondError(c, http.StatusBadRequest, "Valid transaction ID is required")
	}
	if req.Amount <= 0 {
		return respondError(c, http.StatusBadRequest, "Valid amount is required")
	}

	method := req.PaymentMethod
	if method == "" {
		method = string(models.PaymentMethodUPI)
	}

	input := orders.CreateOrderInput{
		UserID:        &user.ID,
		Name:          pick(req.Name, user.Name),
		Phone:         pick(req.Phone, user.Phone),
		Address:       pick(req.Address, user.Address),
		City:          pick(req.City, user.City),
		State:         pick(req.State, user.State),
		Pincode:       pick(req.Pincode, user.Pincode),
		Items:         toOrderItems(req.Items),
		Total:         req.Amount,
		PaymentMethod: method,
		Status:        string(models.OrderStatusPending),
		UPI: &models.UPIDetails{
			TxnID:     txnID,
			PayerName: user.Name,
		},
		NotifyEmail: user.Email,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.factory.CreateOrder(ctx, input)
	if err != nil {
		return respondOrderError(c, h.log, err)
	}
	return respondMessage(c, http.StatusOK, order,
		"Order created successfully. Your payment is pending verification.")
}
