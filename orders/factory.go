package orders

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/inventory"
	"github.com/threadkart/threadkart-backend-go/metrics"
	"github.com/threadkart/threadkart-backend-go/models"
	"github.com/threadkart/threadkart-backend-go/notify"
)

var pincodeRe = regexp.MustCompile(`^\d{4,8}$`)

// ValidationError is a malformed or missing checkout field. Always
// client-recoverable.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// OrderInserter is the slice of *mongo.Collection the factory persists
// through.
type OrderInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// CreateOrderInput is a checkout payload. UserID is nil for guest
// checkout. Status may only be pending or paid; the gateway flow passes
// paid after the signature has been verified.
type CreateOrderInput struct {
	UserID        *primitive.ObjectID
	Name          string
	Phone         string
	Address       string
	City          string
	State         string
	Pincode       string
	Items         []models.OrderItem
	Total         float64
	PaymentMethod string
	Status        string
	UPI           *models.UPIDetails
	NotifyEmail   string
}

// Factory turns checkout payloads into durable orders. All three order
// entry points (direct checkout, gateway verification, manual payment)
// go through here; it is the only code that reserves inventory.
type Factory struct {
	orders OrderInserter
	stock  inventory.Reserver
	mail   notify.Dispatcher
	log    *zap.Logger
}

func NewFactory(orders OrderInserter, stock inventory.Reserver, mail notify.Dispatcher, log *zap.Logger) *Factory {
	return &Factory{
		orders: orders,
		stock:  stock,
		mail:   mail,
		log:    log,
	}
}

// CreateOrder validates the payload, reserves stock for every line
// all-or-nothing, and persists the order. On any failure no partial
// order and no partial decrement is left behind.
func (f *Factory) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, &ValidationError{Message: "No items"}
	}
	if in.City == "" || in.State == "" || in.Pincode == "" {
		return nil, &ValidationError{Message: "City, state and pincode are required"}
	}
	if !pincodeRe.MatchString(in.Pincode) {
		return nil, &ValidationError{Message: "Pincode must be between 4-8 digits"}
	}

	method, err := parsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	status := models.OrderStatusPending
	// An order is only ever born pending or paid; paid is reserved for the
	// gateway flow where the signature was verified first.
	if in.Status == string(models.OrderStatusPaid) {
		status = models.OrderStatusPaid
	}

	computed := ComputeTotal(in.Items)
	total := computed
	// Trust boundary: a positive client-supplied total is accepted verbatim
	// even when it disagrees with the computed one. Kept deliberately; the
	// computed value is logged alongside so mismatches stay observable.
	if in.Total > 0 {
		total = in.Total
	}
	if total != computed {
		f.log.Warn("client total differs from computed total",
			zap.Float64("clientTotal", total),
			zap.Float64("computedTotal", computed))
	}

	lines := make([]inventory.Line, 0, len(in.Items))
	for _, item := range in.Items {
		lines = append(lines, inventory.Line{
			ProductID: item.ProductID,
			Size:      item.Size,
			Qty:       item.Qty,
		})
	}

	reservations, err := f.stock.ReserveAll(ctx, lines)
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) {
			metrics.InsufficientStock.Inc()
			return nil, err
		}
		return nil, fmt.Errorf("reserve inventory: %w", err)
	}

	var upi *models.UPIDetails
	if method == models.PaymentMethodUPI {
		upi = in.UPI
	}

	now := time.Now()
	order := &models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        in.UserID,
		Name:          in.Name,
		Phone:         in.Phone,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
		Pincode:       in.Pincode,
		PaymentMethod: method,
		Items:         in.Items,
		Total:         total,
		Status:        status,
		UPI:           upi,
		ReturnStatus:  models.ReturnStatusNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.orders.InsertOne(ctx, order); err != nil {
		// No partial state: give the reserved stock back before failing.
		f.stock.ReleaseAll(ctx, reservations)
		return nil, fmt.Errorf("insert order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(string(method)).Inc()

	if in.NotifyEmail != "" {
		// Fire and forget: a failed confirmation mail never fails checkout.
		go func(o models.Order, email string) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := f.mail.OrderConfirmation(ctx, &o, email); err != nil {
				f.log.Error("failed to send order confirmation",
					zap.String("orderId", o.ID.Hex()), zap.Error(err))
			}
		}(*order, in.NotifyEmail)
	}

	return order, nil
}

// ComputeTotal is the authoritative order total: sum of price*qty over
// the item snapshots.
func ComputeTotal(items []models.OrderItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Price * float64(item.Qty)
	}
	return sum
}

func parsePaymentMethod(s string) (models.PaymentMethod, error) {
	switch s {
	case "":
		return models.PaymentMethodCOD, nil
	case string(models.PaymentMethodCOD):
		return models.PaymentMethodCOD, nil
	case string(models.PaymentMethodUPI):
		return models.PaymentMethodUPI, nil
	case string(models.PaymentMethodGateway):
		return models.PaymentMethodGateway, nil
	default:
		return "", &ValidationError{Message: "Invalid payment method"}
	}
}
