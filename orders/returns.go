package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/threadkart/threadkart-backend-go/metrics"
	"github.com/threadkart/threadkart-backend-go/models"
)

// ReturnWindow is how long after delivery a buyer may request a return.
const ReturnWindow = 7 * 24 * time.Hour

// ReturnRequest is a buyer's return submission. Photo evidence is
// optional; reason and the refund UPI id are not.
type ReturnRequest struct {
	Reason   string
	UpiID    string
	PhotoURL string
}

// DeliveredTime resolves when the order was delivered: the explicit
// deliveredAt stamp, falling back to updatedAt for orders that reached
// delivered before stamping existed.
func DeliveredTime(order *models.Order) (time.Time, bool) {
	if order.Status != models.OrderStatusDelivered {
		return time.Time{}, false
	}
	if order.DeliveredAt != nil {
		return *order.DeliveredAt, true
	}
	return order.UpdatedAt, true
}

// WithinReturnWindow reports whether a return may still be requested at
// the given instant.
func WithinReturnWindow(order *models.Order, now time.Time) bool {
	deliveredAt, ok := DeliveredTime(order)
	if !ok {
		return false
	}
	return now.Sub(deliveredAt) <= ReturnWindow
}

// RequestReturn records a return request on a delivered order. Only the
// order's owner may submit. Resubmission is not guarded: a second
// request overwrites the first, restamping returnRequestedAt. That
// matches how the back office has always treated edits to a pending
// request.
func (s *Service) RequestReturn(ctx context.Context, orderID primitive.ObjectID, requester Requester, req ReturnRequest) (*models.Order, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, &ValidationError{Message: "Return reason is required"}
	}
	upiID := strings.TrimSpace(req.UpiID)
	if upiID == "" {
		return nil, &ValidationError{Message: "Refund UPI ID is required"}
	}

	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(requester.UserID) {
		return nil, ErrForbidden
	}

	now := s.now()
	if _, delivered := DeliveredTime(order); !delivered {
		return nil, &ValidationError{Message: "Return can only be requested for delivered orders"}
	}
	if !WithinReturnWindow(order, now) {
		return nil, &ValidationError{Message: "Return period expired."}
	}

	set := bson.M{
		"returnStatus":      models.ReturnStatusPending,
		"returnReason":      reason,
		"refundUpiId":       upiID,
		"returnPhoto":       strings.TrimSpace(req.PhotoURL),
		"returnRequestedAt": now,
		"updatedAt":         now,
	}

	var updated models.Order
	err = s.orders.FindOneAndUpdate(
		ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": set},
		mongoAfter(),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	metrics.ReturnEvents.WithLabelValues("requested").Inc()
	return &updated, nil
}

func mongoAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
