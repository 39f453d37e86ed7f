package notify

import (
	"context"

	"github.com/threadkart/threadkart-backend-go/models"
)

// Dispatcher sends customer-facing mail for order lifecycle events. The
// fulfillment core only invokes it; failures never fail the triggering
// operation.
type Dispatcher interface {
	OrderConfirmation(ctx context.Context, order *models.Order, to string) error
	StatusUpdate(ctx context.Context, order *models.Order, to string, status models.OrderStatus) error
	ReturnApproved(ctx context.Context, order *models.Order, to string) error
	ReturnRejected(ctx context.Context, order *models.Order, to string) error
}

// Noop discards every notification. Used in tests and when SMTP is not
// configured.
type Noop struct{}

func (Noop) OrderConfirmation(context.Context, *models.Order, string) error { return nil }
func (Noop) StatusUpdate(context.Context, *models.Order, string, models.OrderStatus) error {
	return nil
}
func (Noop) ReturnApproved(context.Context, *models.Order, string) error { return nil }
func (Noop) ReturnRejected(context.Context, *models.Order, string) error { return nil }
