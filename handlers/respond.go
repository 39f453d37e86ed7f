package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/inventory"
	"github.com/threadkart/threadkart-backend-go/orders"
)

// Response envelope shared by every endpoint: {ok, data?, message?}.

func respondData(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, map[string]interface{}{"ok": true, "data": data})
}

func respondMessage(c echo.Context, code int, data interface{}, message string) error {
	return c.JSON(code, map[string]interface{}{"ok": true, "data": data, "message": message})
}

func respondError(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]interface{}{"ok": false, "message": message})
}

// respondOrderError maps core errors to the HTTP surface. Validation and
// stock failures carry actionable detail; everything unexpected is
// logged server-side and answered with a generic 500.
func respondOrderError(c echo.Context, log *zap.Logger, err error) error {
	var vErr *orders.ValidationError
	if errors.As(err, &vErr) {
		return respondError(c, 400, vErr.Message)
	}

	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.JSON(409, map[string]interface{}{
			"ok":           false,
			"message":      stockErr.Error(),
			"itemId":       stockErr.ItemID,
			"availableQty": stockErr.Available,
		})
	}

	switch {
	case errors.Is(err, orders.ErrNotFound):
		return respondError(c, 404, "Order not found")
	case errors.Is(err, orders.ErrForbidden):
		return respondError(c, 403, "Forbidden")
	case errors.Is(err, orders.ErrStateConflict):
		return respondError(c, 400, "Order cannot be cancelled in current status")
	}

	log.Error("order operation failed", zap.Error(err))
	return respondError(c, 500, "Server error")
}
