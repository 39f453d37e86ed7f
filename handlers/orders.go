package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/database"
	"github.com/threadkart/threadkart-backend-go/middleware"
	"github.com/threadkart/threadkart-backend-go/models"
	"github.com/threadkart/threadkart-backend-go/orders"
)

type OrderHandler struct {
	factory *orders.Factory
	svc     *orders.Service
	log     *zap.Logger
}

func NewOrderHandler(factory *orders.Factory, svc *orders.Service, log *zap.Logger) *OrderHandler {
	return &OrderHandler{factory: factory, svc: svc, log: log}
}

// orderItemPayload accepts both the current "productId" field and the
// legacy "id" alias older clients still send.
type orderItemPayload struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Qty       int     `json:"qty"`
	Size      string  `json:"size"`
	Image     string  `json:"image"`
}

func (p orderItemPayload) toModel() models.OrderItem {
	productID := p.ProductID
	if productID == "" {
		productID = p.ID
	}
	return models.OrderItem{
		ProductID: productID,
		Title:     p.Title,
		Price:     p.Price,
		Qty:       p.Qty,
		Size:      p.Size,
		Image:     p.Image,
	}
}

func toOrderItems(payloads []orderItemPayload) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, p.toModel())
	}
	return items
}

type customerPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type createOrderRequest struct {
	Name          string             `json:"name"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	State         string             `json:"state"`
	Pincode       string             `json:"pincode"`
	Items         []orderItemPayload `json:"items"`
	Total         float64            `json:"total"`
	PaymentMethod string             `json:"paymentMethod"`
	Payment       string             `json:"payment"` // legacy alias for paymentMethod
	Status        string             `json:"status"`
	UPI           *models.UPIDetails `json:"upi"`
	Customer      *customerPayload   `json:"customer"`
}

func pick(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// CreateOrder handles direct checkout, guest or authenticated.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	if req.Customer != nil {
		req.Name = pick(req.Name, req.Customer.Name)
		req.Phone = pick(req.Phone, req.Customer.Phone)
		req.Address = pick(req.Address, req.Customer.Address)
		req.City = pick(req.City, req.Customer.City)
		req.State = pick(req.State, req.Customer.State)
		req.Pincode = pick(req.Pincode, req.Customer.Pincode)
	}

	input := orders.CreateOrderInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		Items:         toOrderItems(req.Items),
		Total:         req.Total,
		PaymentMethod: pick(req.PaymentMethod, req.Payment),
		Status:        req.Status,
		UPI:           req.UPI,
	}

	if user, ok := middleware.UserFromContext(c); ok {
		input.UserID = &user.ID
		input.NotifyEmail = user.Email
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.factory.CreateOrder(ctx, input)
	if err != nil {
		return respondOrderError(c, h.log, err)
	}
	return respondData(c, http.StatusOK, order)
}

// List serves the admin order list, or the caller's own orders with
// ?mine=1.
func (h *OrderHandler) List(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}

	filter := bson.M{}
	if c.QueryParam("mine") == "1" {
		filter["userId"] = user.ID
	} else if !user.IsAdmin() {
		return respondError(c, http.StatusForbidden, "Forbidden")
	}
	return h.listOrders(c, filter)
}

// ListMine serves the caller's orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}
	return h.listOrders(c, bson.M{"userId": user.ID})
}

var activeReturnStatuses = []models.ReturnStatus{
	models.ReturnStatusPending,
	models.ReturnStatusApproved,
	models.ReturnStatusRejected,
}

// ListReturns serves every order with a return request (admin).
func (h *OrderHandler) ListReturns(c echo.Context) error {
	return h.listOrders(c, bson.M{"returnStatus": bson.M{"$in": activeReturnStatuses}})
}

// ListMyReturns serves the caller's orders with a return request.
func (h *OrderHandler) ListMyReturns(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}
	return h.listOrders(c, bson.M{
		"userId":       user.ID,
		"returnStatus": bson.M{"$in": activeReturnStatuses},
	})
}

func (h *OrderHandler) listOrders(c echo.Context, filter bson.M) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := database.DB.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		h.log.Error("failed to list orders", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Server error")
	}
	defer cursor.Close(ctx)

	docs := []models.Order{}
	if err := cursor.All(ctx, &docs); err != nil {
		h.log.Error("failed to decode orders", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Server error")
	}
	return respondData(c, http.StatusOK, docs)
}

// Get serves one order to its owner or an admin.
func (h *OrderHandler) Get(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var order models.Order
	if err := database.DB.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return respondError(c, http.StatusNotFound, "Not found")
	}

	if user, ok := middleware.UserFromContext(c); ok {
		if user.IsAdmin() || order.OwnedBy(user.ID) {
			return respondData(c, http.StatusOK, order)
		}
	}
	return respondError(c, http.StatusForbidden, "Forbidden")
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles the two admin status-only routes
// (PUT /:id/status and PUT /:id).
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order ID")
	}

	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.Status == "" {
		return respondError(c, http.StatusBadRequest, "Missing status")
	}

	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		return respondOrderError(c, h.log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	updated, err := h.svc.AdminUpdate(ctx, orderID, orders.AdminPatch{Status: &status})
	if err != nil {
		return respondOrderError(c, h.log, err)
	}
	return respondData(c, http.StatusOK, updated)
}

type adminUpdateRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	ReturnStatus   string `json:"returnStatus"`
}

// AdminUpdate handles the back-office partial patch: any subset of
// status, tracking number and return disposition.
func (h *OrderHandler) AdminUpdate(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order ID")
	}

	var req adminUpdateRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	patch := orders.AdminPatch{TrackingNumber: req.TrackingNumber}
	if req.Status != "" {
		status, err := orders.ParseStatus(req.Status)
		if err != nil {
			return respondOrderError(c, h.log, err)
		}
		patch.Status = &status
	}
	if req.ReturnStatus != "" {
		rs := models.ReturnStatus(req.ReturnStatus)
		switch rs {
		case models.ReturnStatusNone, models.ReturnStatusPending,
			models.ReturnStatusApproved, models.ReturnStatusRejected:
			patch.ReturnStatus = &rs
		default:
			return respondError(c, http.StatusBadRequest, "Invalid return status")
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	updated, err := h.svc.AdminUpdate(ctx, orderID, patch)
	if err != nil {
		return respondOrderError(c, h.log, err)
	}
	return respondMessage(c, http.StatusOK, updated, "Order updated successfully")
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel lets the owner or an admin cancel an order that has not been
// paid yet.
func (h *OrderHandler) Cancel(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}

	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order ID")
	}

	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	requester := orders.Requester{UserID: user.ID, Admin: user.IsAdmin()}
	updated, err := h.svc.Cancel(ctx, orderID, requester, req.Reason)
	if err != nil {
		return respondOrderError(c, h.log, err)
	}
	return respondData(c, http.StatusOK, updated)
}

type returnRequestBody struct {
	OrderID  string `json:"orderId"`
	Reason   string `json:"reason"`
	UpiID    string `json:"upiId"`
	PhotoURL string `json:"photoUrl"`
}

// RequestReturn handles POST /:id/request-return.
func (h *OrderHandler) RequestReturn(c echo.Context) error {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order ID")
	}
	return h.requestReturn(c, orderID)
}

// RequestReturnByBody handles POST /request-return with the order id in
// the body.
func (h *OrderHandler) RequestReturnByBody(c echo.Context) error {
	var req returnRequestBody
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.OrderID == "" {
		return respondError(c, http.StatusBadRequest, "Missing orderId")
	}
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid order ID")
	}

	return h.submitReturn(c, orderID, req)
}

func (h *OrderHandler) requestReturn(c echo.Context, orderID primitive.ObjectID) error {
	var req returnRequestBody
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}
	return h.submitReturn(c, orderID, req)
}

func (h *OrderHandler) submitReturn(c echo.Context, orderID primitive.ObjectID, req returnRequestBody) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	requester := orders.Requester{UserID: user.ID, Admin: user.IsAdmin()}
	updated, err := h.svc.RequestReturn(ctx, orderID, requester, orders.ReturnRequest{
		Reason:   req.Reason,
		UpiID:    req.UpiID,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		return respondOrderError(c, h.log, err)
	}
	return respondMessage(c, http.StatusOK, updated, "Return request submitted")
}
