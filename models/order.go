package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusReturned  OrderStatus = "returned"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type ReturnStatus string

const (
	ReturnStatusNone     ReturnStatus = "None"
	ReturnStatusPending  ReturnStatus = "Pending"
	ReturnStatusApproved ReturnStatus = "Approved"
	ReturnStatusRejected ReturnStatus = "Rejected"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodUPI     PaymentMethod = "UPI"
	PaymentMethodGateway PaymentMethod = "Razorpay"
)

// OrderItem is a denormalized snapshot taken at order time. It must not
// be re-derived from the live Product later; price and availability may
// have changed since.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Title     string  `bson:"title" json:"title"`
	Price     float64 `bson:"price" json:"price"`
	Qty       int     `bson:"qty" json:"qty"`
	Size      string  `bson:"size,omitempty" json:"size,omitempty"`
	Image     string  `bson:"image,omitempty" json:"image,omitempty"`
}

// UPIDetails records a manual UPI payment submission.
type UPIDetails struct {
	PayerName string `bson:"payerName" json:"payerName"`
	TxnID     string `bson:"txnId" json:"txnId"`
}

type Order struct {
	ID     primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"` // nil for guest checkout

	Name    string `bson:"name" json:"name"`
	Phone   string `bson:"phone" json:"phone"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Pincode string `bson:"pincode" json:"pincode"`

	PaymentMethod PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	Items         []OrderItem   `bson:"items" json:"items"`
	Total         float64       `bson:"total" json:"total"`
	Status        OrderStatus   `bson:"status" json:"status"`
	UPI           *UPIDetails   `bson:"upi,omitempty" json:"upi,omitempty"`

	TrackingNumber     string     `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	DeliveredAt        *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CancellationReason string     `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`

	ReturnStatus      ReturnStatus `bson:"returnStatus" json:"returnStatus"`
	ReturnReason      string       `bson:"returnReason,omitempty" json:"returnReason,omitempty"`
	RefundUpiID       string       `bson:"refundUpiId,omitempty" json:"refundUpiId,omitempty"`
	ReturnPhoto       string       `bson:"returnPhoto,omitempty" json:"returnPhoto,omitempty"`
	ReturnRequestedAt *time.Time   `bson:"returnRequestedAt,omitempty" json:"returnRequestedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OwnedBy reports whether the order belongs to the given user.
func (o *Order) OwnedBy(userID primitive.ObjectID) bool {
	return o.UserID != nil && *o.UserID == userID
}
