package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/metrics"
	"github.com/threadkart/threadkart-backend-go/models"
	"github.com/threadkart/threadkart-backend-go/notify"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrForbidden     = errors.New("forbidden")
	ErrStateConflict = errors.New("order cannot be cancelled in current status")
)

// Legacy statuses that can still exist on old documents. They are not
// part of the closed enum but remain cancellable.
const (
	legacyStatusCODPending          models.OrderStatus = "cod_pending"
	legacyStatusPendingVerification models.OrderStatus = "pending_verification"
)

// statusAliases maps values the admin UI historically sent.
var statusAliases = map[string]models.OrderStatus{
	"processing": models.OrderStatusPaid,
	"completed":  models.OrderStatusDelivered,
}

var allStatuses = map[models.OrderStatus]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusPaid:      true,
	models.OrderStatusShipped:   true,
	models.OrderStatusDelivered: true,
	models.OrderStatusReturned:  true,
	models.OrderStatusCancelled: true,
}

// ParseStatus resolves a raw status string to a member of the closed
// status set, accepting the UI aliases. Unknown values are rejected.
func ParseStatus(s string) (models.OrderStatus, error) {
	if mapped, ok := statusAliases[s]; ok {
		return mapped, nil
	}
	status := models.OrderStatus(s)
	if !allStatuses[status] {
		return "", &ValidationError{Message: "Invalid status"}
	}
	return status, nil
}

// TransitionPolicy decides whether a status change is allowed. The
// default is permissive: any admin may set any status from any status,
// matching the behavior the back office has always had. A stricter
// lifecycle can be plugged in here without touching the update path.
type TransitionPolicy func(from, to models.OrderStatus) error

// PermissiveTransitions allows every transition.
func PermissiveTransitions(from, to models.OrderStatus) error { return nil }

var cancellableStatuses = map[models.OrderStatus]bool{
	models.OrderStatusPending:       true,
	legacyStatusCODPending:          true,
	legacyStatusPendingVerification: true,
}

// Cancellable reports whether an order in the given status may still be
// cancelled by its owner.
func Cancellable(s models.OrderStatus) bool {
	return cancellableStatuses[s]
}

// Requester identifies who is asking for a lifecycle change.
type Requester struct {
	UserID primitive.ObjectID
	Admin  bool
}

// AdminPatch is a partial back-office update; any subset of fields may
// be supplied.
type AdminPatch struct {
	Status         *models.OrderStatus
	TrackingNumber string
	ReturnStatus   *models.ReturnStatus
}

// Service governs the order lifecycle: admin status updates, user
// cancellation, and the return workflow. Orders are mutated only
// through here (and never hard-deleted; cancellation is a status).
type Service struct {
	orders *mongo.Collection
	users  *mongo.Collection
	mail   notify.Dispatcher
	log    *zap.Logger
	policy TransitionPolicy
	now    func() time.Time
}

func NewService(db *mongo.Database, mail notify.Dispatcher, log *zap.Logger) *Service {
	return &Service{
		orders: db.Collection("orders"),
		users:  db.Collection("users"),
		mail:   mail,
		log:    log,
		policy: PermissiveTransitions,
		now:    time.Now,
	}
}

// notifyEvents computed while building an admin patch.
type patchEvents struct {
	statusChanged  bool
	newStatus      models.OrderStatus
	returnApproved bool
	returnRejected bool
}

// buildAdminPatch computes the single $set document for an admin update.
// Return approval forces status=returned inside the same $set, so the
// two fields change atomically and no intermediate state is observable.
func buildAdminPatch(order *models.Order, patch AdminPatch, now time.Time, policy TransitionPolicy) (bson.M, patchEvents, error) {
	set := bson.M{"updatedAt": now}
	var events patchEvents

	if patch.Status != nil {
		if err := policy(order.Status, *patch.Status); err != nil {
			return nil, events, err
		}
		set["status"] = *patch.Status
		if *patch.Status != order.Status {
			events.statusChanged = true
			events.newStatus = *patch.Status
		}
		// deliveredAt is stamped exactly once, at the transition into
		// delivered; a re-applied delivered status keeps the original stamp.
		if *patch.Status == models.OrderStatusDelivered && order.DeliveredAt == nil {
			set["deliveredAt"] = now
		}
	}

	if patch.TrackingNumber != "" {
		set["trackingNumber"] = patch.TrackingNumber
	}

	if patch.ReturnStatus != nil {
		set["returnStatus"] = *patch.ReturnStatus
		switch *patch.ReturnStatus {
		case models.ReturnStatusApproved:
			set["status"] = models.OrderStatusReturned
			events.returnApproved = true
		case models.ReturnStatusRejected:
			events.returnRejected = true
		}
	}

	return set, events, nil
}

// AdminUpdate applies a partial back-office patch to an order and sends
// the matching customer notifications. Neither cancellation nor return
// approval restocks inventory; the ledger only moves at checkout.
func (s *Service) AdminUpdate(ctx context.Context, orderID primitive.ObjectID, patch AdminPatch) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	set, events, err := buildAdminPatch(order, patch, s.now(), s.policy)
	if err != nil {
		return nil, err
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

	s.dispatchPatchMail(&updated, events)
	return &updated, nil
}

func (s *Service) dispatchPatchMail(order *models.Order, events patchEvents) {
	email := s.ownerEmail(order)
	if email == "" {
		return
	}

	if events.statusChanged &&
		(events.newStatus == models.OrderStatusShipped || events.newStatus == models.OrderStatusDelivered) {
		s.sendAsync(order, func(ctx context.Context, o *models.Order) error {
			return s.mail.StatusUpdate(ctx, o, email, events.newStatus)
		})
	}

	if events.returnApproved {
		metrics.ReturnEvents.WithLabelValues("approved").Inc()
		s.sendAsync(order, func(ctx context.Context, o *models.Order) error {
			return s.mail.ReturnApproved(ctx, o, email)
		})
	} else if events.returnRejected {
		metrics.ReturnEvents.WithLabelValues("rejected").Inc()
		s.sendAsync(order, func(ctx context.Context, o *models.Order) error {
			return s.mail.ReturnRejected(ctx, o, email)
		})
	}
}

// Cancel marks an order cancelled. Only the owner or an admin may
// cancel, and only while the order has not been paid. Cancellation does
// not restock inventory; neither does return approval. Restocking is an
// open product question and deliberately left out of both paths.
func (s *Service) Cancel(ctx context.Context, orderID primitive.ObjectID, requester Requester, reason string) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !requester.Admin && !order.OwnedBy(requester.UserID) {
		return nil, ErrForbidden
	}
	if !Cancellable(order.Status) {
		return nil, ErrStateConflict
	}

	set := bson.M{
		"status":    models.OrderStatusCancelled,
		"updatedAt": s.now(),
	}
	if reason != "" {
		set["cancellationReason"] = reason
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
	return &updated, nil
}

func (s *Service) get(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) ownerEmail(order *models.Order) string {
	if order.UserID == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": *order.UserID}).Decode(&user); err != nil {
		return ""
	}
	return user.Email
}

func (s *Service) sendAsync(order *models.Order, send func(context.Context, *models.Order) error) {
	o := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := send(ctx, &o); err != nil {
			s.log.Error("failed to send order notification",
				zap.String("orderId", o.ID.Hex()), zap.Error(err))
		}
	}()
}
