package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/models"
)

// Line is one order line to reserve stock for.
type Line struct {
	ProductID string
	Size      string
	Qty       int
}

// Reservation records a stock decrement that was actually applied, so it
// can be compensated with Release. Size is empty when the decrement hit
// the scalar stock counter.
type Reservation struct {
	ProductID primitive.ObjectID
	Size      string
	Qty       int
}

// InsufficientStockError is returned when a line cannot be reserved.
// Available carries the quantity left so the client can re-render.
type InsufficientStockError struct {
	ItemID    string
	Title     string
	Size      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Size != "" {
		return fmt.Sprintf("insufficient stock for %s size %s", e.Title, e.Size)
	}
	return fmt.Sprintf("insufficient stock for %s", e.Title)
}

// Reserver is the slice of the ledger the order factory depends on.
type Reserver interface {
	ReserveAll(ctx context.Context, lines []Line) ([]Reservation, error)
	ReleaseAll(ctx context.Context, reservations []Reservation)
}

// productStore is the slice of *mongo.Collection the ledger issues its
// reads and conditional updates through.
type productStore interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Ledger owns the per-product stock counters. Every decrement is a single
// conditional update ("decrement by N only if current qty >= N") so that
// concurrent checkouts can never drive a counter negative. No stock value
// is ever cached in memory.
type Ledger struct {
	products productStore
	log      *zap.Logger
}

func NewLedger(db *mongo.Database, log *zap.Logger) *Ledger {
	return &Ledger{
		products: db.Collection("products"),
		log:      log,
	}
}

// Reserve atomically decrements stock for one line. A nil reservation with
// a nil error means the line had no inventory effect: unknown product, or a
// size that the product does not track. That permissiveness is inherited
// from legacy unsized lines; failing here would break old carts.
func (l *Ledger) Reserve(ctx context.Context, line Line) (*Reservation, error) {
	qty := line.Qty
	if qty <= 0 {
		qty = 1
	}

	objID, err := primitive.ObjectIDFromHex(line.ProductID)
	if err != nil {
		// Malformed ids behave like missing products: no inventory effect.
		return nil, nil
	}

	var product models.Product
	err = l.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	if product.TrackInventoryBySize && line.Size != "" {
		if product.SizeEntryByCode(line.Size) == nil {
			// Size not tracked for this product: no inventory effect.
			return nil, nil
		}
		return l.reserveSize(ctx, objID, &product, line.Size, qty)
	}

	if !product.TrackInventoryBySize {
		return l.reserveScalar(ctx, objID, &product, qty)
	}

	// Per-size product, unsized line: no inventory effect.
	return nil, nil
}

func (l *Ledger) reserveSize(ctx context.Context, id primitive.ObjectID, product *models.Product, size string, qty int) (*Reservation, error) {
	filter := bson.M{
		"_id":                  id,
		"trackInventoryBySize": true,
		"sizeInventory": bson.M{
			"$elemMatch": bson.M{"code": size, "qty": bson.M{"$gte": qty}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"sizeInventory.$.qty": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := l.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.ModifiedCount == 0 {
		return nil, l.insufficient(ctx, id, product, size)
	}
	return &Reservation{ProductID: id, Size: size, Qty: qty}, nil
}

func (l *Ledger) reserveScalar(ctx context.Context, id primitive.ObjectID, product *models.Product, qty int) (*Reservation, error) {
	filter := bson.M{
		"_id":                  id,
		"trackInventoryBySize": false,
		"stock":                bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := l.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.ModifiedCount == 0 {
		return nil, l.insufficient(ctx, id, product, "")
	}
	return &Reservation{ProductID: id, Qty: qty}, nil
}

// insufficient re-reads the counter so the error carries the quantity a
// concurrent winner left behind, not the stale value from our first read.
func (l *Ledger) insufficient(ctx context.Context, id primitive.ObjectID, product *models.Product, size string) error {
	available := 0
	var fresh models.Product
	if err := l.products.FindOne(ctx, bson.M{"_id": id}).Decode(&fresh); err == nil {
		if size != "" {
			if entry := fresh.SizeEntryByCode(size); entry != nil {
				available = entry.Qty
			}
		} else {
			available = fresh.Stock
		}
	}
	return &InsufficientStockError{
		ItemID:    id.Hex(),
		Title:     product.Title,
		Size:      size,
		Available: available,
	}
}

// Release is the compensating increment for a reservation. It is only ever
// called with reservations that were actually applied, so a plain $inc is
// safe during rollback.
func (l *Ledger) Release(ctx context.Context, r Reservation) error {
	var filter, update bson.M
	if r.Size != "" {
		filter = bson.M{"_id": r.ProductID, "sizeInventory.code": r.Size}
		update = bson.M{
			"$inc": bson.M{"sizeInventory.$.qty": r.Qty},
			"$set": bson.M{"updatedAt": time.Now()},
		}
	} else {
		filter = bson.M{"_id": r.ProductID}
		update = bson.M{
			"$inc": bson.M{"stock": r.Qty},
			"$set": bson.M{"updatedAt": time.Now()},
		}
	}
	_, err := l.products.UpdateOne(ctx, filter, update)
	return err
}

// ReserveAll reserves every line or none. On the first failure every
// previously applied reservation is released before the error is returned,
// so a rejected checkout leaves no partial decrement behind.
func (l *Ledger) ReserveAll(ctx context.Context, lines []Line) ([]Reservation, error) {
	applied := make([]Reservation, 0, len(lines))
	for _, line := range lines {
		r, err := l.Reserve(ctx, line)
		if err != nil {
			l.ReleaseAll(ctx, applied)
			return nil, err
		}
		if r != nil {
			applied = append(applied, *r)
		}
	}
	return applied, nil
}

// ReleaseAll releases reservations in reverse order. Failures are logged
// and do not stop the remaining releases.
func (l *Ledger) ReleaseAll(ctx context.Context, reservations []Reservation) {
	for i := len(reservations) - 1; i >= 0; i-- {
		if err := l.Release(ctx, reservations[i]); err != nil {
			l.log.Error("failed to release reservation",
				zap.String("productId", reservations[i].ProductID.Hex()),
				zap.String("size", reservations[i].Size),
				zap.Int("qty", reservations[i].Qty),
				zap.Error(err))
		}
	}
}
