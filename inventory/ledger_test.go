package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/threadkart/threadkart-backend-go/models"
)

// fakeProducts applies the ledger's conditional updates atomically under
// a mutex, mirroring how the store evaluates filter and update as one
// indivisible operation.
type fakeProducts struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func newFakeProducts(products ...*models.Product) *fakeProducts {
	f := &fakeProducts{products: make(map[primitive.ObjectID]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := filter.(bson.M)["_id"].(primitive.ObjectID)
	p, ok := f.products[id]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	snapshot := *p
	snapshot.SizeInventory = append([]models.SizeEntry(nil), p.SizeInventory...)
	return mongo.NewSingleResultFromDocument(snapshot, nil, nil)
}

func (f *fakeProducts) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl := filter.(bson.M)
	inc := update.(bson.M)["$inc"].(bson.M)

	p, ok := f.products[fl["_id"].(primitive.ObjectID)]
	if !ok {
		return &mongo.UpdateResult{}, nil
	}
	if track, ok := fl["trackInventoryBySize"].(bool); ok && p.TrackInventoryBySize != track {
		return &mongo.UpdateResult{}, nil
	}

	// Conditional per-size decrement.
	if em, ok := fl["sizeInventory"].(bson.M); ok {
		elem := em["$elemMatch"].(bson.M)
		entry := p.SizeEntryByCode(elem["code"].(string))
		min := elem["qty"].(bson.M)["$gte"].(int)
		if entry == nil || entry.Qty < min {
			return &mongo.UpdateResult{}, nil
		}
		entry.Qty += inc["sizeInventory.$.qty"].(int)
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}

	// Per-size release.
	if code, ok := fl["sizeInventory.code"].(string); ok {
		entry := p.SizeEntryByCode(code)
		if entry == nil {
			return &mongo.UpdateResult{}, nil
		}
		entry.Qty += inc["sizeInventory.$.qty"].(int)
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}

	// Conditional scalar decrement.
	if g, ok := fl["stock"].(bson.M); ok {
		if p.Stock < g["$gte"].(int) {
			return &mongo.UpdateResult{}, nil
		}
		p.Stock += inc["stock"].(int)
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}

	// Scalar release.
	p.Stock += inc["stock"].(int)
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func sizedProduct(title string, entries ...models.SizeEntry) *models.Product {
	return &models.Product{
		ID:                   primitive.NewObjectID(),
		Title:                title,
		TrackInventoryBySize: true,
		SizeInventory:        entries,
	}
}

func scalarProduct(title string, stock int) *models.Product {
	return &models.Product{
		ID:    primitive.NewObjectID(),
		Title: title,
		Stock: stock,
	}
}

func newTestLedger(store *fakeProducts) *Ledger {
	return &Ledger{products: store, log: zap.NewNop()}
}

func TestReserveDecrementsSizeInventory(t *testing.T) {
	p := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Label: "Medium", Qty: 5})
	store := newFakeProducts(p)
	ledger := newTestLedger(store)

	r, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Size: "M", Qty: 2})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 2, r.Qty)
	assert.Equal(t, "M", r.Size)
	assert.Equal(t, 3, p.SizeInventory[0].Qty)
}

func TestReserveInsufficientStockCarriesAvailable(t *testing.T) {
	p := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Qty: 1})
	ledger := newTestLedger(newFakeProducts(p))

	_, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Size: "M", Qty: 3})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, "M", stockErr.Size)
	assert.Equal(t, p.ID.Hex(), stockErr.ItemID)
	assert.Equal(t, 1, p.SizeInventory[0].Qty, "failed reserve must not decrement")
}

func TestReserveScalarStock(t *testing.T) {
	p := scalarProduct("Gift Card", 4)
	ledger := newTestLedger(newFakeProducts(p))

	r, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Qty: 3})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1, p.Stock)

	_, err = ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Qty: 2})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Empty(t, stockErr.Size)
}

func TestReserveDefaultsQuantityToOne(t *testing.T) {
	p := scalarProduct("Gift Card", 2)
	ledger := newTestLedger(newFakeProducts(p))

	r, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Qty: 0})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 1, r.Qty)
	assert.Equal(t, 1, p.Stock)
}

func TestReserveNoopBranches(t *testing.T) {
	ledger := newTestLedger(newFakeProducts())

	// Unknown product: the line has no inventory effect.
	r, err := ledger.Reserve(context.Background(), Line{ProductID: primitive.NewObjectID().Hex(), Size: "M", Qty: 1})
	require.NoError(t, err)
	assert.Nil(t, r)

	// Malformed product id behaves the same.
	r, err = ledger.Reserve(context.Background(), Line{ProductID: "not-an-object-id", Qty: 1})
	require.NoError(t, err)
	assert.Nil(t, r)

	// Size the product does not track.
	p := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Qty: 5})
	ledger = newTestLedger(newFakeProducts(p))
	r, err = ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Size: "XS", Qty: 1})
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 5, p.SizeInventory[0].Qty)

	// Unsized line on a per-size product.
	r, err = ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Qty: 1})
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 5, p.SizeInventory[0].Qty)
}

func TestReleaseRestoresQuantity(t *testing.T) {
	p := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Qty: 5})
	ledger := newTestLedger(newFakeProducts(p))

	r, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Size: "M", Qty: 4})
	require.NoError(t, err)
	require.NoError(t, ledger.Release(context.Background(), *r))
	assert.Equal(t, 5, p.SizeInventory[0].Qty)
}

func TestReserveAllRollsBackOnFailure(t *testing.T) {
	a := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Qty: 5})
	b := scalarProduct("Gift Card", 0)
	ledger := newTestLedger(newFakeProducts(a, b))

	lines := []Line{
		{ProductID: a.ID.Hex(), Size: "M", Qty: 2},
		{ProductID: b.ID.Hex(), Qty: 1},
	}
	_, err := ledger.ReserveAll(context.Background(), lines)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.ID.Hex(), stockErr.ItemID)
	assert.Equal(t, 5, a.SizeInventory[0].Qty, "earlier reservation must be released")
	assert.Equal(t, 0, b.Stock)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	const initial = 5
	const attempts = 20

	p := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Qty: initial})
	ledger := newTestLedger(newFakeProducts(p))

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Size: "M", Qty: 1})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			var stockErr *InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, initial, succeeded, "at most the initial quantity may ever be reserved")
	assert.Equal(t, 0, p.SizeInventory[0].Qty, "stock must end at zero, never negative")
}

func TestConcurrentCheckoutForLastUnits(t *testing.T) {
	// Size M has qty 2; two concurrent orders each want 2.
	p := sizedProduct("Oversized Tee", models.SizeEntry{Code: "M", Qty: 2})
	ledger := newTestLedger(newFakeProducts(p))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(context.Background(), Line{ProductID: p.ID.Hex(), Size: "M", Qty: 2})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var failures []*InsufficientStockError
	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		failures = append(failures, stockErr)
	}

	assert.Equal(t, 1, succeeded, "exactly one order wins the last units")
	require.Len(t, failures, 1)
	assert.Equal(t, 0, failures[0].Available)
	assert.Equal(t, 0, p.SizeInventory[0].Qty)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	withSize := &InsufficientStockError{Title: "Oversized Tee", Size: "M"}
	assert.Equal(t, "insufficient stock for Oversized Tee size M", withSize.Error())

	scalar := &InsufficientStockError{Title: "Gift Card"}
	assert.Equal(t, "insufficient stock for Gift Card", scalar.Error())
}
