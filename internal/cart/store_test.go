package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func strPtr(s string) *string { return &s }

func shirt(stock int) Product {
	return Product{ID: "p1", Name: "Linen Shirt", Slug: "linen-shirt", SKU: "LS-1", Price: price(500), StockQuantity: stock}
}

func openEmpty(t *testing.T) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage(State{})
	return Open(context.Background(), storage, logger.Nop()), storage
}

func TestAddItemMergesAndClampsToStock(t *testing.T) {
	ctx := context.Background()
	store, storage := openEmpty(t)

	require.True(t, store.AddItem(ctx, shirt(5), 2))
	require.True(t, store.AddItem(ctx, shirt(5), 2))
	require.True(t, store.AddItem(ctx, shirt(5), 2))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity, "quantity clamps to stock")
	assert.Equal(t, 5, storage.Snapshot().Items[0].Quantity, "state persisted")
}

func TestAddItemNewLineClampedToStock(t *testing.T) {
	store, _ := openEmpty(t)
	store.AddItem(context.Background(), shirt(3), 10)
	assert.Equal(t, 3, store.ItemCount())
}

func TestAddItemRefreshesStockSnapshot(t *testing.T) {
	ctx := context.Background()
	store, _ := openEmpty(t)
	store.AddItem(ctx, shirt(2), 2)
	store.AddItem(ctx, shirt(10), 3)

	items := store.Items()
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 10, items[0].Product.StockQuantity)
}

func TestAddItemIgnoresUnusableProducts(t *testing.T) {
	ctx := context.Background()
	store, storage := openEmpty(t)

	noID := shirt(5)
	noID.ID = ""
	noPrice := shirt(5)
	noPrice.Price = nil

	assert.False(t, store.AddItem(ctx, noID, 1))
	assert.False(t, store.AddItem(ctx, noPrice, 1))
	assert.False(t, store.AddItem(ctx, shirt(0), 1))
	assert.False(t, store.AddItem(ctx, shirt(5), 0))
	assert.False(t, store.AddItem(ctx, shirt(5), -2))
	assert.Empty(t, store.Items())
	assert.Equal(t, 0, storage.Saves())
}

func TestVariantsAreSeparateLines(t *testing.T) {
	ctx := context.Background()
	store, _ := openEmpty(t)

	red := shirt(5)
	red.VariantID = strPtr("red")
	blank := shirt(5)
	blank.VariantID = strPtr("")

	store.AddItem(ctx, shirt(5), 1)
	store.AddItem(ctx, blank, 1)
	store.AddItem(ctx, red, 1)

	items := store.Items()
	require.Len(t, items, 2, "nil and empty variant share a key")
	assert.Equal(t, 2, items[0].Quantity)

	store.RemoveItem(ctx, "p1", strPtr("red"))
	assert.Len(t, store.Items(), 1)
	store.RemoveItem(ctx, "p1", strPtr("red"))
	assert.Len(t, store.Items(), 1, "remove is idempotent")
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	store, _ := openEmpty(t)
	store.AddItem(ctx, shirt(4), 1)

	store.UpdateQuantity(ctx, "p1", 3, nil)
	assert.Equal(t, 3, store.ItemCount())

	store.UpdateQuantity(ctx, "p1", 99, nil)
	assert.Equal(t, 4, store.ItemCount(), "clamped to stock snapshot")

	store.UpdateQuantity(ctx, "missing", 2, nil)
	assert.Equal(t, 4, store.ItemCount())

	store.UpdateQuantity(ctx, "p1", 0, nil)
	assert.Empty(t, store.Items(), "zero removes the line")
}

func TestTotalsFollowPricingRules(t *testing.T) {
	ctx := context.Background()
	store, _ := openEmpty(t)
	store.AddItem(ctx, shirt(10), 3)

	assert.True(t, store.Total().Equal(decimal.NewFromInt(1500)))
	totals := store.Totals(pricing.DefaultRules())
	assert.True(t, totals.Shipping.Equal(decimal.NewFromInt(50)))
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(270)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(1820)))

	store.AddItem(ctx, Product{ID: "p2", Name: "Rug", Price: price(1000), StockQuantity: 1}, 1)
	totals = store.Totals(pricing.DefaultRules())
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(2500)))
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(2950)))
}

func TestOpenCleansInvalidPersistedItems(t *testing.T) {
	storage := NewMemoryStorage(State{Items: []LineItem{
		{Product: ProductSnapshot{ID: "p1", Price: price(100), StockQuantity: 5}, Quantity: 2},
		{Product: ProductSnapshot{ID: "", Price: price(100), StockQuantity: 5}, Quantity: 1},
		{Product: ProductSnapshot{ID: "p2", StockQuantity: 5}, Quantity: 1},
		{Product: ProductSnapshot{ID: "p3", Price: price(-5), StockQuantity: 5}, Quantity: 1},
		{Product: ProductSnapshot{ID: "p4", Price: price(10), StockQuantity: 5}, Quantity: 0},
		{Product: ProductSnapshot{ID: "p1", Price: price(100), StockQuantity: 5}, Quantity: 4},
	}})

	store := Open(context.Background(), storage, logger.Nop())

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity, "duplicate collapses into first occurrence")
	assert.Len(t, storage.Snapshot().Items, 1, "cleanup persisted")
	assert.Equal(t, 0, store.CleanInvalidItems(context.Background()))
}

func TestOpenSurvivesUnreadableState(t *testing.T) {
	storage := NewMemoryStorage(State{})
	storage.LoadErr = errors.New("corrupt")

	store := Open(context.Background(), storage, logger.Nop())
	assert.Empty(t, store.Items())
	assert.Equal(t, 0, storage.Saves(), "nothing to persist after a failed load")
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	store, storage := openEmpty(t)
	storage.SaveErr = errors.New("disk full")

	store.AddItem(ctx, shirt(5), 2)
	assert.Equal(t, 2, store.ItemCount())
	assert.Empty(t, storage.Snapshot().Items)
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()
	store, storage := openEmpty(t)
	store.AddItem(ctx, shirt(5), 2)
	store.ClearCart(ctx)

	assert.Empty(t, store.Items())
	assert.Empty(t, storage.Snapshot().Items)
	assert.True(t, store.Total().IsZero())
}

func TestConcurrentAddsRespectStock(t *testing.T) {
	ctx := context.Background()
	store, _ := openEmpty(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddItem(ctx, shirt(20), 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, store.ItemCount())
}

func TestSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	store, _ := openEmpty(t)
	store.AddItem(ctx, shirt(5), 1)

	snap := store.Snapshot()
	snap[0].Quantity = 99
	assert.Equal(t, 1, store.ItemCount())
}

// cartOp is one step of a generated mutation sequence.
type cartOp struct {
	kind      string
	product   Product
	productID string
	variantID *string
	quantity  int
}

func (op cartOp) String() string {
	variant := "<nil>"
	if op.variantID != nil {
		variant = fmt.Sprintf("%q", *op.variantID)
	}
	return fmt.Sprintf("%s(%s, variant=%s, qty=%d)", op.kind, op.productID, variant, op.quantity)
}

func (op cartOp) apply(ctx context.Context, store *Store) {
	switch op.kind {
	case "add":
		store.AddItem(ctx, op.product, op.quantity)
	case "remove":
		store.RemoveItem(ctx, op.productID, op.variantID)
	case "update":
		store.UpdateQuantity(ctx, op.productID, op.quantity, op.variantID)
	}
}

func randomOps(rng *rand.Rand, n int) []cartOp {
	ids := []string{"p1", "p2", "p3"}
	variants := []*string{nil, strPtr(""), strPtr("red"), strPtr("blue")}
	ops := make([]cartOp, 0, n)
	for range n {
		id := ids[rng.IntN(len(ids))]
		variant := variants[rng.IntN(len(variants))]
		switch rng.IntN(3) {
		case 0:
			ops = append(ops, cartOp{
				kind:      "add",
				productID: id,
				variantID: variant,
				quantity:  rng.IntN(9) - 1,
				product: Product{
					ID:            id,
					Name:          "Item " + id,
					Price:         price(int64(100 * (rng.IntN(20) + 1))),
					StockQuantity: rng.IntN(7),
					VariantID:     variant,
				},
			})
		case 1:
			ops = append(ops, cartOp{kind: "remove", productID: id, variantID: variant})
		default:
			ops = append(ops, cartOp{kind: "update", productID: id, variantID: variant, quantity: rng.IntN(10) - 2})
		}
	}
	return ops
}

func assertCartInvariants(t *testing.T, store *Store, step int, op cartOp) {
	t.Helper()
	seen := map[Key]bool{}
	total := decimal.Zero
	for _, line := range store.Items() {
		key := line.Key()
		require.Falsef(t, seen[key], "step %d %s: duplicate key %+v", step, op, key)
		seen[key] = true
		require.GreaterOrEqualf(t, line.Quantity, 1, "step %d %s: quantity below 1", step, op)
		require.LessOrEqualf(t, line.Quantity, line.Product.StockQuantity, "step %d %s: quantity above stock", step, op)
		if line.Valid() {
			total = total.Add(line.Subtotal())
		}
	}
	require.Truef(t, store.Total().Equal(total), "step %d %s: Total()=%s, lines sum to %s", step, op, store.Total(), total)
}

func TestRandomMutationSequencesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	for seed := uint64(1); seed <= 50; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7919))
			store, storage := openEmpty(t)
			for step, op := range randomOps(rng, 60) {
				op.apply(ctx, store)
				assertCartInvariants(t, store, step, op)
			}
			assert.Equal(t, store.Items(), storage.Snapshot().Items, "persisted state follows memory")
		})
	}
}

func TestUpdateToZeroMatchesRemove(t *testing.T) {
	ctx := context.Background()
	refs := []struct {
		productID string
		variantID *string
	}{
		{"p1", nil},
		{"p1", strPtr("")},
		{"p2", strPtr("red")},
		{"p3", strPtr("blue")},
		{"absent", nil},
	}
	for seed := uint64(1); seed <= 20; seed++ {
		ops := randomOps(rand.New(rand.NewPCG(seed, seed+1)), 30)
		for _, ref := range refs {
			for _, qty := range []int{0, -3} {
				updated, updatedStorage := openEmpty(t)
				removed, removedStorage := openEmpty(t)
				for _, op := range ops {
					op.apply(ctx, updated)
					op.apply(ctx, removed)
				}

				updated.UpdateQuantity(ctx, ref.productID, qty, ref.variantID)
				removed.RemoveItem(ctx, ref.productID, ref.variantID)

				name := fmt.Sprintf("seed=%d ref=%s qty=%d", seed, cartOp{productID: ref.productID, variantID: ref.variantID}, qty)
				require.Equal(t, removed.Items(), updated.Items(), name)
				require.Equal(t, removedStorage.Snapshot(), updatedStorage.Snapshot(), name)
				require.Equal(t, removedStorage.Saves(), updatedStorage.Saves(), name)
			}
		}
	}
}
