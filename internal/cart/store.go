package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// Store is the shopper's cart. Mutations are serialised by a mutex and every
// change is written through to Storage. Storage failures are logged and the
// in-memory state stays authoritative, so no operation returns an error.
type Store struct {
	mu      sync.Mutex
	items   []LineItem
	storage Storage
	logg    *logger.Logger
}

// Open loads the persisted cart. Unreadable state is logged and replaced by an
// empty cart; invalid entries are dropped once after loading.
func Open(ctx context.Context, storage Storage, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{storage: storage, logg: logg}
	if storage != nil {
		state, err := storage.Load(ctx)
		if err != nil {
			logg.Error(ctx, "cart.load_failed", err)
		} else {
			s.items = state.Items
		}
	}
	s.CleanInvalidItems(ctx)
	return s
}

// AddItem adds quantity units of product, merging with an existing line of the
// same product and variant. The resulting quantity never exceeds the product's
// stock. Products without an id or price, without stock, or a non-positive
// quantity are ignored. Reports whether the cart changed.
func (s *Store) AddItem(ctx context.Context, product Product, quantity int) bool {
	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": product.ID, "quantity": quantity})
	switch {
	case strings.TrimSpace(product.ID) == "":
		s.logg.Warn(ctx, "cart.add_ignored: product id missing")
		return false
	case product.Price == nil || product.Price.IsNegative():
		s.logg.Warn(ctx, "cart.add_ignored: product price missing")
		return false
	case product.StockQuantity <= 0:
		s.logg.Warn(ctx, "cart.add_ignored: out of stock")
		return false
	case quantity <= 0:
		s.logg.Warn(ctx, "cart.add_ignored: quantity must be positive")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := NewKey(product.ID, normalizeVariant(product.VariantID))
	if idx := s.indexOf(key); idx >= 0 {
		line := &s.items[idx]
		merged := min(line.Quantity+quantity, product.StockQuantity)
		line.Product.StockQuantity = product.StockQuantity
		line.Quantity = merged
	} else {
		s.items = append(s.items, LineItem{
			Product:  snapshotOf(product),
			Quantity: min(quantity, product.StockQuantity),
		})
	}
	s.persistLocked(ctx)
	return true
}

// RemoveItem drops the line for the product and variant. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID string, variantID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ctx, NewKey(productID, variantID))
}

// UpdateQuantity sets the quantity of a line, clamped to its stock snapshot. A
// quantity of zero or less removes the line. Absent lines are left alone.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int, variantID *string) {
	key := NewKey(productID, variantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(ctx, key)
		return
	}
	idx := s.indexOf(key)
	if idx < 0 {
		return
	}
	clamped := quantity
	if stock := s.items[idx].Product.StockQuantity; clamped > stock {
		clamped = stock
	}
	if clamped < 1 {
		clamped = 1
	}
	if s.items[idx].Quantity == clamped {
		return
	}
	s.items[idx].Quantity = clamped
	s.persistLocked(ctx)
}

// ClearCart empties the cart. Only a confirmed order should trigger it.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persistLocked(ctx)
}

// Total is the sum of price times quantity over valid lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, line := range s.items {
		if line.Valid() {
			total = total.Add(line.Subtotal())
		}
	}
	return total
}

// ItemCount is the number of units over valid lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, line := range s.items {
		if line.Valid() {
			count += line.Quantity
		}
	}
	return count
}

// Totals derives the full breakdown from the valid lines.
func (s *Store) Totals(rules pricing.Rules) pricing.Totals {
	lines := s.Lines()
	totals, err := pricing.Calculate(rules, lines)
	if err != nil {
		// Valid lines never carry negative values.
		s.logg.Error(context.Background(), "cart.totals_failed", err)
		return pricing.FromSubtotal(rules, decimal.Zero)
	}
	return totals
}

// Lines returns pricing input for the valid lines.
func (s *Store) Lines() []pricing.Line {
	snapshot := s.Snapshot()
	lines := make([]pricing.Line, 0, len(snapshot))
	for _, line := range snapshot {
		lines = append(lines, pricing.Line{UnitPrice: *line.Product.Price, Quantity: line.Quantity})
	}
	return lines
}

// CleanInvalidItems removes lines that cannot be priced or submitted and
// collapses duplicate keys into their first occurrence. Returns how many lines
// were removed; storage is only written when something changed.
func (s *Store) CleanInvalidItems(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[Key]struct{}, len(s.items))
	kept := make([]LineItem, 0, len(s.items))
	for _, line := range s.items {
		if !line.Valid() {
			continue
		}
		line.Product.VariantID = normalizeVariant(line.Product.VariantID)
		key := line.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, line)
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	if removed > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "removed", removed), "cart.invalid_items_removed")
		s.persistLocked(ctx)
	}
	return removed
}

// Items returns a copy of every line, valid or not.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Snapshot returns the valid lines, the view submitted at checkout.
func (s *Store) Snapshot() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, 0, len(s.items))
	for _, line := range s.items {
		if line.Valid() {
			out = append(out, line)
		}
	}
	return out
}

func (s *Store) indexOf(key Key) int {
	for i, line := range s.items {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(ctx context.Context, key Key) {
	idx := s.indexOf(key)
	if idx < 0 {
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	items := make([]LineItem, len(s.items))
	copy(items, s.items)
	if err := s.storage.Save(ctx, State{Items: items}); err != nil {
		s.logg.Error(ctx, "cart.save_failed", err)
	}
}
