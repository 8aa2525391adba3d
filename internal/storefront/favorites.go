package storefront

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-backend/internal/optimistic"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	// ErrLoginRequired means the shopper has to sign in before favoriting.
	ErrLoginRequired = errors.New("login required")
	// ErrDegraded means the server throttled the toggle; local state was reverted.
	ErrDegraded = errors.New("favorites temporarily unavailable")
)

// FavoritesAPI is the remote side of the favorites set.
type FavoritesAPI interface {
	Authenticated() bool
	AddFavorite(ctx context.Context, productID string) error
	RemoveFavorite(ctx context.Context, productID string) error
	ListFavorites(ctx context.Context) ([]string, error)
}

// Favorites mirrors the shopper's favorites locally and applies toggles
// optimistically.
type Favorites struct {
	api  FavoritesAPI
	logg *logger.Logger

	mu       sync.Mutex
	ids      map[string]struct{}
	degraded bool
}

func NewFavorites(api FavoritesAPI, logg *logger.Logger) *Favorites {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Favorites{api: api, logg: logg, ids: map[string]struct{}{}}
}

// Load replaces the local set with the server's. Anonymous shoppers get an
// empty set without a request.
func (f *Favorites) Load(ctx context.Context) error {
	if !f.api.Authenticated() {
		f.replace(nil)
		return nil
	}
	ids, err := f.api.ListFavorites(ctx)
	if err != nil {
		if pkgerrors.Classify(err) == pkgerrors.KindAuthorization {
			f.replace(nil)
			return ErrLoginRequired
		}
		return err
	}
	f.replace(ids)
	return nil
}

func (f *Favorites) Has(productID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[productID]
	return ok
}

// IDs returns the favorited product ids in sorted order.
func (f *Favorites) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Degraded reports whether the last toggle was throttled.
func (f *Favorites) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

// Toggle flips the product's membership and returns the new state. The local
// set changes first and is restored if the server rejects the change.
func (f *Favorites) Toggle(ctx context.Context, productID string) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "Invalid data")
	}
	if !f.api.Authenticated() {
		return f.Has(productID), ErrLoginRequired
	}

	ctx = f.logg.WithField(ctx, "product_id", productID)
	was := f.Has(productID)
	target := !was

	err := optimistic.Do(ctx, optimistic.Action{
		Apply:    func() { f.set(productID, target) },
		Rollback: func() { f.set(productID, was) },
		Commit: func(ctx context.Context) error {
			var err error
			if target {
				err = f.api.AddFavorite(ctx, productID)
				if pkgerrors.IsCode(err, pkgerrors.CodeDuplicate) {
					err = nil
				}
			} else {
				err = f.api.RemoveFavorite(ctx, productID)
			}
			return err
		},
	})
	if err == nil {
		f.setDegraded(false)
		return target, nil
	}

	switch pkgerrors.Classify(err) {
	case pkgerrors.KindAuthorization:
		f.logg.Warn(ctx, "favorites.toggle_unauthorized")
		return was, ErrLoginRequired
	case pkgerrors.KindRateLimit:
		f.setDegraded(true)
		f.logg.Warn(ctx, "favorites.toggle_throttled")
		return was, ErrDegraded
	default:
		f.logg.Error(ctx, "favorites.toggle_failed", err)
		return was, err
	}
}

func (f *Favorites) set(productID string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.ids[productID] = struct{}{}
	} else {
		delete(f.ids, productID)
	}
}

func (f *Favorites) setDegraded(v bool) {
	f.mu.Lock()
	f.degraded = v
	f.mu.Unlock()
}

func (f *Favorites) replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			next[id] = struct{}{}
		}
	}
	f.mu.Lock()
	f.ids = next
	f.mu.Unlock()
}
