package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeFavoritesAPI struct {
	mu        sync.Mutex
	authed    bool
	listed    []string
	addErr    error
	removeErr error
	listErr   error
	adds      []string
	removes   []string
}

func (f *fakeFavoritesAPI) Authenticated() bool { return f.authed }

func (f *fakeFavoritesAPI) AddFavorite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, id)
	return f.addErr
}

func (f *fakeFavoritesAPI) RemoveFavorite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, id)
	return f.removeErr
}

func (f *fakeFavoritesAPI) ListFavorites(context.Context) ([]string, error) {
	return f.listed, f.listErr
}

func TestFavoritesAnonymousLoadIsEmpty(t *testing.T) {
	api := &fakeFavoritesAPI{listed: []string{"p1"}}
	favs := NewFavorites(api, logger.Nop())

	require.NoError(t, favs.Load(context.Background()))
	assert.Empty(t, favs.IDs())
}

func TestFavoritesAnonymousToggleRequiresLogin(t *testing.T) {
	api := &fakeFavoritesAPI{}
	favs := NewFavorites(api, logger.Nop())

	on, err := favs.Toggle(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.False(t, on)
	assert.Empty(t, api.adds, "no request without a session")
}

func TestFavoritesToggleAddsAndRemoves(t *testing.T) {
	ctx := context.Background()
	api := &fakeFavoritesAPI{authed: true, listed: []string{"p2", "p1"}}
	favs := NewFavorites(api, logger.Nop())
	require.NoError(t, favs.Load(ctx))
	assert.Equal(t, []string{"p1", "p2"}, favs.IDs())

	on, err := favs.Toggle(ctx, "p3")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, favs.Has("p3"))

	on, err = favs.Toggle(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, favs.Has("p1"))

	assert.Equal(t, []string{"p3"}, api.adds)
	assert.Equal(t, []string{"p1"}, api.removes)
}

func TestFavoritesToggleRevertsOnFailure(t *testing.T) {
	api := &fakeFavoritesAPI{authed: true, addErr: errors.New("boom")}
	favs := NewFavorites(api, logger.Nop())

	on, err := favs.Toggle(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, on)
	assert.False(t, favs.Has("p1"), "optimistic add rolled back")
}

func TestFavoritesDuplicateAddCountsAsSuccess(t *testing.T) {
	api := &fakeFavoritesAPI{authed: true, addErr: pkgerrors.New(pkgerrors.CodeDuplicate, "Already in wishlist")}
	favs := NewFavorites(api, logger.Nop())

	on, err := favs.Toggle(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, favs.Has("p1"))
}

func TestFavoritesUnauthorizedResponseRequiresLogin(t *testing.T) {
	api := &fakeFavoritesAPI{authed: true, removeErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"), listed: []string{"p1"}}
	favs := NewFavorites(api, logger.Nop())
	require.NoError(t, favs.Load(context.Background()))

	on, err := favs.Toggle(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.True(t, on)
	assert.True(t, favs.Has("p1"), "optimistic remove rolled back")
}

func TestFavoritesRateLimitDegradesThenRecovers(t *testing.T) {
	ctx := context.Background()
	api := &fakeFavoritesAPI{authed: true, addErr: pkgerrors.New(pkgerrors.CodeRateLimit, "Too many requests")}
	favs := NewFavorites(api, logger.Nop())

	_, err := favs.Toggle(ctx, "p1")
	assert.ErrorIs(t, err, ErrDegraded)
	assert.True(t, favs.Degraded())
	assert.False(t, favs.Has("p1"))

	api.addErr = nil
	on, err := favs.Toggle(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.False(t, favs.Degraded())
}

func TestFavoritesRejectsBlankProduct(t *testing.T) {
	favs := NewFavorites(&fakeFavoritesAPI{authed: true}, logger.Nop())
	_, err := favs.Toggle(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
