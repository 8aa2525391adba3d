package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	cacheScope      = "product"
	defaultCacheTTL = 5 * time.Minute
)

// Service exposes catalog reads.
type Service interface {
	List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)
	BySlug(ctx context.Context, slug string) (*ProductDTO, error)
	// Invalidate drops the cached detail for slug.
	Invalidate(ctx context.Context, slug string)
}

type service struct {
	repo  *Repository
	cache redis.Cache
	ttl   time.Duration
	logg  *logger.Logger
	group singleflight.Group
}

// NewService builds the catalog service. cache may be nil, in which case every
// lookup reads the database.
func NewService(repo *Repository, cache redis.Cache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Filters, cursor, pagination.LimitWithBuffer(input.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, newProductDTO(row))
	}
	page := pagination.Build(dtos, input.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

// BySlug serves product detail through the cache. Concurrent misses for the
// same slug share one database read.
func (s *service) BySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}

	if cached, ok := s.fromCache(ctx, slug); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(slug, func() (any, error) {
		product, err := s.repo.FindBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		dto := newProductDTO(*product)
		s.storeCache(ctx, slug, dto)
		return &dto, nil
	})
	if err != nil {
		return nil, err
	}
	dto := *v.(*ProductDTO)
	return &dto, nil
}

func (s *service) Invalidate(ctx context.Context, slug string) {
	if s.cache == nil || slug == "" {
		return
	}
	key := s.cache.CacheKey(cacheScope, strings.ToLower(slug))
	if err := s.cache.Del(ctx, key); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "slug", slug), "products.cache_invalidate_failed", err)
	}
}

func (s *service) fromCache(ctx context.Context, slug string) (*ProductDTO, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey(cacheScope, slug))
	if err != nil {
		if !redis.IsMiss(err) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"slug": slug, "error": err.Error()}), "products.cache_read_failed")
		}
		return nil, false
	}
	var dto ProductDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "slug", slug), "products.cache_entry_corrupt")
		return nil, false
	}
	return &dto, true
}

func (s *service) storeCache(ctx context.Context, slug string, dto ProductDTO) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey(cacheScope, slug), payload, s.ttl); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"slug": slug, "error": err.Error()}), "products.cache_write_failed")
	}
}
