package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront/internal/cache"
	"github.com/iliyamo/storefront/internal/model"
	"github.com/iliyamo/storefront/internal/repository"
	"github.com/iliyamo/storefront/internal/storage"
)

// ProductStore is the slice of product persistence the catalog needs.
type ProductStore interface {
	ListFeatured(ctx context.Context) ([]model.Product, error)
	GetByID(ctx context.Context, id string) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Delete(ctx context.Context, id string) error
	ToggleFeatured(ctx context.Context, id string) (model.Product, error)
}

// CatalogService owns the featured-products snapshot and every catalog
// mutation that can change it, so the snapshot is rewritten from a single
// place.
type CatalogService struct {
	products    ProductStore
	cache       cache.Cache
	images      storage.ImageStore
	featuredKey string
	log         echo.Logger
}

// NewCatalogService wires a CatalogService.  Nil cache or image store fall
// back to their no-op implementations.
func NewCatalogService(products ProductStore, c cache.Cache, images storage.ImageStore,
	featuredKey string, logger echo.Logger) *CatalogService {
	if c == nil {
		c = cache.Nop{}
	}
	if images == nil {
		images = storage.Nop{}
	}
	if featuredKey == "" {
		featuredKey = "featured_products"
	}
	return &CatalogService{products: products, cache: c, images: images, featuredKey: featuredKey, log: logger}
}

// FeaturedProducts serves the featured list from the cache, loading and
// storing it on a miss.  Cache failures never fail the call.
func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]model.Product, error) {
	b, err := s.cache.Get(ctx, s.featuredKey)
	switch {
	case err == nil:
		var out []model.Product
		decodeErr := json.Unmarshal(b, &out)
		if decodeErr == nil && out != nil {
			return out, nil
		}
		s.log.Warnf("featured cache: discarding undecodable snapshot: %v", decodeErr)
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warnf("featured cache: read %s: %v", s.featuredKey, err)
	}

	list, err := s.products.ListFeatured(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list featured products: %v", ErrUnavailable, err)
	}
	s.store(ctx, list)
	return list, nil
}

// RefreshFeatured recomputes the snapshot and overwrites the cache entry.
// If the recompute fails the entry is dropped instead, so the next read
// goes to persistence rather than serving a stale list.
func (s *CatalogService) RefreshFeatured(ctx context.Context) {
	list, err := s.products.ListFeatured(ctx)
	if err != nil {
		s.log.Errorf("featured cache: recompute: %v", err)
		if err := s.cache.Delete(ctx, s.featuredKey); err != nil {
			s.log.Errorf("featured cache: delete %s: %v", s.featuredKey, err)
		}
		return
	}
	s.store(ctx, list)
}

func (s *CatalogService) store(ctx context.Context, list []model.Product) {
	if list == nil {
		list = []model.Product{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		s.log.Errorf("featured cache: encode: %v", err)
		return
	}
	if err := s.cache.Set(ctx, s.featuredKey, b); err != nil {
		s.log.Warnf("featured cache: write %s: %v", s.featuredKey, err)
	}
}

// ToggleFeatured flips a product's featured flag and refreshes the snapshot
// before returning, so the next read reflects the change.
func (s *CatalogService) ToggleFeatured(ctx context.Context, id string) (model.Product, error) {
	p, err := s.products.ToggleFeatured(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Product{}, fmt.Errorf("%w: product not found", ErrNotFound)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("%w: toggle featured: %v", ErrUnavailable, err)
	}
	s.RefreshFeatured(ctx)
	return p, nil
}

// CreateProductInput carries the product form.  Image may be an http(s) URL,
// a base64 data URL to upload, or empty.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Image       string
	Category    string
}

// CreateProduct validates and stores a product, uploading an inline image
// first.  New products are never featured, so the snapshot is untouched.
func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	switch {
	case in.Name == "":
		return model.Product{}, fmt.Errorf("%w: name is required", ErrValidation)
	case in.Category == "":
		return model.Product{}, fmt.Errorf("%w: category is required", ErrValidation)
	case in.Price < 0:
		return model.Product{}, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	image := in.Image
	if image != "" && !storage.IsRemoteURL(image) {
		url, err := s.images.Upload(ctx, image)
		if errors.Is(err, storage.ErrNotConfigured) {
			return model.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err != nil {
			return model.Product{}, fmt.Errorf("%w: image: %v", ErrValidation, err)
		}
		image = url
	}

	p, err := s.products.Create(ctx, model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Image:       image,
		Category:    in.Category,
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("%w: create product: %v", ErrUnavailable, err)
	}
	return p, nil
}

// DeleteProduct removes a product and its hosted image, refreshing the
// snapshot when the product was featured.  Image removal failures are
// logged and do not block the delete.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: product not found", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: load product: %v", ErrUnavailable, err)
	}

	if p.Image != "" {
		if err := s.images.Remove(ctx, p.Image); err != nil {
			s.log.Warnf("delete product %s: remove image: %v", id, err)
		}
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: product not found", ErrNotFound)
		}
		return fmt.Errorf("%w: delete product: %v", ErrUnavailable, err)
	}
	if p.IsFeatured {
		s.RefreshFeatured(ctx)
	}
	return nil
}
