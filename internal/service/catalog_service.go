package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"webstore/internal/models"
	"webstore/internal/store"
	"webstore/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles product catalog management: category listing,
// product CRUD, search, and the curated merchandising lists.
type CatalogService struct {
	catalog *store.CatalogStore
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog *store.CatalogStore) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// ProductInput carries the fields for a new product. ID is optional: when
// empty the service assigns the next sequence number for the category.
type ProductInput struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	Price          float64         `json:"price" binding:"min=0"`
	Stock          int             `json:"stock" binding:"min=0"`
	ImageURL       string          `json:"image_url,omitempty"`
	Specifications *models.SpecMap `json:"specifications,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
}

// ProductUpdate carries a partial update; nil fields are left unchanged
type ProductUpdate struct {
	Name           *string         `json:"name,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Price          *float64        `json:"price,omitempty"`
	Stock          *int            `json:"stock,omitempty"`
	ImageURL       *string         `json:"image_url,omitempty"`
	Specifications *models.SpecMap `json:"specifications,omitempty"`
	Tags           *[]string       `json:"tags,omitempty"`
}

// SearchHit is a search result together with the category it was found in
type SearchHit struct {
	Product      models.Product `json:"product"`
	CategoryID   string         `json:"category_id"`
	CategoryName string         `json:"category_name"`
}

// categoryPrefix derives the product ID prefix from a category ID:
// "electronics" -> "e", "books" -> "b"
func categoryPrefix(categoryID string) string {
	if categoryID == "" {
		return ""
	}
	return strings.ToLower(categoryID[:1])
}

// CategoryInput carries the fields for a new category
type CategoryInput struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// AddCategory creates an empty category. Category IDs are lowercase words
// whose first letter becomes the product ID prefix.
func (s *CatalogService) AddCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	_, span := util.StartSpan(ctx, "CatalogService.AddCategory")
	defer span.End()

	id := strings.ToLower(strings.TrimSpace(input.ID))
	if id == "" || input.Name == "" {
		return nil, fmt.Errorf("category id and name are required: %w", ErrInvalidInput)
	}

	var created models.Category
	err := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
		if findCategory(doc, id) != nil {
			return fmt.Errorf("category %s: %w", id, ErrDuplicateID)
		}
		for i := range doc.Categories {
			if categoryPrefix(doc.Categories[i].ID) == categoryPrefix(id) {
				return fmt.Errorf("category %s shares prefix %q with %s: %w",
					id, categoryPrefix(id), doc.Categories[i].ID, ErrDuplicateID)
			}
		}
		created = models.Category{
			ID:          id,
			Name:        input.Name,
			Description: input.Description,
			ImageURL:    input.ImageURL,
			Products:    []models.Product{},
		}
		doc.Categories = append(doc.Categories, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Category added", zap.String("category", id))
	return &created, nil
}

// Categories returns all categories with their products
func (s *CatalogService) Categories(ctx context.Context) []models.Category {
	_, span := util.StartSpan(ctx, "CatalogService.Categories")
	defer span.End()

	var out []models.Category
	s.catalog.View(func(doc *models.CatalogDocument) {
		out = make([]models.Category, len(doc.Categories))
		copy(out, doc.Categories)
	})
	return out
}

// ListByCategory returns the products of one category in insertion order
func (s *CatalogService) ListByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.ListByCategory")
	defer span.End()

	var out []models.Product
	found := false
	s.catalog.View(func(doc *models.CatalogDocument) {
		for i := range doc.Categories {
			if doc.Categories[i].ID == categoryID {
				found = true
				out = make([]models.Product, len(doc.Categories[i].Products))
				copy(out, doc.Categories[i].Products)
				return
			}
		}
	})
	if !found {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	return out, nil
}

// Find returns the product with the given ID
func (s *CatalogService) Find(ctx context.Context, id string) (*models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.Find")
	defer span.End()

	var found *models.Product
	s.catalog.View(func(doc *models.CatalogDocument) {
		if _, _, p := locateProduct(doc, id); p != nil {
			cp := *p
			found = &cp
		}
	})
	if found == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return found, nil
}

// Search returns products whose ID, name, description, or tags contain the
// query, case-insensitively. An empty query matches nothing.
func (s *CatalogService) Search(ctx context.Context, query string) []SearchHit {
	_, span := util.StartSpan(ctx, "CatalogService.Search")
	defer span.End()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var hits []SearchHit
	s.catalog.View(func(doc *models.CatalogDocument) {
		for ci := range doc.Categories {
			cat := &doc.Categories[ci]
			for pi := range cat.Products {
				p := &cat.Products[pi]
				if matchesQuery(p, query) {
					hits = append(hits, SearchHit{
						Product:      *p,
						CategoryID:   cat.ID,
						CategoryName: cat.Name,
					})
				}
			}
		}
	})
	return hits
}

func matchesQuery(p *models.Product, query string) bool {
	if strings.Contains(strings.ToLower(p.ID), query) ||
		strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Description), query) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// Add files a new product under the given category. When input.ID is
// empty the service assigns prefix + zero-padded next sequence number;
// sequence numbers of deleted products are never reused. An explicit ID
// must be unique across the whole catalog and carry the category prefix.
func (s *CatalogService) Add(ctx context.Context, categoryID string, input ProductInput) (*models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.Add")
	defer span.End()

	if input.Name == "" {
		return nil, fmt.Errorf("product name is required: %w", ErrInvalidInput)
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("price must be non-negative: %w", ErrInvalidInput)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("stock must be non-negative: %w", ErrInvalidInput)
	}

	var created models.Product
	err := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
		cat := findCategory(doc, categoryID)
		if cat == nil {
			return fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
		}

		prefix := categoryPrefix(cat.ID)
		id := input.ID
		if id == "" {
			id = fmt.Sprintf("%s%03d", prefix, nextSequence(doc, prefix))
		} else {
			if !strings.HasPrefix(id, prefix) {
				return fmt.Errorf("id %s for category %s: %w", id, cat.ID, ErrCategoryMismatch)
			}
			if _, _, existing := locateProduct(doc, id); existing != nil {
				return fmt.Errorf("id %s: %w", id, ErrDuplicateID)
			}
		}

		now := time.Now().UTC()
		created = models.Product{
			ID:          id,
			Name:        input.Name,
			Description: input.Description,
			Price:       input.Price,
			Stock:       input.Stock,
			ImageURL:    input.ImageURL,
			Tags:        input.Tags,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if input.Specifications != nil {
			created.Specifications = *input.Specifications
		}
		cat.Products = append(cat.Products, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product added",
		zap.String("product_id", created.ID),
		zap.String("category", categoryID))
	return &created, nil
}

// Update applies a partial field replacement to an existing product
func (s *CatalogService) Update(ctx context.Context, id string, update ProductUpdate) (*models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.Update")
	defer span.End()

	if update.Price != nil && *update.Price < 0 {
		return nil, fmt.Errorf("price must be non-negative: %w", ErrInvalidInput)
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, fmt.Errorf("stock must be non-negative: %w", ErrInvalidInput)
	}

	var updated models.Product
	err := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
		_, _, p := locateProduct(doc, id)
		if p == nil {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		if update.Name != nil {
			p.Name = *update.Name
		}
		if update.Description != nil {
			p.Description = *update.Description
		}
		if update.Price != nil {
			p.Price = *update.Price
		}
		if update.Stock != nil {
			p.Stock = *update.Stock
		}
		if update.ImageURL != nil {
			p.ImageURL = *update.ImageURL
		}
		if update.Specifications != nil {
			p.Specifications = *update.Specifications
		}
		if update.Tags != nil {
			p.Tags = *update.Tags
		}
		p.UpdatedAt = time.Now().UTC()
		updated = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ProductsUpdatedTotal.Inc()
	s.logger.Info("Product updated", zap.String("product_id", id))
	return &updated, nil
}

// Delete removes a product and cascades its removal from every curated list
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	_, span := util.StartSpan(ctx, "CatalogService.Delete")
	defer span.End()

	err := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
		ci, pi, p := locateProduct(doc, id)
		if p == nil {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		cat := &doc.Categories[ci]
		cat.Products = append(cat.Products[:pi], cat.Products[pi+1:]...)

		for _, kind := range models.CuratedListKinds() {
			list := doc.CuratedList(kind)
			*list = removeID(*list, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	util.ProductsDeletedTotal.Inc()
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// CuratedProducts resolves a curated list's IDs to products, skipping
// any ID no longer present in the catalog
func (s *CatalogService) CuratedProducts(ctx context.Context, kind string) ([]models.Product, error) {
	_, span := util.StartSpan(ctx, "CatalogService.CuratedProducts")
	defer span.End()

	var out []models.Product
	var badKind bool
	s.catalog.View(func(doc *models.CatalogDocument) {
		list := doc.CuratedList(kind)
		if list == nil {
			badKind = true
			return
		}
		for _, id := range *list {
			if _, _, p := locateProduct(doc, id); p != nil {
				out = append(out, *p)
			}
		}
	})
	if badKind {
		return nil, fmt.Errorf("curated list %s: %w", kind, ErrNotFound)
	}
	return out, nil
}

// ToggleCurated adds the product to the named curated list, or removes it
// when already present. Returns whether the product is in the list after
// the call.
func (s *CatalogService) ToggleCurated(ctx context.Context, kind, id string) (bool, error) {
	_, span := util.StartSpan(ctx, "CatalogService.ToggleCurated")
	defer span.End()

	var nowListed bool
	err := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
		list := doc.CuratedList(kind)
		if list == nil {
			return fmt.Errorf("curated list %s: %w", kind, ErrNotFound)
		}
		if _, _, p := locateProduct(doc, id); p == nil {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		for _, existing := range *list {
			if existing == id {
				*list = removeID(*list, id)
				nowListed = false
				return nil
			}
		}
		*list = append(*list, id)
		nowListed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("Curated list toggled",
		zap.String("list", kind),
		zap.String("product_id", id),
		zap.Bool("listed", nowListed))
	return nowListed, nil
}

// findCategory returns a pointer into doc for the category, or nil
func findCategory(doc *models.CatalogDocument, categoryID string) *models.Category {
	for i := range doc.Categories {
		if doc.Categories[i].ID == categoryID {
			return &doc.Categories[i]
		}
	}
	return nil
}

// locateProduct returns the category index, product index, and a pointer
// into doc for the product, or (-1, -1, nil)
func locateProduct(doc *models.CatalogDocument, id string) (int, int, *models.Product) {
	for ci := range doc.Categories {
		for pi := range doc.Categories[ci].Products {
			if doc.Categories[ci].Products[pi].ID == id {
				return ci, pi, &doc.Categories[ci].Products[pi]
			}
		}
	}
	return -1, -1, nil
}

// nextSequence returns 1 + the highest numeric suffix among product IDs
// carrying the prefix, across the whole catalog. Deleted numbers are
// therefore never reassigned.
func nextSequence(doc *models.CatalogDocument, prefix string) int {
	max := 0
	for ci := range doc.Categories {
		for pi := range doc.Categories[ci].Products {
			id := doc.Categories[ci].Products[pi].ID
			if !strings.HasPrefix(id, prefix) {
				continue
			}
			if n, err := strconv.Atoi(id[len(prefix):]); err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}

func removeID(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
