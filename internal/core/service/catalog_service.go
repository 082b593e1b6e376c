package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

// CatalogService manages menu items and categories and announces every
// committed change through the publisher.
type CatalogService struct {
	repo      ports.CatalogRepository
	publisher ports.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

var _ ports.CatalogService = (*CatalogService)(nil)

func NewCatalogService(repo ports.CatalogRepository, publisher ports.EventPublisher, logger zerolog.Logger) *CatalogService {
	return &CatalogService{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

func (s *CatalogService) CreateItem(ctx context.Context, in ports.MenuItemInput) (*domain.MenuItem, error) {
	if err := s.validateItem(ctx, in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	item := &domain.MenuItem{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Available:   in.Available,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create menu item: %w", asPersistence(err))
	}

	s.logger.Info().Int64("item_id", item.ID).Str("name", item.Name).Msg("menu item created")
	s.publisher.CatalogItemAdded(ctx, item)
	return item, nil
}

func (s *CatalogService) UpdateItem(ctx context.Context, id int64, in ports.MenuItemInput) (*domain.MenuItem, error) {
	if err := s.validateItem(ctx, in); err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return nil, err
	}

	item.CategoryID = in.CategoryID
	item.Name = strings.TrimSpace(in.Name)
	item.Description = strings.TrimSpace(in.Description)
	item.Price = in.Price
	item.ImageURL = strings.TrimSpace(in.ImageURL)
	item.Available = in.Available
	item.UpdatedAt = s.now().UTC()

	if err := s.repo.ReplaceItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update menu item: %w", asPersistence(err))
	}

	s.logger.Info().Int64("item_id", item.ID).Msg("menu item updated")
	s.publisher.CatalogItemUpdated(ctx, item)
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete menu item: %w", asPersistence(err))
	}

	s.logger.Info().Int64("item_id", id).Msg("menu item deleted")
	s.publisher.CatalogItemDeleted(ctx, id)
	return nil
}

func (s *CatalogService) ListItems(ctx context.Context, categoryID int64) ([]domain.MenuItem, error) {
	items, err := s.repo.ListItems(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", asPersistence(err))
	}
	return items, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in ports.CategoryInput) (*domain.Category, error) {
	if err := validateCategory(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &domain.Category{
		Name:      strings.TrimSpace(in.Name),
		SortOrder: in.SortOrder,
		Active:    in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", asPersistence(err))
	}

	s.logger.Info().Int64("category_id", c.ID).Str("name", c.Name).Msg("category created")
	s.publisher.CategoryAdded(ctx, c)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in ports.CategoryInput) (*domain.Category, error) {
	if err := validateCategory(in); err != nil {
		return nil, err
	}
	c, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.SortOrder = in.SortOrder
	c.Active = in.Active
	c.UpdatedAt = s.now().UTC()

	if err := s.repo.ReplaceCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", asPersistence(err))
	}

	s.logger.Info().Int64("category_id", c.ID).Msg("category updated")
	s.publisher.CategoryUpdated(ctx, c)
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cs, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", asPersistence(err))
	}
	return cs, nil
}

// validateItem checks the fields and that the referenced category exists.
func (s *CatalogService) validateItem(ctx context.Context, in ports.MenuItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if in.Price < 0 {
		return domain.Invalid("price", "must not be negative")
	}
	if in.CategoryID <= 0 {
		return domain.Invalid("category_id", "must be a positive integer")
	}
	if _, err := s.repo.FindCategory(ctx, in.CategoryID); err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			return domain.Invalid("category_id", "category %d does not exist", in.CategoryID)
		}
		return fmt.Errorf("check category: %w", asPersistence(err))
	}
	return nil
}

func validateCategory(in ports.CategoryInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	return nil
}
