package ports

import (
	"context"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// CatalogRepository persists menu items and categories.
type CatalogRepository interface {
	InsertItem(ctx context.Context, item *domain.MenuItem) error
	ReplaceItem(ctx context.Context, item *domain.MenuItem) error
	DeleteItem(ctx context.Context, id int64) error
	FindItem(ctx context.Context, id int64) (*domain.MenuItem, error)
	ListItems(ctx context.Context, categoryID int64) ([]domain.MenuItem, error)

	InsertCategory(ctx context.Context, c *domain.Category) error
	ReplaceCategory(ctx context.Context, c *domain.Category) error
	FindCategory(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// MenuItemInput carries the editable fields of a menu item.
type MenuItemInput struct {
	CategoryID  int64
	Name        string
	Description string
	Price       domain.Money
	ImageURL    string
	Available   bool
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name      string
	SortOrder int
	Active    bool
}

// CatalogService defines the catalog use cases.
type CatalogService interface {
	CreateItem(ctx context.Context, in MenuItemInput) (*domain.MenuItem, error)
	UpdateItem(ctx context.Context, id int64, in MenuItemInput) (*domain.MenuItem, error)
	DeleteItem(ctx context.Context, id int64) error
	ListItems(ctx context.Context, categoryID int64) ([]domain.MenuItem, error)

	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
