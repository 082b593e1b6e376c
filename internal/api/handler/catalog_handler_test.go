package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

type stubCatalogService struct {
	itemIn     ports.MenuItemInput
	categoryIn ports.CategoryInput
	id         int64
	categoryID int64
	deleted    []int64
	err        error
}

func (s *stubCatalogService) CreateItem(_ context.Context, in ports.MenuItemInput) (*domain.MenuItem, error) {
	s.itemIn = in
	return &domain.MenuItem{ID: 5, Name: in.Name, Price: in.Price, Available: in.Available}, s.err
}

func (s *stubCatalogService) UpdateItem(_ context.Context, id int64, in ports.MenuItemInput) (*domain.MenuItem, error) {
	s.id, s.itemIn = id, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.MenuItem{ID: id, Name: in.Name}, nil
}

func (s *stubCatalogService) DeleteItem(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubCatalogService) ListItems(_ context.Context, categoryID int64) ([]domain.MenuItem, error) {
	s.categoryID = categoryID
	return []domain.MenuItem{{ID: 5, Name: "Flat white"}}, s.err
}

func (s *stubCatalogService) CreateCategory(_ context.Context, in ports.CategoryInput) (*domain.Category, error) {
	s.categoryIn = in
	return &domain.Category{ID: 2, Name: in.Name}, s.err
}

func (s *stubCatalogService) UpdateCategory(_ context.Context, id int64, in ports.CategoryInput) (*domain.Category, error) {
	s.id, s.categoryIn = id, in
	return &domain.Category{ID: id, Name: in.Name}, s.err
}

func (s *stubCatalogService) ListCategories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 2, Name: "Coffee"}}, s.err
}

var staffUser = domain.Identity{SubjectID: 1, DisplayName: "Sam", Role: domain.RoleStaff}

func TestCatalogHandler_CreateItem(t *testing.T) {
	svc := &stubCatalogService{}
	c, rec := newContext(http.MethodPost, "/v1/catalog/items", `{"category_id":2,"name":"Flat white","price":4.50}`, staffUser)

	if err := NewCatalogHandler(svc).CreateItem(c); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.itemIn.Price != 450 || svc.itemIn.CategoryID != 2 || !svc.itemIn.Available {
		t.Fatalf("unexpected input %+v", svc.itemIn)
	}
}

func TestCatalogHandler_CreateItemValidation(t *testing.T) {
	cases := map[string]string{
		"no name":        `{"category_id":2,"price":1}`,
		"negative price": `{"category_id":2,"name":"x","price":-1}`,
		"no category":    `{"name":"x","price":1}`,
		"bad image url":  `{"category_id":2,"name":"x","price":1,"image_url":"not a url"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/v1/catalog/items", body, staffUser)
			if err := NewCatalogHandler(&stubCatalogService{}).CreateItem(c); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCatalogHandler_UpdateAndDeleteItem(t *testing.T) {
	svc := &stubCatalogService{}
	c, rec := newContext(http.MethodPut, "/v1/catalog/items/5", `{"category_id":2,"name":"Oat flat white","price":5,"available":false}`, staffUser)
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := NewCatalogHandler(svc).UpdateItem(c); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if rec.Code != http.StatusOK || svc.id != 5 || svc.itemIn.Available {
		t.Fatalf("unexpected update: code %d, input %+v", rec.Code, svc.itemIn)
	}

	c, rec = newContext(http.MethodDelete, "/v1/catalog/items/5", "", staffUser)
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := NewCatalogHandler(svc).DeleteItem(c); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if rec.Code != http.StatusNoContent || len(svc.deleted) != 1 || svc.deleted[0] != 5 {
		t.Fatalf("unexpected delete: code %d, deleted %v", rec.Code, svc.deleted)
	}

	svc.err = domain.ErrMenuItemNotFound
	c, _ = newContext(http.MethodDelete, "/v1/catalog/items/5", "", staffUser)
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := NewCatalogHandler(svc).DeleteItem(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogHandler_ListItemsFilter(t *testing.T) {
	svc := &stubCatalogService{}
	c, rec := newContext(http.MethodGet, "/v1/catalog/items?category_id=2", "", customer)
	if err := NewCatalogHandler(svc).ListItems(c); err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if svc.categoryID != 2 || rec.Code != http.StatusOK {
		t.Fatalf("category filter not forwarded")
	}

	c, _ = newContext(http.MethodGet, "/v1/catalog/items?category_id=coffee", "", customer)
	if err := NewCatalogHandler(svc).ListItems(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCatalogHandler_Categories(t *testing.T) {
	svc := &stubCatalogService{}
	c, rec := newContext(http.MethodPost, "/v1/catalog/categories", `{"name":"Coffee","sort_order":1}`, staffUser)
	if err := NewCatalogHandler(svc).CreateCategory(c); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if rec.Code != http.StatusCreated || svc.categoryIn.Name != "Coffee" || !svc.categoryIn.Active {
		t.Fatalf("unexpected create: code %d, input %+v", rec.Code, svc.categoryIn)
	}

	c, rec = newContext(http.MethodPut, "/v1/catalog/categories/2", `{"name":"Tea","active":false}`, staffUser)
	c.SetParamNames("id")
	c.SetParamValues("2")
	if err := NewCatalogHandler(svc).UpdateCategory(c); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if rec.Code != http.StatusOK || svc.id != 2 || svc.categoryIn.Active {
		t.Fatalf("unexpected update: code %d, input %+v", rec.Code, svc.categoryIn)
	}

	c, rec = newContext(http.MethodGet, "/v1/catalog/categories", "", customer)
	if err := NewCatalogHandler(svc).ListCategories(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("ListCategories: %v (code %d)", err, rec.Code)
	}
}
