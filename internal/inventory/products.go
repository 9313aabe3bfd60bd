package inventory

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/erazemk/shelfkeeper/internal/imaging"
	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/store"
)

// Products manages the product catalog. Products are not owned by anyone.
type Products struct {
	DB *sql.DB
}

// List returns all products ordered by name.
func (s *Products) List(ctx context.Context) ([]model.Product, error) {
	products, err := store.ListProducts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// Show returns a product by ID.
func (s *Products) Show(ctx context.Context, id int64) (*model.Product, error) {
	p, err := store.GetProduct(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Create validates and stores a new product.
func (s *Products) Create(ctx context.Context, p *ProductPayload) (*model.Product, error) {
	fields := productFields{}
	applyProduct(&fields, p)
	if err := checkProduct(fields); err != nil {
		return nil, err
	}

	product, err := store.CreateProduct(ctx, s.DB, fields.Name, fields.EPAReg)
	if err != nil {
		return nil, err
	}
	slog.Info("product created", "id", product.ID, "name", product.Name)
	return product, nil
}

// Update applies the fields present in p to an existing product.
func (s *Products) Update(ctx context.Context, id int64, p *ProductPayload) (*model.Product, error) {
	existing, err := s.Show(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := productFields{Name: existing.Name, EPAReg: existing.EPAReg}
	applyProduct(&fields, p)
	if err := checkProduct(fields); err != nil {
		return nil, err
	}

	if err := store.UpdateProduct(ctx, s.DB, id, fields.Name, fields.EPAReg); err != nil {
		return nil, err
	}
	slog.Info("product updated", "id", id)
	return s.Show(ctx, id)
}

// Destroy deletes a product. Contents that reference it are kept.
func (s *Products) Destroy(ctx context.Context, id int64) (*model.Product, error) {
	existing, err := s.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := store.DeleteProduct(ctx, s.DB, id); err != nil {
		return nil, err
	}
	slog.Info("product deleted", "id", id, "name", existing.Name)
	return existing, nil
}

// SetLabel stores a photo of the product's label, downscaled and re-encoded.
func (s *Products) SetLabel(ctx context.Context, id int64, r io.Reader) error {
	if _, err := s.Show(ctx, id); err != nil {
		return err
	}

	result, err := imaging.Process(r)
	if errors.Is(err, imaging.ErrInvalidImage) {
		return &ValidationError{Errors: []string{"label " + err.Error()}}
	}
	if err != nil {
		return err
	}

	if err := store.SetProductLabel(ctx, s.DB, id, result.Data, result.MIME); err != nil {
		return err
	}
	slog.Info("product label uploaded", "id", id, "bytes", len(result.Data))
	return nil
}

// Label returns the stored label image of a product.
func (s *Products) Label(ctx context.Context, id int64) ([]byte, string, error) {
	data, mime, err := store.GetProductLabel(ctx, s.DB, id)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", ErrNotFound
	}
	return data, mime, nil
}

func applyProduct(fields *productFields, p *ProductPayload) {
	if p == nil {
		return
	}
	if p.Name != nil {
		fields.Name = strings.TrimSpace(*p.Name)
	}
	if p.EPAReg != nil {
		fields.EPAReg = strings.TrimSpace(*p.EPAReg)
	}
}

func checkProduct(fields productFields) error {
	var errs fieldErrors
	checkStruct(fields, &errs)
	return errs.err()
}
