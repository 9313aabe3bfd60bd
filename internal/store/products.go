package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/shelfkeeper/internal/model"
)

const productColumns = `id, name, epa_reg, label_mime, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	p := &model.Product{}
	var labelMime sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.EPAReg, &labelMime, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.LabelMIME = labelMime.String
	return p, nil
}

// CreateProduct creates a new product.
func CreateProduct(ctx context.Context, db DBTX, name, epaReg string) (*model.Product, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO products (name, epa_reg) VALUES (?, ?)`,
		name, epaReg,
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct returns a product by ID.
func GetProduct(ctx context.Context, db DBTX, id int64) (*model.Product, error) {
	p, err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by name.
func ListProducts(ctx context.Context, db DBTX) ([]model.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct updates a product's name and EPA registration number.
func UpdateProduct(ctx context.Context, db DBTX, id int64, name, epaReg string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products SET name = ?, epa_reg = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, epaReg, id,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product. Contents referencing it are left in place.
func DeleteProduct(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// SetProductLabel stores a product's label image.
func SetProductLabel(ctx context.Context, db DBTX, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products SET label = ?, label_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting product label: %w", err)
	}
	return nil
}

// GetProductLabel returns a product's label image and MIME type.
// A product without a label yields nil data.
func GetProductLabel(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT label, label_mime FROM products WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product label: %w", err)
	}
	return image, mime.String, nil
}

// MissingProducts returns the IDs from ids that have no product row.
func MissingProducts(ctx context.Context, db DBTX, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id FROM products WHERE id IN (`+placeholders(len(ids))+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("checking products: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning product id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
			found[id] = true
		}
	}
	return missing, nil
}
