package model

import "time"

// Container is a storage slot on a shelf, owned by exactly one user.
type Container struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Shelf     int       `json:"shelf"`
	Row       string    `json:"row"`
	Expires   Date      `json:"expires"`
	Contents  []Content `json:"contents"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content is a product held in a container at a given concentration.
type Content struct {
	ID            int64   `json:"id"`
	ContainerID   int64   `json:"container_id"`
	ProductID     int64   `json:"product_id"`
	Concentration float64 `json:"concentration"`
}

// Rows lists the valid row tokens of a shelf.
var Rows = []string{"A", "B", "C", "D", "E"}

// HasProduct reports whether any content references the given product.
func (c *Container) HasProduct(productID int64) bool {
	for _, content := range c.Contents {
		if content.ProductID == productID {
			return true
		}
	}
	return false
}
