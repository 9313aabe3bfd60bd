package model

import "time"

// Product is a catalog entry referenced by container contents.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	EPAReg    string    `json:"epa_reg"`
	LabelMIME string    `json:"label_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
