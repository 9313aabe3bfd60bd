package viewmodel

import (
	"github.com/erazemk/shelfkeeper/internal/model"
)

// Inventory is a rendered inventory table.
type Inventory struct {
	Containers    []Row           `json:"containers"`
	Products      []model.Product `json:"products"`
	ProductID     int64           `json:"product_id"`
	MaxContents   int             `json:"max_contents"`
	Total         int             `json:"total"`
	Shown         int             `json:"shown"`
	Today         model.Date      `json:"today"`
	DefaultExpiry model.Date      `json:"default_expiry"`
	Rows          []string        `json:"rows"`
}

// Row is one container line of the table.
type Row struct {
	model.Container
	NearExpiry bool   `json:"near_expiry"`
	Cells      []Cell `json:"cells"`
}

// Cell is one content column of a row. Rows with fewer contents than the
// widest row are padded with empty cells.
type Cell struct {
	Empty         bool    `json:"empty"`
	ProductID     int64   `json:"product_id,omitempty"`
	ProductName   string  `json:"product_name,omitempty"`
	Concentration float64 `json:"concentration"`
}

// Build filters containers by productID, sorts them, flags near expiry and
// aligns the content columns. Contents of deleted products get an empty
// product name.
func Build(containers []model.Container, products []model.Product, productID int64, today model.Date) Inventory {
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	visible := SortContainers(FilterByProduct(containers, productID))
	width := MaxContents(visible)

	rows := make([]Row, 0, len(visible))
	for _, c := range visible {
		cells := make([]Cell, width)
		for i := range cells {
			if i >= len(c.Contents) {
				cells[i] = Cell{Empty: true}
				continue
			}
			content := c.Contents[i]
			cells[i] = Cell{
				ProductID:     content.ProductID,
				ProductName:   names[content.ProductID],
				Concentration: content.Concentration,
			}
		}
		rows = append(rows, Row{
			Container:  c,
			NearExpiry: NearExpiry(c.Expires, today),
			Cells:      cells,
		})
	}

	return Inventory{
		Containers:    rows,
		Products:      SortProducts(products),
		ProductID:     productID,
		MaxContents:   width,
		Total:         len(containers),
		Shown:         len(rows),
		Today:         today,
		DefaultExpiry: DefaultExpiry(today),
		Rows:          model.Rows,
	}
}
