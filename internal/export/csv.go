// Package export writes inventory tables in downloadable formats.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/erazemk/shelfkeeper/internal/viewmodel"
)

// ContainerRecord is one CSV line of the container export.
type ContainerRecord struct {
	ID         int64  `csv:"id"`
	Shelf      int    `csv:"shelf"`
	Row        string `csv:"row"`
	Expires    string `csv:"expires"`
	NearExpiry bool   `csv:"near_expiry"`
	Contents   string `csv:"contents"`
}

// Records converts the rows of an inventory table to CSV records, keeping
// their order. Contents are listed as "name (concentration%)" separated by
// semicolons; products that no longer exist are shown by ID.
func Records(inv viewmodel.Inventory) []*ContainerRecord {
	records := make([]*ContainerRecord, 0, len(inv.Containers))
	for _, row := range inv.Containers {
		var contents []string
		for _, cell := range row.Cells {
			if cell.Empty {
				continue
			}
			name := cell.ProductName
			if name == "" {
				name = "#" + strconv.FormatInt(cell.ProductID, 10)
			}
			contents = append(contents, fmt.Sprintf("%s (%s%%)", name, strconv.FormatFloat(cell.Concentration, 'f', -1, 64)))
		}

		records = append(records, &ContainerRecord{
			ID:         row.ID,
			Shelf:      row.Shelf,
			Row:        row.Row,
			Expires:    row.Expires.String(),
			NearExpiry: row.NearExpiry,
			Contents:   strings.Join(contents, "; "),
		})
	}
	return records
}

// WriteContainers writes the inventory table as CSV with a header line.
func WriteContainers(w io.Writer, inv viewmodel.Inventory) error {
	if err := gocsv.Marshal(Records(inv), w); err != nil {
		return fmt.Errorf("writing containers csv: %w", err)
	}
	return nil
}
