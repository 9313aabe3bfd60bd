// Package viewmodel derives what the inventory table shows from containers
// and products that were already loaded. Nothing here reads the clock or the
// database; the current date is always passed in.
package viewmodel

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/erazemk/shelfkeeper/internal/model"
)

// Lookahead windows in calendar months and years.
const (
	NearExpiryMonths   = 3
	DefaultExpiryYears = 2
)

// Clock returns the current time.
type Clock func() time.Time

// Today returns the calendar date of now in now's location.
func Today(now time.Time) model.Date {
	return model.DateOf(now)
}

// NearExpiry reports whether expires falls before today plus three calendar
// months. A date exactly three months out is not near expiry.
func NearExpiry(expires, today model.Date) bool {
	return expires.Before(today.AddDate(0, NearExpiryMonths, 0))
}

// DefaultExpiry proposes an expiry date for a new container.
func DefaultExpiry(today model.Date) model.Date {
	return today.AddDate(DefaultExpiryYears, 0, 0)
}

// SortContainers returns a copy of containers ordered by shelf, then row.
// Containers in the same slot keep their relative order.
func SortContainers(containers []model.Container) []model.Container {
	sorted := slices.Clone(containers)
	slices.SortStableFunc(sorted, func(a, b model.Container) int {
		if a.Shelf != b.Shelf {
			return a.Shelf - b.Shelf
		}
		return strings.Compare(a.Row, b.Row)
	})
	return sorted
}

// SortProducts returns a copy of products ordered by name with English
// collation. Lowercase sorts before uppercase for otherwise equal names.
func SortProducts(products []model.Product) []model.Product {
	sorted := slices.Clone(products)
	c := collate.New(language.English)
	slices.SortStableFunc(sorted, func(a, b model.Product) int {
		return c.CompareString(a.Name, b.Name)
	})
	return sorted
}

// FilterByProduct returns the containers holding productID. A zero
// productID means no filter and returns containers unchanged.
func FilterByProduct(containers []model.Container, productID int64) []model.Container {
	if productID == 0 {
		return containers
	}
	filtered := []model.Container{}
	for i := range containers {
		if containers[i].HasProduct(productID) {
			filtered = append(filtered, containers[i])
		}
	}
	return filtered
}

// MaxContents returns the largest number of contents in any container.
func MaxContents(containers []model.Container) int {
	n := 0
	for _, c := range containers {
		n = max(n, len(c.Contents))
	}
	return n
}
