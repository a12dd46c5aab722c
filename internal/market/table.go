package market

import (
	"sort"

	"github.com/karvek/albion-scalper/internal/models"
)

// Table organizes raw price points into an item → quality → location
// lookup. It is built fresh for each scan and read-only afterwards, so
// concurrent per-item workers can share it without locking.
type Table struct {
	items map[string]map[int]map[string]models.PriceQuote
}

// BuildTable filters and indexes price points. Points missing an item
// or location, carrying an out-of-range quality, or observed outside
// allowedLocations are discarded. The last point wins when the same
// (item, quality, location) key repeats.
func BuildTable(points []models.PricePoint, allowedLocations []string) *Table {
	allowed := make(map[string]struct{}, len(allowedLocations))
	for _, loc := range allowedLocations {
		allowed[loc] = struct{}{}
	}

	t := &Table{items: make(map[string]map[int]map[string]models.PriceQuote)}
	for _, p := range points {
		if p.ItemID == "" || p.Location == "" {
			continue
		}
		if p.Quality < models.MinQuality || p.Quality > models.MaxQuality {
			continue
		}
		if _, ok := allowed[p.Location]; !ok {
			continue
		}

		qualities, ok := t.items[p.ItemID]
		if !ok {
			qualities = make(map[int]map[string]models.PriceQuote)
			t.items[p.ItemID] = qualities
		}
		locations, ok := qualities[p.Quality]
		if !ok {
			locations = make(map[string]models.PriceQuote)
			qualities[p.Quality] = locations
		}
		locations[p.Location] = models.PriceQuote{
			BuyOrderPrice:  p.BuyOrderPrice,
			SellOfferPrice: p.SellOfferPrice,
		}
	}
	return t
}

// Items returns all indexed item IDs in sorted order so iteration is
// deterministic across scans.
func (t *Table) Items() []string {
	items := make([]string, 0, len(t.items))
	for id := range t.items {
		items = append(items, id)
	}
	sort.Strings(items)
	return items
}

// HasItem reports whether any price data exists for the item.
func (t *Table) HasItem(itemID string) bool {
	_, ok := t.items[itemID]
	return ok
}

// Qualities returns the tiers with data for the item, ascending.
func (t *Table) Qualities(itemID string) []int {
	qualities := make([]int, 0, len(t.items[itemID]))
	for q := range t.items[itemID] {
		qualities = append(qualities, q)
	}
	sort.Ints(qualities)
	return qualities
}

// Locations returns the locations quoted for the item at the tier,
// sorted.
func (t *Table) Locations(itemID string, quality int) []string {
	locations := make([]string, 0, len(t.items[itemID][quality]))
	for loc := range t.items[itemID][quality] {
		locations = append(locations, loc)
	}
	sort.Strings(locations)
	return locations
}

// Quote returns the stored quote for one cell.
func (t *Table) Quote(itemID string, quality int, location string) (models.PriceQuote, bool) {
	quote, ok := t.items[itemID][quality][location]
	return quote, ok
}

// Len returns the number of indexed items.
func (t *Table) Len() int {
	return len(t.items)
}
