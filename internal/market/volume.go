package market

import (
	"github.com/karvek/albion-scalper/internal/models"
)

// VolumeTable maps item → location to the average daily traded volume
// derived from history samples. Pairs without samples are simply
// absent; lookups treat them as zero.
type VolumeTable struct {
	volumes map[string]map[string]int64
}

// BuildVolumeTable averages the traded counts per (item, location)
// group, floored to a whole number of units. Samples from multiple
// entries for the same pair are pooled before averaging.
func BuildVolumeTable(histories []models.ItemHistory) *VolumeTable {
	type tally struct {
		sum   int64
		count int64
	}
	tallies := make(map[string]map[string]*tally)

	for _, h := range histories {
		if len(h.Points) == 0 {
			continue
		}
		locations, ok := tallies[h.ItemID]
		if !ok {
			locations = make(map[string]*tally)
			tallies[h.ItemID] = locations
		}
		acc, ok := locations[h.Location]
		if !ok {
			acc = &tally{}
			locations[h.Location] = acc
		}
		for _, p := range h.Points {
			acc.sum += p.TradedCount
		}
		acc.count += int64(len(h.Points))
	}

	t := &VolumeTable{volumes: make(map[string]map[string]int64, len(tallies))}
	for itemID, locations := range tallies {
		byLocation := make(map[string]int64, len(locations))
		for location, acc := range locations {
			// Counts are non-negative, so integer division floors the mean.
			byLocation[location] = acc.sum / acc.count
		}
		t.volumes[itemID] = byLocation
	}
	return t
}

// AvgDailyVolume returns the average daily volume for the pair, or zero
// when no samples exist.
func (t *VolumeTable) AvgDailyVolume(itemID, location string) int64 {
	return t.volumes[itemID][location]
}

// Len returns the number of items with volume data.
func (t *VolumeTable) Len() int {
	return len(t.volumes)
}
