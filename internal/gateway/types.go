package gateway

import (
	"context"
	"time"

	"github.com/karvek/albion-scalper/internal/models"
)

// PriceSource is what the scanner consumes: a snapshot fetch and a
// history fetch. Both return structured records or an explicit error,
// never partial data. The HTTP client and the caching wrapper both
// satisfy it.
type PriceSource interface {
	FetchPrices(ctx context.Context, items, locations []string, qualities []int) ([]models.PricePoint, error)
	FetchHistory(ctx context.Context, items, locations []string, quality int, r HistoryRange) ([]models.ItemHistory, error)
}

// HistoryRange bounds a history request. TimeScale is the bucket size
// in hours as understood by the upstream API.
type HistoryRange struct {
	Start     time.Time
	End       time.Time
	TimeScale int
}

// DayRange covers the last n days at the given time scale, the shape
// used for average-daily-volume estimation.
func DayRange(days, timeScale int) HistoryRange {
	now := time.Now().UTC()
	return HistoryRange{
		Start:     now.AddDate(0, 0, -days),
		End:       now,
		TimeScale: timeScale,
	}
}

// priceRecord is the upstream price snapshot shape.
type priceRecord struct {
	ItemID       string `json:"item_id"`
	City         string `json:"city"`
	Quality      int    `json:"quality"`
	SellPriceMin int64  `json:"sell_price_min"`
	BuyPriceMax  int64  `json:"buy_price_max"`
}

// historyRecord groups bucketed volume samples per item and location.
type historyRecord struct {
	ItemID   string         `json:"item_id"`
	Location string         `json:"location"`
	Quality  int            `json:"quality"`
	Data     []historyPoint `json:"data"`
}

type historyPoint struct {
	ItemCount int64  `json:"item_count"`
	AvgPrice  int64  `json:"avg_price"`
	Timestamp string `json:"timestamp"`
}

// timestampLayouts lists the formats the upstream emits; it drops the
// zone suffix on some deployments.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func (r priceRecord) toModel() models.PricePoint {
	return models.PricePoint{
		ItemID:         r.ItemID,
		Location:       r.City,
		Quality:        r.Quality,
		SellOfferPrice: max64(0, r.SellPriceMin),
		BuyOrderPrice:  max64(0, r.BuyPriceMax),
	}
}

func (r historyRecord) toModel() models.ItemHistory {
	points := make([]models.HistoryPoint, 0, len(r.Data))
	for _, p := range r.Data {
		points = append(points, models.HistoryPoint{
			Timestamp:   parseTimestamp(p.Timestamp),
			TradedCount: max64(0, p.ItemCount),
		})
	}
	return models.ItemHistory{
		ItemID:   r.ItemID,
		Location: r.Location,
		Quality:  r.Quality,
		Points:   points,
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
