package models

import (
	"time"
)

// PricePoint is one observed market quote for an item at a location.
//
// Side semantics are fixed and must never be swapped: SellOfferPrice is
// the lowest standing ask (what a trader pays to acquire the item there),
// BuyOrderPrice is the highest standing bid (what a trader receives
// selling the item there).
type PricePoint struct {
	ItemID         string `json:"item_id"`
	Quality        int    `json:"quality"`
	Location       string `json:"location"`
	SellOfferPrice int64  `json:"sell_offer_price"`
	BuyOrderPrice  int64  `json:"buy_order_price"`
}

// HistoryPoint is a single traded-volume sample for one time bucket.
type HistoryPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	TradedCount int64     `json:"traded_count"`
}

// ItemHistory groups the volume samples returned for one item at one
// location and quality tier.
type ItemHistory struct {
	ItemID   string         `json:"item_id"`
	Location string         `json:"location"`
	Quality  int            `json:"quality"`
	Points   []HistoryPoint `json:"points"`
}

// PriceQuote holds both sides of the book for one (item, quality,
// location) cell of a market table.
type PriceQuote struct {
	BuyOrderPrice  int64 `json:"buy_order_price"`
	SellOfferPrice int64 `json:"sell_offer_price"`
}

// MinQuality and MaxQuality bound the marketplace's quality tiers.
const (
	MinQuality = 1
	MaxQuality = 5
)
