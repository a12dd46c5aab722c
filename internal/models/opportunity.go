package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QualitySelector picks the quality tiers a scan covers: either one
// specific tier or every tier present in the fetched data. The explicit
// tagged form replaces the old "quality = none means all" convention.
type QualitySelector struct {
	all  bool
	tier int
}

// SingleTier selects exactly one quality tier (1-5).
func SingleTier(tier int) QualitySelector {
	return QualitySelector{tier: tier}
}

// AllTiers selects every tier that has price data.
func AllTiers() QualitySelector {
	return QualitySelector{all: true}
}

// IsAll reports whether the selector covers all tiers.
func (q QualitySelector) IsAll() bool { return q.all }

// Tier returns the selected tier; meaningless when IsAll is true.
func (q QualitySelector) Tier() int { return q.tier }

// Valid reports whether the selector is usable in a scan request.
func (q QualitySelector) Valid() bool {
	return q.all || (q.tier >= MinQuality && q.tier <= MaxQuality)
}

func (q QualitySelector) String() string {
	if q.all {
		return "all"
	}
	return fmt.Sprintf("Q%d", q.tier)
}

// MarshalJSON encodes the selector as the string "all" or a tier number.
func (q QualitySelector) MarshalJSON() ([]byte, error) {
	if q.all {
		return json.Marshal("all")
	}
	return json.Marshal(q.tier)
}

// UnmarshalJSON accepts "all" or a tier number.
func (q *QualitySelector) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "all" {
			return fmt.Errorf("invalid quality selector %q", s)
		}
		*q = AllTiers()
		return nil
	}
	var tier int
	if err := json.Unmarshal(data, &tier); err != nil {
		return fmt.Errorf("invalid quality selector: %w", err)
	}
	*q = SingleTier(tier)
	return nil
}

// RankBy selects the ordering of scan results.
type RankBy string

const (
	// RankByNetProfit orders opportunities by net profit, highest first.
	RankByNetProfit RankBy = "net_profit"
	// RankByOpportunityScore orders by net profit weighted by average
	// daily volume, favoring liquid trades over merely profitable ones.
	RankByOpportunityScore RankBy = "opportunity_score"
)

// ScanRequest carries every parameter of one scan invocation.
type ScanRequest struct {
	Items              []string        `json:"items"`
	Locations          []string        `json:"locations"`
	Quality            QualitySelector `json:"quality"`
	MinMarginPercent   float64         `json:"min_margin_percent"`
	UsePremiumTax      bool            `json:"use_premium_tax"`
	MinVolumeThreshold int64           `json:"min_volume_threshold"`
	RankBy             RankBy          `json:"rank_by,omitempty"`
}

// Validate reports whether the request can be executed at all. It is
// checked before any fetch happens.
func (r *ScanRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: no items given", ErrInvalidRequest)
	}
	if len(r.Locations) == 0 {
		return fmt.Errorf("%w: no locations given", ErrInvalidRequest)
	}
	if !r.Quality.Valid() {
		return fmt.Errorf("%w: quality tier must be %d-%d or all", ErrInvalidRequest, MinQuality, MaxQuality)
	}
	if r.MinVolumeThreshold < 0 {
		return fmt.Errorf("%w: negative volume threshold", ErrInvalidRequest)
	}
	switch r.RankBy {
	case "", RankByNetProfit, RankByOpportunityScore:
	default:
		return fmt.Errorf("%w: unknown rank_by %q", ErrInvalidRequest, r.RankBy)
	}
	return nil
}

// Opportunity is one profitable buy/sell spread after tax.
type Opportunity struct {
	ItemID         string          `json:"item_id"`
	ItemName       string          `json:"item_name,omitempty"`
	Quality        int             `json:"quality"`
	BuyLocation    string          `json:"buy_location"`
	BuyPrice       int64           `json:"buy_price"`
	SellLocation   string          `json:"sell_location"`
	SellPrice      int64           `json:"sell_price"`
	TaxAmount      int64           `json:"tax_amount"`
	GrossProfit    int64           `json:"gross_profit"`
	NetProfit      int64           `json:"net_profit"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
	AvgDailyVolume *int64          `json:"avg_daily_volume,omitempty"`
}

// Score is net profit weighted by average daily volume. Opportunities
// without volume data score zero so they sink when ranking by liquidity.
func (o Opportunity) Score() int64 {
	if o.AvgDailyVolume == nil {
		return 0
	}
	return o.NetProfit * *o.AvgDailyVolume
}

// ScanResponse is the API-facing wrapper around scan output.
type ScanResponse struct {
	Opportunities []Opportunity `json:"opportunities"`
	Count         int           `json:"count"`
	Timestamp     time.Time     `json:"timestamp"`
}
