package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/gateway"
	"github.com/karvek/albion-scalper/internal/market"
	"github.com/karvek/albion-scalper/internal/models"
	"github.com/karvek/albion-scalper/internal/telemetry"
)

// ItemNamer resolves item IDs to display names. The catalog implements
// it; a nil namer leaves opportunities unnamed.
type ItemNamer interface {
	ItemName(itemID string) (string, bool)
}

// Config tunes one scanner instance.
type Config struct {
	// Workers bounds the per-item analysis pool.
	Workers int
	// FetchHistory is the master switch for volume filtering; with it
	// off a request's volume threshold is ignored.
	FetchHistory bool
	// HistoryTimeScale is the upstream bucket size in hours.
	HistoryTimeScale int
	// HistoryDays is how far back volume samples reach.
	HistoryDays int
}

// Scanner turns price snapshots and volume history into a ranked list
// of arbitrage opportunities. It holds no mutable state across Scan
// calls; every invocation builds its own tables.
type Scanner struct {
	source gateway.PriceSource
	tax    *market.TaxModel
	namer  ItemNamer
	cfg    Config
	logger *logrus.Entry
}

// New creates a scanner. namer may be nil.
func New(source gateway.PriceSource, tax *market.TaxModel, namer ItemNamer, cfg Config, logger *logrus.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.HistoryTimeScale <= 0 {
		cfg.HistoryTimeScale = 24
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 1
	}
	return &Scanner{
		source: source,
		tax:    tax,
		namer:  namer,
		cfg:    cfg,
		logger: logger.WithField("component", "scanner"),
	}
}

// Scan is the single entry point: it validates the request, fetches
// data through the (cached) source and returns opportunities ordered by
// the requested ranking. An unexecutable request returns
// models.ErrInvalidRequest before any fetch; upstream trouble degrades
// to an empty result, never an error.
func (s *Scanner) Scan(ctx context.Context, req models.ScanRequest) ([]models.Opportunity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := s.logger.WithField("scan_id", uuid.New().String())
	log.WithFields(logrus.Fields{
		"items":      len(req.Items),
		"locations":  len(req.Locations),
		"quality":    req.Quality.String(),
		"min_margin": req.MinMarginPercent,
		"premium":    req.UsePremiumTax,
		"min_volume": req.MinVolumeThreshold,
	}).Info("Starting opportunity scan")

	var qualities []int
	if !req.Quality.IsAll() {
		qualities = []int{req.Quality.Tier()}
	}

	prices, err := s.source.FetchPrices(ctx, req.Items, req.Locations, qualities)
	if err != nil {
		log.WithError(err).Warn("Price fetch failed, scan yields no opportunities")
		return []models.Opportunity{}, nil
	}

	table := market.BuildTable(prices, req.Locations)
	if table.Len() == 0 {
		log.Warn("No usable price data for any requested item")
		return []models.Opportunity{}, nil
	}

	volumes, volumeActive := s.fetchVolumes(ctx, log, req)

	opportunities := s.analyze(table, volumes, req, volumeActive)
	s.rank(opportunities, req.RankBy)

	log.WithFields(telemetry.Collect(start, table.Len(), len(opportunities)).Fields()).
		Info("Scan completed")
	return opportunities, nil
}

// fetchVolumes loads history and reduces it to the volume table when
// volume filtering applies. Any failure or empty answer skips the
// filter for this scan instead of aborting it.
//
// History is sampled at a single representative tier (the requested one,
// or tier 1 for an all-tier scan) and reused as the threshold proxy for
// every tier.
func (s *Scanner) fetchVolumes(ctx context.Context, log *logrus.Entry, req models.ScanRequest) (*market.VolumeTable, bool) {
	if req.MinVolumeThreshold <= 0 || !s.cfg.FetchHistory {
		return nil, false
	}

	quality := models.MinQuality
	if !req.Quality.IsAll() {
		quality = req.Quality.Tier()
	}

	histories, err := s.source.FetchHistory(ctx, req.Items, req.Locations, quality,
		gateway.DayRange(s.cfg.HistoryDays, s.cfg.HistoryTimeScale))
	if err != nil {
		log.WithError(err).Warn("History fetch failed, volume filtering skipped")
		return nil, false
	}
	if len(histories) == 0 {
		log.Warn("No history data returned, volume filtering skipped")
		return nil, false
	}

	volumes := market.BuildVolumeTable(histories)
	log.WithField("pairs", volumes.Len()).Debug("Volume table built")
	return volumes, true
}

// analyze fans the per-item work across a bounded pool. Items share the
// read-only tables and write only their own result slot, so the merge
// in item order keeps discovery order deterministic regardless of
// scheduling.
func (s *Scanner) analyze(table *market.Table, volumes *market.VolumeTable, req models.ScanRequest, volumeActive bool) []models.Opportunity {
	items := table.Items()
	results := make([][]models.Opportunity, len(items))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.cfg.Workers
	if workers > len(items) {
		workers = len(items)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.analyzeItem(items[i], table, volumes, req, volumeActive)
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	merged := []models.Opportunity{}
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

// analyzeItem enumerates buy/sell location pairs for one item across
// the resolved quality tiers.
func (s *Scanner) analyzeItem(itemID string, table *market.Table, volumes *market.VolumeTable, req models.ScanRequest, volumeActive bool) []models.Opportunity {
	var tiers []int
	if req.Quality.IsAll() {
		tiers = table.Qualities(itemID)
	} else if len(table.Locations(itemID, req.Quality.Tier())) > 0 {
		tiers = []int{req.Quality.Tier()}
	}

	minMargin := decimal.NewFromFloat(req.MinMarginPercent)
	var name string
	if s.namer != nil {
		name, _ = s.namer.ItemName(itemID)
	}

	var found []models.Opportunity
	for _, quality := range tiers {
		locations := table.Locations(itemID, quality)

		for _, buyLocation := range locations {
			// The black market only buys; it can never be a source.
			if s.tax.IsBlackMarket(buyLocation) {
				continue
			}
			buyQuote, _ := table.Quote(itemID, quality, buyLocation)
			buyPrice := buyQuote.SellOfferPrice
			if buyPrice <= 0 {
				continue
			}

			for _, sellLocation := range locations {
				if sellLocation == buyLocation {
					continue
				}
				sellQuote, _ := table.Quote(itemID, quality, sellLocation)
				sellPrice := sellQuote.BuyOrderPrice
				if sellPrice <= 0 {
					continue
				}

				var avgVolume *int64
				if volumeActive {
					v := volumes.AvgDailyVolume(itemID, sellLocation)
					if v < req.MinVolumeThreshold {
						continue
					}
					avgVolume = &v
				}

				grossProfit := sellPrice - buyPrice
				if grossProfit <= 0 {
					continue
				}

				rate := s.tax.Rate(sellLocation, req.UsePremiumTax)
				taxAmount := decimal.NewFromInt(sellPrice).Mul(rate).Floor().IntPart()
				netProfit := grossProfit - taxAmount

				margin := decimal.NewFromInt(netProfit).
					Div(decimal.NewFromInt(buyPrice)).
					Mul(decimal.NewFromInt(100))
				if margin.LessThan(minMargin) {
					continue
				}

				found = append(found, models.Opportunity{
					ItemID:         itemID,
					ItemName:       name,
					Quality:        quality,
					BuyLocation:    buyLocation,
					BuyPrice:       buyPrice,
					SellLocation:   sellLocation,
					SellPrice:      sellPrice,
					TaxAmount:      taxAmount,
					GrossProfit:    grossProfit,
					NetProfit:      netProfit,
					MarginPercent:  margin.Round(2),
					AvgDailyVolume: avgVolume,
				})
			}
		}
	}
	return found
}

// rank orders the merged results. The sort is stable and discovery
// order is fixed, so equal values keep a deterministic order.
func (s *Scanner) rank(opportunities []models.Opportunity, by models.RankBy) {
	switch by {
	case models.RankByOpportunityScore:
		sort.SliceStable(opportunities, func(i, j int) bool {
			return opportunities[i].Score() > opportunities[j].Score()
		})
	default:
		sort.SliceStable(opportunities, func(i, j int) bool {
			return opportunities[i].NetProfit > opportunities[j].NetProfit
		})
	}
}
