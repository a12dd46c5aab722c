package scanner

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/gateway"
	"github.com/karvek/albion-scalper/internal/market"
	"github.com/karvek/albion-scalper/internal/models"
)

type stubSource struct {
	prices     []models.PricePoint
	priceErr   error
	histories  []models.ItemHistory
	historyErr error

	priceCalls   int
	historyCalls int
	historyQual  int
}

func (s *stubSource) FetchPrices(_ context.Context, _, _ []string, _ []int) ([]models.PricePoint, error) {
	s.priceCalls++
	return s.prices, s.priceErr
}

func (s *stubSource) FetchHistory(_ context.Context, _, _ []string, quality int, _ gateway.HistoryRange) ([]models.ItemHistory, error) {
	s.historyCalls++
	s.historyQual = quality
	return s.histories, s.historyErr
}

type stubNamer map[string]string

func (n stubNamer) ItemName(id string) (string, bool) {
	name, ok := n[id]
	return name, ok
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testTaxModel() *market.TaxModel {
	return market.NewTaxModel(
		config.LocationsConfig{
			RoyalCities:    []string{"LocationA", "LocationB", "Lymhurst", "Martlock"},
			ArtifactCities: []string{"Caerleon"},
			BlackMarket:    "Black Market",
		},
		config.TaxConfig{
			RoyalRate:       0.03,
			ArtifactRate:    0.06,
			BlackMarketRate: 0.04,
			PremiumModifier: 0.5,
		},
		silentLogger(),
	)
}

func newTestScanner(source gateway.PriceSource, namer ItemNamer) *Scanner {
	return New(source, testTaxModel(), namer, Config{
		Workers:      2,
		FetchHistory: true,
	}, silentLogger())
}

func baseRequest() models.ScanRequest {
	return models.ScanRequest{
		Items:     []string{"T4_BAG"},
		Locations: []string{"LocationA", "LocationB", "Black Market"},
		Quality:   models.SingleTier(1),
	}
}

// Buy at 100, sell at 150 in a royal city without premium: tax is
// floor(150 * 0.03) = 4, net profit 46, margin 46.00%.
func TestScanProfitArithmetic(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100, BuyOrderPrice: 90},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", SellOfferPrice: 200, BuyOrderPrice: 150},
	}}
	s := newTestScanner(source, stubNamer{"T4_BAG": "Adventurer's Bag"})

	req := baseRequest()
	req.MinMarginPercent = 10

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, opportunities, 1)

	opp := opportunities[0]
	assert.Equal(t, "T4_BAG", opp.ItemID)
	assert.Equal(t, "Adventurer's Bag", opp.ItemName)
	assert.Equal(t, "LocationA", opp.BuyLocation)
	assert.Equal(t, int64(100), opp.BuyPrice)
	assert.Equal(t, "LocationB", opp.SellLocation)
	assert.Equal(t, int64(150), opp.SellPrice)
	assert.Equal(t, int64(4), opp.TaxAmount)
	assert.Equal(t, int64(50), opp.GrossProfit)
	assert.Equal(t, int64(46), opp.NetProfit)
	assert.True(t, opp.MarginPercent.Equal(decimal.NewFromInt(46)),
		"margin was %s", opp.MarginPercent)
}

func TestScanMarginThresholdExcludes(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
	}}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.MinMarginPercent = 50

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, opportunities, "46%% margin must not pass a 50%% threshold")
}

// Raising the margin threshold can only remove opportunities, never
// add or change them: each result set must be contained in the one
// produced by the lower threshold.
func TestScanMarginThresholdMonotonic(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		{ItemID: "T4_BAG", Quality: 1, Location: "Lymhurst", BuyOrderPrice: 120},
		{ItemID: "T4_BAG", Quality: 1, Location: "Martlock", BuyOrderPrice: 110},
		{ItemID: "T5_CAPE", Quality: 1, Location: "LocationA", SellOfferPrice: 200},
		{ItemID: "T5_CAPE", Quality: 1, Location: "LocationB", BuyOrderPrice: 500},
	}}
	s := newTestScanner(source, nil)

	key := func(o models.Opportunity) string {
		return o.ItemID + "|" + o.BuyLocation + "|" + o.SellLocation
	}

	var previous map[string]bool
	for _, threshold := range []float64{0, 10, 50, 200} {
		req := baseRequest()
		req.Items = []string{"T4_BAG", "T5_CAPE"}
		req.Locations = []string{"LocationA", "LocationB", "Lymhurst", "Martlock"}
		req.MinMarginPercent = threshold

		opportunities, err := s.Scan(context.Background(), req)
		require.NoError(t, err)

		current := make(map[string]bool, len(opportunities))
		for _, o := range opportunities {
			current[key(o)] = true
		}
		if previous != nil {
			assert.LessOrEqual(t, len(current), len(previous))
			for k := range current {
				assert.True(t, previous[k],
					"threshold %.0f produced %s which the lower threshold did not", threshold, k)
			}
		}
		previous = current
	}

	// Margins at threshold 0: 142.5, 46, 17 and 7 percent.
	assert.Empty(t, previous, "a 200%% threshold must exclude everything")
}

func TestScanPremiumHalvesTax(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
	}}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.UsePremiumTax = true

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, opportunities, 1)

	// floor(150 * 0.015) = 2
	assert.Equal(t, int64(2), opportunities[0].TaxAmount)
	assert.Equal(t, int64(48), opportunities[0].NetProfit)
}

func TestScanVolumeThresholdExcludes(t *testing.T) {
	source := &stubSource{
		prices: []models.PricePoint{
			{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
			{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		},
		histories: []models.ItemHistory{
			{ItemID: "T4_BAG", Location: "LocationB", Quality: 1, Points: []models.HistoryPoint{
				{TradedCount: 15},
			}},
		},
	}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.MinVolumeThreshold = 20

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, opportunities, "average volume 15 is below the threshold of 20")
	assert.Equal(t, 1, source.historyCalls)
}

func TestScanVolumeThresholdPassesAndAnnotates(t *testing.T) {
	source := &stubSource{
		prices: []models.PricePoint{
			{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
			{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		},
		histories: []models.ItemHistory{
			{ItemID: "T4_BAG", Location: "LocationB", Quality: 1, Points: []models.HistoryPoint{
				{TradedCount: 25},
			}},
		},
	}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.MinVolumeThreshold = 20

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	require.NotNil(t, opportunities[0].AvgDailyVolume)
	assert.Equal(t, int64(25), *opportunities[0].AvgDailyVolume)
}

func TestScanZeroThresholdSkipsHistory(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
	}}
	s := newTestScanner(source, nil)

	opportunities, err := s.Scan(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Len(t, opportunities, 1)
	assert.Equal(t, 0, source.historyCalls)
	assert.Nil(t, opportunities[0].AvgDailyVolume)
}

func TestScanHistoryFailureDegradesToUnfiltered(t *testing.T) {
	source := &stubSource{
		prices: []models.PricePoint{
			{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
			{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		},
		historyErr: errors.New("upstream timeout"),
	}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.MinVolumeThreshold = 20

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, opportunities, 1, "history failure skips the filter, not the scan")
	assert.Nil(t, opportunities[0].AvgDailyVolume)
}

func TestScanAllTiersCoversOnlyPresentData(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 4, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 4, Location: "LocationB", BuyOrderPrice: 150},
	}}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.Quality = models.AllTiers()

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	assert.Equal(t, 4, opportunities[0].Quality)
}

func TestScanAllTiersSamplesHistoryAtBaseTier(t *testing.T) {
	source := &stubSource{
		prices: []models.PricePoint{
			{ItemID: "T4_BAG", Quality: 3, Location: "LocationA", SellOfferPrice: 100},
			{ItemID: "T4_BAG", Quality: 3, Location: "LocationB", BuyOrderPrice: 150},
		},
		histories: []models.ItemHistory{
			{ItemID: "T4_BAG", Location: "LocationB", Quality: 1, Points: []models.HistoryPoint{
				{TradedCount: 100},
			}},
		},
	}
	s := newTestScanner(source, nil)

	req := baseRequest()
	req.Quality = models.AllTiers()
	req.MinVolumeThreshold = 20

	_, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, source.historyQual)
}

func TestScanBlackMarketNeverBuySource(t *testing.T) {
	// The black market posts the cheapest sell offer, but acquiring
	// there is impossible; only its buy orders matter.
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "Black Market", SellOfferPrice: 10, BuyOrderPrice: 300},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
	}}
	s := newTestScanner(source, nil)

	opportunities, err := s.Scan(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)

	opp := opportunities[0]
	assert.Equal(t, "LocationA", opp.BuyLocation)
	assert.Equal(t, "Black Market", opp.SellLocation)
	// floor(300 * 0.04) = 12
	assert.Equal(t, int64(12), opp.TaxAmount)
	assert.Equal(t, int64(188), opp.NetProfit)
}

func TestScanNeverSameBuyAndSellLocation(t *testing.T) {
	// A location quoting a sell offer below its own buy order must not
	// produce a self-trade.
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100, BuyOrderPrice: 500},
	}}
	s := newTestScanner(source, nil)

	opportunities, err := s.Scan(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Empty(t, opportunities)
}

func TestScanSkipsNonPositiveSpread(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 150},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
	}}
	s := newTestScanner(source, nil)

	opportunities, err := s.Scan(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Empty(t, opportunities, "gross profit must be strictly positive before tax")
}

func TestScanRanking(t *testing.T) {
	prices := []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		{ItemID: "T5_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T5_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 130},
	}
	histories := []models.ItemHistory{
		{ItemID: "T4_BAG", Location: "LocationB", Quality: 1, Points: []models.HistoryPoint{{TradedCount: 10}}},
		{ItemID: "T5_BAG", Location: "LocationB", Quality: 1, Points: []models.HistoryPoint{{TradedCount: 500}}},
	}

	req := baseRequest()
	req.Items = []string{"T4_BAG", "T5_BAG"}
	req.MinVolumeThreshold = 1

	t.Run("net profit default", func(t *testing.T) {
		s := newTestScanner(&stubSource{prices: prices, histories: histories}, nil)
		opportunities, err := s.Scan(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, opportunities, 2)
		assert.Equal(t, "T4_BAG", opportunities[0].ItemID)
		assert.Equal(t, "T5_BAG", opportunities[1].ItemID)
	})

	t.Run("opportunity score favors liquidity", func(t *testing.T) {
		scored := req
		scored.RankBy = models.RankByOpportunityScore
		s := newTestScanner(&stubSource{prices: prices, histories: histories}, nil)
		opportunities, err := s.Scan(context.Background(), scored)
		require.NoError(t, err)
		require.Len(t, opportunities, 2)
		assert.Equal(t, "T5_BAG", opportunities[0].ItemID)
	})
}

func TestScanDeterministic(t *testing.T) {
	prices := []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		{ItemID: "T4_CAPE", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_CAPE", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
		{ItemID: "T5_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T5_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
	}

	req := baseRequest()
	req.Items = []string{"T4_BAG", "T4_CAPE", "T5_BAG"}

	s := newTestScanner(&stubSource{prices: prices}, nil)
	first, err := s.Scan(context.Background(), req)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := s.Scan(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again, "equal inputs must yield identical output order")
	}
}

func TestScanInvalidRequest(t *testing.T) {
	source := &stubSource{}
	s := newTestScanner(source, nil)

	_, err := s.Scan(context.Background(), models.ScanRequest{
		Locations: []string{"LocationA"},
		Quality:   models.SingleTier(1),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	assert.Equal(t, 0, source.priceCalls, "validation must run before any fetch")
}

func TestScanPriceFetchFailureYieldsEmpty(t *testing.T) {
	source := &stubSource{priceErr: errors.New("connection refused")}
	s := newTestScanner(source, nil)

	opportunities, err := s.Scan(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Empty(t, opportunities)
}

func TestScanNoPriceDataYieldsEmpty(t *testing.T) {
	s := newTestScanner(&stubSource{}, nil)

	opportunities, err := s.Scan(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Empty(t, opportunities)
}

func TestScanFetchHistoryDisabledByConfig(t *testing.T) {
	source := &stubSource{prices: []models.PricePoint{
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationA", SellOfferPrice: 100},
		{ItemID: "T4_BAG", Quality: 1, Location: "LocationB", BuyOrderPrice: 150},
	}}
	s := New(source, testTaxModel(), nil, Config{Workers: 1, FetchHistory: false}, silentLogger())

	req := baseRequest()
	req.MinVolumeThreshold = 20

	opportunities, err := s.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, opportunities, 1)
	assert.Equal(t, 0, source.historyCalls)
}
