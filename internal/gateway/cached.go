package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/cache"
	"github.com/karvek/albion-scalper/internal/models"
)

// CachedSource wraps a PriceSource with a read-through cache. A hit
// skips the network entirely; on a miss the upstream is called and only
// successful, non-empty results are written back. Cache trouble never
// fails a request, it just stops saving time.
type CachedSource struct {
	source PriceSource
	store  cache.Store
	logger *logrus.Entry
}

// NewCachedSource wraps source with store.
func NewCachedSource(source PriceSource, store cache.Store, logger *logrus.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		store:  store,
		logger: logger.WithField("component", "cached_gateway"),
	}
}

// FetchPrices implements PriceSource.
func (s *CachedSource) FetchPrices(ctx context.Context, items, locations []string, qualities []int) ([]models.PricePoint, error) {
	keyParts := []string{
		"prices",
		joinSorted(items),
		joinSorted(locations),
		joinSortedInts(qualities),
	}

	if payload, ok := s.store.Get(ctx, keyParts); ok {
		var points []models.PricePoint
		if err := json.Unmarshal(payload, &points); err == nil {
			s.logger.WithField("records", len(points)).Debug("Price snapshot served from cache")
			return points, nil
		}
		s.logger.WithError(models.ErrCacheCorrupt).Warn("Cached price payload unreadable, refetching")
	}

	points, err := s.source.FetchPrices(ctx, items, locations, qualities)
	if err != nil {
		return nil, err
	}
	s.writeBack(ctx, keyParts, points, len(points) > 0)
	return points, nil
}

// FetchHistory implements PriceSource.
func (s *CachedSource) FetchHistory(ctx context.Context, items, locations []string, quality int, r HistoryRange) ([]models.ItemHistory, error) {
	keyParts := []string{
		"history",
		joinSorted(items),
		joinSorted(locations),
		strconv.Itoa(quality),
		r.Start.Format("2006-01-02"),
		r.End.Format("2006-01-02"),
		strconv.Itoa(r.TimeScale),
	}

	if payload, ok := s.store.Get(ctx, keyParts); ok {
		var histories []models.ItemHistory
		if err := json.Unmarshal(payload, &histories); err == nil {
			s.logger.WithField("entries", len(histories)).Debug("Trade history served from cache")
			return histories, nil
		}
		s.logger.WithError(models.ErrCacheCorrupt).Warn("Cached history payload unreadable, refetching")
	}

	histories, err := s.source.FetchHistory(ctx, items, locations, quality, r)
	if err != nil {
		return nil, err
	}
	s.writeBack(ctx, keyParts, histories, len(histories) > 0)
	return histories, nil
}

func (s *CachedSource) writeBack(ctx context.Context, keyParts []string, value interface{}, worthCaching bool) {
	if !worthCaching {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).Warn("Cannot encode payload for caching")
		return
	}
	s.store.Put(ctx, keyParts, payload)
}

func joinSorted(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func joinSortedInts(values []int) string {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
