package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/models"
)

// ScanService runs one opportunity scan.
type ScanService interface {
	Scan(ctx context.Context, req models.ScanRequest) ([]models.Opportunity, error)
}

// ItemResolver expands category names and explicit IDs into the final
// item list.
type ItemResolver interface {
	Resolve(itemIDs, categories []string) []string
}

// ScanHandler exposes opportunity scans over HTTP. Request fields left
// empty fall back to the analysis defaults from configuration.
type ScanHandler struct {
	scanner   ScanService
	resolver  ItemResolver
	analysis  config.AnalysisConfig
	locations config.LocationsConfig
}

// NewScanHandler creates a scan handler. resolver may be nil when no
// item catalog is loaded; category expansion is then unavailable.
func NewScanHandler(scanner ScanService, resolver ItemResolver, analysis config.AnalysisConfig, locations config.LocationsConfig) *ScanHandler {
	return &ScanHandler{
		scanner:   scanner,
		resolver:  resolver,
		analysis:  analysis,
		locations: locations,
	}
}

// scanPayload is the request body of POST /api/v1/scan. Pointer fields
// distinguish "absent, use the default" from an explicit zero.
type scanPayload struct {
	Items              []string                `json:"items"`
	Categories         []string                `json:"categories"`
	Locations          []string                `json:"locations"`
	Quality            *models.QualitySelector `json:"quality"`
	MinMarginPercent   *float64                `json:"min_margin_percent"`
	UsePremiumTax      *bool                   `json:"use_premium_tax"`
	MinVolumeThreshold *int64                  `json:"min_volume_threshold"`
	RankBy             models.RankBy           `json:"rank_by"`
	Limit              *int                    `json:"limit"`
}

// Scan handles POST /api/v1/scan.
func (h *ScanHandler) Scan(c *gin.Context) {
	var payload scanPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Malformed request body: " + err.Error(),
		})
		return
	}
	h.run(c, payload)
}

// Opportunities handles GET /api/v1/opportunities, the query-string
// variant of a scan for dashboards and quick curl checks.
func (h *ScanHandler) Opportunities(c *gin.Context) {
	payload := scanPayload{
		Items:      splitParam(c.Query("items")),
		Categories: splitParam(c.Query("categories")),
		Locations:  splitParam(c.Query("locations")),
		RankBy:     models.RankBy(c.Query("rank_by")),
	}

	if raw := c.Query("quality"); raw != "" {
		var selector models.QualitySelector
		if raw == "all" {
			selector = models.AllTiers()
		} else {
			tier, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error":   "Quality must be a tier number or \"all\"",
				})
				return
			}
			selector = models.SingleTier(tier)
		}
		payload.Quality = &selector
	}
	if raw := c.Query("min_margin"); raw != "" {
		margin, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid min_margin"})
			return
		}
		payload.MinMarginPercent = &margin
	}
	if raw := c.Query("min_volume"); raw != "" {
		volume, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid min_volume"})
			return
		}
		payload.MinVolumeThreshold = &volume
	}
	if raw := c.Query("premium"); raw != "" {
		premium, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid premium flag"})
			return
		}
		payload.UsePremiumTax = &premium
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid limit"})
			return
		}
		payload.Limit = &limit
	}

	h.run(c, payload)
}

func (h *ScanHandler) run(c *gin.Context, payload scanPayload) {
	req, limit := h.buildRequest(payload)

	opportunities, err := h.scanner.Scan(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	if limit > 0 && len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.ScanResponse{
			Opportunities: opportunities,
			Count:         len(opportunities),
			Timestamp:     time.Now().UTC(),
		},
	})
}

// buildRequest folds configured defaults into the payload and returns
// the scan request plus the result limit to apply.
func (h *ScanHandler) buildRequest(payload scanPayload) (models.ScanRequest, int) {
	items := payload.Items
	categories := payload.Categories
	if len(items) == 0 && len(categories) == 0 {
		items = h.analysis.DefaultItems
		categories = h.analysis.DefaultCategories
	}
	if h.resolver != nil && len(categories) > 0 {
		items = h.resolver.Resolve(items, categories)
	}

	req := models.ScanRequest{
		Items:              items,
		Locations:          payload.Locations,
		Quality:            models.SingleTier(h.analysis.DefaultQuality),
		MinMarginPercent:   h.analysis.MinMarginPercent,
		UsePremiumTax:      h.analysis.UsePremiumTaxRate,
		MinVolumeThreshold: h.analysis.MinAvgDailyVolume,
		RankBy:             payload.RankBy,
	}
	if len(req.Locations) == 0 {
		req.Locations = h.locations.AllCities
	}
	if payload.Quality != nil {
		req.Quality = *payload.Quality
	}
	if payload.MinMarginPercent != nil {
		req.MinMarginPercent = *payload.MinMarginPercent
	}
	if payload.UsePremiumTax != nil {
		req.UsePremiumTax = *payload.UsePremiumTax
	}
	if payload.MinVolumeThreshold != nil {
		req.MinVolumeThreshold = *payload.MinVolumeThreshold
	}

	limit := h.analysis.ResultLimit
	if payload.Limit != nil {
		limit = *payload.Limit
	}
	return req, limit
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
