package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karvek/albion-scalper/internal/cache"
)

// CacheStore is the slice of the cache API the handler needs.
type CacheStore interface {
	Clear(ctx context.Context) int
	GetStats() cache.Stats
}

// CacheHandler exposes cache maintenance endpoints.
type CacheHandler struct {
	store CacheStore
}

// NewCacheHandler creates a cache handler. store may be nil when
// caching is disabled.
func NewCacheHandler(store CacheStore) *CacheHandler {
	return &CacheHandler{store: store}
}

// Clear handles DELETE /api/v1/cache.
func (h *CacheHandler) Clear(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"removed": 0,
			"message": "Caching is disabled",
		})
		return
	}

	removed := h.store.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
	})
}

// Stats handles GET /api/v1/cache/stats.
func (h *CacheHandler) Stats(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    cache.Stats{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.GetStats(),
	})
}
