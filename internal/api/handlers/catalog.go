package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/karvek/albion-scalper/internal/config"
)

// CategoryExpander resolves configured category names to item IDs.
type CategoryExpander interface {
	ExpandCategory(category string) ([]string, bool)
	ItemName(itemID string) (string, bool)
}

// CatalogHandler exposes the item catalog and its category rules.
type CatalogHandler struct {
	expander   CategoryExpander
	categories map[string]config.CategoryRule
}

// NewCatalogHandler creates a catalog handler. expander may be nil when
// no catalog was loaded.
func NewCatalogHandler(expander CategoryExpander, categories map[string]config.CategoryRule) *CatalogHandler {
	return &CatalogHandler{expander: expander, categories: categories}
}

// ListCategories handles GET /api/v1/categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	type categoryInfo struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	list := make([]categoryInfo, 0, len(h.categories))
	for name, rule := range h.categories {
		list = append(list, categoryInfo{Name: name, Type: rule.Type})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    list,
	})
}

// CategoryItems handles GET /api/v1/categories/:name/items.
func (h *CatalogHandler) CategoryItems(c *gin.Context) {
	if h.expander == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Item catalog is not loaded",
		})
		return
	}

	name := c.Param("name")
	ids, ok := h.expander.ExpandCategory(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Unknown category: " + name,
		})
		return
	}

	type itemInfo struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
	}
	items := make([]itemInfo, 0, len(ids))
	for _, id := range ids {
		info := itemInfo{ID: id}
		if display, ok := h.expander.ItemName(id); ok {
			info.Name = display
		}
		items = append(items, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"count":   len(items),
	})
}
