package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karvek/albion-scalper/internal/config"
)

type stubExpander struct {
	items map[string][]string
	names map[string]string
}

func (s stubExpander) ExpandCategory(category string) ([]string, bool) {
	ids, ok := s.items[category]
	return ids, ok
}

func (s stubExpander) ItemName(itemID string) (string, bool) {
	name, ok := s.names[itemID]
	return name, ok
}

func newCatalogRouter(expander CategoryExpander, categories map[string]config.CategoryRule) *gin.Engine {
	h := NewCatalogHandler(expander, categories)
	router := gin.New()
	router.GET("/categories", h.ListCategories)
	router.GET("/categories/:name/items", h.CategoryItems)
	return router
}

func TestListCategoriesSorted(t *testing.T) {
	router := newCatalogRouter(nil, map[string]config.CategoryRule{
		"capes": {Type: "name_contains"},
		"bags":  {Type: "regex"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "bags", body.Data[0].Name)
	assert.Equal(t, "capes", body.Data[1].Name)
}

func TestCategoryItems(t *testing.T) {
	expander := stubExpander{
		items: map[string][]string{"bags": {"T4_BAG", "T5_BAG"}},
		names: map[string]string{"T4_BAG": "Adventurer's Bag"},
	}
	router := newCatalogRouter(expander, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/bags/items", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Adventurer's Bag")
	assert.Contains(t, w.Body.String(), "T5_BAG")
}

func TestCategoryItemsUnknownCategory(t *testing.T) {
	router := newCatalogRouter(stubExpander{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/nope/items", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryItemsWithoutCatalog(t *testing.T) {
	router := newCatalogRouter(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/bags/items", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
