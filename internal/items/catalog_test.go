package items

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/models"
)

const sampleDump = `[
	{"UniqueName": "T4_BAG", "LocalizedNames": {"EN-US": "Adventurer's Bag", "DE-DE": "Tasche des Abenteurers"}},
	{"UniqueName": "T5_BAG", "LocalizedNames": {"EN-US": "Journeyman's Bag"}},
	{"UniqueName": "T4_CAPE", "LocalizedNames": {"EN-US": "Adventurer's Cape"}},
	{"UniqueName": "T4_2H_BOW", "LocalizedNames": null},
	{"UniqueName": "", "LocalizedNames": {"EN-US": "Ghost Entry"}}
]`

func testEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "item_catalog")
}

func testCatalog(t *testing.T, categories map[string]config.CategoryRule) *Catalog {
	t.Helper()
	catalog, err := parse([]byte(sampleDump), categories, testEntry())
	require.NoError(t, err)
	return catalog
}

func TestParse(t *testing.T) {
	catalog := testCatalog(t, nil)

	assert.Equal(t, 4, catalog.Len(), "entries without a UniqueName are dropped")

	name, ok := catalog.ItemName("T4_BAG")
	require.True(t, ok)
	assert.Equal(t, "Adventurer's Bag", name)

	// Entries without an EN-US name fall back to the ID itself.
	name, ok = catalog.ItemName("T4_2H_BOW")
	require.True(t, ok)
	assert.Equal(t, "T4_2H_BOW", name)

	_, ok = catalog.ItemName("T9_NOTHING")
	assert.False(t, ok)
}

func TestParseRejectsMalformedDump(t *testing.T) {
	_, err := parse([]byte(`{"not": "a list"}`), nil, testEntry())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	_, err = parse([]byte(`[]`), nil, testEntry())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestItemIDLookup(t *testing.T) {
	catalog := testCatalog(t, nil)

	id, ok := catalog.ItemID("Adventurer's Bag")
	require.True(t, ok)
	assert.Equal(t, "T4_BAG", id)

	id, ok = catalog.ItemID("adventurer's bag")
	require.True(t, ok, "lookup falls back to case-folded names")
	assert.Equal(t, "T4_BAG", id)

	_, ok = catalog.ItemID("No Such Item")
	assert.False(t, ok)
}

func TestAllItemIDsSortedCopy(t *testing.T) {
	catalog := testCatalog(t, nil)

	ids := catalog.AllItemIDs()
	assert.Equal(t, []string{"T4_2H_BOW", "T4_BAG", "T4_CAPE", "T5_BAG"}, ids)

	ids[0] = "mutated"
	assert.Equal(t, []string{"T4_2H_BOW", "T4_BAG", "T4_CAPE", "T5_BAG"}, catalog.AllItemIDs())
}

func TestExpandCategory(t *testing.T) {
	catalog := testCatalog(t, map[string]config.CategoryRule{
		"picks":     {Type: "list", Value: []string{"T4_BAG", "T9_NOTHING"}},
		"bags":      {Type: "regex", Value: []string{`T\d_BAG`}},
		"adventure": {Type: "name_contains", Value: []string{"ADVENTURER"}},
		"broken":    {Type: "regex", Value: []string{`([`}},
		"weird":     {Type: "prefix", Value: []string{"T4"}},
	})

	tests := []struct {
		name     string
		category string
		want     []string
	}{
		{"list keeps only known IDs", "picks", []string{"T4_BAG"}},
		{"regex anchored at start", "bags", []string{"T4_BAG", "T5_BAG"}},
		{"name_contains is case-folded", "adventure", []string{"T4_BAG", "T4_CAPE"}},
		{"invalid pattern matches nothing", "broken", []string{}},
		{"unsupported rule type matches nothing", "weird", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := catalog.ExpandCategory(tt.category)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := catalog.ExpandCategory("does-not-exist")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	catalog := testCatalog(t, map[string]config.CategoryRule{
		"bags": {Type: "regex", Value: []string{`T\d_BAG`}},
	})

	resolved := catalog.Resolve([]string{"T4_CAPE", "T4_BAG", ""}, []string{"bags", "unknown"})
	assert.Equal(t, []string{"T4_BAG", "T4_CAPE", "T5_BAG"}, resolved,
		"explicit IDs and category hits merge deduplicated and sorted")
}

func TestLoaderDownloadsOnce(t *testing.T) {
	downloads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads++
		w.Write([]byte(sampleDump))
	}))
	defer server.Close()

	dir := t.TempDir()
	loader := NewLoader(config.ItemsConfig{SourceURL: server.URL, DataDir: dir}, logrus.New())
	loader.logger.Logger.SetOutput(io.Discard)

	catalog, err := loader.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, catalog.Len())
	assert.Equal(t, 1, downloads)

	// A second load reuses the on-disk copy.
	catalog, err = loader.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, catalog.Len())
	assert.Equal(t, 1, downloads)

	_, err = os.Stat(filepath.Join(dir, catalogFileName))
	assert.NoError(t, err)
}

func TestLoaderDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loader := NewLoader(config.ItemsConfig{SourceURL: server.URL, DataDir: t.TempDir()}, logrus.New())
	loader.logger.Logger.SetOutput(io.Discard)

	_, err := loader.Load(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
