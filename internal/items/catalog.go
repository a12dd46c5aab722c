package items

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/models"
)

const catalogFileName = "items.json"

// itemRecord is the shape of one entry in the upstream item dump. Only
// the EN-US localization is kept.
type itemRecord struct {
	UniqueName     string            `json:"UniqueName"`
	LocalizedNames map[string]string `json:"LocalizedNames"`
}

// Catalog maps item IDs to display names and expands configured
// categories into item lists. It is built once and read-only afterwards.
type Catalog struct {
	idToName   map[string]string
	nameToID   map[string]string
	foldedToID map[string]string
	ids        []string
	categories map[string]config.CategoryRule
	logger     *logrus.Entry
}

// Loader fetches and parses the item dump. The dump is kept on disk
// under the data directory so later runs skip the download.
type Loader struct {
	client    *http.Client
	sourceURL string
	dataDir   string
	logger    *logrus.Entry
}

// NewLoader builds a loader from the items configuration.
func NewLoader(cfg config.ItemsConfig, logger *logrus.Logger) *Loader {
	return &Loader{
		client:    &http.Client{Timeout: 60 * time.Second},
		sourceURL: cfg.SourceURL,
		dataDir:   cfg.DataDir,
		logger:    logger.WithField("component", "item_catalog"),
	}
}

// Load returns the catalog, downloading the item dump first when no
// local copy exists.
func (l *Loader) Load(ctx context.Context, categories map[string]config.CategoryRule) (*Catalog, error) {
	path := filepath.Join(l.dataDir, catalogFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		l.logger.WithField("url", l.sourceURL).Info("Local item dump not found, downloading")
		if err := l.download(ctx, path); err != nil {
			return nil, fmt.Errorf("%w: item dump download failed: %v", models.ErrDataUnavailable, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading item dump: %v", models.ErrDataUnavailable, err)
	}

	catalog, err := parse(data, categories, l.logger)
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{
		"items":      catalog.Len(),
		"categories": len(categories),
	}).Info("Item catalog loaded")
	return catalog, nil
}

func (l *Loader) download(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.sourceURL, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, l.sourceURL)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".items-*.json")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func parse(data []byte, categories map[string]config.CategoryRule, logger *logrus.Entry) (*Catalog, error) {
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed item dump: %v", models.ErrDataUnavailable, err)
	}

	folder := cases.Fold()
	c := &Catalog{
		idToName:   make(map[string]string, len(records)),
		nameToID:   make(map[string]string, len(records)),
		foldedToID: make(map[string]string, len(records)),
		categories: categories,
		logger:     logger,
	}

	for _, r := range records {
		if r.UniqueName == "" {
			continue
		}
		name := r.LocalizedNames["EN-US"]
		if name == "" {
			name = r.UniqueName
		}
		c.idToName[r.UniqueName] = name
		if _, taken := c.nameToID[name]; !taken {
			c.nameToID[name] = r.UniqueName
			c.foldedToID[folder.String(name)] = r.UniqueName
		}
	}

	c.ids = make([]string, 0, len(c.idToName))
	for id := range c.idToName {
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)

	if len(c.ids) == 0 {
		return nil, fmt.Errorf("%w: item dump contained no usable entries", models.ErrDataUnavailable)
	}
	return c, nil
}

// ItemName returns the EN-US display name for an item ID.
func (c *Catalog) ItemName(itemID string) (string, bool) {
	name, ok := c.idToName[itemID]
	return name, ok
}

// ItemID resolves a display name back to its item ID, falling back to a
// case-folded match when the exact name is unknown.
func (c *Catalog) ItemID(name string) (string, bool) {
	if id, ok := c.nameToID[name]; ok {
		return id, true
	}
	id, ok := c.foldedToID[cases.Fold().String(name)]
	return id, ok
}

// AllItemIDs returns every known item ID, sorted.
func (c *Catalog) AllItemIDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// Len returns the number of cataloged items.
func (c *Catalog) Len() int {
	return len(c.idToName)
}

// ExpandCategory resolves a configured category name into the item IDs
// it covers. An unknown category returns ok=false; a known category
// with no matches returns an empty, non-nil slice.
//
// Rule values combine with any-match semantics: a "list" rule keeps the
// listed IDs that exist in the catalog, a "regex" rule matches IDs
// against each pattern anchored at the start, and a "name_contains"
// rule does a case-folded substring search over display names.
func (c *Catalog) ExpandCategory(category string) ([]string, bool) {
	rule, ok := c.categories[category]
	if !ok {
		c.logger.WithField("category", category).Warn("Unknown item category")
		return nil, false
	}

	matched := []string{}
	switch rule.Type {
	case "list":
		missing := 0
		for _, id := range rule.Value {
			if _, known := c.idToName[id]; known {
				matched = append(matched, id)
			} else {
				missing++
			}
		}
		if missing > 0 {
			c.logger.WithFields(logrus.Fields{
				"category": category,
				"missing":  missing,
			}).Warn("Category lists item IDs absent from the catalog")
		}

	case "regex":
		patterns := make([]*regexp.Regexp, 0, len(rule.Value))
		for _, v := range rule.Value {
			p, err := regexp.Compile("^(?:" + v + ")")
			if err != nil {
				c.logger.WithFields(logrus.Fields{
					"category": category,
					"pattern":  v,
				}).WithError(err).Warn("Invalid category pattern skipped")
				continue
			}
			patterns = append(patterns, p)
		}
		for _, id := range c.ids {
			for _, p := range patterns {
				if p.MatchString(id) {
					matched = append(matched, id)
					break
				}
			}
		}

	case "name_contains":
		folder := cases.Fold()
		terms := make([]string, 0, len(rule.Value))
		for _, v := range rule.Value {
			terms = append(terms, folder.String(v))
		}
		for _, id := range c.ids {
			name := folder.String(c.idToName[id])
			for _, term := range terms {
				if strings.Contains(name, term) {
					matched = append(matched, id)
					break
				}
			}
		}

	default:
		c.logger.WithFields(logrus.Fields{
			"category": category,
			"type":     rule.Type,
		}).Warn("Unsupported category rule type")
	}

	return matched, true
}

// Resolve merges explicit item IDs with expanded categories into one
// deduplicated, sorted list.
func (c *Catalog) Resolve(itemIDs, categories []string) []string {
	seen := make(map[string]struct{})
	for _, id := range itemIDs {
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	for _, category := range categories {
		ids, ok := c.ExpandCategory(category)
		if !ok {
			continue
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	resolved := make([]string, 0, len(seen))
	for id := range seen {
		resolved = append(resolved, id)
	}
	sort.Strings(resolved)
	return resolved
}
