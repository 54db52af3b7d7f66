package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

// CatalogSource supplies menu items. Sources may fail.
type CatalogSource interface {
	Name() string
	Items(ctx context.Context) ([]models.MenuItem, error)
}

// Catalog merges its sources into one ordered, deduplicated menu
type Catalog struct {
	sources []CatalogSource
}

// NewCatalog creates a catalog. Earlier sources win on duplicate names.
func NewCatalog(sources ...CatalogSource) *Catalog {
	return &Catalog{sources: sources}
}

// ListAvailable returns the available items in source order, deduplicated by
// case-insensitive name. It never fails; a broken source is logged and skipped.
func (c *Catalog) ListAvailable(ctx context.Context) []models.MenuItem {
	seen := make(map[string]struct{})
	var items []models.MenuItem

	for _, src := range c.sources {
		srcItems, err := src.Items(ctx)
		if err != nil {
			slog.Warn("Catalog source failed", "source", src.Name(), "error", err)
			continue
		}
		for _, item := range srcItems {
			key := item.NameKey()
			if key == "" || !item.Available {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}

// StoreMenuSource reads available menu items from the order store
type StoreMenuSource struct {
	store storage.Store
}

// NewStoreMenuSource creates a source backed by the store
func NewStoreMenuSource(store storage.Store) *StoreMenuSource {
	return &StoreMenuSource{store: store}
}

func (s *StoreMenuSource) Name() string { return "store" }

func (s *StoreMenuSource) Items(ctx context.Context) ([]models.MenuItem, error) {
	ptrs, err := s.store.GetAvailableMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]models.MenuItem, 0, len(ptrs))
	for _, p := range ptrs {
		items = append(items, *p)
	}
	return items, nil
}

// yamlMenuItem lets "available" default to true when omitted
type yamlMenuItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Category    string `yaml:"category"`
	Spicy       bool   `yaml:"spicy"`
	Vegetarian  bool   `yaml:"vegetarian"`
	Popular     bool   `yaml:"popular"`
	Available   *bool  `yaml:"available"`
}

type yamlMenu struct {
	Items []yamlMenuItem `yaml:"items"`
}

// YAMLMenuSource reads a menu file on every call so edits show up without a restart.
//
//	items:
//	  - name: Ndole & Plantains
//	    price: 2500
//	    category: mains
//	    popular: true
type YAMLMenuSource struct {
	path string
}

// NewYAMLMenuSource creates a source for the given file
func NewYAMLMenuSource(path string) *YAMLMenuSource {
	return &YAMLMenuSource{path: path}
}

func (s *YAMLMenuSource) Name() string { return "yaml:" + s.path }

func (s *YAMLMenuSource) Items(ctx context.Context) ([]models.MenuItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}
	return ParseMenuYAML(data)
}

// ParseMenuYAML decodes a menu document
func ParseMenuYAML(data []byte) ([]models.MenuItem, error) {
	var doc yamlMenu
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}
	items := make([]models.MenuItem, 0, len(doc.Items))
	for _, y := range doc.Items {
		available := true
		if y.Available != nil {
			available = *y.Available
		}
		items = append(items, models.MenuItem{
			Name:        y.Name,
			Description: y.Description,
			Price:       y.Price,
			Category:    y.Category,
			Spicy:       y.Spicy,
			Vegetarian:  y.Vegetarian,
			Popular:     y.Popular,
			Available:   available,
		})
	}
	return items, nil
}

// StaticMenuSource serves a fixed list. Used by tests and seeding.
type StaticMenuSource []models.MenuItem

func (s StaticMenuSource) Name() string { return "static" }

func (s StaticMenuSource) Items(ctx context.Context) ([]models.MenuItem, error) {
	return append([]models.MenuItem(nil), s...), nil
}
