package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Items(ctx context.Context) ([]models.MenuItem, error) {
	return nil, errors.New("boom")
}

func TestCatalogDedupFirstSourceWins(t *testing.T) {
	first := StaticMenuSource{
		{Name: "Jollof Rice", Price: 1000, Available: true},
		{Name: "Ndole", Price: 2500, Available: true},
	}
	second := StaticMenuSource{
		{Name: "  jollof rice ", Price: 9999, Available: true},
		{Name: "Eru", Price: 3000, Available: true},
		{Name: "Achu", Price: 3500, Available: false},
		{Name: "", Price: 10, Available: true},
	}

	items := NewCatalog(failingSource{}, first, second).ListAvailable(context.Background())

	names := []string{}
	for _, it := range items {
		names = append(names, it.Name)
	}
	want := []string{"Jollof Rice", "Ndole", "Eru"}
	if len(names) != len(want) {
		t.Fatalf("items = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("items = %v, want %v", names, want)
		}
	}
	if items[0].Price != 1000 {
		t.Errorf("duplicate overrode first source: price %d", items[0].Price)
	}
}

func TestCatalogEmptyOnFailure(t *testing.T) {
	if items := NewCatalog(failingSource{}).ListAvailable(context.Background()); len(items) != 0 {
		t.Errorf("items = %+v", items)
	}
	if items := NewCatalog().ListAvailable(context.Background()); len(items) != 0 {
		t.Errorf("items = %+v", items)
	}
}

func TestParseMenuYAML(t *testing.T) {
	doc := []byte(`
items:
  - name: Ndole & Plantains
    description: Bitterleaf stew
    price: 2500
    category: mains
    popular: true
  - name: Pepper Soup
    price: 1500
    spicy: true
    available: false
`)
	items, err := ParseMenuYAML(doc)
	if err != nil {
		t.Fatalf("ParseMenuYAML: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if !items[0].Available || !items[0].Popular || items[0].Price != 2500 {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].Available || !items[1].Spicy {
		t.Errorf("second item = %+v", items[1])
	}

	if _, err := ParseMenuYAML([]byte("items: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestYAMLMenuSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	if err := os.WriteFile(path, []byte("items:\n  - name: Eru\n    price: 3000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := NewYAMLMenuSource(path).Items(context.Background())
	if err != nil || len(items) != 1 || items[0].Name != "Eru" {
		t.Fatalf("Items = %+v, %v", items, err)
	}

	if _, err := NewYAMLMenuSource(filepath.Join(t.TempDir(), "missing.yaml")).Items(context.Background()); err == nil {
		t.Error("missing file should fail")
	}
}

func TestStoreMenuSource(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_ = store.CreateMenuItem(ctx, &models.MenuItem{Name: "Koki", Price: 800, Available: true})
	_ = store.CreateMenuItem(ctx, &models.MenuItem{Name: "Sold out", Price: 800})

	items := NewCatalog(NewStoreMenuSource(store)).ListAvailable(ctx)
	if len(items) != 1 || items[0].Name != "Koki" {
		t.Errorf("items = %+v", items)
	}
}
