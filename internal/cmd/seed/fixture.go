package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/perttula/whispden/internal/game/storage"
)

// Fixture is the YAML document shape for a theme catalog.
type Fixture struct {
	Themes []ThemeFixture `yaml:"themes"`
}

// ThemeFixture declares one theme and the elements it owns. Core themes
// backfill icon sets during play, so a catalog should ship at least one.
type ThemeFixture struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Core     bool             `yaml:"core"`
	Elements []ElementFixture `yaml:"elements"`
}

// ElementFixture declares one catalog element.
type ElementFixture struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Icon          string `yaml:"icon"`
	WhispEligible bool   `yaml:"whisp_eligible"`
}

// LoadFixture reads and validates a catalog fixture file. Theme and element
// IDs must be unique across the whole document because elements share one
// table regardless of theme.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(fx.Themes) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s declares no themes", path)
	}

	themeIDs := make(map[string]bool, len(fx.Themes))
	elementIDs := make(map[string]string)
	for _, theme := range fx.Themes {
		if theme.ID == "" || theme.Name == "" {
			return Fixture{}, fmt.Errorf("fixture theme needs id and name, got id=%q name=%q", theme.ID, theme.Name)
		}
		if themeIDs[theme.ID] {
			return Fixture{}, fmt.Errorf("theme id %s declared twice", theme.ID)
		}
		themeIDs[theme.ID] = true
		for _, element := range theme.Elements {
			if element.ID == "" || element.Name == "" {
				return Fixture{}, fmt.Errorf("theme %s element needs id and name, got id=%q name=%q", theme.ID, element.ID, element.Name)
			}
			if owner, ok := elementIDs[element.ID]; ok {
				return Fixture{}, fmt.Errorf("element id %s declared under both %s and %s", element.ID, owner, theme.ID)
			}
			elementIDs[element.ID] = theme.ID
		}
	}
	return fx, nil
}

// Apply upserts the fixture catalog into the store and reports how many
// themes and elements it wrote. Rerunning with the same fixture is a no-op
// beyond refreshing names and icons.
func Apply(ctx context.Context, store storage.CatalogStore, fx Fixture) (int, int, error) {
	themes := 0
	elements := 0
	for _, theme := range fx.Themes {
		record := storage.ThemeRecord{
			ID:   theme.ID,
			Name: theme.Name,
			Core: theme.Core,
		}
		if err := store.PutTheme(ctx, record); err != nil {
			return themes, elements, fmt.Errorf("put theme %s: %w", theme.ID, err)
		}
		themes++
		for _, element := range theme.Elements {
			record := storage.ElementRecord{
				ID:            element.ID,
				ThemeID:       theme.ID,
				Name:          element.Name,
				IconRef:       element.Icon,
				WhispEligible: element.WhispEligible,
			}
			if err := store.PutElement(ctx, record); err != nil {
				return themes, elements, fmt.Errorf("put element %s: %w", element.ID, err)
			}
			elements++
		}
	}
	return themes, elements, nil
}
