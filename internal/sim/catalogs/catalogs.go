// Package catalogs loads the static game data: recipes, per-crop plant
// tuning, and the arena layout.
package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"dragonpot.game/internal/sim/crops"
	"dragonpot.game/internal/sim/plant"
	"dragonpot.game/internal/sim/recipe"
)

//go:embed recipes.schema.json
var recipesSchemaJSON string

type Catalogs struct {
	Recipes RecipeCatalog
	Crops   CropCatalog
	Layout  LayoutCatalog
}

type RecipeCatalog struct {
	Templates []recipe.Recipe
	Digest    string
	// Fallback is set when the file was missing or unusable and the
	// built-in recipe is in use. Reason says why.
	Fallback bool
	Reason   string
}

type CropCatalog struct {
	Defs   map[crops.Type]plant.Def
	Digest string
}

// Def returns the plant tuning for c, or the default one.
func (c CropCatalog) Def(t crops.Type) plant.Def {
	if d, ok := c.Defs[t]; ok {
		return d
	}
	return plant.DefaultDef(t)
}

type LayoutCatalog struct {
	Layout Layout
	Digest string
}

// Digests is the catalog fingerprint advertised to observers and stored
// with tick logs.
type Digests struct {
	Recipes string `json:"recipes_digest"`
	Crops   string `json:"crops_digest"`
	Layout  string `json:"layout_digest"`
}

func (c *Catalogs) Digests() Digests {
	return Digests{Recipes: c.Recipes.Digest, Crops: c.Crops.Digest, Layout: c.Layout.Digest}
}

// Load reads recipes.json, crops.json and arena.yaml from configDir. Only a
// broken crops.json or arena.yaml is an error; recipe problems fall back to
// the built-in recipe with a warning.
func Load(configDir string, logger *log.Logger) (*Catalogs, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	var c Catalogs

	loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes)
	if c.Recipes.Fallback {
		logger.Printf("WARN recipes: %s; using fallback recipe", c.Recipes.Reason)
	}
	if err := loadCrops(filepath.Join(configDir, "crops.json"), &c.Crops); err != nil {
		return nil, err
	}
	if err := loadLayout(filepath.Join(configDir, "arena.yaml"), &c.Layout); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default is the catalog set used when no config directory is given.
func Default() *Catalogs {
	c := &Catalogs{}
	useFallback(&c.Recipes, "no config directory")
	c.Crops.Defs = defaultCropDefs()
	c.Crops.Digest = sha256Hex(nil)
	c.Layout.Layout = DefaultLayout()
	c.Layout.Digest = sha256Hex(nil)
	return c
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type recipeFile struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

func loadRecipes(path string, out *RecipeCatalog) {
	raw, err := os.ReadFile(path)
	if err != nil {
		useFallback(out, err.Error())
		return
	}
	templates, err := ParseRecipes(raw)
	if err != nil {
		useFallback(out, err.Error())
		return
	}
	out.Templates = templates
	out.Digest = sha256Hex(raw)
}

func useFallback(out *RecipeCatalog, reason string) {
	fb := recipe.Fallback()
	raw, _ := json.Marshal(recipeFile{Recipes: []recipe.Recipe{fb}})
	out.Templates = []recipe.Recipe{fb}
	out.Digest = sha256Hex(raw)
	out.Fallback = true
	out.Reason = reason
}

var recipesSchema = jsonschema.MustCompileString("recipes.schema.json", recipesSchemaJSON)

// ParseRecipes validates raw against the recipe schema and decodes it.
// Progress counters in the file are ignored.
func ParseRecipes(raw []byte) ([]recipe.Recipe, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("recipes.json: %w", err)
	}
	if err := recipesSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("recipes.json: %w", err)
	}
	var f recipeFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("recipes.json: %w", err)
	}
	seen := map[int]bool{}
	for i := range f.Recipes {
		r := &f.Recipes[i]
		if seen[r.ID] {
			return nil, fmt.Errorf("recipes.json: duplicate id %d", r.ID)
		}
		seen[r.ID] = true
		r.Reset()
	}
	return f.Recipes, nil
}

type cropFile struct {
	Crops []plant.Def `json:"crops"`
}

func defaultCropDefs() map[crops.Type]plant.Def {
	defs := make(map[crops.Type]plant.Def, len(crops.All()))
	for _, c := range crops.All() {
		defs[c] = plant.DefaultDef(c)
	}
	return defs
}

// loadCrops overlays crops.json on the default plant tuning. A missing file
// means defaults for every crop.
func loadCrops(path string, out *CropCatalog) error {
	out.Defs = defaultCropDefs()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var f cropFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("crops.json: %w", err)
	}
	for _, d := range f.Crops {
		if !d.Crop.Valid() {
			return fmt.Errorf("crops.json: unknown crop %d", d.Crop)
		}
		if d.MinDrop < 0 || d.MaxDrop < d.MinDrop {
			return fmt.Errorf("crops.json: %s: bad drop range %d..%d", d.Crop, d.MinDrop, d.MaxDrop)
		}
		if d.RegrowSeconds <= 0 || d.HarvestSeconds <= 0 || d.DropRadius <= 0 {
			return fmt.Errorf("crops.json: %s: times and radius must be positive", d.Crop)
		}
		out.Defs[d.Crop] = d
	}
	return nil
}
