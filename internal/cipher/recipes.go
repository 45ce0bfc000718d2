package cipher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRecipeNotFound is returned for operations on a recipe name that is not
// stored.
var ErrRecipeNotFound = errors.New("recipe not found")

// RecipeManager handles storage and retrieval of recipes
type RecipeManager struct {
	recipes   map[string]*Recipe
	storePath string
	mu        sync.RWMutex
	now       func() time.Time
}

// NewRecipeManager creates a new recipe manager. An empty storePath keeps
// recipes in memory only.
func NewRecipeManager(storePath string) *RecipeManager {
	return &RecipeManager{
		recipes:   make(map[string]*Recipe),
		storePath: storePath,
		now:       time.Now,
	}
}

// SaveRecipe validates and stores a recipe
func (rm *RecipeManager) SaveRecipe(recipe *Recipe) error {
	if recipe == nil {
		return fmt.Errorf("recipe cannot be nil")
	}
	if strings.TrimSpace(recipe.Name) == "" {
		return fmt.Errorf("recipe name cannot be empty")
	}
	if err := recipe.Pipeline.Validate(); err != nil {
		return fmt.Errorf("recipe %s: %w", recipe.Name, err)
	}
	if recipe.Pipeline.Reversible {
		if _, err := recipe.Pipeline.Reverse(); err != nil {
			return fmt.Errorf("recipe %s: %w", recipe.Name, err)
		}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.storePath != "" {
		if other := rm.fileOwner(recipe.Name); other != "" {
			return fmt.Errorf("recipe %s: file name %s.json is already used by recipe %s",
				recipe.Name, sanitizeFilename(recipe.Name), other)
		}
	}

	now := rm.now().UTC().Format(time.RFC3339)
	if existing, ok := rm.recipes[recipe.Name]; ok {
		if recipe.ID == "" {
			recipe.ID = existing.ID
		}
		if recipe.CreatedAt == "" {
			recipe.CreatedAt = existing.CreatedAt
		}
	}
	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	if recipe.CreatedAt == "" {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	rm.recipes[recipe.Name] = recipe

	// Persist to disk if store path is configured
	if rm.storePath != "" {
		return rm.persistRecipe(recipe)
	}

	return nil
}

// GetRecipe retrieves a recipe by name
func (rm *RecipeManager) GetRecipe(name string) (*Recipe, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipe, exists := rm.recipes[name]
	return recipe, exists
}

// ListRecipes returns all recipes sorted by name
func (rm *RecipeManager) ListRecipes() []*Recipe {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipes := make([]*Recipe, 0, len(rm.recipes))
	for _, recipe := range rm.recipes {
		recipes = append(recipes, recipe)
	}
	sortRecipes(recipes)

	return recipes
}

// DeleteRecipe removes a recipe
func (rm *RecipeManager) DeleteRecipe(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.recipes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	delete(rm.recipes, name)

	// A file shared with another loaded name stays with that recipe.
	if rm.storePath != "" && rm.fileOwner(name) == "" {
		if err := os.Remove(rm.recipePath(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete recipe file: %w", err)
		}
	}

	return nil
}

// RunRecipe executes the named recipe on input, or its reverse when
// reverse is set.
func (rm *RecipeManager) RunRecipe(ctx context.Context, name string, input []byte, reverse bool) ([]byte, error) {
	recipe, ok := rm.GetRecipe(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	pipeline := &recipe.Pipeline
	if reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", name, err)
		}
		pipeline = reversed
	}
	return pipeline.Execute(ctx, input)
}

// LoadRecipes loads all recipes from the store path
func (rm *RecipeManager) LoadRecipes() error {
	if rm.storePath == "" {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	entries, err := os.ReadDir(rm.storePath)
	if err != nil {
		return fmt.Errorf("failed to read recipes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(rm.storePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read recipe %s: %w", entry.Name(), err)
		}

		var recipe Recipe
		if err := json.Unmarshal(data, &recipe); err != nil {
			return fmt.Errorf("failed to parse recipe %s: %w", entry.Name(), err)
		}
		if recipe.ID == "" {
			recipe.ID = uuid.NewString()
		}

		rm.recipes[recipe.Name] = &recipe
	}

	return nil
}

// persistRecipe writes a single recipe to disk
func (rm *RecipeManager) persistRecipe(recipe *Recipe) error {
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize recipe: %w", err)
	}

	// recipes may carry passwords
	if err := os.WriteFile(rm.recipePath(recipe.Name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}

	return nil
}

func (rm *RecipeManager) recipePath(name string) string {
	return filepath.Join(rm.storePath, sanitizeFilename(name)+".json")
}

// fileOwner returns a stored recipe other than name whose file would be
// the same as name's, or "" when there is none.
func (rm *RecipeManager) fileOwner(name string) string {
	file := sanitizeFilename(name)
	for other := range rm.recipes {
		if other != name && sanitizeFilename(other) == file {
			return other
		}
	}
	return ""
}

// sanitizeFilename converts a recipe name to a safe filename
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "recipe"
	}
	return b.String()
}

// SearchRecipes finds recipes whose name, description or tags contain query,
// ignoring case
func (rm *RecipeManager) SearchRecipes(query string) []*Recipe {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	q := strings.ToLower(query)
	results := make([]*Recipe, 0)
	for _, recipe := range rm.recipes {
		if containsFold(recipe.Name, q) || containsFold(recipe.Description, q) {
			results = append(results, recipe)
			continue
		}

		for _, tag := range recipe.Tags {
			if containsFold(tag, q) {
				results = append(results, recipe)
				break
			}
		}
	}
	sortRecipes(results)

	return results
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}

func sortRecipes(recipes []*Recipe) {
	sort.Slice(recipes, func(i, j int) bool {
		return recipes[i].Name < recipes[j].Name
	})
}
