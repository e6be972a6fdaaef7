package recipes

import (
	"fmt"

	"github.com/seobando/agentkit/internal/util"
)

// Session state keys.
const (
	ChefNameKey     = "chef_name"
	TotalRecipesKey = "total_recipes"
	RecipesKey      = "recipes"
)

// DefaultChef is the chef name of a new collection.
const DefaultChef = "Alice"

// Recipe is one saved recipe.
type Recipe struct {
	Name         string `json:"name"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	CookTime     string `json:"cook_time"`
	DateAdded    string `json:"date_added"`
}

// State is the persisted recipe collection of one user.
type State struct {
	ChefName     string   `json:"chef_name"`
	TotalRecipes int      `json:"total_recipes"`
	Recipes      []Recipe `json:"recipes"`
}

// DefaultState returns an empty collection.
func DefaultState() State {
	return State{ChefName: DefaultChef, Recipes: []Recipe{}}
}

// Map converts s into session state values.
func (s State) Map() (map[string]any, error) {
	recipes, err := util.EncodeState(s.Recipes)
	if err != nil {
		return nil, fmt.Errorf("encode recipes: %w", err)
	}
	return map[string]any{
		ChefNameKey:     s.ChefName,
		TotalRecipesKey: len(s.Recipes),
		RecipesKey:      recipes,
	}, nil
}

// StateFromMap reads a collection back from session state. Missing keys take
// their defaults and the total always matches the recipe count.
func StateFromMap(m map[string]any) (State, error) {
	s := DefaultState()
	if name, ok := m[ChefNameKey].(string); ok && name != "" {
		s.ChefName = name
	}
	recipes, err := util.DecodeState[[]Recipe](m[RecipesKey])
	if err != nil {
		return State{}, fmt.Errorf("decode recipes: %w", err)
	}
	if recipes != nil {
		s.Recipes = recipes
	}
	s.TotalRecipes = len(s.Recipes)
	return s, nil
}
