package recipes

import (
	"fmt"
	"strings"
	"time"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
	"github.com/seobando/agentkit/tool"
)

// DefaultCookTime is used when add_recipe gets no cook time.
const DefaultCookTime = "30 minutes"

var today = func() string { return time.Now().Format("2006-01-02") }

type addArgs struct {
	Name         string `json:"name" jsonschema:"the recipe name"`
	Ingredients  string `json:"ingredients" jsonschema:"the ingredients, free text"`
	Instructions string `json:"instructions" jsonschema:"the preparation steps"`
	CookTime     string `json:"cook_time,omitempty" jsonschema:"how long it takes, defaults to 30 minutes"`
}

type nameArgs struct {
	Name string `json:"name" jsonschema:"the recipe name, matched case-insensitively"`
}

type searchArgs struct {
	Ingredient string `json:"ingredient" jsonschema:"an ingredient to look for"`
}

type noArgs struct{}

// Tools returns the recipe tools. They read and write the recipes key of the
// session state.
func Tools() []tool.Tool {
	return []tool.Tool{
		tool.MustTyped("add_recipe", "Add a new recipe to your collection", addRecipe),
		tool.MustTyped("view_recipes", "View all saved recipes", viewRecipes),
		tool.MustTyped("get_recipe", "Get details of a specific recipe by name", getRecipe),
		tool.MustTyped("delete_recipe", "Delete a recipe by name", deleteRecipe),
		tool.MustTyped("search_recipes", "Search for recipes containing a specific ingredient", searchRecipes),
	}
}

func loadRecipes(tc *core.ToolContext) ([]Recipe, error) {
	v, _ := tc.GetState(RecipesKey)
	recipes, err := util.DecodeState[[]Recipe](v)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", RecipesKey, err)
	}
	return recipes, nil
}

func storeRecipes(tc *core.ToolContext, recipes []Recipe) error {
	if recipes == nil {
		recipes = []Recipe{}
	}
	v, err := util.EncodeState(recipes)
	if err != nil {
		return fmt.Errorf("write %s: %w", RecipesKey, err)
	}
	tc.SetState(RecipesKey, v)
	tc.SetState(TotalRecipesKey, len(recipes))
	return nil
}

func find(recipes []Recipe, name string) int {
	for i, r := range recipes {
		if strings.EqualFold(r.Name, name) {
			return i
		}
	}
	return -1
}

func addRecipe(tc *core.ToolContext, args addArgs) (any, error) {
	recipes, err := loadRecipes(tc)
	if err != nil {
		return nil, err
	}
	cookTime := args.CookTime
	if cookTime == "" {
		cookTime = DefaultCookTime
	}
	recipes = append(recipes, Recipe{
		Name:         args.Name,
		Ingredients:  args.Ingredients,
		Instructions: args.Instructions,
		CookTime:     cookTime,
		DateAdded:    today(),
	})
	if err := storeRecipes(tc, recipes); err != nil {
		return nil, err
	}
	return map[string]any{
		"action":  "add_recipe",
		"recipe":  args.Name,
		"message": "Added recipe: " + args.Name,
	}, nil
}

func viewRecipes(tc *core.ToolContext, _ noArgs) (any, error) {
	recipes, err := loadRecipes(tc)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, map[string]any{"name": r.Name, "cook_time": r.CookTime, "date_added": r.DateAdded})
	}
	return map[string]any{
		"action":  "view_recipes",
		"message": "Here are all your saved recipes",
		"recipes": out,
	}, nil
}

func getRecipe(tc *core.ToolContext, args nameArgs) (any, error) {
	recipes, err := loadRecipes(tc)
	if err != nil {
		return nil, err
	}
	i := find(recipes, args.Name)
	if i < 0 {
		return notFound("get_recipe", args.Name), nil
	}
	r := recipes[i]
	return map[string]any{
		"action":       "get_recipe",
		"recipe":       args.Name,
		"message":      "Found recipe: " + args.Name,
		"ingredients":  r.Ingredients,
		"instructions": r.Instructions,
		"cook_time":    r.CookTime,
		"date_added":   r.DateAdded,
	}, nil
}

func deleteRecipe(tc *core.ToolContext, args nameArgs) (any, error) {
	recipes, err := loadRecipes(tc)
	if err != nil {
		return nil, err
	}
	i := find(recipes, args.Name)
	if i < 0 {
		return notFound("delete_recipe", args.Name), nil
	}
	recipes = append(recipes[:i], recipes[i+1:]...)
	if err := storeRecipes(tc, recipes); err != nil {
		return nil, err
	}
	return map[string]any{
		"action":  "delete_recipe",
		"recipe":  args.Name,
		"message": "Deleted recipe: " + args.Name,
	}, nil
}

func searchRecipes(tc *core.ToolContext, args searchArgs) (any, error) {
	recipes, err := loadRecipes(tc)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(args.Ingredient)
	matches := []string{}
	for _, r := range recipes {
		if strings.Contains(strings.ToLower(r.Ingredients), needle) {
			matches = append(matches, r.Name)
		}
	}
	return map[string]any{
		"action":     "search_recipes",
		"ingredient": args.Ingredient,
		"found":      len(matches),
		"recipes":    matches,
	}, nil
}

func notFound(action, name string) map[string]any {
	return map[string]any{
		"action":  action,
		"recipe":  name,
		"message": fmt.Sprintf("Recipe '%s' not found", name),
	}
}
