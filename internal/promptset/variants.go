package promptset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Expressions and Angles are the prompt pools substituted into bust-shot prompt sets.
var (
	Expressions = map[string][]string{
		"smile": {"a gentle smile with soft, happy eyes", "a bright, joyful smile showing teeth", "a subtle, warm smile"},
		"angry": {"a furious expression with narrowed eyes and a clenched jaw", "a stern, angry look with furrowed brows", "a look of intense anger with a downward-turned mouth"},
		"sad":   {"a melancholic expression with downturned lips and sad eyes", "a sorrowful look with tears welling up in the eyes", "a look of deep sadness and despair"},
	}
	Angles = map[string][]string{
		"front":               {"a straight-on bust shot, centered, looking directly at the camera"},
		"left_three_quarter":  {"a bust shot from a left three-quarter angle", "a bust shot from a complete left profile view", "a bust shot from a left rear three-quarter angle"},
		"right_three_quarter": {"a bust shot from a right three-quarter angle", "a bust shot from a complete right profile view", "a bust shot from a right rear three-quarter angle"},
	}
)

// Derive replaces the expression and camera_angle categories of base.
// The base set is not modified.
func Derive(base Set, expression, angle []string) Set {
	out := make(Set, 0, len(base))
	for _, c := range base {
		switch c.Category {
		case "expression":
			out = append(out, Category{Category: c.Category, Prompts: expression})
		case "camera_angle":
			out = append(out, Category{Category: c.Category, Prompts: angle})
		default:
			out = append(out, c)
		}
	}
	return out
}

// WriteVariants derives <character>/<expression>/<angle>_PromptSet.json for
// every expression and angle from <character>/bustShot/PromptSet.json and
// returns the written paths in order.
func WriteVariants(root, character string) ([]string, error) {
	base, err := Load(filepath.Join(root, character, "bustShot", DefaultFile))
	if err != nil {
		return nil, err
	}
	var written []string
	for _, exp := range sortedKeys(Expressions) {
		dir := filepath.Join(root, character, exp)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("promptset: ensure %s: %w", dir, err)
		}
		for _, angle := range sortedKeys(Angles) {
			raw, err := json.MarshalIndent(Derive(base, Expressions[exp], Angles[angle]), "", "  ")
			if err != nil {
				return written, fmt.Errorf("promptset: encode variant: %w", err)
			}
			path := filepath.Join(dir, angle+"_"+DefaultFile)
			if err := os.WriteFile(path, raw, 0o644); err != nil {
				return written, fmt.Errorf("promptset: write %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
