package transform

import (
	"regexp"
	"strings"

	"habeat-engine/internal/plan"
)

var parentheticalRe = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

// ParseIngredient turns one raw ingredient entry into the canonical tuple.
// Accepted shapes, in order of preference:
//
//	"name|amount|unit|category"   delimited string, the prompt's contract
//	"Name (200 g)"                parenthetical free text
//	{"name": ..., "amount": ...}  already-structured object
//	"plain name"                  bare string, amount unknown
func ParseIngredient(raw any) (plan.Ingredient, bool) {
	switch v := raw.(type) {
	case string:
		return parseIngredientString(v)
	case map[string]any:
		name := normalizeIngredientName(getString(v, "name"))
		if name == "" {
			return plan.Ingredient{}, false
		}
		return plan.Ingredient{
			Name:     name,
			Amount:   strings.TrimSpace(asString(v["amount"])),
			Unit:     strings.TrimSpace(getString(v, "unit")),
			Category: strings.TrimSpace(getString(v, "category")),
		}, true
	}
	return plan.Ingredient{}, false
}

func parseIngredientString(s string) (plan.Ingredient, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return plan.Ingredient{}, false
	}

	if strings.Contains(s, "|") {
		parts := strings.Split(s, "|")
		ing := plan.Ingredient{Name: normalizeIngredientName(parts[0])}
		if len(parts) > 1 {
			ing.Amount = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			ing.Unit = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			ing.Category = strings.TrimSpace(parts[3])
		}
		if ing.Name == "" {
			return plan.Ingredient{}, false
		}
		return ing, true
	}

	if m := parentheticalRe.FindStringSubmatch(s); m != nil {
		ing := plan.Ingredient{Name: normalizeIngredientName(m[1])}
		fields := strings.Fields(m[2])
		if len(fields) > 0 {
			ing.Amount = fields[0]
		}
		if len(fields) > 1 {
			ing.Unit = strings.Join(fields[1:], " ")
		}
		if ing.Name == "" {
			return plan.Ingredient{}, false
		}
		return ing, true
	}

	return plan.Ingredient{Name: normalizeIngredientName(s)}, true
}

// normalizeIngredientName lowercases and underscore-joins an ingredient name
// so inventory matching is insensitive to the model's casing and spacing.
func normalizeIngredientName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	return name
}
