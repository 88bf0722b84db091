package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"habeat-engine/internal/config"
	"habeat-engine/internal/database"
	"habeat-engine/internal/inventory"
	"habeat-engine/internal/llm"
	"habeat-engine/internal/metrics"
	"habeat-engine/internal/nutrition"
	"habeat-engine/internal/plan"
	"habeat-engine/internal/planner"
	"habeat-engine/internal/promptgen"
	"habeat-engine/internal/reuse"
	"habeat-engine/internal/transform"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metricsStore := metrics.NewStore(db.SQL)
	mealStore := inventory.NewStore(db.SQL)

	policy := llm.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	policy.BaseDelay = cfg.BaseDelay

	var backends []llm.Backend
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiBackend(ctx, cfg.GeminiAPIKey, policy, logger, metricsStore)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini backend: %v", err)
		}
		defer gemini.Close()
		backends = append(backends, gemini)
	}
	if cfg.LocalLLMURL != "" {
		backends = append(backends, llm.NewLocalBackend(cfg.LocalLLMURL, cfg.LocalLLMModel, policy, logger, metricsStore))
	}

	matcher := reuse.NewMatcher(mealStore, logger)
	transformer := transform.New(transform.DefaultWaterPolicy(), logger)
	engine := planner.NewPlanner(backends, matcher, mealStore, transformer, logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "plan":
		runPlan(ctx, cfg, engine)
	case "suggest":
		runSuggest(ctx, cfg, engine)
	case "metrics-usage":
		usageCmd := flag.NewFlagSet("metrics-usage", flag.ExitOnError)
		days := usageCmd.Int("days", 7, "Number of past days to report")
		usageCmd.Parse(os.Args[2:])

		usage, err := metricsStore.GetDailyUsage(ctx, *days)
		if err != nil {
			log.Fatalf("Usage query failed: %v", err)
		}
		printJSON(usage)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runPlan(ctx context.Context, cfg *config.Config, engine *planner.Planner) {
	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	age := planCmd.Int("age", 0, "Age in years")
	gender := planCmd.String("gender", "male", "Gender: male or female")
	height := planCmd.Float64("height", 0, "Height in cm")
	weight := planCmd.Float64("weight", 0, "Weight in kg")
	workouts := planCmd.Int("workouts", 0, "Workout sessions per week")
	path := planCmd.String("path", "healthy", "Nutrition path (lose-weight, gain-muscle, keto, fasting, running, healthy)")
	allergies := planCmd.String("allergies", "", "Comma-separated allergy list")
	preferences := planCmd.String("preferences", "", "Comma-separated preferred foods")
	dislikes := planCmd.String("dislikes", "", "Comma-separated disliked foods")
	language := planCmd.String("language", "en", "Plan language")
	mock := planCmd.Bool("mock", false, "Generate a canned plan without calling any backend")
	planCmd.Parse(os.Args[2:])

	profile := nutrition.Profile{
		Age:              *age,
		Gender:           nutrition.Gender(*gender),
		HeightCM:         *height,
		WeightKG:         *weight,
		WorkoutFrequency: *workouts,
		Path:             nutrition.Path(*path),
		Allergies:        splitList(*allergies),
		Preferences:      splitList(*preferences),
		Dislikes:         splitList(*dislikes),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.GenerationTimeout)
	defer cancel()

	result, err := engine.GenerateWeeklyPlan(timeoutCtx, profile, *language, *mock)
	if err != nil {
		log.Fatalf("Plan generation failed: %v", err)
	}
	printJSON(result)
}

func runSuggest(ctx context.Context, cfg *config.Config, engine *planner.Planner) {
	suggestCmd := flag.NewFlagSet("suggest", flag.ExitOnError)
	category := suggestCmd.String("category", "lunch", "Meal category: breakfast, lunch, dinner or snack")
	calories := suggestCmd.Int("calories", 0, "Target calories per meal")
	count := suggestCmd.Int("count", 3, "Number of suggestions")
	path := suggestCmd.String("path", "healthy", "Nutrition path")
	allergies := suggestCmd.String("allergies", "", "Comma-separated allergy list")
	exclude := suggestCmd.String("exclude", "", "Comma-separated meal names to avoid")
	language := suggestCmd.String("language", "en", "Suggestion language")
	suggestCmd.Parse(os.Args[2:])

	criteria := promptgen.SuggestionCriteria{
		Category:       plan.MealCategory(*category),
		TargetCalories: *calories,
		Count:          *count,
		Path:           nutrition.Path(*path),
		Allergies:      splitList(*allergies),
		Exclude:        splitList(*exclude),
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.SuggestionTimeout)
	defer cancel()

	meals, err := engine.GenerateMealSuggestions(timeoutCtx, criteria, *language)
	if err != nil {
		log.Fatalf("Suggestion generation failed: %v", err)
	}
	printJSON(meals)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printUsage() {
	fmt.Println("Usage: habeat-engine <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan               Generate a weekly meal and workout plan")
	fmt.Println("  suggest            Generate meal suggestions for one category")
	fmt.Println("  metrics-usage      Report token usage per day and model")
	fmt.Println("  metrics-cleanup    Remove old generation metric records")
}
