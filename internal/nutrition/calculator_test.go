package nutrition

import (
	"math"
	"testing"
)

func TestCalculateBMR(t *testing.T) {
	t.Run("Male", func(t *testing.T) {
		// 88.362 + 13.397*80 + 4.799*180 - 5.677*30 = 1853.632
		got := CalculateBMR(80, 180, 30, GenderMale)
		if math.Abs(got-1853.632) > 0.001 {
			t.Errorf("Expected BMR 1853.632, got %f", got)
		}
	})

	t.Run("Female", func(t *testing.T) {
		got := CalculateBMR(60, 165, 25, GenderFemale)
		want := 447.593 + 9.247*60 + 3.098*165 - 4.330*25
		if math.Abs(got-want) > 0.001 {
			t.Errorf("Expected BMR %f, got %f", want, got)
		}
	})

	t.Run("UnknownGenderFallsBackToMaleRow", func(t *testing.T) {
		if CalculateBMR(80, 180, 30, Gender("other")) != CalculateBMR(80, 180, 30, GenderMale) {
			t.Error("Expected unknown gender to use the male coefficient row")
		}
	})
}

func TestCalculateTDEE(t *testing.T) {
	if got := CalculateTDEE(1853.632, 3); math.Abs(got-1853.632*1.55) > 0.001 {
		t.Errorf("Expected TDEE with 1.55 multiplier, got %f", got)
	}
	// Out-of-table frequency uses the default multiplier.
	if got := CalculateTDEE(1000, 12); math.Abs(got-1550) > 0.001 {
		t.Errorf("Expected default multiplier 1.55 for unmapped frequency, got %f", got)
	}
}

func TestCalculateTargetCalories(t *testing.T) {
	if got := CalculateTargetCalories(2774, PathLoseWeight); got != 2274 {
		t.Errorf("Expected 2274 for lose-weight, got %d", got)
	}
	if got := CalculateTargetCalories(2774, PathGainMuscle); got != 3074 {
		t.Errorf("Expected 3074 for gain-muscle, got %d", got)
	}
	if got := CalculateTargetCalories(2774, Path("unknown")); got != 2774 {
		t.Errorf("Expected unadjusted TDEE for unknown path, got %d", got)
	}
}

func TestCalculateMacros(t *testing.T) {
	t.Run("KetoDeterministic", func(t *testing.T) {
		first := CalculateMacros(2000, PathKeto)
		// keto split 25/5/70: 2000*0.25/4=125p, 2000*0.05/4=25c, 2000*0.70/9≈156f
		if first.Protein != 125 || first.Carbs != 25 || first.Fat != 156 {
			t.Errorf("Unexpected keto macros: %+v", first)
		}
		for i := 0; i < 10; i++ {
			if CalculateMacros(2000, PathKeto) != first {
				t.Fatal("Expected identical macros across repeated calls")
			}
		}
	})

	t.Run("UnknownPathUsesDefaultSplit", func(t *testing.T) {
		if CalculateMacros(2000, Path("nope")) != CalculateMacros(2000, PathHealthy) {
			t.Error("Expected default split for unknown path")
		}
	})
}

func TestCalculateIdealWeight(t *testing.T) {
	w := CalculateIdealWeight(180, GenderMale)
	if w.Min >= w.Ideal || w.Ideal >= w.Max {
		t.Errorf("Expected min < ideal < max, got %+v", w)
	}
	// 22.5 * 1.8^2 = 72.9
	if math.Abs(w.Ideal-72.9) > 0.05 {
		t.Errorf("Expected ideal weight 72.9, got %f", w.Ideal)
	}
}

func TestCalculateTargets(t *testing.T) {
	p := Profile{
		Age: 30, Gender: GenderMale, HeightCM: 180, WeightKG: 80,
		WorkoutFrequency: 3, Path: PathLoseWeight,
	}
	targets := CalculateTargets(p)
	if math.Abs(targets.BMR-1853.632) > 0.001 {
		t.Errorf("Unexpected BMR %f", targets.BMR)
	}
	if math.Abs(targets.TDEE-1853.632*1.55) > 0.001 {
		t.Errorf("Unexpected TDEE %f", targets.TDEE)
	}
	// round(2873.13) - 500
	if targets.TargetCalories != 2373 {
		t.Errorf("Unexpected target calories %d", targets.TargetCalories)
	}
	if targets.DailyMacros.Protein == 0 || targets.DailyMacros.Fat == 0 {
		t.Error("Expected non-zero macro targets")
	}
}
