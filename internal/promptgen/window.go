package promptgen

import (
	"fmt"
	"time"

	"habeat-engine/internal/plan"
)

// Window is the set of calendar dates a generated plan must fill, together
// with the lookup tables the transformer needs to re-attach day names.
type Window struct {
	Dates             []time.Time
	DateKeys          []string
	DayNameByIndex    map[int]string
	IndexByDayName    map[string]int
	ActiveDayIndices  []int
	WorkoutDayIndices []int
}

// BuildWindow computes the active date set for a plan starting "today" and
// running to the end of the current calendar week.
//
// The requestedStart argument is accepted but deliberately ignored: plans are
// always anchored on the current local day, so a stale or client-supplied date
// can never produce a window in the past. Callers that expect their start date
// to be honored will be surprised; the behavior is pinned by tests.
//
// Rules: when today is Sunday the window is that single day. Otherwise it runs
// from today through Saturday plus the following Sunday, never wrapping into a
// second week. The result can never exceed 7 days; exceeding it indicates a
// construction bug and fails hard.
func BuildWindow(requestedStart, now time.Time, workoutFrequency int) (Window, error) {
	_ = requestedStart

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	currentDay := int(today.Weekday()) // 0=Sunday..6=Saturday

	var dates []time.Time
	if currentDay == 0 {
		dates = []time.Time{today}
	} else {
		d := today
		for int(d.Weekday()) != 0 {
			dates = append(dates, d)
			d = d.AddDate(0, 0, 1)
		}
		// the terminating Sunday
		dates = append(dates, d)
	}

	if len(dates) > 7 {
		return Window{}, fmt.Errorf("date window has %d days, maximum is 7", len(dates))
	}

	w := Window{
		Dates:          dates,
		DateKeys:       make([]string, len(dates)),
		DayNameByIndex: make(map[int]string, len(dates)),
		IndexByDayName: make(map[string]int, len(dates)),
	}
	for i, d := range dates {
		w.DateKeys[i] = d.Format(plan.DateKey)
		name := d.Weekday().String()
		w.DayNameByIndex[i] = name
		w.IndexByDayName[name] = i
		w.ActiveDayIndices = append(w.ActiveDayIndices, i)
	}
	w.WorkoutDayIndices = distributeWorkouts(len(dates), workoutFrequency)
	return w, nil
}

// distributeWorkouts spreads min(frequency, activeDays) workout slots evenly
// across the active days using floor(i*activeDays/workouts) spacing so slots
// never cluster at one end of the week.
func distributeWorkouts(activeDays, frequency int) []int {
	workouts := frequency
	if workouts > activeDays {
		workouts = activeDays
	}
	if workouts <= 0 {
		return nil
	}
	indices := make([]int, 0, workouts)
	for i := 0; i < workouts; i++ {
		indices = append(indices, i*activeDays/workouts)
	}
	return indices
}

// DateFor returns the date key for a day name, using the window's tables.
func (w Window) DateFor(dayName string) (string, bool) {
	idx, ok := w.IndexByDayName[dayName]
	if !ok {
		return "", false
	}
	return w.DateKeys[idx], true
}
