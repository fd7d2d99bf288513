// Package habits tracks daily habit completions and derives streak
// statistics from the completion history.
package habits

import (
	"context"
	"time"

	"github.com/suenolabs/sueno-api/pkg/apperr"
	"github.com/suenolabs/sueno-api/pkg/supabase"
)

const dateLayout = "2006-01-02"

// maxStreakLookback bounds the day-by-day streak walk.
const maxStreakLookback = 365

// Completion is one habit marked done on one day.
type Completion struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	HabitID     string `json:"habit_id"`
	Date        string `json:"date"`
	CompletedAt string `json:"completed_at"`
}

// Stats summarizes a user's habit activity.
type Stats struct {
	TotalHabitsCompleted int     `json:"total_habits_completed"`
	TodayHabitsCompleted int     `json:"today_habits_completed"`
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	AverageSleepHours    float64 `json:"average_sleep_hours"`
}

type statsRow struct {
	TotalHabitsCompleted int     `json:"total_habits_completed"`
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	AverageSleepHours    float64 `json:"average_sleep_hours"`
}

// Service manages habit completions in the remote store.
type Service struct {
	store *supabase.Client
	now   func() time.Time
}

// NewService creates the habit service.
func NewService(store *supabase.Client) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) today() string {
	return s.now().UTC().Format(dateLayout)
}

// Complete marks a habit done for today. Completing the same habit twice
// on one day is a conflict.
func (s *Service) Complete(ctx context.Context, userID, habitID string) (Completion, error) {
	today := s.today()

	var existing []Completion
	err := s.store.From("habits_history").Select("*").
		Eq("user_id", userID).Eq("habit_id", habitID).Eq("date", today).
		Do(ctx, &existing)
	if err != nil {
		return Completion{}, err
	}
	if len(existing) > 0 {
		return Completion{}, apperr.New(apperr.Conflict, "habit already completed today")
	}

	insert := map[string]interface{}{
		"user_id":      userID,
		"habit_id":     habitID,
		"date":         today,
		"completed_at": s.now().UTC().Format(time.RFC3339),
	}
	var created []Completion
	if err := s.store.From("habits_history").Insert(insert).Do(ctx, &created); err != nil {
		return Completion{}, err
	}
	if len(created) == 0 {
		return Completion{}, apperr.New(apperr.Upstream, "could not record habit")
	}
	return created[0], nil
}

// Today lists the habits completed today.
func (s *Service) Today(ctx context.Context, userID string) ([]Completion, error) {
	var rows []Completion
	err := s.store.From("habits_history").Select("*").
		Eq("user_id", userID).Eq("date", s.today()).
		Do(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Completion{}
	}
	return rows, nil
}

// Uncomplete removes today's completion of a habit.
func (s *Service) Uncomplete(ctx context.Context, userID, habitID string) error {
	today := s.today()

	var existing []Completion
	err := s.store.From("habits_history").Select("*").
		Eq("user_id", userID).Eq("habit_id", habitID).Eq("date", today).
		Do(ctx, &existing)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return apperr.New(apperr.NotFound, "habit not completed today")
	}

	return s.store.From("habits_history").Delete().
		Eq("id", existing[0].ID).
		Do(ctx, nil)
}

// GetStats returns the user's precomputed stats row when one exists, and
// otherwise derives the numbers from the raw completion history.
func (s *Service) GetStats(ctx context.Context, userID string) (Stats, error) {
	var precomputed []statsRow
	err := s.store.From("user_stats").Select("*").Eq("user_id", userID).Do(ctx, &precomputed)
	if err != nil {
		return Stats{}, err
	}
	if len(precomputed) > 0 {
		row := precomputed[0]
		return Stats{
			TotalHabitsCompleted: row.TotalHabitsCompleted,
			CurrentStreak:        row.CurrentStreak,
			LongestStreak:        row.LongestStreak,
			AverageSleepHours:    row.AverageSleepHours,
		}, nil
	}

	return s.computeStats(ctx, userID)
}

func (s *Service) computeStats(ctx context.Context, userID string) (Stats, error) {
	var all []Completion
	if err := s.store.From("habits_history").Select("*").Eq("user_id", userID).Do(ctx, &all); err != nil {
		return Stats{}, err
	}

	today := s.today()
	todayCount := 0
	completedDates := make(map[string]bool, len(all))
	for _, c := range all {
		completedDates[c.Date] = true
		if c.Date == today {
			todayCount++
		}
	}

	// Walk backwards from today counting consecutive days with at least
	// one completion.
	streak := 0
	day := s.now().UTC()
	for i := 0; i < maxStreakLookback; i++ {
		if !completedDates[day.Format(dateLayout)] {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}

	return Stats{
		TotalHabitsCompleted: len(all),
		TodayHabitsCompleted: todayCount,
		CurrentStreak:        streak,
	}, nil
}

// History returns completions from the last `days` days, newest first.
// days defaults to 7 when zero or negative.
func (s *Service) History(ctx context.Context, userID string, days int) ([]Completion, error) {
	if days <= 0 {
		days = 7
	}
	start := s.now().UTC().AddDate(0, 0, -days).Format(dateLayout)

	var rows []Completion
	err := s.store.From("habits_history").Select("*").
		Eq("user_id", userID).Gte("date", start).
		Order("date", true).
		Do(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Completion{}
	}
	return rows, nil
}
