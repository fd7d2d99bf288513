// Package achievements manages the catalog of unlockable achievements
// and per-user unlocks.
package achievements

import (
	"context"

	"github.com/suenolabs/sueno-api/pkg/apperr"
	"github.com/suenolabs/sueno-api/pkg/supabase"
)

// Achievement is a catalog entry.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// Unlock records that a user earned an achievement.
type Unlock struct {
	ID            int64  `json:"id"`
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	UnlockedAt    string `json:"unlocked_at"`
}

// Service manages achievements in the remote store.
type Service struct {
	store *supabase.Client
}

// NewService creates the achievement service.
func NewService(store *supabase.Client) *Service {
	return &Service{store: store}
}

// ListForUser returns the user's unlocked achievements.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Unlock, error) {
	var rows []Unlock
	err := s.store.From("user_achievements").Select("*").Eq("user_id", userID).Do(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Unlock{}
	}
	return rows, nil
}

// UnlockForUser records an unlock. Unlocking an already-unlocked
// achievement is not an error; the existing unlock is returned with
// alreadyUnlocked set so the handler can phrase the response.
func (s *Service) UnlockForUser(ctx context.Context, userID, achievementID string) (Unlock, bool, error) {
	var existing []Unlock
	err := s.store.From("user_achievements").Select("*").
		Eq("user_id", userID).Eq("achievement_id", achievementID).
		Do(ctx, &existing)
	if err != nil {
		return Unlock{}, false, err
	}
	if len(existing) > 0 {
		return existing[0], true, nil
	}

	insert := map[string]interface{}{
		"user_id":        userID,
		"achievement_id": achievementID,
	}
	var created []Unlock
	if err := s.store.From("user_achievements").Insert(insert).Do(ctx, &created); err != nil {
		return Unlock{}, false, err
	}
	if len(created) == 0 {
		return Unlock{}, false, apperr.New(apperr.Upstream, "could not unlock achievement")
	}
	return created[0], false, nil
}

// ListAll returns the full achievement catalog.
func (s *Service) ListAll(ctx context.Context) ([]Achievement, error) {
	var rows []Achievement
	if err := s.store.From("achievements").Select("*").Do(ctx, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Achievement{}
	}
	return rows, nil
}
