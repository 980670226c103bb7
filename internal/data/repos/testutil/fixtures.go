package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:              uuid.New(),
		Email:           email,
		Password:        "pw",
		FirstName:       "A",
		LastName:        "B",
		Role:            types.RoleParticipant,
		StimulusVersion: 1,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedProgress stores the registration-time state for userID, with mutate
// applied first when non-nil.
func SeedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, mutate func(*study.Progress)) *study.Progress {
	tb.Helper()
	p := study.NewProgress(userID)
	if mutate != nil {
		mutate(p)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}

func SeedResponse(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, phase study.Phase, activity study.ActivityType, day int) *study.Response {
	tb.Helper()
	r := &study.Response{
		UserID:      userID,
		Phase:       phase,
		Activity:    activity,
		TrainingDay: day,
		Payload:     []byte(`{"answer":"x"}`),
		SubmittedOn: clock.MustDate("2025-01-01"),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed response: %v", err)
	}
	return r
}
