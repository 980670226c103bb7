package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserTokenRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "usertokenrepo@example.com")

	makeToken := func(access, refresh string, ttl time.Duration) *types.UserToken {
		return &types.UserToken{
			ID:           uuid.New(),
			UserID:       u.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    time.Now().Add(ttl),
		}
	}

	created, err := repo.Create(dbc, []*types.UserToken{
		makeToken("a1", "r1", time.Hour),
		makeToken("a2", "r2", -time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("Create: expected 2 tokens, got %d", len(created))
	}

	byAccess, err := repo.GetByAccessTokens(dbc, []string{"a1"})
	if err != nil || len(byAccess) != 1 || byAccess[0].RefreshToken != "r1" {
		t.Fatalf("GetByAccessTokens: got=%+v err=%v", byAccess, err)
	}
	byRefresh, err := repo.GetByRefreshTokens(dbc, []string{"r2"})
	if err != nil || len(byRefresh) != 1 || byRefresh[0].AccessToken != "a2" {
		t.Fatalf("GetByRefreshTokens: got=%+v err=%v", byRefresh, err)
	}
	byUser, err := repo.GetByUserIDs(dbc, []uuid.UUID{u.ID})
	if err != nil || len(byUser) != 2 {
		t.Fatalf("GetByUserIDs: got=%d err=%v", len(byUser), err)
	}

	n, err := repo.FullDeleteExpired(dbc, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("FullDeleteExpired: n=%d err=%v", n, err)
	}

	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{created[0].ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	byUser, _ = repo.GetByUserIDs(dbc, []uuid.UUID{u.ID})
	if len(byUser) != 0 {
		t.Fatalf("expected no tokens left, got %d", len(byUser))
	}

	if _, err := repo.Create(dbc, []*types.UserToken{makeToken("a3", "r3", time.Hour)}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.FullDeleteByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil {
		t.Fatalf("FullDeleteByUserIDs: %v", err)
	}
	byUser, _ = repo.GetByUserIDs(dbc, []uuid.UUID{u.ID})
	if len(byUser) != 0 {
		t.Fatalf("FullDeleteByUserIDs: tokens left: %d", len(byUser))
	}
}
