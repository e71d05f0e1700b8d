package repository

import (
	"content-storefront/internal/model"
	"content-storefront/internal/testutil"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateLink(t *testing.T, repo AccessLinkRepository, link *model.AccessLink) *model.AccessLink {
	t.Helper()
	if link.ID == "" {
		link.ID = "link-" + link.TokenFingerprint
	}
	link.Active = true
	require.NoError(t, repo.Create(context.Background(), link))
	return link
}

func TestAccessLinkFindByFingerprint(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessLinkRepository(testutil.NewTestDB(t))

	created := mustCreateLink(t, repo, &model.AccessLink{
		TokenFingerprint: "fp-1",
		Scope:            model.ScopeModel,
		LinkType:         model.LinkTypeAccess,
		ModelID:          testutil.StrPtr("model-1"),
	})

	got, err := repo.FindByFingerprint(ctx, nil, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, model.ScopeModel, got.Scope)
	assert.Equal(t, "model-1", *got.ModelID)
	assert.Nil(t, got.MaxUses)

	_, err = repo.FindByFingerprint(ctx, nil, "missing")
	assert.ErrorIs(t, err, model.ErrLinkNotFound)
}

func TestAccessLinkIncrementUses(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	repo := NewAccessLinkRepository(db)

	t.Run("stops at max uses", func(t *testing.T) {
		link := mustCreateLink(t, repo, &model.AccessLink{
			TokenFingerprint: "fp-capped",
			Scope:            model.ScopeGlobal,
			LinkType:         model.LinkTypeAccess,
			MaxUses:          testutil.IntPtr(2),
		})

		first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		ok, err := repo.IncrementUses(ctx, nil, link.ID, Validator{Name: testutil.StrPtr("Ana"), Email: testutil.StrPtr("ana@example.com")}, first)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IncrementUses(ctx, nil, link.ID, Validator{}, first.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IncrementUses(ctx, nil, link.ID, Validator{}, first.Add(2*time.Hour))
		require.NoError(t, err)
		assert.False(t, ok, "third use must be refused")

		got, err := repo.FindByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Uses)
		require.NotNil(t, got.FirstUsedAt)
		require.NotNil(t, got.LastUsedAt)
		assert.True(t, got.FirstUsedAt.Equal(first), "first_used_at is set once")
		assert.True(t, got.LastUsedAt.Equal(first.Add(time.Hour)))
		assert.Equal(t, "Ana", *got.LastValidatorName)
		assert.Equal(t, "ana@example.com", *got.LastValidatorEmail)
	})

	t.Run("unlimited link keeps counting", func(t *testing.T) {
		link := mustCreateLink(t, repo, &model.AccessLink{
			TokenFingerprint: "fp-unlimited",
			Scope:            model.ScopeGlobal,
			LinkType:         model.LinkTypeAccess,
		})
		for i := 0; i < 5; i++ {
			ok, err := repo.IncrementUses(ctx, nil, link.ID, Validator{}, time.Now().UTC())
			require.NoError(t, err)
			require.True(t, ok)
		}
		got, err := repo.FindByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Uses)
	})

	t.Run("inactive link is not incremented", func(t *testing.T) {
		link := mustCreateLink(t, repo, &model.AccessLink{
			TokenFingerprint: "fp-off",
			Scope:            model.ScopeGlobal,
			LinkType:         model.LinkTypeAccess,
		})
		require.NoError(t, repo.SetActive(ctx, link.ID, false))

		ok, err := repo.IncrementUses(ctx, nil, link.ID, Validator{}, time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAccessLinkSetActiveAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessLinkRepository(testutil.NewTestDB(t))

	a := mustCreateLink(t, repo, &model.AccessLink{TokenFingerprint: "fp-a", Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess})
	mustCreateLink(t, repo, &model.AccessLink{TokenFingerprint: "fp-b", Scope: model.ScopeModel, LinkType: model.LinkTypeAccess, ModelID: testutil.StrPtr("model-1")})

	require.NoError(t, repo.SetActive(ctx, a.ID, false))
	assert.ErrorIs(t, repo.SetActive(ctx, "nope", false), model.ErrLinkNotFound)

	all, err := repo.List(ctx, LinkFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.List(ctx, LinkFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fp-b", active[0].TokenFingerprint)

	byModel, err := repo.List(ctx, LinkFilter{ModelID: "model-1"})
	require.NoError(t, err)
	assert.Len(t, byModel, 1)
}
