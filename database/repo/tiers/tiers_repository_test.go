package tiers

import (
	"context"
	"testing"

	"github.com/anoixa/image-tiers/database/dbtest"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedResolutions(t *testing.T, repo *Repository, sizes ...[2]int) []*models.Resolution {
	t.Helper()
	out := make([]*models.Resolution, 0, len(sizes))
	for _, s := range sizes {
		r := &models.Resolution{Width: s[0], Height: s[1]}
		require.NoError(t, repo.CreateResolution(context.Background(), r))
		out = append(out, r)
	}
	return out
}

func TestSaveTierReplacesResolutions(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t).DB())
	res := seedResolutions(t, repo, [2]int{200, 200}, [2]int{400, 400}, [2]int{800, 600})

	tier := &models.TierPolicy{Name: "Premium", KeepOriginal: true}
	require.NoError(t, repo.SaveTier(ctx, tier, res[:2]))

	got, err := repo.GetTierByName(ctx, "Premium")
	require.NoError(t, err)
	assert.Len(t, got.Resolutions, 2)

	require.NoError(t, repo.SaveTier(ctx, got, res[2:]))
	got, err = repo.GetTierByID(ctx, tier.ID)
	require.NoError(t, err)
	require.Len(t, got.Resolutions, 1)
	assert.Equal(t, 800, got.Resolutions[0].Width)
}

func TestSaveTierRejectsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t).DB())

	err := repo.SaveTier(ctx, &models.TierPolicy{Name: "bad", CanGenerateLink: true}, nil)
	assert.ErrorIs(t, err, models.ErrPolicyInvariantViolation)

	_, err = repo.GetTierByName(ctx, "bad")
	assert.ErrorIs(t, err, ErrTierNotFound)
}

func TestResolutionsByIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t).DB())
	res := seedResolutions(t, repo, [2]int{100, 100}, [2]int{300, 200})

	got, err := repo.ResolutionsByIDs(ctx, []uint{res[1].ID, res[0].ID, res[0].ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = repo.ResolutionsByIDs(ctx, []uint{res[0].ID, 9999})
	assert.ErrorIs(t, err, ErrResolutionNotFound)

	got, err = repo.ResolutionsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteResolutionDetachesFromTiers(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t).DB())
	res := seedResolutions(t, repo, [2]int{200, 200}, [2]int{400, 400})

	tier := &models.TierPolicy{Name: "Basic"}
	require.NoError(t, repo.SaveTier(ctx, tier, res))

	require.NoError(t, repo.DeleteResolution(ctx, res[0].ID))
	assert.ErrorIs(t, repo.DeleteResolution(ctx, res[0].ID), ErrResolutionNotFound)

	got, err := repo.GetTierByID(ctx, tier.ID)
	require.NoError(t, err)
	require.Len(t, got.Resolutions, 1)
	assert.Equal(t, res[1].ID, got.Resolutions[0].ID)
}

func TestDeleteTier(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t).DB())
	res := seedResolutions(t, repo, [2]int{200, 200})

	tier := &models.TierPolicy{Name: "Temp"}
	require.NoError(t, repo.SaveTier(ctx, tier, res))
	require.NoError(t, repo.DeleteTier(ctx, tier.ID))

	_, err := repo.GetTierByID(ctx, tier.ID)
	assert.ErrorIs(t, err, ErrTierNotFound)

	// 分辨率目录本身保留
	list, err := repo.ListResolutions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
