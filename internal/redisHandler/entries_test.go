package redishandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

func TestCreateEntryValidation(t *testing.T) {
	owner := testUser("owner")
	tests := []struct {
		name   string
		mutate func(*models.RegisterRequest)
	}{
		{"missing name", func(r *models.RegisterRequest) { r.Name = "  " }},
		{"missing image", func(r *models.RegisterRequest) { r.TeamImageURL = "" }},
		{"too few members", func(r *models.RegisterRequest) { r.Members = r.Members[:4] }},
		{"creator not listed", func(r *models.RegisterRequest) { r.Members[0].Email = "someone@example.com" }},
		{"duplicate email", func(r *models.RegisterRequest) { r.Members[2].Email = "OWNER@example.com" }},
		{"invalid email", func(r *models.RegisterRequest) { r.Members[3].Email = "not-an-email" }},
		{"blank member name", func(r *models.RegisterRequest) { r.Members[1].Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			req := team("a", owner)
			tt.mutate(&req)

			_, err := s.CreateEntry(context.Background(), owner, req)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
}

func TestCreateEntryPutsCreatorFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	owner := testUser("owner")
	req := team("a", owner)
	req.Members[0], req.Members[3] = req.Members[3], req.Members[0]
	req.Members[3].Email = "Owner@Example.com"

	entry, err := s.CreateEntry(ctx, owner, req)
	require.NoError(t, err)
	require.Len(t, entry.Members, 5)
	assert.Equal(t, "owner@example.com", entry.Members[0].Email)
	assert.Equal(t, owner.ID, entry.CreatedBy)
	assert.True(t, entry.CreatedAt.Equal(fixedNow))

	// a fresh store reads it back from redis rather than the cache
	fresh, err := NewStore(s.rdb, Options{KeyPrefix: "test"})
	require.NoError(t, err)
	stored, err := fresh.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Members, stored.Members)
	assert.Equal(t, entry.KrathongImageURL, stored.KrathongImageURL)
	assert.True(t, stored.CreatedAt.Equal(fixedNow))
	assert.EqualValues(t, 0, stored.Score)
}

func TestCreateEntryOneTeamPerMember(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	first := mustCreate(t, s, "a", testUser("owner"))

	other := testUser("other")
	req := team("b", other)
	req.Members[4].Email = first.Members[2].Email

	_, err := s.CreateEntry(ctx, other, req)
	assert.ErrorIs(t, err, ErrAlreadyInTeam)

	entries, err := s.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateEntryRegistrationClosed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	off := false
	_, err := s.UpdateSettings(ctx, models.SettingsPatch{RegistrationEnabled: &off}, "admin@example.com")
	require.NoError(t, err)

	_, err = s.CreateEntry(ctx, testUser("owner"), team("a", testUser("owner")))
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestListEntriesByScore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("oa"))
	b := mustCreate(t, s, "b", testUser("ob"))
	c := mustCreate(t, s, "c", testUser("oc"))

	_, err := s.CastVote(ctx, testUser("v1"), b.ID)
	require.NoError(t, err)
	_, err = s.CastVote(ctx, testUser("v2"), b.ID)
	require.NoError(t, err)
	_, err = s.AdjustScore(ctx, c.ID, models.AdjustPoints)
	require.NoError(t, err)

	entries, err := s.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.EqualValues(t, 20, entries[0].Score)
	assert.EqualValues(t, 2, entries[0].Votes)
	assert.Len(t, entries[2].Members, 5)
}

func TestFindEntryByMember(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))

	found, err := s.FindEntryByMember(ctx, "A-3@Example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	_, err = s.FindEntryByMember(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrEntryNotFound)
	_, err = s.FindEntryByMember(ctx, "")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSettingsDefaultsAndPatch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	cfg, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.RegistrationEnabled)
	assert.True(t, cfg.VotingEnabled)

	off := false
	cfg, err = s.UpdateSettings(ctx, models.SettingsPatch{VotingEnabled: &off}, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, cfg.RegistrationEnabled)
	assert.False(t, cfg.VotingEnabled)
	assert.Equal(t, "admin@example.com", cfg.UpdatedBy)
	assert.True(t, cfg.LastUpdated.Equal(fixedNow))
}

func TestStatsAndStatus(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("oa"))
	mustCreate(t, s, "b", testUser("ob"))

	for _, name := range []string{"v1", "v2", "v3"} {
		_, err := s.CastVote(ctx, testUser(name), a.ID)
		require.NoError(t, err)
	}
	_, err := s.AdjustScore(ctx, a.ID, models.AdjustPoints)
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.VotingStats{
		TotalVotes:   3,
		TotalTeams:   2,
		TotalScore:   35,
		AverageVotes: "1.5",
		AverageScore: "17.5",
	}, stats)

	status := s.Status(ctx)
	assert.Equal(t, models.StatusOnline, status.SystemStatus)
	assert.EqualValues(t, 3, status.TotalUsers)
	assert.Equal(t, stats, status.Stats)

	mr.Close()
	status = s.Status(ctx)
	assert.Equal(t, models.StatusOffline, status.SystemStatus)
}
