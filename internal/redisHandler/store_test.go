package redishandler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

var fixedNow = time.Date(2025, 11, 5, 19, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewStore(rdb, Options{
		KeyPrefix:      "test",
		MinTeamMembers: 5,
		MaxRetries:     20,
		Logger:         zerolog.Nop(),
		Now:            func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return store, mr
}

func testUser(name string) models.User {
	return models.User{ID: "uid-" + name, Email: name + "@example.com", DisplayName: name}
}

// team builds a registration with owner first followed by generated members.
func team(name string, owner models.User) models.RegisterRequest {
	members := []models.TeamMember{{Name: owner.DisplayName, Email: owner.Email}}
	for i := 1; len(members) < 5; i++ {
		members = append(members, models.TeamMember{
			Name:  fmt.Sprintf("%s member %d", name, i),
			Email: fmt.Sprintf("%s-%d@example.com", name, i),
		})
	}
	return models.RegisterRequest{
		Name:             name,
		KrathongImageURL: "https://img.example.com/" + name + "/krathong.png",
		TeamImageURL:     "https://img.example.com/" + name + "/team.png",
		Members:          members,
	}
}

func mustCreate(t *testing.T, s *Store, name string, owner models.User) models.Krathong {
	t.Helper()
	entry, err := s.CreateEntry(context.Background(), owner, team(name, owner))
	require.NoError(t, err)
	return entry
}

func mustScore(t *testing.T, s *Store, id string) int64 {
	t.Helper()
	entry, err := s.GetEntry(context.Background(), id)
	require.NoError(t, err)
	return entry.Score
}
