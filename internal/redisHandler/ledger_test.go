package redishandler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

func TestVoteCancelRevote(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))
	alice := testUser("alice")

	outcome, err := s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, Voted, outcome)
	assert.EqualValues(t, 10, mustScore(t, s, a.ID))

	outcome, err = s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyVoted, outcome)
	assert.EqualValues(t, 10, mustScore(t, s, a.ID))

	outcome, err = s.CancelVote(ctx, alice.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome)
	assert.EqualValues(t, 0, mustScore(t, s, a.ID))

	record, err := s.CheckVote(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, record.HasVoted())
	assert.NotNil(t, record.CancelledAt)

	outcome, err = s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, Voted, outcome)
	assert.EqualValues(t, 10, mustScore(t, s, a.ID))

	entry, err := s.GetEntry(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, entry.Votes)
	require.NotNil(t, entry.LastVotedAt)
	assert.True(t, entry.LastVotedAt.Equal(fixedNow))
}

func TestCastVoteRejectsMembers(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	bob := testUser("bob")
	b := mustCreate(t, s, "b", bob)

	outcome, err := s.CastVote(ctx, bob, b.ID)
	require.NoError(t, err)
	assert.Equal(t, SelfVote, outcome)

	// case of the email must not matter
	member := models.User{ID: "uid-m", Email: "B-1@EXAMPLE.com"}
	outcome, err = s.CastVote(ctx, member, b.ID)
	require.NoError(t, err)
	assert.Equal(t, SelfVote, outcome)

	assert.EqualValues(t, 0, mustScore(t, s, b.ID))
	record, err := s.CheckVote(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, record.HasVoted())
}

func TestCastVoteUnknownEntryAndDisabled(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))
	alice := testUser("alice")

	outcome, err := s.CastVote(ctx, alice, "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, EntryNotFound, outcome)

	off := false
	_, err = s.UpdateSettings(ctx, models.SettingsPatch{VotingEnabled: &off}, "admin@example.com")
	require.NoError(t, err)

	outcome, err = s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, SystemDisabled, outcome)
	assert.EqualValues(t, 0, mustScore(t, s, a.ID))

	record, err := s.CheckVote(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, record.HasVoted())
}

func TestConcurrentVotesSameUser(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	owner := testUser("owner")
	entries := []models.Krathong{
		mustCreate(t, s, "a", owner),
		mustCreate(t, s, "b", testUser("other")),
	}
	alice := testUser("alice")

	const attempts = 16
	outcomes := make([]Outcome, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = s.CastVote(ctx, alice, entries[i%2].ID)
		}(i)
	}
	wg.Wait()

	voted := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		switch outcomes[i] {
		case Voted:
			voted++
		case AlreadyVoted:
		default:
			t.Fatalf("unexpected outcome %s", outcomes[i])
		}
	}
	assert.Equal(t, 1, voted)

	total := mustScore(t, s, entries[0].ID) + mustScore(t, s, entries[1].ID)
	assert.EqualValues(t, 10, total)
}

func TestConcurrentVotesSameEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))

	const voters = 20
	var wg sync.WaitGroup
	errs := make([]error, voters)
	outcomes := make([]Outcome, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = s.CastVote(ctx, testUser(fmt.Sprintf("voter%d", i)), a.ID)
		}(i)
	}
	wg.Wait()

	for i := range outcomes {
		require.NoError(t, errs[i])
		assert.Equal(t, Voted, outcomes[i])
	}
	entry, err := s.GetEntry(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, voters*models.VotePoints, entry.Score)
	assert.EqualValues(t, voters, entry.Votes)
}

func TestScoreMatchesVotesAndAdjustments(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))

	for _, name := range []string{"v1", "v2", "v3"} {
		outcome, err := s.CastVote(ctx, testUser(name), a.ID)
		require.NoError(t, err)
		require.Equal(t, Voted, outcome)
	}
	_, err := s.AdjustScore(ctx, a.ID, models.AdjustPoints)
	require.NoError(t, err)
	_, err = s.AdjustScore(ctx, a.ID, models.AdjustPoints)
	require.NoError(t, err)
	_, err = s.AdjustScore(ctx, a.ID, -models.AdjustPoints)
	require.NoError(t, err)
	outcome, err := s.CancelVote(ctx, testUser("v2").ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, Cancelled, outcome)

	entry, err := s.GetEntry(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, entry.Votes)
	assert.EqualValues(t, 10*entry.Votes+5, entry.Score)
}

func TestAdjustScoreFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))

	score, err := s.AdjustScore(ctx, a.ID, -models.AdjustPoints)
	require.NoError(t, err)
	assert.EqualValues(t, 0, score)

	score, err = s.AdjustScore(ctx, a.ID, models.AdjustPoints)
	require.NoError(t, err)
	assert.EqualValues(t, 5, score)

	_, err = s.AdjustScore(ctx, "missing", models.AdjustPoints)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestCancelVoteFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))
	alice := testUser("alice")

	_, err := s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)
	_, err = s.AdjustScore(ctx, a.ID, -models.AdjustPoints)
	require.NoError(t, err)

	outcome, err := s.CancelVote(ctx, alice.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome)
	assert.EqualValues(t, 0, mustScore(t, s, a.ID))
}

func TestCancelVoteRequiresMatchingEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))
	b := mustCreate(t, s, "b", testUser("other"))
	alice := testUser("alice")

	outcome, err := s.CancelVote(ctx, alice.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, NotFound, outcome)

	_, err = s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)

	outcome, err = s.CancelVote(ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, NotFound, outcome)
	assert.EqualValues(t, 10, mustScore(t, s, a.ID))
	assert.EqualValues(t, 0, mustScore(t, s, b.ID))
}

func TestCheckVoteIsStable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("owner"))
	alice := testUser("alice")

	empty, err := s.CheckVote(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoteRecord{UserID: alice.ID}, empty)

	_, err = s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)

	first, err := s.CheckVote(ctx, alice.ID)
	require.NoError(t, err)
	second, err := s.CheckVote(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, a.ID, first.VotedEntryID)
}

func TestParseOutcome(t *testing.T) {
	for o := Voted; o <= NotFound; o++ {
		parsed, ok := ParseOutcome(o.String())
		require.True(t, ok, o.String())
		assert.Equal(t, o, parsed)
	}
	_, ok := ParseOutcome("internal")
	assert.False(t, ok)
}

func TestCancelThenRevoteOtherEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a", testUser("oa"))
	b := mustCreate(t, s, "b", testUser("ob"))
	alice := testUser("alice")

	_, err := s.CastVote(ctx, alice, a.ID)
	require.NoError(t, err)
	outcome, err := s.CancelVote(ctx, alice.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, Cancelled, outcome)

	outcome, err = s.CastVote(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, Voted, outcome)

	entryA, err := s.GetEntry(ctx, a.ID)
	require.NoError(t, err)
	entryB, err := s.GetEntry(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, entryA.Score)
	assert.EqualValues(t, 0, entryA.Votes)
	assert.EqualValues(t, 10, entryB.Score)
	assert.EqualValues(t, 1, entryB.Votes)

	record, err := s.CheckVote(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, record.VotedEntryID)
}

// Cancelling while the same user votes again must leave the record and the
// scores agreeing, whichever side commits first.
func TestCancelRacesRevote(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		s, _ := newTestStore(t)
		a := mustCreate(t, s, "a", testUser("oa"))
		b := mustCreate(t, s, "b", testUser("ob"))
		alice := testUser("alice")
		_, err := s.CastVote(ctx, alice, a.ID)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var cancelOutcome, voteOutcome Outcome
		var cancelErr, voteErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancelOutcome, cancelErr = s.CancelVote(ctx, alice.ID, a.ID)
		}()
		go func() {
			defer wg.Done()
			voteOutcome, voteErr = s.CastVote(ctx, alice, b.ID)
		}()
		wg.Wait()
		require.NoError(t, cancelErr)
		require.NoError(t, voteErr)
		require.Equal(t, Cancelled, cancelOutcome)

		record, err := s.CheckVote(ctx, alice.ID)
		require.NoError(t, err)
		entryA, err := s.GetEntry(ctx, a.ID)
		require.NoError(t, err)
		entryB, err := s.GetEntry(ctx, b.ID)
		require.NoError(t, err)

		assert.EqualValues(t, 0, entryA.Score)
		assert.EqualValues(t, 0, entryA.Votes)
		switch voteOutcome {
		case Voted:
			assert.Equal(t, b.ID, record.VotedEntryID)
			assert.EqualValues(t, 10, entryB.Score)
			assert.EqualValues(t, 1, entryB.Votes)
		case AlreadyVoted:
			assert.False(t, record.HasVoted())
			assert.EqualValues(t, 0, entryB.Score)
			assert.EqualValues(t, 0, entryB.Votes)
		default:
			t.Fatalf("unexpected outcome %s", voteOutcome)
		}
	}
}
