package redishandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

// Outcome is the result of a ledger operation that completed without a
// transport failure.
type Outcome int

const (
	Voted Outcome = iota + 1
	AlreadyVoted
	EntryNotFound
	SystemDisabled
	SelfVote
	Cancelled
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Voted:
		return "voted"
	case AlreadyVoted:
		return "already_voted"
	case EntryNotFound:
		return "entry_not_found"
	case SystemDisabled:
		return "system_disabled"
	case SelfVote:
		return "self_vote"
	case Cancelled:
		return "cancelled"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(code string) (Outcome, bool) {
	for o := Voted; o <= NotFound; o++ {
		if o.String() == code {
			return o, true
		}
	}
	return 0, false
}

// clampedIncr adds ARGV[2] to the score of ARGV[1] in KEYS[1], flooring the
// result at zero. Returns nil when the member does not exist.
var clampedIncr = redis.NewScript(`
local current = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not current then
	return false
end
local updated = tonumber(current) + tonumber(ARGV[2])
if updated < 0 then
	updated = 0
end
redis.call('ZADD', KEYS[1], updated, ARGV[1])
return updated
`)

// CheckVote reads the user's vote record. A user who never voted gets an
// empty record.
func (s *Store) CheckVote(ctx context.Context, userID string) (models.VoteRecord, error) {
	data, err := s.rdb.HGetAll(ctx, s.keys.vote(userID)).Result()
	if err != nil {
		return models.VoteRecord{}, fmt.Errorf("read vote of %s: %w", userID, err)
	}
	return decodeVote(userID, data), nil
}

// CastVote records voter's single vote for entryID and adds VotePoints to the
// entry. The vote record, the entry and the settings are watched, read in one
// round trip before anything is written, and the writes are applied in one
// MULTI/EXEC. Concurrent attempts for the same user serialize on the watched
// vote record: whichever commits first wins and the rest observe AlreadyVoted.
func (s *Store) CastVote(ctx context.Context, voter models.User, entryID string) (Outcome, error) {
	cfg, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	if !cfg.VotingEnabled {
		return SystemDisabled, nil
	}
	// may be stale; the transaction below re-checks
	current, err := s.rdb.HGet(ctx, s.keys.vote(voter.ID), "voted_entry_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read vote of %s: %w", voter.ID, err)
	}
	if current != "" {
		return AlreadyVoted, nil
	}

	voteKey := s.keys.vote(voter.ID)
	entryKey := s.keys.entry(entryID)
	var outcome Outcome
	err = s.atomically(ctx, "cast_vote", func(tx *redis.Tx) error {
		var voteCmd, entryCmd, settingsCmd *redis.MapStringStringCmd
		if _, err := tx.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			voteCmd = pipe.HGetAll(ctx, voteKey)
			entryCmd = pipe.HGetAll(ctx, entryKey)
			settingsCmd = pipe.HGetAll(ctx, s.keys.settings())
			return nil
		}); err != nil {
			return err
		}

		if voteCmd.Val()["voted_entry_id"] != "" {
			outcome = AlreadyVoted
			return nil
		}
		entry := entryCmd.Val()
		if len(entry) == 0 {
			outcome = EntryNotFound
			return nil
		}
		if !decodeSettings(settingsCmd.Val()).VotingEnabled {
			outcome = SystemDisabled
			return nil
		}
		member, err := isMember(entry["members"], voter.Email)
		if err != nil {
			return err
		}
		if member {
			outcome = SelfVote
			return nil
		}

		now := s.now().UTC().Format(time.RFC3339Nano)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, voteKey, "user_id", voter.ID, "voted_entry_id", entryID, "voted_at", now)
			pipe.HDel(ctx, voteKey, "cancelled_at")
			pipe.ZIncrBy(ctx, s.keys.scores(), models.VotePoints, entryID)
			pipe.HIncrBy(ctx, s.keys.votes(), entryID, 1)
			pipe.HSet(ctx, s.keys.lastVoted(), entryID, now)
			pipe.SAdd(ctx, s.keys.voters(), voter.ID)
			return nil
		})
		if err == nil {
			outcome = Voted
		}
		return err
	}, voteKey, entryKey, s.keys.settings())
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("user_id", voter.ID).Str("krathong_id", entryID).Stringer("outcome", outcome).Msg("vote processed")
	return outcome, nil
}

// CancelVote clears userID's vote for entryID and takes the points back. The
// record is kept so the user can vote again. Runs as one transaction so the
// score and the record never disagree.
func (s *Store) CancelVote(ctx context.Context, userID, entryID string) (Outcome, error) {
	voteKey := s.keys.vote(userID)
	var outcome Outcome
	err := s.atomically(ctx, "cancel_vote", func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, voteKey, "voted_entry_id").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current == "" || current != entryID {
			outcome = NotFound
			return nil
		}

		now := s.now().UTC().Format(time.RFC3339Nano)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, voteKey, "voted_entry_id")
			pipe.HSet(ctx, voteKey, "cancelled_at", now)
			clampedIncr.Eval(ctx, pipe, []string{s.keys.scores()}, entryID, -models.VotePoints)
			pipe.HIncrBy(ctx, s.keys.votes(), entryID, -1)
			return nil
		})
		// the script replies nil for an entry without a score
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		if err == nil {
			outcome = Cancelled
		}
		return err
	}, voteKey)
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("user_id", userID).Str("krathong_id", entryID).Stringer("outcome", outcome).Msg("vote cancellation processed")
	return outcome, nil
}

// AdjustScore adds delta to the entry's score, never going below zero, and
// returns the new score.
func (s *Store) AdjustScore(ctx context.Context, entryID string, delta int64) (int64, error) {
	score, err := clampedIncr.Run(ctx, s.rdb, []string{s.keys.scores()}, entryID, delta).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrEntryNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("adjust score of %s: %w", entryID, err)
	}
	s.log.Info().Str("krathong_id", entryID).Int64("delta", delta).Int64("score", score).Msg("score adjusted")
	return score, nil
}

func isMember(rawMembers, email string) (bool, error) {
	if rawMembers == "" {
		return false, nil
	}
	entry := models.Krathong{}
	if err := json.Unmarshal([]byte(rawMembers), &entry.Members); err != nil {
		return false, fmt.Errorf("decode members: %w", err)
	}
	return entry.HasMember(email), nil
}

func decodeVote(userID string, data map[string]string) models.VoteRecord {
	return models.VoteRecord{
		UserID:       userID,
		VotedEntryID: data["voted_entry_id"],
		VotedAt:      parseTime(data["voted_at"]),
		CancelledAt:  parseTime(data["cancelled_at"]),
	}
}
