package redishandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

var validate = validator.New()

// CreateEntry registers a new krathong for creator. The registration flag and
// the "one team per member" rule are checked inside the same transaction
// that writes the entry, so two teams racing for the same member cannot both
// succeed.
func (s *Store) CreateEntry(ctx context.Context, creator models.User, req models.RegisterRequest) (models.Krathong, error) {
	entry, err := s.newEntry(creator, req)
	if err != nil {
		return models.Krathong{}, err
	}

	memberKeys := make([]string, len(entry.Members))
	for i, m := range entry.Members {
		memberKeys[i] = s.keys.member(m.Email)
	}
	members, err := json.Marshal(entry.Members)
	if err != nil {
		return models.Krathong{}, err
	}
	fields := map[string]interface{}{
		"id":                 entry.ID,
		"name":               entry.Name,
		"krathong_image_url": entry.KrathongImageURL,
		"team_image_url":     entry.TeamImageURL,
		"members":            string(members),
		"created_at":         entry.CreatedAt.Format(time.RFC3339Nano),
		"created_by":         entry.CreatedBy,
		"created_by_email":   entry.CreatedByEmail,
	}

	watched := append([]string{s.keys.settings()}, memberKeys...)
	err = s.atomically(ctx, "register", func(tx *redis.Tx) error {
		var settingsCmd *redis.MapStringStringCmd
		var takenCmd *redis.SliceCmd
		if _, err := tx.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			settingsCmd = pipe.HGetAll(ctx, s.keys.settings())
			takenCmd = pipe.MGet(ctx, memberKeys...)
			return nil
		}); err != nil {
			return err
		}

		if !decodeSettings(settingsCmd.Val()).RegistrationEnabled {
			return ErrRegistrationClosed
		}
		for i, v := range takenCmd.Val() {
			if v != nil {
				return fmt.Errorf("%w: %s", ErrAlreadyInTeam, entry.Members[i].Email)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.keys.entry(entry.ID), fields)
			pipe.ZAdd(ctx, s.keys.scores(), redis.Z{Score: 0, Member: entry.ID})
			pipe.HSet(ctx, s.keys.votes(), entry.ID, 0)
			for _, key := range memberKeys {
				pipe.Set(ctx, key, entry.ID, 0)
			}
			return nil
		})
		return err
	}, watched...)
	if err != nil {
		return models.Krathong{}, err
	}

	s.meta.Add(entry.ID, entry)
	s.log.Info().Str("krathong_id", entry.ID).Str("name", entry.Name).Int("members", len(entry.Members)).Msg("krathong registered")
	return entry, nil
}

func (s *Store) newEntry(creator models.User, req models.RegisterRequest) (models.Krathong, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Krathong{}, fmt.Errorf("%w: team name is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(req.KrathongImageURL) == "" || strings.TrimSpace(req.TeamImageURL) == "" {
		return models.Krathong{}, fmt.Errorf("%w: both images are required", ErrInvalidEntry)
	}
	members, err := s.normalizeMembers(creator, req.Members)
	if err != nil {
		return models.Krathong{}, err
	}
	return models.Krathong{
		ID:               uuid.New().String(),
		Name:             name,
		KrathongImageURL: strings.TrimSpace(req.KrathongImageURL),
		TeamImageURL:     strings.TrimSpace(req.TeamImageURL),
		Members:          members,
		CreatedAt:        s.now().UTC(),
		CreatedBy:        creator.ID,
		CreatedByEmail:   models.NormalizeEmail(creator.Email),
	}, nil
}

// normalizeMembers validates the member list and moves the creator to the
// front; the first member is the one that can never be removed.
func (s *Store) normalizeMembers(creator models.User, in []models.TeamMember) ([]models.TeamMember, error) {
	creatorEmail := models.NormalizeEmail(creator.Email)
	if creatorEmail == "" {
		return nil, fmt.Errorf("%w: creator has no email", ErrInvalidEntry)
	}
	if len(in) < s.minMembers {
		return nil, fmt.Errorf("%w: a team needs at least %d members", ErrInvalidEntry, s.minMembers)
	}

	seen := make(map[string]bool, len(in))
	out := make([]models.TeamMember, 0, len(in))
	creatorIdx := -1
	for _, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		m.Email = models.NormalizeEmail(m.Email)
		m.Department = strings.TrimSpace(m.Department)
		if m.Name == "" {
			return nil, fmt.Errorf("%w: every member needs a name", ErrInvalidEntry)
		}
		if err := validate.Var(m.Email, "required,email"); err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidEntry, m.Email)
		}
		if seen[m.Email] {
			return nil, fmt.Errorf("%w: %s is listed twice", ErrInvalidEntry, m.Email)
		}
		seen[m.Email] = true
		if m.Email == creatorEmail {
			creatorIdx = len(out)
		}
		out = append(out, m)
	}
	if creatorIdx < 0 {
		return nil, fmt.Errorf("%w: you must include yourself in the team members list", ErrInvalidEntry)
	}
	if creatorIdx > 0 {
		c := out[creatorIdx]
		copy(out[1:creatorIdx+1], out[:creatorIdx])
		out[0] = c
	}
	return out, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (models.Krathong, error) {
	entry, err := s.entryMeta(ctx, id)
	if err != nil {
		return models.Krathong{}, err
	}

	var scoreCmd *redis.FloatCmd
	var votesCmd, lastCmd *redis.StringCmd
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		scoreCmd = pipe.ZScore(ctx, s.keys.scores(), id)
		votesCmd = pipe.HGet(ctx, s.keys.votes(), id)
		lastCmd = pipe.HGet(ctx, s.keys.lastVoted(), id)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.Krathong{}, fmt.Errorf("read krathong %s: %w", id, err)
	}
	score, err := scoreCmd.Result()
	if errors.Is(err, redis.Nil) {
		return models.Krathong{}, ErrEntryNotFound
	}
	entry.Score = int64(score)
	entry.Votes, _ = votesCmd.Int64()
	entry.LastVotedAt = parseTime(lastCmd.Val())
	return entry, nil
}

// ListEntries returns every krathong, highest score first.
func (s *Store) ListEntries(ctx context.Context) ([]models.Krathong, error) {
	ranked, err := s.rdb.ZRevRangeWithScores(ctx, s.keys.scores(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	var votesCmd, lastCmd *redis.MapStringStringCmd
	missing := make(map[string]*redis.MapStringStringCmd)
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		votesCmd = pipe.HGetAll(ctx, s.keys.votes())
		lastCmd = pipe.HGetAll(ctx, s.keys.lastVoted())
		for _, z := range ranked {
			id := z.Member.(string)
			if _, ok := s.meta.Get(id); !ok {
				missing[id] = pipe.HGetAll(ctx, s.keys.entry(id))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list krathongs: %w", err)
	}

	votes := votesCmd.Val()
	last := lastCmd.Val()
	entries := make([]models.Krathong, 0, len(ranked))
	for _, z := range ranked {
		id := z.Member.(string)
		entry, ok := s.meta.Get(id)
		if !ok {
			data := missing[id].Val()
			if len(data) == 0 {
				s.log.Warn().Str("krathong_id", id).Msg("score without krathong, skipping")
				continue
			}
			if entry, err = decodeEntry(data); err != nil {
				s.log.Warn().Err(err).Str("krathong_id", id).Msg("undecodable krathong, skipping")
				continue
			}
			s.meta.Add(id, entry)
		}
		entry.Score = int64(z.Score)
		entry.Votes, _ = strconv.ParseInt(votes[id], 10, 64)
		entry.LastVotedAt = parseTime(last[id])
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// FindEntryByMember returns the krathong email is registered in.
func (s *Store) FindEntryByMember(ctx context.Context, email string) (models.Krathong, error) {
	if models.NormalizeEmail(email) == "" {
		return models.Krathong{}, ErrEntryNotFound
	}
	id, err := s.rdb.Get(ctx, s.keys.member(email)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Krathong{}, ErrEntryNotFound
	}
	if err != nil {
		return models.Krathong{}, fmt.Errorf("lookup member: %w", err)
	}
	return s.GetEntry(ctx, id)
}

func (s *Store) entryMeta(ctx context.Context, id string) (models.Krathong, error) {
	if entry, ok := s.meta.Get(id); ok {
		return entry, nil
	}
	data, err := s.rdb.HGetAll(ctx, s.keys.entry(id)).Result()
	if err != nil {
		return models.Krathong{}, fmt.Errorf("read krathong %s: %w", id, err)
	}
	if len(data) == 0 {
		return models.Krathong{}, ErrEntryNotFound
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return models.Krathong{}, err
	}
	s.meta.Add(id, entry)
	return entry, nil
}

// decodeEntry turns the entry hash into its immutable part; counters are
// filled in by the caller.
func decodeEntry(data map[string]string) (models.Krathong, error) {
	var entry models.Krathong
	if err := mapstructure.Decode(data, &entry); err != nil {
		return models.Krathong{}, fmt.Errorf("decode krathong: %w", err)
	}
	if raw := data["members"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Members); err != nil {
			return models.Krathong{}, fmt.Errorf("decode members of %s: %w", entry.ID, err)
		}
	}
	if t := parseTime(data["created_at"]); t != nil {
		entry.CreatedAt = *t
	}
	return entry, nil
}

func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}
