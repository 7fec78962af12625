package redishandler

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/saxenaaman628/krathong-voting/internal/metrics"
	"github.com/saxenaaman628/krathong-voting/internal/models"
)

var (
	ErrEntryNotFound      = errors.New("krathong not found")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrAlreadyInTeam      = errors.New("member already belongs to a team")
	ErrInvalidEntry       = errors.New("invalid registration")
	ErrTooMuchContention  = errors.New("ledger transaction kept conflicting")
)

type Options struct {
	KeyPrefix      string
	MinTeamMembers int
	MaxRetries     uint64
	CacheSize      int
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Store is the ledger backed by Redis: entries, vote records and settings.
// Every mutation that touches more than one key runs as a WATCH/MULTI/EXEC
// unit and is retried when a watched key changes underneath it.
type Store struct {
	rdb        redis.UniversalClient
	keys       keys
	minMembers int
	maxRetries uint64
	log        zerolog.Logger
	now        func() time.Time

	// entry metadata never changes after registration
	meta *lru.Cache[string, models.Krathong]
}

func NewStore(rdb redis.UniversalClient, opts Options) (*Store, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "krathong"
	}
	if opts.MinTeamMembers <= 0 {
		opts.MinTeamMembers = 5
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 8
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cache, err := lru.New[string, models.Krathong](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("entry cache: %w", err)
	}
	return &Store{
		rdb:        rdb,
		keys:       keys{prefix: opts.KeyPrefix},
		minMembers: opts.MinTeamMembers,
		maxRetries: opts.MaxRetries,
		log:        opts.Logger,
		now:        opts.Now,
		meta:       cache,
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// atomically runs fn under WATCH on keys, retrying with exponential backoff
// while EXEC reports that a watched key was modified.
func (s *Store) atomically(ctx context.Context, op string, fn func(tx *redis.Tx) error, watched ...string) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(5*time.Millisecond))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.rdb.Watch(ctx, fn, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			metrics.LedgerConflicts.WithLabelValues(op).Inc()
			s.log.Debug().Str("op", op).Int("attempt", attempt).Msg("watched key changed, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%s: %w", op, ErrTooMuchContention)
	}
	return err
}

type keys struct {
	prefix string
}

func (k keys) entry(id string) string {
	return k.prefix + ":entry:" + id
}

func (k keys) vote(userID string) string {
	return k.prefix + ":vote:" + userID
}

func (k keys) member(email string) string {
	return k.prefix + ":member:" + models.NormalizeEmail(email)
}

func (k keys) scores() string {
	return k.prefix + ":scores"
}

func (k keys) votes() string {
	return k.prefix + ":votes"
}

func (k keys) lastVoted() string {
	return k.prefix + ":last_voted"
}

func (k keys) voters() string {
	return k.prefix + ":voters"
}

func (k keys) settings() string {
	return k.prefix + ":settings"
}
