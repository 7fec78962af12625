package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/saxenaaman628/krathong-voting/internal/models"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

// Reasons RequestVote refuses or fails. Callers show err.Error() to the user.
var (
	ErrNotSignedIn  = errors.New("please sign in to vote")
	ErrVotingClosed = errors.New("voting is closed")
	ErrOwnTeam      = errors.New("you cannot vote for your own team")
	ErrAlreadyVoted = errors.New("you have already voted")
	ErrVotePending  = errors.New("a vote is already being sent")
	ErrTooSoon      = errors.New("please wait a moment before trying again")
	ErrEntryGone    = errors.New("this krathong no longer exists, the list has been refreshed")
	ErrSessionEnded = errors.New("signed out before the vote completed")
)

const (
	DefaultDebounce  = time.Second
	DefaultNoticeTTL = 3 * time.Second
)

// Ledger is what VoteState needs from the server.
type Ledger interface {
	Settings(ctx context.Context) (models.AppConfig, error)
	ListEntries(ctx context.Context) ([]models.Krathong, error)
	MyVote(ctx context.Context) (models.VoteRecord, error)
	CastVote(ctx context.Context, entryID string) (redishandler.Outcome, error)
}

// Snapshot is a copy of the mirrored state at one instant.
type Snapshot struct {
	SignedIn           bool
	VotingEnabled      bool
	VotedEntryID       string
	PendingVoteEntryID string
	ScoresByEntry      map[string]int64
	Notice             string
}

// VoteState mirrors the caller's vote and the entry scores so a UI can
// enable or disable vote buttons without asking the server every time. The
// server stays authoritative; every disagreement it reports is resolved by
// re-reading from it.
type VoteState struct {
	ledger    Ledger
	debounce  time.Duration
	noticeTTL time.Duration
	now       func() time.Time

	mu            sync.Mutex
	user          *models.User
	votingEnabled bool
	entries       map[string]models.Krathong
	votedEntryID  string
	scores        map[string]int64
	pendingID     string
	lastAttempt   time.Time
	notice        string
	noticeSeq     uint64

	// session changes whenever the signed-in user does; answers that belong
	// to an earlier session are dropped
	session uint64
}

type Option func(*VoteState)

func WithDebounce(d time.Duration) Option {
	return func(s *VoteState) { s.debounce = d }
}

func WithNoticeTTL(d time.Duration) Option {
	return func(s *VoteState) { s.noticeTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *VoteState) { s.now = now }
}

// NewVoteState starts empty with voting treated as closed; call Refresh
// before the first vote.
func NewVoteState(ledger Ledger, opts ...Option) *VoteState {
	s := &VoteState{
		ledger:    ledger,
		debounce:  DefaultDebounce,
		noticeTTL: DefaultNoticeTTL,
		now:       time.Now,
		entries:   make(map[string]models.Krathong),
		scores:    make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn switches to user. A different user starts with an empty vote
// mirror until the next Refresh.
func (s *VoteState) SignIn(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != user.ID {
		s.resetSessionLocked()
	}
	s.user = &user
}

// SignOut forgets everything tied to the previous user.
func (s *VoteState) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.resetSessionLocked()
}

func (s *VoteState) resetSessionLocked() {
	s.session++
	s.votedEntryID = ""
	s.pendingID = ""
	s.lastAttempt = time.Time{}
}

// Refresh reloads settings, the entry listing and, when signed in, the
// caller's vote.
func (s *VoteState) Refresh(ctx context.Context) error {
	cfg, err := s.ledger.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	entries, err := s.ledger.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("load krathongs: %w", err)
	}

	s.mu.Lock()
	s.votingEnabled = cfg.VotingEnabled
	s.entries = make(map[string]models.Krathong, len(entries))
	s.scores = make(map[string]int64, len(entries))
	for _, e := range entries {
		s.entries[e.ID] = e
		s.scores[e.ID] = e.Score
	}
	signedIn := s.user != nil
	session := s.session
	s.mu.Unlock()

	if !signedIn {
		return nil
	}
	return s.syncVote(ctx, session)
}

func (s *VoteState) syncVote(ctx context.Context, session uint64) error {
	record, err := s.ledger.MyVote(ctx)
	if err != nil {
		return fmt.Errorf("load vote: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != session {
		return ErrSessionEnded
	}
	s.votedEntryID = record.VotedEntryID
	return nil
}

// RequestVote votes for entryID unless the local mirror already knows the
// vote would be refused. At most one vote is in flight per VoteState.
func (s *VoteState) RequestVote(ctx context.Context, entryID string) error {
	s.mu.Lock()
	if err := s.admit(entryID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.pendingID = entryID
	s.lastAttempt = s.now()
	session := s.session
	s.mu.Unlock()

	outcome, err := s.ledger.CastVote(ctx, entryID)

	s.mu.Lock()
	if s.session != session {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.pendingID = ""
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("vote failed: %w", err)
	}
	switch outcome {
	case redishandler.Voted:
		s.votedEntryID = entryID
		s.scores[entryID] += models.VotePoints
		s.setNoticeLocked("Your vote has been recorded")
		s.mu.Unlock()
		return nil
	case redishandler.SystemDisabled:
		s.votingEnabled = false
		s.mu.Unlock()
		return ErrVotingClosed
	case redishandler.SelfVote:
		s.mu.Unlock()
		return ErrOwnTeam
	}
	s.mu.Unlock()

	switch outcome {
	case redishandler.AlreadyVoted:
		// the mirror drifted, the server knows better
		if err := s.syncVote(ctx, session); err != nil {
			return fmt.Errorf("%w: %v", ErrAlreadyVoted, err)
		}
		return ErrAlreadyVoted
	case redishandler.EntryNotFound:
		if err := s.Refresh(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrEntryGone, err)
		}
		return ErrEntryGone
	}
	return fmt.Errorf("vote failed: unexpected outcome %s", outcome)
}

// admit runs the local checks in order. Callers hold mu.
func (s *VoteState) admit(entryID string) error {
	switch {
	case s.user == nil:
		return ErrNotSignedIn
	case !s.votingEnabled:
		return ErrVotingClosed
	}
	if entry, ok := s.entries[entryID]; ok && entry.HasMember(s.user.Email) {
		return ErrOwnTeam
	}
	switch {
	case s.votedEntryID != "":
		return ErrAlreadyVoted
	case s.pendingID != "":
		return ErrVotePending
	case !s.lastAttempt.IsZero() && s.now().Sub(s.lastAttempt) < s.debounce:
		return ErrTooSoon
	}
	return nil
}

// setNoticeLocked shows msg until noticeTTL passes or a newer notice
// replaces it.
func (s *VoteState) setNoticeLocked(msg string) {
	s.notice = msg
	s.noticeSeq++
	seq := s.noticeSeq
	time.AfterFunc(s.noticeTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.noticeSeq == seq {
			s.notice = ""
		}
	})
}

func (s *VoteState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores := make(map[string]int64, len(s.scores))
	for id, score := range s.scores {
		scores[id] = score
	}
	return Snapshot{
		SignedIn:           s.user != nil,
		VotingEnabled:      s.votingEnabled,
		VotedEntryID:       s.votedEntryID,
		PendingVoteEntryID: s.pendingID,
		ScoresByEntry:      scores,
		Notice:             s.notice,
	}
}

// CanVote reports whether RequestVote would pass its local checks right now.
func (s *VoteState) CanVote(entryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admit(entryID) == nil
}
