// Package memory holds the per-session conversation state: a rolling window
// of recent turns plus the consecutive no-context failure streak. State is
// in-process and expires as a whole after a TTL of inactivity.
package memory

import (
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

const shardCount = 16

type Config struct {
	TTL        time.Duration
	MaxTurns   int
	RecentSpan int
}

func DefaultConfig() Config {
	return Config{
		TTL:        30 * time.Minute,
		MaxTurns:   10,
		RecentSpan: 3,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.TTL <= 0 {
		out.TTL = def.TTL
	}
	if out.MaxTurns <= 0 {
		out.MaxTurns = def.MaxTurns
	}
	if out.RecentSpan <= 0 {
		out.RecentSpan = def.RecentSpan
	}
	return out
}

type session struct {
	turns          []domain.Turn
	failureStreak  int
	lastActivityAt time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// Store is a sharded, mutex-guarded session map. Access within one session is
// serialized by its shard lock so overlapping requests cannot lose updates.
type Store struct {
	cfg    Config
	now    func() time.Time
	shards [shardCount]*shard
}

func NewStore(cfg Config) *Store {
	s := &Store{
		cfg: cfg.normalize(),
		now: time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*session)}
	}
	return s
}

func (s *Store) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%shardCount]
}

// getLocked returns the live session for the id, replacing it wholesale when
// expired. A read after expiry behaves as if the session never existed.
func (s *Store) getLocked(sh *shard, sessionID string) *session {
	sess, ok := sh.sessions[sessionID]
	if !ok || s.now().Sub(sess.lastActivityAt) > s.cfg.TTL {
		sess = &session{lastActivityAt: s.now()}
		sh.sessions[sessionID] = sess
	}
	return sess
}

// Recent returns up to n most recent turns for the session, oldest first.
func (s *Store) Recent(sessionID string, n int) []domain.Turn {
	if sessionID == "" {
		return nil
	}
	if n <= 0 {
		n = s.cfg.RecentSpan
	}

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := s.getLocked(sh, sessionID)
	if len(sess.turns) == 0 {
		return nil
	}
	start := len(sess.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.Turn, len(sess.turns)-start)
	copy(out, sess.turns[start:])
	return out
}

// Append adds a turn, trims to the bounded window and refreshes activity.
// Assistant turns flagged NoContext grow the failure streak; any grounded
// assistant turn resets it.
func (s *Store) Append(sessionID, role, text string, meta domain.TurnMetadata) {
	if sessionID == "" {
		return
	}

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := s.getLocked(sh, sessionID)
	sess.turns = append(sess.turns, domain.Turn{
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
		Metadata:  meta,
	})
	if overflow := len(sess.turns) - s.cfg.MaxTurns; overflow > 0 {
		sess.turns = append(sess.turns[:0], sess.turns[overflow:]...)
	}
	if role == domain.RoleAssistant {
		if meta.NoContext {
			sess.failureStreak++
		} else {
			sess.failureStreak = 0
		}
	}
	sess.lastActivityAt = s.now()
}

// ConsecutiveFailures returns the current no-context streak for the session.
func (s *Store) ConsecutiveFailures(sessionID string) int {
	if sessionID == "" {
		return 0
	}

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[sessionID]
	if !ok || s.now().Sub(sess.lastActivityAt) > s.cfg.TTL {
		return 0
	}
	return sess.failureStreak
}

// SweepExpired drops all sessions past the TTL and returns how many went.
func (s *Store) SweepExpired() int {
	cutoff := s.now().Add(-s.cfg.TTL)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.lastActivityAt.Before(cutoff) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		slog.Debug("conversation_sweep", "removed", removed)
	}
	return removed
}

// Len reports the number of live sessions, expired or not.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.sessions)
		sh.mu.Unlock()
	}
	return total
}
