package session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"

	"github.com/MrEthical07/goSentinel/internal"
)

const (
	defaultIdleTimeout = 600 * time.Second
	defaultTokenBytes  = 32
	defaultShards      = 16
)

// Config controls a [MemoryTable].
type Config struct {
	// IdleTimeout is the sliding expiry window. Default 600s.
	IdleTimeout time.Duration
	// TokenBytes is the token entropy in bytes. Default 32, minimum 16.
	TokenBytes int
	// Shards is the number of independently locked partitions. Default 16.
	Shards int
	// SweepInterval runs a background sweep of expired sessions. 0 disables it.
	SweepInterval time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Validate checks cfg after defaults are applied.
func (c Config) Validate() error {
	if c.IdleTimeout < 0 {
		return fmt.Errorf("session: idle timeout must be >= 0")
	}
	if c.TokenBytes != 0 && c.TokenBytes < internal.MinTokenBytes {
		return fmt.Errorf("session: token bytes must be >= %d", internal.MinTokenBytes)
	}
	if c.Shards < 0 {
		return fmt.Errorf("session: shards must be >= 0")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("session: sweep interval must be >= 0")
	}
	return nil
}

type entry struct {
	username   string
	token      string
	createdAt  time.Time
	lastActive time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// MemoryTable is a sharded, process-local [Table].
//
//	Performance: every operation takes one shard mutex; no global lock.
type MemoryTable struct {
	cfg    Config
	clock  clockwork.Clock
	shards []*shard
	count  atomic.Int64

	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewMemoryTable validates cfg, applies defaults and starts the sweeper when
// SweepInterval is positive.
func NewMemoryTable(cfg Config) (*MemoryTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.TokenBytes == 0 {
		cfg.TokenBytes = defaultTokenBytes
	}
	if cfg.Shards == 0 {
		cfg.Shards = defaultShards
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	t := &MemoryTable{
		cfg:    cfg,
		clock:  cfg.Clock,
		shards: make([]*shard, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := range t.shards {
		t.shards[i] = &shard{sessions: make(map[string]*entry)}
	}

	if cfg.SweepInterval > 0 {
		t.wg.Add(1)
		go t.sweepLoop(cfg.SweepInterval)
	}
	return t, nil
}

func (t *MemoryTable) shardFor(sessionID string) *shard {
	return t.shards[xxhash.Sum64String(sessionID)%uint64(len(t.shards))]
}

// Create mints a fresh identifier and token for username.
func (t *MemoryTable) Create(_ context.Context, username string) (Issued, error) {
	if t.closed.Load() {
		return Issued{}, ErrClosed
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	token, err := internal.NewToken(t.cfg.TokenBytes)
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrGenerate, err)
	}

	now := t.clock.Now()
	id := sid.String()
	s := t.shardFor(id)

	s.mu.Lock()
	s.sessions[id] = &entry{
		username:   username,
		token:      token,
		createdAt:  now,
		lastActive: now,
	}
	s.mu.Unlock()
	t.count.Add(1)

	return Issued{SessionID: id, Token: token, CreatedAt: now}, nil
}

// Validate checks the token and refreshes LastActive. Expired sessions and
// sessions presented with the wrong token are removed.
func (t *MemoryTable) Validate(_ context.Context, sessionID, token string) (Info, error) {
	if t.closed.Load() {
		return Info{}, ErrClosed
	}

	// IDs this table never could have issued skip the shard lock.
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return Info{}, ErrNotFound
	}

	s := t.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return Info{}, ErrNotFound
	}

	now := t.clock.Now()
	if now.Sub(e.lastActive) > t.cfg.IdleTimeout {
		t.removeLocked(s, sessionID)
		return Info{}, ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(e.token), []byte(token)) != 1 {
		t.removeLocked(s, sessionID)
		return Info{}, ErrTokenMismatch
	}

	e.lastActive = now
	return Info{
		SessionID:  sessionID,
		Username:   e.username,
		CreatedAt:  e.createdAt,
		LastActive: now,
	}, nil
}

// Invalidate removes the session. Removing an absent session is not an error.
func (t *MemoryTable) Invalidate(_ context.Context, sessionID string) (bool, error) {
	s := t.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	t.removeLocked(s, sessionID)
	return true, nil
}

func (t *MemoryTable) removeLocked(s *shard, sessionID string) {
	delete(s.sessions, sessionID)
	t.count.Add(-1)
}

// Len returns the number of sessions currently held, expired ones included
// until they are swept.
func (t *MemoryTable) Len() int {
	return int(t.count.Load())
}

// Sweep removes every session idle past the window and returns how many it
// removed.
func (t *MemoryTable) Sweep() int {
	now := t.clock.Now()
	removed := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for id, e := range s.sessions {
			if now.Sub(e.lastActive) > t.cfg.IdleTimeout {
				t.removeLocked(s, id)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (t *MemoryTable) sweepLoop(interval time.Duration) {
	defer t.wg.Done()

	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			t.Sweep()
		case <-t.done:
			return
		}
	}
}

// Close stops the sweeper. Create and Validate fail with ErrClosed afterwards.
func (t *MemoryTable) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		close(t.done)
		t.wg.Wait()
	})
	return nil
}
