package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const DefaultLimit = 10

// Store is the process-wide leaderboard. Reads and mutations are guarded by
// mu. Saves hold the single slot in saving so two writers never interleave;
// rev counts mutations and saved is the rev last written.
type Store struct {
	mu      sync.Mutex
	entries []*Entry
	index   map[string]*Entry
	rev     uint64
	saved   uint64

	saving  chan struct{}
	backend Backend

	clock clockwork.Clock
	rng   *rand.Rand
}

type Option func(*Store)

func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithRand sets the source used for seeded entries.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		index:   make(map[string]*Entry),
		saving:  make(chan struct{}, 1),
		backend: backend,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Load replaces the in-memory collection with the stored document. A missing
// or unreadable document leaves the store empty; only backend I/O failures
// are returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.index = make(map[string]*Entry)
	s.saved = s.rev

	if err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	entries, err := decode(data)
	if err != nil {
		log.Warn().Err(err).Msg("leaderboard document is corrupt, starting empty")
		return nil
	}
	for _, e := range entries {
		if e.Username == "" {
			continue
		}
		if _, dup := s.index[e.Username]; dup {
			continue
		}
		entry := e
		s.entries = append(s.entries, &entry)
		s.index[entry.Username] = &entry
	}
	log.Info().Int("entries", len(s.entries)).Msg("leaderboard loaded")
	return nil
}

// decode accepts the versioned document and, for older files, a bare array.
func decode(data []byte) ([]Entry, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc.Entries, nil
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// FindOrCreate returns the entry for username, creating a zero-stat entry
// if none exists. The new entry is not persisted until the next Save.
func (s *Store) FindOrCreate(username string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.findOrCreateLocked(username)
	return *e
}

func (s *Store) findOrCreateLocked(username string) (*Entry, bool) {
	if e, ok := s.index[username]; ok {
		return e, false
	}
	e := newEntry(username)
	s.entries = append(s.entries, e)
	s.index[username] = e
	s.rev++
	return e, true
}

// Claim resolves the entry a joining player will play under. A seeded entry
// is taken over: its synthetic stats are discarded and it stops being AI.
// The bool reports whether the collection changed and should be saved.
func (s *Store) Claim(username string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, created := s.findOrCreateLocked(username)
	if created {
		e.LastPlayed = s.clock.Now()
	}
	if e.IsAI {
		e.IsAI = false
		e.Wins = 0
		e.TotalGames = 0
		e.FastestReaction = NoReaction
		e.LastPlayed = s.clock.Now()
		s.rev++
		return *e, true
	}
	return *e, created
}

// RecordResult applies one finished round to username's entry: one more
// game, one more win if won, and a lower fastestReaction if reaction is a
// legitimate improvement. The entry stops being AI.
func (s *Store) RecordResult(username string, won bool, reaction int64) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.findOrCreateLocked(username)
	e.TotalGames++
	if won {
		e.Wins++
	}
	if reaction >= 0 && reaction < e.FastestReaction {
		e.FastestReaction = reaction
	}
	e.IsAI = false
	e.LastPlayed = s.clock.Now()
	s.rev++
	return *e
}

func (s *Store) Get(username string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[username]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Save rewrites the whole collection through the backend. Waiting for a
// save already in flight is bounded by ctx. A caller whose changes were
// written by another save while it waited returns without writing again.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	want := s.rev
	s.mu.Unlock()

	select {
	case s.saving <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting to save leaderboard: %w", ctx.Err())
	}
	defer func() { <-s.saving }()

	s.mu.Lock()
	if s.saved >= want && want > 0 {
		s.mu.Unlock()
		return nil
	}
	rev := s.rev
	doc := document{Version: documentVersion, Entries: make([]Entry, len(s.entries))}
	for i, e := range s.entries {
		doc.Entries[i] = *e
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding leaderboard: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("saving leaderboard: %w", err)
	}

	s.mu.Lock()
	s.saved = rev
	s.mu.Unlock()
	return nil
}

// TopN returns up to limit entries. Genuine players rank ahead of seeded
// entries; within each group entries are ordered by wins descending, ties
// keeping insertion order.
func (s *Store) TopN(limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	list := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		list[i] = *e
	}
	s.mu.Unlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsAI != list[j].IsAI {
			return !list[i].IsAI
		}
		return list[i].Wins > list[j].Wins
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}
