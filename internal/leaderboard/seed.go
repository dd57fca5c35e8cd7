package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var seedNames = []string{
	"Dead-Eye Dan", "Calamity Kate", "Whiskey Pete", "Sagebrush Sal",
	"Tumbleweed Tom", "Rattlesnake Ruth", "Lonesome Luke", "Quickfire Quinn",
	"Black Hat Bart", "Dusty Jo", "Six-Gun Sam", "Prairie Rose",
	"Cactus Jack", "Silver Spur Sue", "Mesa Mike", "Coyote Carl",
	"Gunsmoke Gabe", "Pistol Patty", "Buckshot Bill", "Sundown Sadie",
	"Mustang Max", "Iron Annie", "Rawhide Ray", "Lucky Lou",
	"Boots McGraw", "Blaze Holloway",
}

// LoadAndSeed loads the stored document and then tops it up to n entries.
// When the backend cannot be read the store stays empty and nothing is
// written, so a failed read never replaces the stored document with seeds.
func (s *Store) LoadAndSeed(ctx context.Context, n int) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	return s.EnsureMinimumPopulation(ctx, n)
}

// EnsureMinimumPopulation adds seeded AI entries until the store holds at
// least n entries, then persists. It never touches existing entries.
func (s *Store) EnsureMinimumPopulation(ctx context.Context, n int) error {
	s.mu.Lock()
	missing := n - len(s.entries)
	if missing <= 0 {
		s.mu.Unlock()
		return nil
	}

	names := make([]string, len(seedNames))
	copy(names, seedNames)
	s.rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	now := s.clock.Now()
	added := 0
	for i := 0; added < missing; i++ {
		name := fmt.Sprintf("%s %d", names[i%len(names)], i/len(names)+1)
		if i < len(names) {
			name = names[i]
		}
		if _, exists := s.index[name]; exists {
			continue
		}
		s.appendSeedLocked(name, now)
		added++
	}
	s.mu.Unlock()

	log.Info().Int("added", added).Msg("seeded leaderboard")
	return s.Save(ctx)
}

func (s *Store) appendSeedLocked(name string, now time.Time) {
	total := 5 + s.rng.IntN(56)
	e := &Entry{
		Username:        name,
		TotalGames:      total,
		Wins:            s.rng.IntN(total),
		FastestReaction: int64(180 + s.rng.IntN(271)),
		LastPlayed:      now.Add(-time.Duration(s.rng.IntN(30*24)) * time.Hour),
		IsAI:            true,
	}
	s.entries = append(s.entries, e)
	s.index[name] = e
	s.rev++
}
