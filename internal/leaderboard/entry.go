package leaderboard

import "time"

// NoReaction is the fastestReaction of an entry that has never recorded a
// legitimate reaction.
const NoReaction int64 = 99999

type Entry struct {
	Username        string    `json:"username"`
	Wins            int       `json:"wins"`
	TotalGames      int       `json:"totalGames"`
	FastestReaction int64     `json:"fastestReaction"`
	LastPlayed      time.Time `json:"lastPlayed"`
	IsAI            bool      `json:"isAI,omitempty"`
}

func newEntry(username string) *Entry {
	return &Entry{
		Username:        username,
		FastestReaction: NoReaction,
	}
}

// document is the persisted layout: the whole collection in one value.
type document struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

const documentVersion = 1
