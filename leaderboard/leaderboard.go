package leaderboard

import "hanzikit/core"

// Entry is one user's position on the board. Rank is 1-based and only set by
// TopN and Rank lookups.
type Entry struct {
	Rank  int         `json:"rank,omitempty"`
	User  core.UserID `json:"user_id"`
	Score int64       `json:"points"`
}

// Board ranks users by point total, highest first, ties by ascending user id.
type Board interface {
	Update(user core.UserID, score int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Len() int
}
