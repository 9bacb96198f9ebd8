package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates domain events.
type EventType string

const (
	EventStatUpdated         EventType = "stat_updated"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventLevelUp             EventType = "level_up"
)

// Event represents an immutable domain event.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	UserID      UserID         `json:"user_id"`
	Stat        StatKey        `json:"stat,omitempty"`
	Delta       float64        `json:"delta,omitempty"`
	Achievement AchievementID  `json:"achievement,omitempty"`
	Points      int64          `json:"points,omitempty"`
	Total       int64          `json:"total,omitempty"`
	Level       int            `json:"level,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func newEvent(typ EventType, user UserID) Event {
	return Event{ID: uuid.NewString(), Type: typ, Time: time.Now().UTC(), UserID: user}
}

func NewStatUpdated(user UserID, stat StatKey, delta float64) Event {
	ev := newEvent(EventStatUpdated, user)
	ev.Stat, ev.Delta = stat, delta
	return ev
}

func NewAchievementUnlocked(user UserID, def AchievementDefinition, total int64) Event {
	ev := newEvent(EventAchievementUnlocked, user)
	ev.Achievement, ev.Points, ev.Total = def.ID, def.Points, total
	return ev
}

func NewLevelUp(user UserID, level int, total int64) Event {
	ev := newEvent(EventLevelUp, user)
	ev.Level, ev.Total = level, total
	return ev
}
