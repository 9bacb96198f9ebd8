package core

import "context"

// Rule determines whether a trigger event should emit derived events.
type Rule interface {
	Evaluate(ctx context.Context, state Record, trigger Event) []Event
}

// LevelUpRule emits a level up when an unlock moves the user onto a higher tier.
type LevelUpRule struct{ Tiers []LevelTier }

func (r LevelUpRule) Evaluate(_ context.Context, state Record, trigger Event) []Event {
	if trigger.Type != EventAchievementUnlocked {
		return nil
	}
	before := ComputeLevel(trigger.Total-trigger.Points, r.Tiers)
	after := ComputeLevel(trigger.Total, r.Tiers)
	if after.Index > before.Index {
		return []Event{NewLevelUp(state.UserID, after.Index, trigger.Total)}
	}
	return nil
}
