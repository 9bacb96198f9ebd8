package core

import "sort"

// Progress toward a locked achievement. Threshold conditions report Percent;
// membership conditions report Reached.
type Progress struct {
	Kind    ConditionKind `json:"kind"`
	Percent float64       `json:"percent,omitempty"`
	Reached bool          `json:"reached,omitempty"`
}

// Rank orders progress values: percentages as-is, reached membership as 100,
// unreached membership as 0.
func (p Progress) Rank() float64 {
	if p.Kind == ConditionMembership {
		if p.Reached {
			return 100
		}
		return 0
	}
	return p.Percent
}

// Progress measures stats against c. A threshold of zero reports 0.
// Percentages are not capped: a counter already past its threshold that has
// not been evaluated yet reports more than 100.
func (c Condition) Progress(stats Stats) Progress {
	if c.Kind == ConditionMembership {
		return Progress{Kind: ConditionMembership, Reached: c.Satisfied(stats)}
	}
	p := Progress{Kind: ConditionThreshold}
	if c.Threshold == 0 {
		return p
	}
	v, ok := stats[c.Stat]
	if !ok || v.Kind != KindCounter {
		return p
	}
	p.Percent = v.Count / c.Threshold * 100
	return p
}

// LockedAchievement is a not-yet-unlocked definition with the user's progress.
type LockedAchievement struct {
	AchievementDefinition
	Progress Progress  `json:"progress"`
	Current  StatValue `json:"current"`
	Target   any       `json:"target"`
}

// Locked lists the definitions rec has not unlocked, ordered by descending
// progress rank. Ties keep catalog order.
func (c *Catalog) Locked(rec Record) []LockedAchievement {
	out := make([]LockedAchievement, 0, len(c.defs))
	for _, d := range c.defs {
		if rec.IsUnlocked(d.ID) {
			continue
		}
		cur, ok := rec.Stats[d.Condition.Stat]
		if !ok {
			cur = Zero(d.Condition.StatKind())
		}
		la := LockedAchievement{
			AchievementDefinition: d,
			Progress:              d.Condition.Progress(rec.Stats),
			Current:               cur.Clone(),
		}
		if d.Condition.Kind == ConditionMembership {
			la.Target = d.Condition.Element
		} else {
			la.Target = d.Condition.Threshold
		}
		out = append(out, la)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Progress.Rank() > out[j].Progress.Rank()
	})
	return out
}

// Unlocked maps rec's unlocked set to definitions in catalog order.
// Identifiers unknown to the catalog are skipped.
func (c *Catalog) Unlocked(rec Record) []AchievementDefinition {
	out := make([]AchievementDefinition, 0, len(rec.Unlocked))
	for _, d := range c.defs {
		if rec.IsUnlocked(d.ID) {
			out = append(out, d)
		}
	}
	return out
}
