package core

// LevelTier is one rank on the ascending points ladder.
type LevelTier struct {
	Threshold int64  `json:"threshold"`
	Name      string `json:"name"`
	NameEN    string `json:"name_en"`
	Icon      string `json:"icon"`
}

// DefaultTiers returns the built-in rank ladder. The first threshold is 0.
func DefaultTiers() []LevelTier {
	return []LevelTier{
		{Threshold: 0, Name: "مبتدئ", NameEN: "Beginner", Icon: "🌱"},
		{Threshold: 100, Name: "متعلم", NameEN: "Learner", Icon: "🌿"},
		{Threshold: 500, Name: "متقدم", NameEN: "Advanced", Icon: "🌳"},
		{Threshold: 1000, Name: "خبير", NameEN: "Expert", Icon: "⭐"},
		{Threshold: 2000, Name: "محترف", NameEN: "Professional", Icon: "💎"},
		{Threshold: 5000, Name: "أسطورة", NameEN: "Legend", Icon: "👑"},
	}
}

// Level describes where a point total sits on the tier ladder.
type Level struct {
	// Index is 1-based.
	Index  int    `json:"level"`
	Name   string `json:"name"`
	NameEN string `json:"name_en"`
	Icon   string `json:"icon"`
	Points int64  `json:"points"`
	// NextThreshold is nil at the top tier.
	NextThreshold *int64  `json:"next_level_points"`
	Progress      float64 `json:"progress"`
}

// ComputeLevel places points on tiers. tiers must be ascending by threshold.
// The highest tier whose threshold does not exceed points wins; when none does,
// the first tier is used with progress clamped at zero.
func ComputeLevel(points int64, tiers []LevelTier) Level {
	if len(tiers) == 0 {
		return Level{Index: 1, Points: points, Progress: 100}
	}
	idx := -1
	for i, t := range tiers {
		if t.Threshold <= points {
			idx = i
		}
	}
	fallback := idx < 0
	if fallback {
		idx = 0
	}
	cur := tiers[idx]
	lvl := Level{
		Index:  idx + 1,
		Name:   cur.Name,
		NameEN: cur.NameEN,
		Icon:   cur.Icon,
		Points: points,
	}
	if idx == len(tiers)-1 {
		lvl.Progress = 100
		return lvl
	}
	next := tiers[idx+1].Threshold
	lvl.NextThreshold = &next
	span := next - cur.Threshold
	if span <= 0 || fallback {
		return lvl
	}
	lvl.Progress = float64(points-cur.Threshold) / float64(span) * 100
	if lvl.Progress < 0 {
		lvl.Progress = 0
	}
	return lvl
}

// PointsToNext is how many points remain until the next tier, or 0 at the top.
func (l Level) PointsToNext() int64 {
	if l.NextThreshold == nil {
		return 0
	}
	return *l.NextThreshold - l.Points
}
