package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConditionKind selects how a condition is tested against a statistic.
type ConditionKind int

const (
	// ConditionThreshold is met when a counter reaches Threshold.
	ConditionThreshold ConditionKind = iota
	// ConditionMembership is met when a set contains Element.
	ConditionMembership
)

func (k ConditionKind) String() string {
	if k == ConditionMembership {
		return "membership"
	}
	return "threshold"
}

func (k ConditionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ConditionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "threshold":
		*k = ConditionThreshold
	case "membership":
		*k = ConditionMembership
	default:
		return fmt.Errorf("unknown condition kind %q", string(b))
	}
	return nil
}

// Condition is the unlock rule attached to an achievement.
type Condition struct {
	Kind      ConditionKind `json:"kind"`
	Stat      StatKey       `json:"stat"`
	Threshold float64       `json:"threshold,omitempty"`
	Element   int64         `json:"element,omitempty"`
}

// AtLeast builds a threshold condition.
func AtLeast(stat StatKey, threshold float64) Condition {
	return Condition{Kind: ConditionThreshold, Stat: stat, Threshold: threshold}
}

// Includes builds a membership condition.
func Includes(stat StatKey, element int64) Condition {
	return Condition{Kind: ConditionMembership, Stat: stat, Element: element}
}

// StatKind is the statistic kind the condition expects.
func (c Condition) StatKind() StatKind {
	if c.Kind == ConditionMembership {
		return KindSet
	}
	return KindCounter
}

// Satisfied tests c against stats. Absent statistics count as zero or empty;
// a value of the wrong kind never satisfies.
func (c Condition) Satisfied(stats Stats) bool {
	v, ok := stats[c.Stat]
	switch c.Kind {
	case ConditionMembership:
		return ok && v.Has(c.Element)
	default:
		if !ok {
			return 0 >= c.Threshold
		}
		if v.Kind != KindCounter {
			return false
		}
		return v.Count >= c.Threshold
	}
}

// AchievementDefinition is one immutable catalog entry.
type AchievementDefinition struct {
	ID          AchievementID `json:"id"`
	Name        string        `json:"name"`
	NameEN      string        `json:"name_en"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Points      int64         `json:"points"`
	Condition   Condition     `json:"condition"`
}

// Catalog is a read-only registry of achievement definitions.
type Catalog struct {
	defs   []AchievementDefinition
	byID   map[AchievementID]int
	schema Schema
}

// NewCatalog validates defs against schema and builds a registry that
// enumerates them in the given order.
func NewCatalog(schema Schema, defs ...AchievementDefinition) (*Catalog, error) {
	c := &Catalog{
		defs:   make([]AchievementDefinition, 0, len(defs)),
		byID:   make(map[AchievementID]int, len(defs)),
		schema: make(Schema, len(schema)),
	}
	for k, v := range schema {
		c.schema[k] = v
	}
	var errs []string
	for _, d := range defs {
		if strings.TrimSpace(string(d.ID)) == "" {
			errs = append(errs, "achievement with empty id")
			continue
		}
		if _, dup := c.byID[d.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate achievement id %q", d.ID))
			continue
		}
		if d.Points <= 0 {
			errs = append(errs, fmt.Sprintf("%s: points must be positive", d.ID))
		}
		kind, ok := c.schema.Kind(d.Condition.Stat)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("%s: unknown statistic %q", d.ID, d.Condition.Stat))
		case kind != d.Condition.StatKind():
			errs = append(errs, fmt.Sprintf("%s: %s condition on %s statistic %q", d.ID, d.Condition.Kind, kind, d.Condition.Stat))
		}
		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	return c, nil
}

// Lookup returns the definition for id or ErrNotFound.
func (c *Catalog) Lookup(id AchievementID) (AchievementDefinition, error) {
	i, ok := c.byID[id]
	if !ok {
		return AchievementDefinition{}, fmt.Errorf("achievement %q: %w", id, ErrNotFound)
	}
	return c.defs[i], nil
}

// All returns every definition in catalog order.
func (c *Catalog) All() []AchievementDefinition {
	out := make([]AchievementDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len is the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// Schema returns a copy of the statistic schema the catalog was built against.
func (c *Catalog) Schema() Schema {
	out := make(Schema, len(c.schema))
	for k, v := range c.schema {
		out[k] = v
	}
	return out
}

// Recognized reports whether key is a tracked statistic.
func (c *Catalog) Recognized(key StatKey) bool {
	_, ok := c.schema[key]
	return ok
}

// Evaluate returns, in catalog order, the definitions rec satisfies but has not unlocked.
func (c *Catalog) Evaluate(rec Record) []AchievementDefinition {
	var out []AchievementDefinition
	for _, d := range c.defs {
		if rec.IsUnlocked(d.ID) {
			continue
		}
		if d.Condition.Satisfied(rec.Stats) {
			out = append(out, d)
		}
	}
	return out
}

// SumPoints totals the point values of the unlocked ids known to c.
func (c *Catalog) SumPoints(rec Record) int64 {
	var total int64
	for id := range rec.Unlocked {
		if i, ok := c.byID[id]; ok {
			total += c.defs[i].Points
		}
	}
	return total
}

// DefaultDefinitions is the built-in achievement table.
func DefaultDefinitions() []AchievementDefinition {
	return []AchievementDefinition{
		{ID: "first_steps", Name: "الخطوات الأولى", NameEN: "First Steps", Description: "أكمل أول درس", Icon: "👶", Points: 10, Condition: AtLeast(StatLessonsCompleted, 1)},
		{ID: "word_collector", Name: "جامع الكلمات", NameEN: "Word Collector", Description: "تعلم 50 كلمة جديدة", Icon: "📚", Points: 50, Condition: AtLeast(StatWordsLearned, 50)},
		{ID: "consistent_learner", Name: "المتعلم المثابر", NameEN: "Consistent Learner", Description: "سلسلة 7 أيام متتالية", Icon: "🔥", Points: 100, Condition: AtLeast(StatStreakDays, 7)},
		{ID: "month_warrior", Name: "محارب الشهر", NameEN: "Month Warrior", Description: "سلسلة 30 يوم متتالية", Icon: "⚡", Points: 500, Condition: AtLeast(StatStreakDays, 30)},
		{ID: "quiz_master", Name: "سيد الاختبارات", NameEN: "Quiz Master", Description: "احصل على 100% في 10 اختبارات", Icon: "🎯", Points: 200, Condition: AtLeast(StatPerfectQuizzes, 10)},
		{ID: "bookworm", Name: "دودة الكتب", NameEN: "Bookworm", Description: "اقرأ 50 قصة", Icon: "📖", Points: 150, Condition: AtLeast(StatStoriesRead, 50)},
		{ID: "hsk1_master", Name: "خبير HSK1", NameEN: "HSK1 Master", Description: "أكمل جميع دروس HSK1", Icon: "🥉", Points: 300, Condition: Includes(StatHSKLevelsCompleted, 1)},
		{ID: "hsk6_master", Name: "خبير HSK6", NameEN: "HSK6 Master", Description: "أكمل جميع دروس HSK6", Icon: "🏆", Points: 2000, Condition: Includes(StatHSKLevelsCompleted, 6)},
		{ID: "dedicated_student", Name: "الطالب المجتهد", NameEN: "Dedicated Student", Description: "أمضِ 50 ساعة في التعلم", Icon: "⏰", Points: 400, Condition: AtLeast(StatStudyHours, 50)},
		{ID: "helpful_friend", Name: "الصديق المساعد", NameEN: "Helpful Friend", Description: "ساعد 10 متعلمين آخرين", Icon: "🤝", Points: 250, Condition: AtLeast(StatHelpedUsers, 10)},
		{ID: "early_bird", Name: "الطائر المبكر", NameEN: "Early Bird", Description: "تعلم قبل الساعة 7 صباحاً 10 مرات", Icon: "🌅", Points: 100, Condition: AtLeast(StatEarlySessions, 10)},
		{ID: "night_owl", Name: "بومة الليل", NameEN: "Night Owl", Description: "تعلم بعد الساعة 11 مساءً 10 مرات", Icon: "🦉", Points: 100, Condition: AtLeast(StatLateSessions, 10)},
	}
}

// DefaultCatalog builds the built-in catalog over DefaultSchema.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultSchema(), DefaultDefinitions()...)
	if err != nil {
		panic("core: built-in catalog is invalid: " + err.Error())
	}
	return c
}
