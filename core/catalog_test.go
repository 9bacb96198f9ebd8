package core

import (
	"errors"
	"testing"
)

func TestDefaultCatalogOrderAndLookup(t *testing.T) {
	c := DefaultCatalog()
	all := c.All()
	if len(all) != 12 || all[0].ID != "first_steps" || all[len(all)-1].ID != "night_owl" {
		t.Fatalf("unexpected catalog order: %v", all)
	}
	d, err := c.Lookup("bookworm")
	if err != nil || d.Points != 150 {
		t.Fatalf("lookup: %+v %v", d, err)
	}
	if _, err := c.Lookup("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewCatalogValidation(t *testing.T) {
	schema := DefaultSchema()
	cases := map[string][]AchievementDefinition{
		"duplicate": {
			{ID: "a", Points: 1, Condition: AtLeast(StatLessonsCompleted, 1)},
			{ID: "a", Points: 1, Condition: AtLeast(StatLessonsCompleted, 2)},
		},
		"unknown stat":   {{ID: "a", Points: 1, Condition: AtLeast("nope", 1)}},
		"kind mismatch":  {{ID: "a", Points: 1, Condition: Includes(StatLessonsCompleted, 1)}},
		"zero points":    {{ID: "a", Points: 0, Condition: AtLeast(StatLessonsCompleted, 1)}},
		"empty identity": {{ID: " ", Points: 1, Condition: AtLeast(StatLessonsCompleted, 1)}},
	}
	for name, defs := range cases {
		if _, err := NewCatalog(schema, defs...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestThresholdBoundary(t *testing.T) {
	c := DefaultCatalog()
	rec := NewRecord(1, c.Schema())
	if got := c.Evaluate(rec); len(got) != 0 {
		t.Fatalf("nothing should unlock at zero, got %v", got)
	}
	rec.Stats[StatWordsLearned] = Counter(49)
	if got := c.Evaluate(rec); len(got) != 0 {
		t.Fatalf("49 < 50 should stay locked, got %v", got)
	}
	rec.Stats[StatWordsLearned] = Counter(50)
	got := c.Evaluate(rec)
	if len(got) != 1 || got[0].ID != "word_collector" {
		t.Fatalf("expected word_collector, got %v", got)
	}
}

func TestMembershipCondition(t *testing.T) {
	c := DefaultCatalog()
	rec := NewRecord(1, c.Schema())
	rec.Stats[StatHSKLevelsCompleted] = SetOf(2, 6)
	got := c.Evaluate(rec)
	if len(got) != 1 || got[0].ID != "hsk6_master" {
		t.Fatalf("expected hsk6_master only, got %v", got)
	}
}

func TestEvaluateCatalogOrderAndSkipsUnlocked(t *testing.T) {
	c := DefaultCatalog()
	rec := NewRecord(1, c.Schema())
	rec.Stats[StatLateSessions] = Counter(10)
	rec.Stats[StatLessonsCompleted] = Counter(1)
	rec.Stats[StatStreakDays] = Counter(30)
	got := c.Evaluate(rec)
	want := []AchievementID{"first_steps", "consistent_learner", "month_warrior", "night_owl"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: want %s got %s", i, want[i], got[i].ID)
		}
	}
	rec.Unlock(got[0])
	if again := c.Evaluate(rec); len(again) != 3 {
		t.Fatalf("unlocked entries must be skipped, got %v", again)
	}
}

func TestThresholdIgnoresSetValues(t *testing.T) {
	cond := AtLeast(StatLessonsCompleted, 1)
	if cond.Satisfied(Stats{StatLessonsCompleted: SetOf(1, 2, 3)}) {
		t.Fatal("set value must never satisfy a threshold")
	}
	if cond.Satisfied(Stats{}) {
		t.Fatal("absent counter counts as zero")
	}
}

func TestSumPointsMatchesUnlocks(t *testing.T) {
	c := DefaultCatalog()
	rec := NewRecord(1, c.Schema())
	for _, d := range c.All()[:5] {
		rec.Unlock(d)
		rec.Unlock(d)
	}
	if c.SumPoints(rec) != rec.TotalPoints {
		t.Fatalf("sum %d != total %d", c.SumPoints(rec), rec.TotalPoints)
	}
}
