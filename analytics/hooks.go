package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"hanzikit/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// ProgressMetrics aggregates learning activity, unlocks and level-ups.
type ProgressMetrics struct {
	mu sync.RWMutex

	dailyActiveUsers   map[string]map[core.UserID]struct{}
	weeklyActiveUsers  map[string]map[core.UserID]struct{}
	monthlyActiveUsers map[string]map[core.UserID]struct{}

	statUpdatesByKey map[core.StatKey]int64
	statTotalsByKey  map[core.StatKey]float64

	pointsAwardedByDay        map[string]int64
	achievementsUnlockedByDay map[string]int64
	achievementsByID          map[core.AchievementID]int64

	levelsReachedByDay map[string]int64
	levelDistribution  map[int]int64

	// rolling counters, reset every 24 hours
	realtime struct {
		statUpdates   int64
		unlocks       int64
		pointsAwarded int64
		levelsReached int64
		lastReset     time.Time
	}
	now func() time.Time
}

func NewProgressMetrics() *ProgressMetrics {
	m := &ProgressMetrics{
		dailyActiveUsers:          make(map[string]map[core.UserID]struct{}),
		weeklyActiveUsers:         make(map[string]map[core.UserID]struct{}),
		monthlyActiveUsers:        make(map[string]map[core.UserID]struct{}),
		statUpdatesByKey:          make(map[core.StatKey]int64),
		statTotalsByKey:           make(map[core.StatKey]float64),
		pointsAwardedByDay:        make(map[string]int64),
		achievementsUnlockedByDay: make(map[string]int64),
		achievementsByID:          make(map[core.AchievementID]int64),
		levelsReachedByDay:        make(map[string]int64),
		levelDistribution:         make(map[int]int64),
		now:                       time.Now,
	}
	m.realtime.lastReset = m.now()
	return m
}

func (m *ProgressMetrics) OnEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := dayKey(e.Time)
	m.trackUserEngagement(e.UserID, day, weekKey(e.Time), monthKey(e.Time))

	if m.now().Sub(m.realtime.lastReset) > 24*time.Hour {
		m.realtime.statUpdates = 0
		m.realtime.unlocks = 0
		m.realtime.pointsAwarded = 0
		m.realtime.levelsReached = 0
		m.realtime.lastReset = m.now()
	}

	switch e.Type {
	case core.EventStatUpdated:
		m.statUpdatesByKey[e.Stat]++
		m.statTotalsByKey[e.Stat] += e.Delta
		m.realtime.statUpdates++
	case core.EventAchievementUnlocked:
		m.achievementsUnlockedByDay[day]++
		m.achievementsByID[e.Achievement]++
		m.pointsAwardedByDay[day] += e.Points
		m.realtime.unlocks++
		m.realtime.pointsAwarded += e.Points
	case core.EventLevelUp:
		m.levelsReachedByDay[day]++
		m.levelDistribution[e.Level]++
		m.realtime.levelsReached++
	}
}

func (m *ProgressMetrics) trackUserEngagement(userID core.UserID, day, week, month string) {
	add := func(set map[string]map[core.UserID]struct{}, key string) {
		if set[key] == nil {
			set[key] = make(map[core.UserID]struct{})
		}
		set[key][userID] = struct{}{}
	}
	add(m.dailyActiveUsers, day)
	add(m.weeklyActiveUsers, week)
	add(m.monthlyActiveUsers, month)
}

// DailyActiveUsers returns the count of users seen on day (YYYY-MM-DD).
func (m *ProgressMetrics) DailyActiveUsers(day string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dailyActiveUsers[day])
}

// WeeklyActiveUsers returns the count of users seen in an ISO week (YYYY-Www).
func (m *ProgressMetrics) WeeklyActiveUsers(week string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.weeklyActiveUsers[week])
}

// MonthlyActiveUsers returns the count of users seen in month (YYYY-MM).
func (m *ProgressMetrics) MonthlyActiveUsers(month string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monthlyActiveUsers[month])
}

func (m *ProgressMetrics) PointsAwardedByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsAwardedByDay[day]
}

func (m *ProgressMetrics) UnlocksByAchievement(id core.AchievementID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.achievementsByID[id]
}

// AchievementCount pairs an achievement with how often it was unlocked.
type AchievementCount struct {
	ID    core.AchievementID `json:"id"`
	Count int64              `json:"count"`
}

// Snapshot is a point-in-time view for the metrics endpoint.
type Snapshot struct {
	Day             string                   `json:"day"`
	DailyActive     int                      `json:"daily_active_users"`
	WeeklyActive    int                      `json:"weekly_active_users"`
	MonthlyActive   int                      `json:"monthly_active_users"`
	StatUpdates     map[core.StatKey]int64   `json:"stat_updates"`
	StatTotals      map[core.StatKey]float64 `json:"stat_totals"`
	TopAchievements []AchievementCount       `json:"top_achievements"`
	Levels          map[int]int64            `json:"level_ups_by_level"`
	Last24h         map[string]int64         `json:"last_24h"`
}

// Snapshot reports today's engagement plus running totals. At most limit
// achievements are listed, most unlocked first.
func (m *ProgressMetrics) Snapshot(limit int) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	s := Snapshot{
		Day:           dayKey(now),
		DailyActive:   len(m.dailyActiveUsers[dayKey(now)]),
		WeeklyActive:  len(m.weeklyActiveUsers[weekKey(now)]),
		MonthlyActive: len(m.monthlyActiveUsers[monthKey(now)]),
		StatUpdates:   make(map[core.StatKey]int64, len(m.statUpdatesByKey)),
		StatTotals:    make(map[core.StatKey]float64, len(m.statTotalsByKey)),
		Levels:        make(map[int]int64, len(m.levelDistribution)),
		Last24h: map[string]int64{
			"stat_updates":   m.realtime.statUpdates,
			"unlocks":        m.realtime.unlocks,
			"points_awarded": m.realtime.pointsAwarded,
			"level_ups":      m.realtime.levelsReached,
		},
	}
	for k, v := range m.statUpdatesByKey {
		s.StatUpdates[k] = v
	}
	for k, v := range m.statTotalsByKey {
		s.StatTotals[k] = v
	}
	for k, v := range m.levelDistribution {
		s.Levels[k] = v
	}
	for id, n := range m.achievementsByID {
		s.TopAchievements = append(s.TopAchievements, AchievementCount{ID: id, Count: n})
	}
	sort.Slice(s.TopAchievements, func(i, j int) bool {
		a, b := s.TopAchievements[i], s.TopAchievements[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(s.TopAchievements) > limit {
		s.TopAchievements = s.TopAchievements[:limit]
	}
	return s
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(t time.Time) string { return t.UTC().Format("2006-01") }
