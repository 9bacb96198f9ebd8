package core

// Baseline statistic keys.
const (
	StatLessonsCompleted   StatKey = "lessons_completed"
	StatWordsLearned       StatKey = "words_learned"
	StatStreakDays         StatKey = "streak_days"
	StatPerfectQuizzes     StatKey = "perfect_quizzes"
	StatStoriesRead        StatKey = "stories_read"
	StatStudyHours         StatKey = "study_hours"
	StatHelpedUsers        StatKey = "helped_users"
	StatEarlySessions      StatKey = "early_sessions"
	StatLateSessions       StatKey = "late_sessions"
	StatAdvisorUses        StatKey = "advisor_uses"
	StatPracticeQuizzes    StatKey = "practice_quizzes"
	StatMessagesSent       StatKey = "messages_sent"
	StatAIMessages         StatKey = "ai_messages"
	StatBotStarts          StatKey = "bot_starts"
	StatHSKLevelsCompleted StatKey = "hsk_levels_completed"
)

// Schema fixes the recognized statistic keys and their kinds.
type Schema map[StatKey]StatKind

// DefaultSchema returns the baseline statistics tracked for every user.
func DefaultSchema() Schema {
	return Schema{
		StatLessonsCompleted:   KindCounter,
		StatWordsLearned:       KindCounter,
		StatStreakDays:         KindCounter,
		StatPerfectQuizzes:     KindCounter,
		StatStoriesRead:        KindCounter,
		StatStudyHours:         KindCounter,
		StatHelpedUsers:        KindCounter,
		StatEarlySessions:      KindCounter,
		StatLateSessions:       KindCounter,
		StatAdvisorUses:        KindCounter,
		StatPracticeQuizzes:    KindCounter,
		StatMessagesSent:       KindCounter,
		StatAIMessages:         KindCounter,
		StatBotStarts:          KindCounter,
		StatHSKLevelsCompleted: KindSet,
	}
}

// Kind returns the kind registered for key.
func (s Schema) Kind(key StatKey) (StatKind, bool) {
	k, ok := s[key]
	return k, ok
}

// Normalize makes rec conform to s: missing keys get zero values and keys whose
// stored shape disagrees with the schema are reset. Keys outside the schema are
// left alone. It returns the keys that were reset.
func (s Schema) Normalize(rec *Record) []StatKey {
	if rec.Stats == nil {
		rec.Stats = make(Stats, len(s))
	}
	if rec.Unlocked == nil {
		rec.Unlocked = map[AchievementID]struct{}{}
	}
	var reset []StatKey
	for key, kind := range s {
		v, ok := rec.Stats[key]
		if !ok {
			rec.Stats[key] = Zero(kind)
			continue
		}
		if v.Kind != kind {
			rec.Stats[key] = Zero(kind)
			reset = append(reset, key)
		}
	}
	return reset
}
