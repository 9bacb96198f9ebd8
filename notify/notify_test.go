package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanzikit/core"
	"hanzikit/leaderboard"
)

func TestUnlock(t *testing.T) {
	def, err := core.DefaultCatalog().Lookup("first_steps")
	require.NoError(t, err)
	msg := Unlock(def)
	assert.Contains(t, msg, "🎉 **إنجاز جديد مفتوح!**")
	assert.Contains(t, msg, "👶 **الخطوات الأولى**")
	assert.Contains(t, msg, "First Steps")
	assert.Contains(t, msg, "💎 +10 نقطة")
	assert.Len(t, Unlocks([]core.AchievementDefinition{def, def}), 2)
}

func TestProgressBar(t *testing.T) {
	cases := map[float64]string{
		0:   "░░░░░░░░░░",
		35:  "███░░░░░░░",
		100: "██████████",
		150: "██████████",
		-5:  "░░░░░░░░░░",
	}
	for in, want := range cases {
		assert.Equal(t, want, ProgressBar(in), "percent %v", in)
	}
}

func TestSummary(t *testing.T) {
	rec := core.NewRecord(1, core.DefaultSchema())
	rec.Stats[core.StatLessonsCompleted] = core.Counter(3)
	rec.Stats[core.StatStudyHours] = core.Counter(2.5)
	rec.TotalPoints = 1250
	rec.Unlocked["first_steps"] = struct{}{}
	lvl := core.ComputeLevel(rec.TotalPoints, core.DefaultTiers())

	s := Summary(rec, lvl, 12)
	assert.Contains(t, s, "⭐ خبير (المستوى 4)")
	assert.Contains(t, s, "💎 النقاط: 1,250")
	assert.Contains(t, s, "🎯 التقدم للمستوى التالي: 25.0%")
	assert.Contains(t, s, "🏅 الإنجازات: 1/12")
	assert.Contains(t, s, "• دروس مكتملة: 3\n")
	assert.Contains(t, s, "• ساعات الدراسة: 2.5\n")
}

func TestScreenLimits(t *testing.T) {
	cat := core.DefaultCatalog()
	all := cat.All()
	rec := core.NewRecord(1, core.DefaultSchema())
	for _, d := range all[:7] {
		rec.Unlock(d)
	}
	lvl := core.ComputeLevel(rec.TotalPoints, core.DefaultTiers())
	s := Screen(lvl, cat.Unlocked(rec), cat.Locked(rec))

	assert.Contains(t, s, "✅ **الإنجازات المفتوحة** (7):")
	assert.Contains(t, s, "... و 2 إنجاز آخر")
	assert.Contains(t, s, "🔒 **الإنجازات المقفلة** (5):")
	assert.NotContains(t, s, all[5].Name+"**")
	locked := strings.Split(s[strings.Index(s, "🔒"):], "\n")
	// header plus three entries, blank line, hint
	assert.Len(t, locked, 6)
}

func TestScreenMembershipPercent(t *testing.T) {
	cat := core.DefaultCatalog()
	rec := core.NewRecord(1, core.DefaultSchema())
	rec.Stats[core.StatHSKLevelsCompleted] = core.SetOf(1)
	lvl := core.ComputeLevel(0, core.DefaultTiers())
	s := Screen(lvl, nil, cat.Locked(rec))
	assert.Contains(t, s, "🥉 خبير HSK1 - 0%")
}

func TestDetails(t *testing.T) {
	cat := core.DefaultCatalog()
	rec := core.NewRecord(1, core.DefaultSchema())
	rec.Stats[core.StatWordsLearned] = core.Counter(25)
	s := Details("SUMMARY", cat.Unlocked(rec), cat.Locked(rec))
	assert.True(t, strings.HasPrefix(s, "SUMMARY"))
	assert.NotContains(t, s, "🌟")
	assert.Contains(t, s, "📚 جامع الكلمات (25/50)\n`█████░░░░░` 50%")
	assert.Contains(t, s, "🏆 خبير HSK6 ([]/6)")
}

func TestLeaderboard(t *testing.T) {
	assert.Contains(t, Leaderboard(nil, nil), "لا توجد بيانات في لوحة الصدارة بعد.")

	b := leaderboard.NewSkipList()
	for i := 1; i <= 12; i++ {
		b.Update(core.UserID(i), int64(i*100))
	}
	names := func(u core.UserID) string {
		if u == 12 {
			return "wang"
		}
		return ""
	}
	s := Leaderboard(b.TopN(20), names)
	assert.Contains(t, s, "🥇 1. wang: **1,200 نقطة**")
	assert.Contains(t, s, "🥈 2. User 11: **1,100 نقطة**")
	assert.Contains(t, s, "4. User 9: 900 نقطة")
	assert.Contains(t, s, "10. User 3: 300 نقطة")
	assert.NotContains(t, s, "User 2:")
}
