// Package notify renders progress as chat-ready text in the bot's Markdown
// dialect.
package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"hanzikit/core"
	"hanzikit/leaderboard"
)

const (
	screenUnlockedLimit = 5
	screenLockedLimit   = 3
	leaderboardLimit    = 10
	barCells            = 10
)

// Unlock announces a newly unlocked achievement.
func Unlock(def core.AchievementDefinition) string {
	return fmt.Sprintf(`
🎉 **إنجاز جديد مفتوح!**

%s **%s**
%s

%s

💎 +%d نقطة
`, def.Icon, def.Name, def.NameEN, def.Description, def.Points)
}

// Unlocks renders one announcement per definition.
func Unlocks(defs []core.AchievementDefinition) []string {
	return lo.Map(defs, func(d core.AchievementDefinition, _ int) string { return Unlock(d) })
}

// LevelUp announces a move to a new tier.
func LevelUp(l core.Level) string {
	return fmt.Sprintf("\n⬆️ **مستوى جديد!**\n\n%s %s (المستوى %d)\n💎 النقاط: %s\n", l.Icon, l.Name, l.Index, humanize.Comma(l.Points))
}

// Summary is the statistics overview for a user.
func Summary(rec core.Record, l core.Level, catalogSize int) string {
	var b strings.Builder
	b.WriteString("\n🏆 **ملخص الإنجازات**\n\n")
	fmt.Fprintf(&b, "📊 المستوى: %s %s (المستوى %d)\n", l.Icon, l.Name, l.Index)
	fmt.Fprintf(&b, "💎 النقاط: %s\n", humanize.Comma(l.Points))
	fmt.Fprintf(&b, "🎯 التقدم للمستوى التالي: %.1f%%\n", l.Progress)
	fmt.Fprintf(&b, "🏅 الإنجازات: %d/%d\n\n", len(rec.Unlocked), catalogSize)
	b.WriteString("📈 **الإحصائيات:**\n")
	fmt.Fprintf(&b, "• دروس مكتملة: %s\n", rec.Stats[core.StatLessonsCompleted])
	fmt.Fprintf(&b, "• كلمات متعلمة: %s\n", rec.Stats[core.StatWordsLearned])
	fmt.Fprintf(&b, "• سلسلة الأيام: %s 🔥\n", rec.Stats[core.StatStreakDays])
	fmt.Fprintf(&b, "• اختبارات كاملة: %s\n", rec.Stats[core.StatPerfectQuizzes])
	fmt.Fprintf(&b, "• قصص مقروءة: %s\n", rec.Stats[core.StatStoriesRead])
	fmt.Fprintf(&b, "• ساعات الدراسة: %.1f\n", rec.Stats[core.StatStudyHours].Count)
	return b.String()
}

// Screen is the compact achievements screen: the first unlocked entries and
// the locked ones closest to completion.
func Screen(l core.Level, unlocked []core.AchievementDefinition, locked []core.LockedAchievement) string {
	var b strings.Builder
	b.WriteString("\n🏆 **إنجازاتك**\n\n")
	fmt.Fprintf(&b, "📊 المستوى: %s %s (المستوى %d)\n", l.Icon, l.Name, l.Index)
	fmt.Fprintf(&b, "💎 النقاط: %s\n\n", humanize.Comma(l.Points))
	fmt.Fprintf(&b, "✅ **الإنجازات المفتوحة** (%d):\n", len(unlocked))
	for _, d := range lo.Slice(unlocked, 0, screenUnlockedLimit) {
		fmt.Fprintf(&b, "\n%s **%s** - %d نقطة", d.Icon, d.Name, d.Points)
	}
	if extra := len(unlocked) - screenUnlockedLimit; extra > 0 {
		fmt.Fprintf(&b, "\n... و %d إنجاز آخر", extra)
	}
	fmt.Fprintf(&b, "\n\n🔒 **الإنجازات المقفلة** (%d):", len(locked))
	for _, la := range lo.Slice(locked, 0, screenLockedLimit) {
		fmt.Fprintf(&b, "\n%s %s - %s", la.Icon, la.Name, percentText(la.Progress))
	}
	b.WriteString("\n\n💡 استخدم /mystats لرؤية إحصائياتك الكاملة")
	return b.String()
}

// Details appends every unlocked and locked achievement, with progress bars,
// to a summary.
func Details(summary string, unlocked []core.AchievementDefinition, locked []core.LockedAchievement) string {
	var b strings.Builder
	b.WriteString(summary)
	if len(unlocked) > 0 {
		b.WriteString("\n\n🌟 **إنجازاتك المفتوحة:**\n")
		for _, d := range unlocked {
			fmt.Fprintf(&b, "%s %s\n", d.Icon, d.Name)
		}
	}
	if len(locked) > 0 {
		b.WriteString("\n\n🔒 **إنجازات لم تفتح بعد:**\n")
		for _, la := range locked {
			fmt.Fprintf(&b, "%s %s (%s/%s)\n`%s` %s\n", la.Icon, la.Name, la.Current, targetText(la.Target), ProgressBar(la.Progress.Percent), percentText(la.Progress))
		}
	}
	return b.String()
}

// Leaderboard renders the top entries with medals for the first three.
// name resolves a display name; nil falls back to "User <id>".
func Leaderboard(entries []leaderboard.Entry, name func(core.UserID) string) string {
	var b strings.Builder
	b.WriteString("🏆 **لوحة الصدارة** 🏆\n\n")
	if len(entries) == 0 {
		b.WriteString("لا توجد بيانات في لوحة الصدارة بعد.")
		return b.String()
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range lo.Slice(entries, 0, leaderboardLimit) {
		who := "User " + e.User.String()
		if name != nil {
			if n := name(e.User); n != "" {
				who = n
			}
		}
		pts := humanize.Comma(e.Score)
		if i < len(medals) {
			fmt.Fprintf(&b, "%s %d. %s: **%s نقطة**\n", medals[i], i+1, who, pts)
			continue
		}
		fmt.Fprintf(&b, "%d. %s: %s نقطة\n", i+1, who, pts)
	}
	return b.String()
}

// ProgressBar draws percent as ten cells. Values outside 0..100 are clamped.
func ProgressBar(percent float64) string {
	filled := lo.Clamp(int(percent/10), 0, barCells)
	return strings.Repeat("█", filled) + strings.Repeat("░", barCells-filled)
}

// percentText reports membership progress as 0% whether or not the element is
// present; only threshold conditions carry a percentage.
func percentText(p core.Progress) string {
	if p.Kind == core.ConditionMembership {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", p.Percent)
}

func targetText(t any) string {
	switch v := t.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
