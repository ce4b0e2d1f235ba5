package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var day = 24 * time.Hour

func TestAdvanceStreakFirstActivity(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	cur, longest := advanceStreak(0, 0, time.Time{}, now)
	assert.Equal(t, int64(1), cur)
	assert.Equal(t, int64(1), longest)
}

func TestAdvanceStreakSameDayIsNoop(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	last := now.Add(-6 * time.Hour)
	cur, longest := advanceStreak(3, 5, last, now)
	assert.Equal(t, int64(3), cur)
	assert.Equal(t, int64(5), longest)
}

func TestAdvanceStreakConsecutiveDayExtends(t *testing.T) {
	now := time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC)
	last := now.Add(-day)
	cur, longest := advanceStreak(3, 3, last, now)
	assert.Equal(t, int64(4), cur)
	assert.Equal(t, int64(4), longest)
}

func TestAdvanceStreakGapRestarts(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	last := now.Add(-3 * day)
	cur, longest := advanceStreak(9, 9, last, now)
	assert.Equal(t, int64(1), cur)
	assert.Equal(t, int64(9), longest, "longest never shrinks")
}

func TestAdvanceTradeStreakSameDayExtends(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	cur, longest := advanceTradeStreak(3, 3, now.Add(-2*time.Hour), now)
	assert.Equal(t, int64(4), cur, "every trade builds the trade streak")
	assert.Equal(t, int64(4), longest)
}

func TestAdvanceTradeStreakNextDayExtends(t *testing.T) {
	now := time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC)
	cur, longest := advanceTradeStreak(3, 5, now.Add(-day), now)
	assert.Equal(t, int64(4), cur)
	assert.Equal(t, int64(5), longest)
}

func TestAdvanceTradeStreakGapRestarts(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cur, longest := advanceTradeStreak(9, 9, now.Add(-3*day), now)
	assert.Equal(t, int64(1), cur)
	assert.Equal(t, int64(9), longest, "longest never shrinks")
}

func TestSameDayTradesBuildTradeStreakOnly(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	g := advanceGamification(GamificationState{}, now)
	g = advanceGamification(g, now.Add(2*time.Hour))

	assert.Equal(t, int64(1), g.DailyStreak, "daily streak counts a day once")
	assert.Equal(t, int64(2), g.TradeStreak)
	assert.Equal(t, int64(2), g.LongestTradeStreak)
}

func TestAdvanceGamificationAwardsXPAndLevel(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	g := GamificationState{XP: 90, Level: 1}
	next := advanceGamification(g, now)
	assert.Equal(t, int64(100), next.XP)
	assert.Equal(t, int64(2), next.Level)
	assert.Equal(t, int64(1), next.DailyStreak)
	assert.Equal(t, int64(1), next.TradeStreak)
	assert.Equal(t, now, next.LastActive)
	assert.Equal(t, now, next.LastTradeDay)
}

func TestLevelForXP(t *testing.T) {
	assert.Equal(t, int64(1), LevelForXP(0))
	assert.Equal(t, int64(1), LevelForXP(99))
	assert.Equal(t, int64(2), LevelForXP(100))
	assert.Equal(t, int64(5), LevelForXP(450))
	assert.Equal(t, int64(1), LevelForXP(-10))
}

func TestEarnedBadges(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	prior := GamificationState{}
	after := GamificationState{XP: 10, Level: 1, DailyStreak: 1}
	badges := earnedBadges(prior, after, "u1", now)
	assert.Len(t, badges, 1)
	assert.Equal(t, BadgeFirstTrade, badges[0].Name)

	prior = GamificationState{
		XP: 490, Level: 5,
		Badges: []Badge{{Name: BadgeFirstTrade}},
	}
	after = advanceGamification(prior, now)
	badges = earnedBadges(prior, after, "u1", now)
	assert.Len(t, badges, 1)
	assert.Equal(t, BadgeLevel5, badges[0].Name)

	prior = GamificationState{
		XP: 990, Level: 10, DailyStreak: 6,
		LastActive:   now.Add(-day),
		LastTradeDay: now.Add(-day),
		Badges:       []Badge{{Name: BadgeFirstTrade}, {Name: BadgeLevel5}},
	}
	after = advanceGamification(prior, now)
	badges = earnedBadges(prior, after, "u1", now)
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{BadgeLevel10, BadgeStreak7}, names)
}

func TestTouchActivityOnlyMovesDailyStreak(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	g := GamificationState{
		DailyStreak: 2, LongestDailyStreak: 2,
		TradeStreak: 4, LongestTradeStreak: 4,
		LastActive:   now.Add(-day),
		LastTradeDay: now.Add(-day),
	}
	next := touchActivity(g, now)
	assert.Equal(t, int64(3), next.DailyStreak)
	assert.Equal(t, int64(4), next.TradeStreak, "trade streak untouched by a login")
	assert.Equal(t, g.LastTradeDay, next.LastTradeDay)
}
