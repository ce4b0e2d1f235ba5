package game

import "time"

// sameDay reports whether two instants fall on the same UTC calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// isYesterday reports whether a falls on the UTC calendar day before b.
func isYesterday(a, b time.Time) bool {
	return sameDay(a.UTC().AddDate(0, 0, 1), b)
}

// advanceStreak applies the streak state machine for one activity at now:
// same-day activity leaves the streak alone, next-day activity extends
// it, anything older (or a zero last) restarts it at 1. The longest
// value only ever ratchets up.
func advanceStreak(current, longest int64, last, now time.Time) (int64, int64) {
	switch {
	case !last.IsZero() && sameDay(last, now):
		// Already counted today.
	case !last.IsZero() && isYesterday(last, now):
		current++
	default:
		current = 1
	}
	if current > longest {
		longest = current
	}
	return current, longest
}

// advanceTradeStreak counts executed trades. Unlike the daily streak a
// same-day trade still extends the run; only a gap of more than one
// calendar day since the last activity restarts it at 1.
func advanceTradeStreak(current, longest int64, last, now time.Time) (int64, int64) {
	if !last.IsZero() && (sameDay(last, now) || isYesterday(last, now)) {
		current++
	} else {
		current = 1
	}
	if current > longest {
		longest = current
	}
	return current, longest
}

// advanceGamification applies one trade's worth of progress: XP, level
// recompute, and both streak machines keyed on the last activity day.
// Badges are decided separately so the caller can persist only newly
// earned ones.
func advanceGamification(g GamificationState, now time.Time) GamificationState {
	g.XP += XPPerTrade
	g.Level = LevelForXP(g.XP)
	g.DailyStreak, g.LongestDailyStreak = advanceStreak(g.DailyStreak, g.LongestDailyStreak, g.LastActive, now)
	g.TradeStreak, g.LongestTradeStreak = advanceTradeStreak(g.TradeStreak, g.LongestTradeStreak, g.LastActive, now)
	g.LastActive = now
	g.LastTradeDay = now
	return g
}

// touchActivity advances only the daily streak, for non-trading activity
// such as logging in.
func touchActivity(g GamificationState, now time.Time) GamificationState {
	g.DailyStreak, g.LongestDailyStreak = advanceStreak(g.DailyStreak, g.LongestDailyStreak, g.LastActive, now)
	g.LastActive = now
	return g
}

func hasBadge(g GamificationState, name string) bool {
	for _, b := range g.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// earnedBadges returns the badges newly unlocked by the state reached
// after a trade. prior carries the badge list checked for duplicates.
func earnedBadges(prior, after GamificationState, userID string, now time.Time) []Badge {
	var out []Badge
	award := func(name string) {
		out = append(out, Badge{UserID: userID, Name: name, AwardedAt: now})
	}
	if !hasBadge(prior, BadgeFirstTrade) {
		award(BadgeFirstTrade)
	}
	if after.Level >= 5 && !hasBadge(prior, BadgeLevel5) {
		award(BadgeLevel5)
	}
	if after.Level >= 10 && !hasBadge(prior, BadgeLevel10) {
		award(BadgeLevel10)
	}
	if after.DailyStreak >= 7 && !hasBadge(prior, BadgeStreak7) {
		award(BadgeStreak7)
	}
	return out
}
