package domain

import (
	"fmt"
	"time"
)

// MessageStats is the time-bucketed aggregation of one log store scan.
type MessageStats struct {
	TotalMessages int               `json:"total_messages"`
	Daily         map[string]int    `json:"daily_stats"`     // "YYYY-MM-DD" -> count
	Hourly        map[string]int    `json:"hourly_stats"`    // "00".."23" -> count
	ByDirection   map[Direction]int `json:"direction_stats"` // unknown tags bucket to DirectionUnknown
}

// NewMessageStats returns stats with every bucket pre-initialized so the
// JSON shape is stable even for an empty store.
func NewMessageStats() MessageStats {
	s := MessageStats{
		Daily:       make(map[string]int),
		Hourly:      make(map[string]int, 24),
		ByDirection: make(map[Direction]int, len(Directions())),
	}
	for hour := 0; hour < 24; hour++ {
		s.Hourly[hourKey(hour)] = 0
	}
	for _, d := range Directions() {
		s.ByDirection[d] = 0
	}
	return s
}

func hourKey(hour int) string {
	return fmt.Sprintf("%02d", hour)
}

// HourKey formats an hour-of-day as the two-digit bucket key.
func HourKey(hour int) string { return hourKey(hour) }

// UserStats summarizes the component's binding data.
type UserStats struct {
	TotalUsers      int     `json:"total_users"`
	BoundUsers      int     `json:"bound_users"`
	UnboundUsers    int     `json:"unbound_users"`
	OnlineUsers     int     `json:"online_users"`
	OfflineUsers    int     `json:"offline_users"`
	BannedUsers     int     `json:"banned_users"`
	TotalPlaytime   int64   `json:"total_playtime"`
	TotalSessions   int64   `json:"total_sessions"`
	AveragePlaytime float64 `json:"average_playtime"`
	AverageSessions float64 `json:"average_sessions"`
}

// ComputeUserStats derives binding counts from the user projections.
func ComputeUserStats(users []UserBinding) UserStats {
	stats := UserStats{TotalUsers: len(users)}
	for _, u := range users {
		if u.IsBound {
			stats.BoundUsers++
		}
		if u.IsOnline {
			stats.OnlineUsers++
		}
		if u.IsBanned {
			stats.BannedUsers++
		}
		stats.TotalPlaytime += u.TotalPlaytime
		stats.TotalSessions += int64(u.SessionCount)
	}
	stats.UnboundUsers = stats.TotalUsers - stats.BoundUsers
	stats.OfflineUsers = stats.TotalUsers - stats.OnlineUsers
	if stats.TotalUsers > 0 {
		stats.AveragePlaytime = float64(stats.TotalPlaytime) / float64(stats.TotalUsers)
		stats.AverageSessions = float64(stats.TotalSessions) / float64(stats.TotalUsers)
	}
	return stats
}

// StatsSnapshot is one combined statistics view. It is recomputed from the
// log store and the component on every request and holds no state.
type StatsSnapshot struct {
	Messages           MessageStats `json:"messages"`
	Users              UserStats    `json:"users"`
	ComponentAvailable bool         `json:"component_available"`
	GeneratedAt        time.Time    `json:"generated_at"`
}
