package usecase

import (
	"fmt"
	"time"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
	"github.com/qqsync/webui-bridge/internal/biz/repo"
)

// StatisticsAggregator composes message log aggregation with the binding
// counts derived from the capability adapter. It holds no state; every
// snapshot recomputes from the current source of truth.
type StatisticsAggregator struct {
	messageLog repo.MessageLogRepo
	adapter    *CapabilityAdapter
}

// NewStatisticsAggregator creates the aggregator.
func NewStatisticsAggregator(messageLog repo.MessageLogRepo, adapter *CapabilityAdapter) *StatisticsAggregator {
	return &StatisticsAggregator{messageLog: messageLog, adapter: adapter}
}

// Snapshot builds one combined statistics view over the trailing days
// calendar days. Component absence yields zero user counts, not an error;
// a log store I/O failure is surfaced to the caller.
func (s *StatisticsAggregator) Snapshot(days int) (domain.StatsSnapshot, error) {
	messages, err := s.messageLog.Aggregate(days)
	if err != nil {
		return domain.StatsSnapshot{}, fmt.Errorf("aggregate messages: %w", err)
	}

	userStats, st := s.adapter.UserStatistics()

	return domain.StatsSnapshot{
		Messages:           messages,
		Users:              userStats,
		ComponentAvailable: st.Available,
		GeneratedAt:        time.Now(),
	}, nil
}
