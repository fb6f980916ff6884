package data

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
)

// recentScanDays bounds how far back Recent walks through date files.
const recentScanDays = 7

// MessageLog implements repo.MessageLogRepo on top of one UTF-8 text file
// per calendar date, named YYYY-MM-DD.txt. The file layout is the system's
// only durable storage and must stay readable by older deployments.
type MessageLog struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// NewMessageLog creates a store rooted at dir. The directory is created
// lazily on first append.
func NewMessageLog(dir string) *MessageLog {
	return &MessageLog{dir: dir}
}

func (s *MessageLog) fileFor(date time.Time) string {
	return filepath.Join(s.dir, date.Format("2006-01-02")+".txt")
}

// Append encodes msg as one line and appends it to the file matching the
// local calendar date of the message's own timestamp. The append holds the
// store lock so concurrent writers never interleave partial lines.
func (s *MessageLog) Append(msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("append message: store closed")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create message dir: %w", err)
	}

	path := s.fileFor(time.Unix(msg.Timestamp, 0))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open message file: %w", err)
	}
	defer f.Close()

	// One complete line per write call.
	if _, err := f.WriteString(msg.EncodeLine()); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent scans date files newest first, bounded to the last 7 calendar
// days, decoding lines in reverse physical order. Collection stops once
// limit valid messages are gathered; the result is then re-sorted by
// timestamp descending to correct cross-writer ordering anomalies.
func (s *MessageLog) Recent(limit int) ([]domain.ChatMessage, error) {
	messages := []domain.ChatMessage{}
	if limit <= 0 {
		return messages, nil
	}

	now := time.Now()
	for i := 0; i < recentScanDays && len(messages) < limit; i++ {
		date := now.AddDate(0, 0, -i)
		raw, err := os.ReadFile(s.fileFor(date))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read message file: %w", err)
		}

		lines := strings.Split(string(raw), "\n")
		for j := len(lines) - 1; j >= 0 && len(messages) < limit; j-- {
			line := strings.TrimSpace(lines[j])
			if line == "" {
				continue
			}
			msg, err := domain.DecodeLine(line, date)
			if err != nil {
				log.Printf("[MessageLog] skipping line %d of %s: %v",
					j+1, date.Format("2006-01-02"), err)
				continue
			}
			messages = append(messages, msg)
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp > messages[j].Timestamp
	})
	return messages, nil
}

// Aggregate counts lines per calendar date over [today-days+1, today],
// bucketing by hour-of-day and by direction tag. Absent files count zero.
func (s *MessageLog) Aggregate(days int) (domain.MessageStats, error) {
	stats := domain.NewMessageStats()
	if days <= 0 {
		return stats, nil
	}

	now := time.Now()
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		key := date.Format("2006-01-02")
		stats.Daily[key] = 0

		raw, err := os.ReadFile(s.fileFor(date))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read message file: %w", err)
		}

		for _, line := range strings.Split(string(raw), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			stats.TotalMessages++
			stats.Daily[key]++
			if hour, ok := lineHour(line); ok {
				stats.Hourly[domain.HourKey(hour)]++
			}
			stats.ByDirection[lineDirection(line)]++
		}
	}
	return stats, nil
}

// lineHour extracts the hour from the leading [HH:MM:SS] tag.
func lineHour(line string) (int, bool) {
	if len(line) < 4 || line[0] != '[' || line[3] != ':' {
		return 0, false
	}
	hour, err := strconv.Atoi(line[1:3])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// lineDirection matches the line against the closed label set; lines with
// no known tag count as unknown.
func lineDirection(line string) domain.Direction {
	for _, d := range domain.Directions() {
		if d == domain.DirectionUnknown {
			continue
		}
		if strings.Contains(line, "["+d.Label()+"]") {
			return d
		}
	}
	return domain.DirectionUnknown
}

// Close blocks new appends. Any in-flight append finishes first because
// both paths contend on the same lock.
func (s *MessageLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
