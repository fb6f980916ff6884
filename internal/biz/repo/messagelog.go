package repo

import (
	"github.com/qqsync/webui-bridge/internal/biz/domain"
)

// MessageLogRepo is the durable record of every bridged and console chat
// event. All operations are local-file-bound and complete in bounded time.
type MessageLogRepo interface {
	// Append encodes and durably appends one message to the file matching
	// the local calendar date of the message's own timestamp. I/O failures
	// are returned to the caller, never swallowed.
	Append(msg domain.ChatMessage) error

	// Recent returns at most limit messages from the last 7 calendar days,
	// newest first. Malformed lines are skipped with a warning. An empty
	// store yields an empty slice and no error.
	Recent(limit int) ([]domain.ChatMessage, error)

	// Aggregate buckets message counts by day, hour-of-day, and direction
	// over the trailing days calendar days including today.
	Aggregate(days int) (domain.MessageStats, error)

	// Close stops accepting appends, lets in-flight appends finish, and
	// releases file handles.
	Close() error
}
