package domain

import (
	"fmt"
	"strings"
	"time"
)

// Direction classifies a bridged chat event by its origin and destination.
type Direction string

const (
	DirectionQQToGame    Direction = "qq_to_game"
	DirectionGameToQQ    Direction = "game_to_qq"
	DirectionWebUIToGame Direction = "webui_to_game"
	DirectionWebUIToQQ   Direction = "webui_to_qq"
	DirectionConsole     Direction = "console"
	DirectionUnknown     Direction = "unknown"
)

// directionLabels is the closed mapping between directions and the labels
// written into message log files. The labels are part of the on-disk format
// and must stay byte-compatible with files written by older deployments.
var directionLabels = map[Direction]string{
	DirectionQQToGame:    "QQ→游戏",
	DirectionGameToQQ:    "游戏→QQ",
	DirectionWebUIToGame: "WebUI→游戏",
	DirectionWebUIToQQ:   "WebUI→QQ",
	DirectionConsole:     "控制台",
	DirectionUnknown:     "未知",
}

var labelDirections = func() map[string]Direction {
	m := make(map[string]Direction, len(directionLabels))
	for d, label := range directionLabels {
		m[label] = d
	}
	return m
}()

// Label returns the persisted log label for the direction.
func (d Direction) Label() string {
	if label, ok := directionLabels[d]; ok {
		return label
	}
	return directionLabels[DirectionUnknown]
}

// DirectionFromLabel maps a persisted label back to its direction.
// Unrecognized labels map to DirectionUnknown.
func DirectionFromLabel(label string) Direction {
	if d, ok := labelDirections[label]; ok {
		return d
	}
	return DirectionUnknown
}

// Directions lists every direction with a persisted label, in a stable order.
func Directions() []Direction {
	return []Direction{
		DirectionQQToGame,
		DirectionGameToQQ,
		DirectionWebUIToGame,
		DirectionWebUIToQQ,
		DirectionConsole,
		DirectionUnknown,
	}
}

// MessageType distinguishes chat traffic from system notices.
type MessageType string

const (
	MessageTypeChat   MessageType = "chat"
	MessageTypeSystem MessageType = "system"
)

// ChatMessage represents one bridged or console chat event.
type ChatMessage struct {
	Timestamp int64     `json:"timestamp"` // epoch seconds
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Direction Direction `json:"direction"`
}

// Type derives the message type from direction and sender. It is computed
// on demand and never persisted.
func (m ChatMessage) Type() MessageType {
	if m.Direction == DirectionConsole {
		return MessageTypeSystem
	}
	switch strings.ToLower(m.Sender) {
	case "system", "console", "控制台":
		return MessageTypeSystem
	}
	return MessageTypeChat
}

// EncodeLine renders the message as one newline-terminated log file line:
//
//	[HH:MM:SS] [<direction-label>] <sender>: <content>\n
//
// The time is the message's own timestamp in the host's local time zone.
// Senders or content containing "] " or ": " can be ambiguous on read-back;
// the format is unescaped for compatibility with existing log files.
func (m ChatMessage) EncodeLine() string {
	t := time.Unix(m.Timestamp, 0)
	return fmt.Sprintf("[%s] [%s] %s: %s\n",
		t.Format("15:04:05"), m.Direction.Label(), m.Sender, m.Content)
}

// DecodeLine parses one log file line back into a ChatMessage. The date of
// the containing file supplies the calendar date; the line itself only
// carries the clock time. Failures wrap ErrMalformed.
func DecodeLine(line string, date time.Time) (ChatMessage, error) {
	line = strings.TrimRight(line, "\r\n")

	timePart, rest, ok := strings.Cut(line, "] ")
	if !ok || !strings.HasPrefix(timePart, "[") {
		return ChatMessage{}, fmt.Errorf("%w: missing time tag", ErrMalformed)
	}
	clock := strings.TrimPrefix(timePart, "[")

	dirPart, rest, ok := strings.Cut(rest, "] ")
	if !ok || !strings.HasPrefix(dirPart, "[") {
		return ChatMessage{}, fmt.Errorf("%w: missing direction tag", ErrMalformed)
	}
	label := strings.TrimPrefix(dirPart, "[")

	sender, content, ok := strings.Cut(rest, ": ")
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: missing sender separator", ErrMalformed)
	}

	if len(clock) != len("15:04:05") {
		return ChatMessage{}, fmt.Errorf("%w: bad time %q", ErrMalformed, clock)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05",
		date.Format("2006-01-02")+" "+clock, time.Local)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("%w: bad time %q", ErrMalformed, clock)
	}

	return ChatMessage{
		Timestamp: t.Unix(),
		Sender:    sender,
		Content:   content,
		Direction: DirectionFromLabel(label),
	}, nil
}
