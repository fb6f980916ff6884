package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeLine_Format(t *testing.T) {
	ts := time.Date(2026, 8, 24, 14, 30, 5, 0, time.Local)
	msg := ChatMessage{
		Timestamp: ts.Unix(),
		Sender:    "Steve",
		Content:   "hello world",
		Direction: DirectionQQToGame,
	}

	line := msg.EncodeLine()
	want := "[14:30:05] [QQ→游戏] Steve: hello world\n"
	if line != want {
		t.Errorf("EncodeLine() = %q, want %q", line, want)
	}
}

func TestDecodeLine_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 24, 9, 5, 59, 0, time.Local)
	original := ChatMessage{
		Timestamp: ts.Unix(),
		Sender:    "Alex",
		Content:   "带中文的消息 with spaces",
		Direction: DirectionWebUIToQQ,
	}

	decoded, err := DecodeLine(original.EncodeLine(), ts)
	if err != nil {
		t.Fatalf("DecodeLine() error: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestDecodeLine_UnknownLabel(t *testing.T) {
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)
	msg, err := DecodeLine("[10:00:00] [新方向] Bob: hi", date)
	if err != nil {
		t.Fatalf("DecodeLine() error: %v", err)
	}
	if msg.Direction != DirectionUnknown {
		t.Errorf("Direction = %q, want %q", msg.Direction, DirectionUnknown)
	}
}

func TestDecodeLine_Malformed(t *testing.T) {
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"no tags", "just some text"},
		{"missing direction", "[10:00:00] Steve: hi"},
		{"missing sender separator", "[10:00:00] [控制台] no separator here"},
		{"short clock", "[1:00:00] [控制台] Steve: hi"},
		{"non numeric clock", "[aa:bb:cc] [控制台] Steve: hi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeLine(tc.line, date)
			if err == nil {
				t.Fatalf("DecodeLine(%q) succeeded, want error", tc.line)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}

func TestMessageType_Derivation(t *testing.T) {
	cases := []struct {
		name string
		msg  ChatMessage
		want MessageType
	}{
		{"console direction", ChatMessage{Sender: "Steve", Direction: DirectionConsole}, MessageTypeSystem},
		{"system sender", ChatMessage{Sender: "System", Direction: DirectionQQToGame}, MessageTypeSystem},
		{"console sender", ChatMessage{Sender: "console", Direction: DirectionGameToQQ}, MessageTypeSystem},
		{"chinese console sender", ChatMessage{Sender: "控制台", Direction: DirectionGameToQQ}, MessageTypeSystem},
		{"regular chat", ChatMessage{Sender: "Steve", Direction: DirectionQQToGame}, MessageTypeChat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Type(); got != tc.want {
				t.Errorf("Type() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDirectionLabels_Closed(t *testing.T) {
	for _, d := range Directions() {
		label := d.Label()
		if label == "" {
			t.Errorf("direction %q has empty label", d)
		}
		if got := DirectionFromLabel(label); got != d {
			t.Errorf("DirectionFromLabel(%q) = %q, want %q", label, got, d)
		}
	}
	if got := DirectionFromLabel("nonsense"); got != DirectionUnknown {
		t.Errorf("DirectionFromLabel(nonsense) = %q, want unknown", got)
	}
}

func TestEncodeLine_EndsWithNewline(t *testing.T) {
	msg := ChatMessage{Timestamp: time.Now().Unix(), Sender: "a", Content: "b", Direction: DirectionConsole}
	if !strings.HasSuffix(msg.EncodeLine(), "\n") {
		t.Error("EncodeLine() missing trailing newline")
	}
}
