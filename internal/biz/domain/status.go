package domain

import "time"

// ComponentInfo describes the resolved bridge component.
type ComponentInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// ConnectionStatus reports the component's link to the QQ platform.
type ConnectionStatus struct {
	WebSocketConnected bool  `json:"websocket_connected"`
	BotOnline          bool  `json:"bot_online"`
	LastPing           int64 `json:"last_ping,omitempty"` // epoch seconds, 0 when never
	ReconnectAttempts  int   `json:"reconnect_attempts"`
}

// GameInfo is optional game server metadata a component may expose.
type GameInfo struct {
	ServerName string `json:"server_name"`
	MaxPlayers int    `json:"max_players"`
}

// ServerInfo is the combined server overview shown on the dashboard.
type ServerInfo struct {
	OnlinePlayersCount int              `json:"online_players_count"`
	OnlinePlayers      []string         `json:"online_players"`
	ServerName         string           `json:"server_name"`
	MaxPlayers         int              `json:"max_players"`
	BoundUsersCount    int              `json:"bound_users_count"`
	ConnectionStatus   ConnectionStatus `json:"connection_status"`
	ComponentInfo      ComponentInfo    `json:"plugin_info"`
}

// AuditEntry is one recorded admin action.
type AuditEntry struct {
	ID       string    `json:"id"`
	Action   string    `json:"action"`
	Operator string    `json:"operator"`
	Target   string    `json:"target"`
	Details  string    `json:"details,omitempty"`
	Time     time.Time `json:"time"`
}

// AuditQuery filters audit log retrieval. Zero-valued fields match
// everything; Days bounds results to the trailing N calendar days.
type AuditQuery struct {
	Limit      int
	ActionType string
	Operator   string
	Days       int
}
