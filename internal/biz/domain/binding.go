package domain

import "strings"

// Binding is the raw player-to-QQ binding record owned by the bridge
// component. The webui never persists it; it only projects it for display.
type Binding struct {
	Player        string
	Name          string
	QQ            string
	XUID          string
	BindTime      int64
	UnbindTime    int64
	RebindTime    int64
	UnbindBy      string
	UnbindReason  string
	OriginalQQ    string
	TotalPlaytime int64 // seconds
	SessionCount  int
	LastJoinTime  int64
	LastQuitTime  int64
	Banned        bool
	BanTime       int64
	BanBy         string
	BanReason     string
	UnbanTime     int64
	UnbanBy       string
}

// Binding status labels shown on the dashboard.
const (
	BindingStatusBound    = "bound"
	BindingStatusRebound  = "rebound"
	BindingStatusUnbound  = "unbound"
	BindingStatusFormerly = "formerly_bound"
	BindingStatusNever    = "never_bound"
)

// IsBound reports whether the player currently has a QQ account attached.
func (b Binding) IsBound() bool {
	return strings.TrimSpace(b.QQ) != ""
}

// Status derives the dashboard binding status label.
func (b Binding) Status() string {
	if b.IsBound() {
		if b.RebindTime > 0 {
			return BindingStatusRebound
		}
		return BindingStatusBound
	}
	if b.UnbindTime > 0 {
		return BindingStatusUnbound
	}
	if b.OriginalQQ != "" {
		return BindingStatusFormerly
	}
	return BindingStatusNever
}

// UserBinding is the dashboard-facing projection of a Binding.
type UserBinding struct {
	PlayerName    string `json:"player_name"`
	Name          string `json:"name"`
	QQNumber      string `json:"qq_number"`
	XUID          string `json:"xuid"`
	IsOnline      bool   `json:"is_online"`
	BindTime      int64  `json:"bind_time,omitempty"`
	UnbindTime    int64  `json:"unbind_time,omitempty"`
	RebindTime    int64  `json:"rebind_time,omitempty"`
	UnbindBy      string `json:"unbind_by,omitempty"`
	UnbindReason  string `json:"unbind_reason,omitempty"`
	OriginalQQ    string `json:"original_qq,omitempty"`
	TotalPlaytime int64  `json:"total_playtime"`
	SessionCount  int    `json:"session_count"`
	LastJoinTime  int64  `json:"last_join_time,omitempty"`
	LastQuitTime  int64  `json:"last_quit_time,omitempty"`
	IsBanned      bool   `json:"is_banned"`
	BanTime       int64  `json:"ban_time,omitempty"`
	BanBy         string `json:"ban_by,omitempty"`
	BanReason     string `json:"ban_reason,omitempty"`
	UnbanTime     int64  `json:"unban_time,omitempty"`
	UnbanBy       string `json:"unban_by,omitempty"`
	IsBound       bool   `json:"is_bound"`
	BindingStatus string `json:"binding_status"`
}

// ProjectUser builds the dashboard projection for one binding. The display
// name falls back to the player name when the component has none recorded.
func ProjectUser(b Binding, online bool) UserBinding {
	name := b.Name
	if name == "" {
		name = b.Player
	}
	return UserBinding{
		PlayerName:    b.Player,
		Name:          name,
		QQNumber:      b.QQ,
		XUID:          b.XUID,
		IsOnline:      online,
		BindTime:      b.BindTime,
		UnbindTime:    b.UnbindTime,
		RebindTime:    b.RebindTime,
		UnbindBy:      b.UnbindBy,
		UnbindReason:  b.UnbindReason,
		OriginalQQ:    b.OriginalQQ,
		TotalPlaytime: b.TotalPlaytime,
		SessionCount:  b.SessionCount,
		LastJoinTime:  b.LastJoinTime,
		LastQuitTime:  b.LastQuitTime,
		IsBanned:      b.Banned,
		BanTime:       b.BanTime,
		BanBy:         b.BanBy,
		BanReason:     b.BanReason,
		UnbanTime:     b.UnbanTime,
		UnbanBy:       b.UnbanBy,
		IsBound:       b.IsBound(),
		BindingStatus: b.Status(),
	}
}
