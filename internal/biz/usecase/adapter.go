package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
	"github.com/qqsync/webui-bridge/internal/biz/repo"
)

const (
	// DefaultHandleTTL is how long a probe result (hit or miss) stays
	// cached before the next call re-probes the registry.
	DefaultHandleTTL = 5 * time.Second

	// restartSettleTimeout bounds how long a transport restart may run
	// once shutdown starts waiting on it.
	restartSettleTimeout = 10 * time.Second
)

// knownConfigKeys are the component configuration keys the dashboard
// exposes when no specific key is requested.
var knownConfigKeys = []string{
	"napcat_ws", "access_token", "target_group", "admins",
	"enable_qq_to_game", "enable_game_to_qq", "force_bind_qq",
	"sync_group_card", "check_group_member", "chat_count_limit",
	"chat_ban_time", "api_qq_enable",
}

// CallStatus marks whether a soft call reached the component. Available
// plus an empty result means "genuinely empty"; unavailable carries a short
// reason and the operation's zero value.
type CallStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func available() CallStatus { return CallStatus{Available: true} }

func unavailable(reason string) CallStatus {
	return CallStatus{Available: false, Reason: reason}
}

// CapabilityAdapter exposes every dashboard and bridge operation as a soft
// call: no method errors or panics when the component is missing, disabled,
// or only partially implements the expected surface. The handle is resolved
// through a TTL cache on every call because component availability changes
// at runtime independent of this adapter's lifecycle.
type CapabilityAdapter struct {
	registry repo.Registry
	name     string
	ttl      time.Duration

	mu         sync.Mutex
	probed     bool
	resolvedAt time.Time
	handle     repo.Capability // nil when the last probe failed
	reason     string

	restarts sync.WaitGroup
}

// NewCapabilityAdapter creates an adapter probing registry for the named
// component. A non-positive ttl falls back to DefaultHandleTTL.
func NewCapabilityAdapter(registry repo.Registry, name string, ttl time.Duration) *CapabilityAdapter {
	if ttl <= 0 {
		ttl = DefaultHandleTTL
	}
	return &CapabilityAdapter{registry: registry, name: name, ttl: ttl}
}

// resolve returns the cached handle, re-probing once the TTL has expired.
// Failed probes are cached the same way as successful ones. Concurrent
// callers racing the expiry may each probe; the duplicate work is bounded
// and tolerated.
func (a *CapabilityAdapter) resolve() (repo.Capability, CallStatus) {
	a.mu.Lock()
	if a.probed && time.Since(a.resolvedAt) < a.ttl {
		handle, reason := a.handle, a.reason
		a.mu.Unlock()
		if handle == nil {
			return nil, unavailable(reason)
		}
		return handle, available()
	}
	a.mu.Unlock()

	handle, ok := a.registry.Lookup(a.name)
	reason := ""
	if !ok {
		handle, reason = nil, "component not found"
	} else if !handle.Info().Enabled {
		handle, reason = nil, "component disabled"
	}

	a.mu.Lock()
	a.probed = true
	a.resolvedAt = time.Now()
	a.handle = handle
	a.reason = reason
	a.mu.Unlock()

	if handle == nil {
		log.Printf("[Adapter] %s unavailable: %s", a.name, reason)
		return nil, unavailable(reason)
	}
	return handle, available()
}

// Invalidate drops the cached probe result so the next call re-probes.
func (a *CapabilityAdapter) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.probed = false
	a.handle = nil
	a.reason = ""
}

// Available reports whether the component currently resolves.
func (a *CapabilityAdapter) Available() bool {
	_, st := a.resolve()
	return st.Available
}

// ComponentInfo returns component identity, or a zero value when absent.
func (a *CapabilityAdapter) ComponentInfo() (domain.ComponentInfo, CallStatus) {
	h, st := a.resolve()
	if !st.Available {
		return domain.ComponentInfo{}, st
	}
	return h.Info(), st
}

// ConnectionStatus returns the component's platform link state. When the
// component is absent the zero status (disconnected, offline) is returned
// with an unavailable marker.
func (a *CapabilityAdapter) ConnectionStatus() (domain.ConnectionStatus, CallStatus) {
	h, st := a.resolve()
	if !st.Available {
		return domain.ConnectionStatus{}, st
	}
	return h.ConnectionStatus(), st
}

// GetConfig returns one configuration value, or the full set of known keys
// when key is empty.
func (a *CapabilityAdapter) GetConfig(key string) (map[string]any, CallStatus) {
	h, st := a.resolve()
	if !st.Available {
		return map[string]any{}, st
	}
	config := make(map[string]any)
	if key != "" {
		v, _ := h.GetConfig(key)
		config[key] = v
		return config, st
	}
	for _, k := range knownConfigKeys {
		v, _ := h.GetConfig(k)
		config[k] = v
	}
	return config, st
}

// SetConfig applies one key and persists immediately.
func (a *CapabilityAdapter) SetConfig(key string, value any) (bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return false, st.Reason
	}
	if err := h.SetConfig(key, value); err != nil {
		log.Printf("[Adapter] set config %s: %v", key, err)
		return false, "failed to set " + key
	}
	if err := h.SaveConfig(); err != nil {
		log.Printf("[Adapter] save config: %v", err)
		return false, "failed to persist configuration"
	}
	return true, ""
}

// UpdateConfig applies each key individually, then persists once for the
// whole batch. The report is transactional even though the store is not:
// if the trailing persist fails, every tentative per-key success is
// downgraded to failure so callers never see success for configuration
// that was not durably saved. The second result is true only when every
// key succeeded.
func (a *CapabilityAdapter) UpdateConfig(updates map[string]any) (map[string]bool, bool) {
	results := make(map[string]bool, len(updates))

	h, st := a.resolve()
	if !st.Available {
		for k := range updates {
			results[k] = false
		}
		return results, false
	}

	for k, v := range updates {
		if err := h.SetConfig(k, v); err != nil {
			log.Printf("[Adapter] set config %s: %v", k, err)
			results[k] = false
			continue
		}
		results[k] = true
	}

	if err := h.SaveConfig(); err != nil {
		log.Printf("[Adapter] save config batch: %v", err)
		for k := range results {
			results[k] = false
		}
		return results, false
	}

	ok := true
	for _, v := range results {
		ok = ok && v
	}
	return results, ok
}

// Users returns the dashboard projection of every binding, sorted by
// player name, with online flags derived from the live player list.
func (a *CapabilityAdapter) Users() ([]domain.UserBinding, CallStatus) {
	h, st := a.resolve()
	if !st.Available {
		return []domain.UserBinding{}, st
	}

	bindings, err := h.Bindings()
	if err != nil {
		log.Printf("[Adapter] load bindings: %v", err)
		return []domain.UserBinding{}, unavailable("binding data unavailable")
	}

	online := make(map[string]bool)
	for _, name := range h.OnlinePlayers() {
		online[name] = true
	}

	users := make([]domain.UserBinding, 0, len(bindings))
	for player, b := range bindings {
		users = append(users, domain.ProjectUser(b, online[player]))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].PlayerName < users[j].PlayerName
	})
	return users, st
}

// UserInfo returns one user's projection; found is false when the player
// has no binding record.
func (a *CapabilityAdapter) UserInfo(player string) (domain.UserBinding, bool, CallStatus) {
	users, st := a.Users()
	if !st.Available {
		return domain.UserBinding{}, false, st
	}
	for _, u := range users {
		if u.PlayerName == player {
			return u, true, st
		}
	}
	return domain.UserBinding{}, false, st
}

// UserStatistics derives binding counts from the current binding data.
func (a *CapabilityAdapter) UserStatistics() (domain.UserStats, CallStatus) {
	users, st := a.Users()
	if !st.Available {
		return domain.UserStats{}, st
	}
	return domain.ComputeUserStats(users), st
}

// AuditLogs returns recorded admin actions. Zero limit and days fall back
// to the dashboard defaults.
func (a *CapabilityAdapter) AuditLogs(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, CallStatus) {
	h, st := a.resolve()
	if !st.Available {
		return []domain.AuditEntry{}, st
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Days <= 0 {
		q.Days = 30
	}
	entries, err := h.AuditLogs(ctx, q)
	if err != nil {
		log.Printf("[Adapter] audit logs: %v", err)
		return []domain.AuditEntry{}, unavailable("audit log unavailable")
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, st
}

// ServerInfo builds the combined server overview. Game metadata is filled
// only when the component implements the optional GameInfoProvider.
func (a *CapabilityAdapter) ServerInfo() (domain.ServerInfo, CallStatus) {
	h, st := a.resolve()
	if !st.Available {
		return domain.ServerInfo{OnlinePlayers: []string{}}, st
	}

	players := h.OnlinePlayers()
	if players == nil {
		players = []string{}
	}
	info := domain.ServerInfo{
		OnlinePlayersCount: len(players),
		OnlinePlayers:      players,
		ConnectionStatus:   h.ConnectionStatus(),
		ComponentInfo:      h.Info(),
	}
	if bindings, err := h.Bindings(); err == nil {
		info.BoundUsersCount = len(bindings)
	}
	if provider, ok := h.(repo.GameInfoProvider); ok {
		game := provider.GameInfo()
		info.ServerName = game.ServerName
		info.MaxPlayers = game.MaxPlayers
	}
	return info, st
}

// UnbindUser detaches a player's QQ account.
func (a *CapabilityAdapter) UnbindUser(player, operator string) (bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return false, st.Reason
	}
	if err := h.Unbind(player, operator); err != nil {
		log.Printf("[Adapter] unbind %s: %v", player, err)
		return false, "unbind failed"
	}
	return true, ""
}

// BanUser blocks a player from the bridge.
func (a *CapabilityAdapter) BanUser(player, operator, reason string) (bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return false, st.Reason
	}
	if err := h.Ban(player, operator, reason); err != nil {
		log.Printf("[Adapter] ban %s: %v", player, err)
		return false, "ban failed"
	}
	return true, ""
}

// UnbanUser lifts a ban.
func (a *CapabilityAdapter) UnbanUser(player, operator string) (bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return false, st.Reason
	}
	if err := h.Unban(player, operator); err != nil {
		log.Printf("[Adapter] unban %s: %v", player, err)
		return false, "unban failed"
	}
	return true, ""
}

// SendMessage delivers text to the bound QQ group, tagged as coming from
// the dashboard. Side effects on the component are best-effort; nothing is
// rolled back on failure.
func (a *CapabilityAdapter) SendMessage(ctx context.Context, text string) (bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return false, st.Reason
	}
	if err := h.SendMessage(ctx, "[WebUI] "+text); err != nil {
		log.Printf("[Adapter] send message: %v", err)
		return false, "message delivery failed"
	}
	return true, ""
}

// RestartTransport asks the component to re-establish its platform link.
// The restart runs in the background and the call reports only whether it
// was initiated; Shutdown waits for any restart still settling.
func (a *CapabilityAdapter) RestartTransport() (bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return false, st.Reason
	}
	a.restarts.Add(1)
	go func() {
		defer a.restarts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), restartSettleTimeout)
		defer cancel()
		if err := h.RestartTransport(ctx); err != nil {
			log.Printf("[Adapter] transport restart: %v", err)
		}
	}()
	return true, ""
}

// ExecuteCommand runs a game server command when the component supports
// it. Components without the optional CommandExecutor surface report a
// plain failure rather than an error.
func (a *CapabilityAdapter) ExecuteCommand(ctx context.Context, command, operator string) (string, bool, string) {
	h, st := a.resolve()
	if !st.Available {
		return "", false, st.Reason
	}
	executor, ok := h.(repo.CommandExecutor)
	if !ok {
		return "", false, "command execution not supported"
	}
	output, err := executor.ExecuteCommand(ctx, command, operator)
	if err != nil {
		log.Printf("[Adapter] execute command: %v", err)
		return "", false, "command failed"
	}
	return output, true, ""
}

// Shutdown waits for in-flight background operations (transport restarts)
// to settle, bounded by ctx.
func (a *CapabilityAdapter) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.restarts.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for transport operations: %w", ctx.Err())
	}
}
