package qqsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
	"github.com/qqsync/webui-bridge/internal/conf"
)

// Version of the bridge component surface.
const Version = "1.0.0"

// configDefaults seed a fresh component config file.
var configDefaults = map[string]any{
	"napcat_ws":          "ws://127.0.0.1:3001",
	"access_token":       "",
	"target_group":       "",
	"admins":             []any{},
	"enable_qq_to_game":  true,
	"enable_game_to_qq":  true,
	"force_bind_qq":      true,
	"sync_group_card":    true,
	"check_group_member": true,
	"chat_count_limit":   20,
	"chat_ban_time":      300,
	"api_qq_enable":      false,
}

// Options wires the component to its stores and game server hooks.
type Options struct {
	ConfigPath    string
	BindingDBPath string
	AuditDBPath   string
	NapcatWS      string
	AccessToken   string

	// OnlinePlayersFn lists players currently on the game server. Nil
	// means no game server is attached.
	OnlinePlayersFn func() []string

	// CommandFn runs a game server command. Nil components do not expose
	// the command execution capability.
	CommandFn func(command string) (string, error)
}

// Component is the concrete QQSync bridge component. It owns the binding
// store, the audit log, the component configuration, and the platform
// transport, and implements repo.Capability for the adapter to probe.
type Component struct {
	config    *conf.FileStore
	bindings  *BindingStore
	audit     *AuditLog
	transport *Transport

	playersFn func() []string
	commandFn func(string) (string, error)

	enabled atomic.Bool
}

// New creates and wires a component. The transport is created but not
// connected; call Start.
func New(opts Options) (*Component, error) {
	config, err := conf.NewFileStore(opts.ConfigPath, configDefaults)
	if err != nil {
		return nil, fmt.Errorf("component config: %w", err)
	}

	bindings, err := NewBindingStore(opts.BindingDBPath)
	if err != nil {
		return nil, fmt.Errorf("binding store: %w", err)
	}

	audit, err := NewAuditLog(opts.AuditDBPath)
	if err != nil {
		bindings.Close()
		return nil, fmt.Errorf("audit log: %w", err)
	}

	endpoint := opts.NapcatWS
	if endpoint == "" {
		if v, ok := config.Get("napcat_ws").(string); ok {
			endpoint = v
		}
	}
	token := opts.AccessToken
	if token == "" {
		if v, ok := config.Get("access_token").(string); ok {
			token = v
		}
	}

	c := &Component{
		config:    config,
		bindings:  bindings,
		audit:     audit,
		transport: NewTransport(endpoint, token),
		playersFn: opts.OnlinePlayersFn,
		commandFn: opts.CommandFn,
	}
	c.enabled.Store(true)
	return c, nil
}

// Start connects the platform transport. A failed dial leaves the
// component registered but disconnected; the dashboard can restart it.
func (c *Component) Start(ctx context.Context, onGroupMessage func(sender, content string)) {
	c.transport.OnGroupMessage(onGroupMessage)
	if err := c.transport.Connect(ctx); err != nil {
		log.Printf("[QQSync] transport connect: %v", err)
	}
}

// Close releases the transport and both stores.
func (c *Component) Close() error {
	err := c.transport.Close()
	if berr := c.bindings.Close(); err == nil {
		err = berr
	}
	if aerr := c.audit.Close(); err == nil {
		err = aerr
	}
	return err
}

// SetEnabled toggles the component on or off. A disabled component stays
// registered but resolves as unavailable.
func (c *Component) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// Info returns component identity and enablement.
func (c *Component) Info() domain.ComponentInfo {
	return domain.ComponentInfo{
		Name:        "qqsync",
		Version:     Version,
		Description: "QQ group chat bridge",
		Enabled:     c.enabled.Load(),
	}
}

// ConnectionStatus reports the platform link state.
func (c *Component) ConnectionStatus() domain.ConnectionStatus {
	return c.transport.Status()
}

// GetConfig returns one configuration value.
func (c *Component) GetConfig(key string) (any, bool) {
	v := c.config.Get(key)
	return v, v != nil
}

// SetConfig stages one configuration value in memory.
func (c *Component) SetConfig(key string, value any) error {
	c.config.Set(key, value)
	return nil
}

// SaveConfig persists all staged configuration in one write.
func (c *Component) SaveConfig() error {
	return c.config.Save()
}

// Bindings returns every player binding keyed by player name.
func (c *Component) Bindings() (map[string]domain.Binding, error) {
	return c.bindings.All()
}

// Unbind detaches a player's QQ account and records the action.
func (c *Component) Unbind(player, operator string) error {
	if err := c.bindings.Unbind(player, operator); err != nil {
		return err
	}
	c.recordAudit("user_unbind", operator, player, "")
	return nil
}

// Ban blocks a player and records the action.
func (c *Component) Ban(player, operator, reason string) error {
	if err := c.bindings.Ban(player, operator, reason); err != nil {
		return err
	}
	c.recordAudit("user_ban", operator, player, reason)
	return nil
}

// Unban lifts a ban and records the action.
func (c *Component) Unban(player, operator string) error {
	if err := c.bindings.Unban(player, operator); err != nil {
		return err
	}
	c.recordAudit("user_unban", operator, player, "")
	return nil
}

// SendMessage delivers text to the configured target group.
func (c *Component) SendMessage(ctx context.Context, text string) error {
	group, _ := c.config.Get("target_group").(string)
	if group == "" {
		return fmt.Errorf("target_group not configured")
	}
	return c.transport.SendGroupMessage(ctx, group, text)
}

// AuditLogs returns recorded admin actions matching the query.
func (c *Component) AuditLogs(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	return c.audit.Query(ctx, q)
}

// RestartTransport re-establishes the platform link.
func (c *Component) RestartTransport(ctx context.Context) error {
	c.recordAudit("transport_restart", "WebUI", "", "")
	return c.transport.Restart(ctx)
}

// OnlinePlayers lists players currently on the game server.
func (c *Component) OnlinePlayers() []string {
	if c.playersFn == nil {
		return []string{}
	}
	players := c.playersFn()
	if players == nil {
		return []string{}
	}
	return players
}

// ExecuteCommand runs a game server command when a runner is attached.
func (c *Component) ExecuteCommand(ctx context.Context, command, operator string) (string, error) {
	if c.commandFn == nil {
		return "", fmt.Errorf("command execution not supported")
	}
	output, err := c.commandFn(command)
	if err != nil {
		return "", err
	}
	details, _ := json.Marshal(map[string]string{"command": command})
	if aerr := c.audit.Record(ctx, "command_execute", operator, command, string(details)); aerr != nil {
		log.Printf("[QQSync] audit record: %v", aerr)
	}
	return output, nil
}

// Bind attaches a QQ account to a player, tracking rebinds of players who
// had a binding before.
func (c *Component) Bind(player, qq, xuid string) error {
	now := time.Now().Unix()

	existing, err := c.bindings.Get(player)
	if err != nil {
		return err
	}

	b := domain.Binding{Player: player, QQ: qq, XUID: xuid, BindTime: now}
	if existing != nil {
		b = *existing
		b.QQ = qq
		if xuid != "" {
			b.XUID = xuid
		}
		if b.BindTime == 0 {
			b.BindTime = now
		} else {
			b.RebindTime = now
		}
	}
	if err := c.bindings.Save(b); err != nil {
		return err
	}
	c.recordAudit("user_bind", player, qq, "")
	return nil
}

// RecordJoin forwards a player join to the binding store.
func (c *Component) RecordJoin(player string, at time.Time) error {
	return c.bindings.RecordJoin(player, at)
}

// RecordQuit forwards a player quit to the binding store.
func (c *Component) RecordQuit(player string, at time.Time) error {
	return c.bindings.RecordQuit(player, at)
}

func (c *Component) recordAudit(action, operator, target, details string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.audit.Record(ctx, action, operator, target, details); err != nil {
		log.Printf("[QQSync] audit record: %v", err)
	}
}
