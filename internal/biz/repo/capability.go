package repo

import (
	"context"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
)

// Capability is the operation surface the webui consumes from the QQSync
// bridge component. Implementations are versioned independently of this
// module and may be absent at runtime; callers go through the capability
// adapter usecase rather than holding a Capability directly.
type Capability interface {
	// Info returns component identity and enablement.
	Info() domain.ComponentInfo

	// ConnectionStatus reports the component's QQ platform link.
	ConnectionStatus() domain.ConnectionStatus

	// GetConfig returns one configuration value. The second result is
	// false when the key is unknown.
	GetConfig(key string) (any, bool)

	// SetConfig stages one configuration value in memory.
	SetConfig(key string, value any) error

	// SaveConfig persists all staged configuration.
	SaveConfig() error

	// Bindings returns every player binding keyed by player name.
	Bindings() (map[string]domain.Binding, error)

	// Unbind detaches a player's QQ account.
	Unbind(player, operator string) error

	// Ban blocks a player from the bridge.
	Ban(player, operator, reason string) error

	// Unban lifts a ban.
	Unban(player, operator string) error

	// SendMessage delivers text to the bound QQ group.
	SendMessage(ctx context.Context, text string) error

	// AuditLogs returns recorded admin actions matching the query.
	AuditLogs(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error)

	// RestartTransport tears down and re-establishes the platform link.
	RestartTransport(ctx context.Context) error

	// OnlinePlayers lists players currently on the game server.
	OnlinePlayers() []string
}

// CommandExecutor is an optional capability: components able to run game
// server commands implement it in addition to Capability.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, command, operator string) (string, error)
}

// GameInfoProvider is an optional capability exposing game server metadata.
type GameInfoProvider interface {
	GameInfo() domain.GameInfo
}

// Registry resolves named bridge components at probe time. It replaces a
// global plugin-manager lookup with an injected reference.
type Registry interface {
	Lookup(name string) (Capability, bool)
}
