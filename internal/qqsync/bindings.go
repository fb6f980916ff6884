package qqsync

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
)

// BindingStore persists player-to-QQ bindings using SQLite
type BindingStore struct {
	db *sql.DB
}

// NewBindingStore creates a new binding store
func NewBindingStore(dbPath string) (*BindingStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bindings (
			player TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			qq TEXT NOT NULL DEFAULT '',
			xuid TEXT NOT NULL DEFAULT '',
			bind_time INTEGER NOT NULL DEFAULT 0,
			unbind_time INTEGER NOT NULL DEFAULT 0,
			rebind_time INTEGER NOT NULL DEFAULT 0,
			unbind_by TEXT NOT NULL DEFAULT '',
			unbind_reason TEXT NOT NULL DEFAULT '',
			original_qq TEXT NOT NULL DEFAULT '',
			total_playtime INTEGER NOT NULL DEFAULT 0,
			session_count INTEGER NOT NULL DEFAULT 0,
			last_join_time INTEGER NOT NULL DEFAULT 0,
			last_quit_time INTEGER NOT NULL DEFAULT 0,
			banned INTEGER NOT NULL DEFAULT 0,
			ban_time INTEGER NOT NULL DEFAULT 0,
			ban_by TEXT NOT NULL DEFAULT '',
			ban_reason TEXT NOT NULL DEFAULT '',
			unban_time INTEGER NOT NULL DEFAULT 0,
			unban_by TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bindings_qq ON bindings(qq)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BindingStore{db: db}, nil
}

// Close closes the database connection
func (s *BindingStore) Close() error {
	return s.db.Close()
}

const bindingColumns = `player, name, qq, xuid, bind_time, unbind_time, rebind_time,
	unbind_by, unbind_reason, original_qq, total_playtime, session_count,
	last_join_time, last_quit_time, banned, ban_time, ban_by, ban_reason,
	unban_time, unban_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBinding(row rowScanner) (domain.Binding, error) {
	var b domain.Binding
	var banned int
	err := row.Scan(
		&b.Player, &b.Name, &b.QQ, &b.XUID, &b.BindTime, &b.UnbindTime,
		&b.RebindTime, &b.UnbindBy, &b.UnbindReason, &b.OriginalQQ,
		&b.TotalPlaytime, &b.SessionCount, &b.LastJoinTime, &b.LastQuitTime,
		&banned, &b.BanTime, &b.BanBy, &b.BanReason, &b.UnbanTime, &b.UnbanBy,
	)
	if err != nil {
		return domain.Binding{}, err
	}
	b.Banned = banned != 0
	return b, nil
}

// Save creates or replaces a binding record
func (s *BindingStore) Save(b domain.Binding) error {
	banned := 0
	if b.Banned {
		banned = 1
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO bindings (`+bindingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Player, b.Name, b.QQ, b.XUID, b.BindTime, b.UnbindTime, b.RebindTime,
		b.UnbindBy, b.UnbindReason, b.OriginalQQ, b.TotalPlaytime,
		b.SessionCount, b.LastJoinTime, b.LastQuitTime, banned, b.BanTime,
		b.BanBy, b.BanReason, b.UnbanTime, b.UnbanBy)
	if err != nil {
		return fmt.Errorf("failed to save binding: %w", err)
	}
	return nil
}

// Get retrieves one binding by player name
func (s *BindingStore) Get(player string) (*domain.Binding, error) {
	row := s.db.QueryRow(`
		SELECT `+bindingColumns+` FROM bindings WHERE player = ?
	`, player)

	b, err := scanBinding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query binding: %w", err)
	}
	return &b, nil
}

// All returns every binding keyed by player name
func (s *BindingStore) All() (map[string]domain.Binding, error) {
	rows, err := s.db.Query(`SELECT ` + bindingColumns + ` FROM bindings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	bindings := make(map[string]domain.Binding)
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		bindings[b.Player] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bindings: %w", err)
	}
	return bindings, nil
}

// Unbind detaches a player's QQ account, keeping the old number as
// original_qq so a later rebind can be detected
func (s *BindingStore) Unbind(player, operator string) error {
	res, err := s.db.Exec(`
		UPDATE bindings
		SET original_qq = CASE WHEN qq != '' THEN qq ELSE original_qq END,
			qq = '',
			unbind_time = ?,
			unbind_by = ?
		WHERE player = ?
	`, time.Now().Unix(), operator, player)
	if err != nil {
		return fmt.Errorf("failed to unbind: %w", err)
	}
	return requireRow(res, player)
}

// Ban blocks a player from the bridge
func (s *BindingStore) Ban(player, operator, reason string) error {
	res, err := s.db.Exec(`
		UPDATE bindings
		SET banned = 1, ban_time = ?, ban_by = ?, ban_reason = ?
		WHERE player = ?
	`, time.Now().Unix(), operator, reason, player)
	if err != nil {
		return fmt.Errorf("failed to ban: %w", err)
	}
	return requireRow(res, player)
}

// Unban lifts a ban
func (s *BindingStore) Unban(player, operator string) error {
	res, err := s.db.Exec(`
		UPDATE bindings
		SET banned = 0, unban_time = ?, unban_by = ?
		WHERE player = ?
	`, time.Now().Unix(), operator, player)
	if err != nil {
		return fmt.Errorf("failed to unban: %w", err)
	}
	return requireRow(res, player)
}

// RecordJoin marks a player session start
func (s *BindingStore) RecordJoin(player string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE bindings
		SET last_join_time = ?, session_count = session_count + 1
		WHERE player = ?
	`, at.Unix(), player)
	if err != nil {
		return fmt.Errorf("failed to record join: %w", err)
	}
	return nil
}

// RecordQuit marks a player session end and accumulates playtime
func (s *BindingStore) RecordQuit(player string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE bindings
		SET last_quit_time = ?,
			total_playtime = total_playtime + MAX(0, ? - last_join_time)
		WHERE player = ? AND last_join_time > 0
	`, at.Unix(), at.Unix(), player)
	if err != nil {
		return fmt.Errorf("failed to record quit: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, player string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no binding for player %s", player)
	}
	return nil
}
