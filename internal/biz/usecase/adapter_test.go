package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
	"github.com/qqsync/webui-bridge/internal/biz/repo"
)

// Mock implementations

type mockCapability struct {
	info       domain.ComponentInfo
	connection domain.ConnectionStatus
	config     map[string]any
	bindings   map[string]domain.Binding
	players    []string

	setErrs     map[string]error
	saveErr     error
	sendErr     error
	bindingsErr error
	restartErr  error

	saveCalls    int
	sentMessages []string
	restarted    chan struct{}
}

func newMockCapability() *mockCapability {
	return &mockCapability{
		info:      domain.ComponentInfo{Name: "qqsync", Version: "1.0.0", Enabled: true},
		config:    make(map[string]any),
		bindings:  make(map[string]domain.Binding),
		restarted: make(chan struct{}, 8),
	}
}

func (m *mockCapability) Info() domain.ComponentInfo                { return m.info }
func (m *mockCapability) ConnectionStatus() domain.ConnectionStatus { return m.connection }

func (m *mockCapability) GetConfig(key string) (any, bool) {
	v, ok := m.config[key]
	return v, ok
}

func (m *mockCapability) SetConfig(key string, value any) error {
	if err := m.setErrs[key]; err != nil {
		return err
	}
	m.config[key] = value
	return nil
}

func (m *mockCapability) SaveConfig() error {
	m.saveCalls++
	return m.saveErr
}

func (m *mockCapability) Bindings() (map[string]domain.Binding, error) {
	if m.bindingsErr != nil {
		return nil, m.bindingsErr
	}
	return m.bindings, nil
}

func (m *mockCapability) Unbind(player, operator string) error      { return nil }
func (m *mockCapability) Ban(player, operator, reason string) error { return nil }
func (m *mockCapability) Unban(player, operator string) error       { return nil }

func (m *mockCapability) SendMessage(ctx context.Context, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sentMessages = append(m.sentMessages, text)
	return nil
}

func (m *mockCapability) AuditLogs(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *mockCapability) RestartTransport(ctx context.Context) error {
	m.restarted <- struct{}{}
	return m.restartErr
}

func (m *mockCapability) OnlinePlayers() []string { return m.players }

// commandCapability adds the optional command execution surface.
type commandCapability struct {
	*mockCapability
	output string
	err    error
}

func (c *commandCapability) ExecuteCommand(ctx context.Context, command, operator string) (string, error) {
	return c.output, c.err
}

type mockRegistry struct {
	components map[string]repo.Capability
	lookups    int
}

func (r *mockRegistry) Lookup(name string) (repo.Capability, bool) {
	r.lookups++
	c, ok := r.components[name]
	return c, ok
}

func newTestAdapter(cap repo.Capability, ttl time.Duration) (*CapabilityAdapter, *mockRegistry) {
	reg := &mockRegistry{components: map[string]repo.Capability{}}
	if cap != nil {
		reg.components["qqsync"] = cap
	}
	return NewCapabilityAdapter(reg, "qqsync", ttl), reg
}

// Tests

func TestResolve_CachesWithinTTL(t *testing.T) {
	cap := newMockCapability()
	adapter, reg := newTestAdapter(cap, time.Minute)

	if !adapter.Available() {
		t.Fatal("Available() = false, want true")
	}
	if !adapter.Available() {
		t.Fatal("Available() = false on second call")
	}
	if reg.lookups != 1 {
		t.Errorf("registry probed %d times within TTL, want 1", reg.lookups)
	}
}

func TestResolve_ReprobesAfterTTL(t *testing.T) {
	cap := newMockCapability()
	adapter, reg := newTestAdapter(cap, 10*time.Millisecond)

	adapter.Available()
	time.Sleep(20 * time.Millisecond)
	adapter.Available()

	if reg.lookups != 2 {
		t.Errorf("registry probed %d times across TTL expiry, want 2", reg.lookups)
	}
}

func TestResolve_CachesFailedProbe(t *testing.T) {
	adapter, reg := newTestAdapter(nil, time.Minute)

	if adapter.Available() {
		t.Fatal("Available() = true with empty registry")
	}
	adapter.Available()
	if reg.lookups != 1 {
		t.Errorf("registry probed %d times for cached miss, want 1", reg.lookups)
	}
}

func TestResolve_DisabledComponentUnavailable(t *testing.T) {
	cap := newMockCapability()
	cap.info.Enabled = false
	adapter, _ := newTestAdapter(cap, time.Minute)

	_, st := adapter.ComponentInfo()
	if st.Available {
		t.Fatal("disabled component resolved as available")
	}
	if st.Reason != "component disabled" {
		t.Errorf("Reason = %q, want component disabled", st.Reason)
	}
}

func TestInvalidate_ForcesReprobe(t *testing.T) {
	cap := newMockCapability()
	adapter, reg := newTestAdapter(cap, time.Hour)

	adapter.Available()
	adapter.Invalidate()
	adapter.Available()

	if reg.lookups != 2 {
		t.Errorf("registry probed %d times after Invalidate, want 2", reg.lookups)
	}
}

func TestReads_ZeroValuesWhenUnavailable(t *testing.T) {
	adapter, _ := newTestAdapter(nil, time.Minute)

	if info, st := adapter.ComponentInfo(); st.Available || info != (domain.ComponentInfo{}) {
		t.Errorf("ComponentInfo = %+v available=%v, want zero/unavailable", info, st.Available)
	}
	if conn, st := adapter.ConnectionStatus(); st.Available || conn != (domain.ConnectionStatus{}) {
		t.Errorf("ConnectionStatus = %+v available=%v, want zero/unavailable", conn, st.Available)
	}
	if config, st := adapter.GetConfig(""); st.Available || len(config) != 0 {
		t.Errorf("GetConfig = %v available=%v, want empty/unavailable", config, st.Available)
	}
	if users, st := adapter.Users(); st.Available || len(users) != 0 {
		t.Errorf("Users = %v available=%v, want empty/unavailable", users, st.Available)
	}
	if stats, st := adapter.UserStatistics(); st.Available || stats != (domain.UserStats{}) {
		t.Errorf("UserStatistics = %+v available=%v, want zero/unavailable", stats, st.Available)
	}
	if entries, st := adapter.AuditLogs(context.Background(), domain.AuditQuery{}); st.Available || len(entries) != 0 {
		t.Errorf("AuditLogs = %v available=%v, want empty/unavailable", entries, st.Available)
	}
	if ok, reason := adapter.SendMessage(context.Background(), "hi"); ok || reason == "" {
		t.Errorf("SendMessage = %v/%q, want failure with reason", ok, reason)
	}
	if ok, _ := adapter.RestartTransport(); ok {
		t.Error("RestartTransport succeeded without component")
	}
}

func TestGetConfig_SingleAndAllKeys(t *testing.T) {
	cap := newMockCapability()
	cap.config["target_group"] = "12345"
	adapter, _ := newTestAdapter(cap, time.Minute)

	config, st := adapter.GetConfig("target_group")
	if !st.Available {
		t.Fatalf("unavailable: %s", st.Reason)
	}
	if len(config) != 1 || config["target_group"] != "12345" {
		t.Errorf("GetConfig(target_group) = %v", config)
	}

	config, _ = adapter.GetConfig("")
	if len(config) != len(knownConfigKeys) {
		t.Errorf("GetConfig(\"\") returned %d keys, want %d", len(config), len(knownConfigKeys))
	}
}

func TestUpdateConfig_PersistFailureDowngradesAll(t *testing.T) {
	cap := newMockCapability()
	cap.saveErr = fmt.Errorf("disk full")
	adapter, _ := newTestAdapter(cap, time.Minute)

	results, ok := adapter.UpdateConfig(map[string]any{"a": 1, "b": 2})
	if ok {
		t.Fatal("UpdateConfig reported success despite persist failure")
	}
	for k, v := range results {
		if v {
			t.Errorf("results[%s] = true after failed persist", k)
		}
	}
	if len(results) != 2 {
		t.Errorf("results has %d keys, want 2", len(results))
	}
}

func TestUpdateConfig_SinglePersistPerBatch(t *testing.T) {
	cap := newMockCapability()
	adapter, _ := newTestAdapter(cap, time.Minute)

	results, ok := adapter.UpdateConfig(map[string]any{"a": 1, "b": 2, "c": 3})
	if !ok {
		t.Fatal("UpdateConfig failed")
	}
	for k, v := range results {
		if !v {
			t.Errorf("results[%s] = false", k)
		}
	}
	if cap.saveCalls != 1 {
		t.Errorf("SaveConfig called %d times, want 1", cap.saveCalls)
	}
}

func TestUpdateConfig_PartialSetFailure(t *testing.T) {
	cap := newMockCapability()
	cap.setErrs = map[string]error{"bad": fmt.Errorf("rejected")}
	adapter, _ := newTestAdapter(cap, time.Minute)

	results, ok := adapter.UpdateConfig(map[string]any{"good": 1, "bad": 2})
	if ok {
		t.Fatal("UpdateConfig reported all-success with a failed key")
	}
	if !results["good"] {
		t.Error("results[good] = false, want true")
	}
	if results["bad"] {
		t.Error("results[bad] = true, want false")
	}
}

func TestUsers_SortedWithOnlineFlags(t *testing.T) {
	cap := newMockCapability()
	cap.bindings = map[string]domain.Binding{
		"Steve": {Player: "Steve", QQ: "1"},
		"Alex":  {Player: "Alex"},
	}
	cap.players = []string{"Steve"}
	adapter, _ := newTestAdapter(cap, time.Minute)

	users, st := adapter.Users()
	if !st.Available {
		t.Fatalf("unavailable: %s", st.Reason)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users[0].PlayerName != "Alex" || users[1].PlayerName != "Steve" {
		t.Errorf("users not sorted: %q, %q", users[0].PlayerName, users[1].PlayerName)
	}
	if !users[1].IsOnline {
		t.Error("Steve should be online")
	}
	if users[0].IsOnline {
		t.Error("Alex should be offline")
	}
}

func TestUsers_BindingErrorIsUnavailable(t *testing.T) {
	cap := newMockCapability()
	cap.bindingsErr = fmt.Errorf("db locked")
	adapter, _ := newTestAdapter(cap, time.Minute)

	users, st := adapter.Users()
	if st.Available {
		t.Fatal("Users() available despite binding store failure")
	}
	if len(users) != 0 {
		t.Errorf("got %d users, want 0", len(users))
	}
}

func TestUserInfo_NotFound(t *testing.T) {
	cap := newMockCapability()
	cap.bindings = map[string]domain.Binding{"Steve": {Player: "Steve"}}
	adapter, _ := newTestAdapter(cap, time.Minute)

	if _, found, st := adapter.UserInfo("Nobody"); found || !st.Available {
		t.Errorf("UserInfo(Nobody) found=%v available=%v, want false/true", found, st.Available)
	}
	if u, found, _ := adapter.UserInfo("Steve"); !found || u.PlayerName != "Steve" {
		t.Errorf("UserInfo(Steve) = %+v found=%v", u, found)
	}
}

func TestSendMessage_PrefixesSource(t *testing.T) {
	cap := newMockCapability()
	adapter, _ := newTestAdapter(cap, time.Minute)

	ok, _ := adapter.SendMessage(context.Background(), "hello")
	if !ok {
		t.Fatal("SendMessage failed")
	}
	if len(cap.sentMessages) != 1 || cap.sentMessages[0] != "[WebUI] hello" {
		t.Errorf("sent %v, want [WebUI] hello", cap.sentMessages)
	}
}

func TestExecuteCommand_OptionalCapability(t *testing.T) {
	plain := newMockCapability()
	adapter, _ := newTestAdapter(plain, time.Minute)

	_, ok, reason := adapter.ExecuteCommand(context.Background(), "list", "WebUI")
	if ok {
		t.Fatal("ExecuteCommand succeeded on component without executor")
	}
	if reason != "command execution not supported" {
		t.Errorf("Reason = %q", reason)
	}

	withCmd := &commandCapability{mockCapability: newMockCapability(), output: "2 players online"}
	adapter, _ = newTestAdapter(withCmd, time.Minute)

	output, ok, _ := adapter.ExecuteCommand(context.Background(), "list", "WebUI")
	if !ok || output != "2 players online" {
		t.Errorf("ExecuteCommand = %q/%v, want output and success", output, ok)
	}
}

func TestServerInfo_Counts(t *testing.T) {
	cap := newMockCapability()
	cap.bindings = map[string]domain.Binding{"a": {Player: "a"}, "b": {Player: "b"}}
	cap.players = []string{"a"}
	cap.connection = domain.ConnectionStatus{WebSocketConnected: true, BotOnline: true}
	adapter, _ := newTestAdapter(cap, time.Minute)

	info, st := adapter.ServerInfo()
	if !st.Available {
		t.Fatalf("unavailable: %s", st.Reason)
	}
	if info.OnlinePlayersCount != 1 || info.BoundUsersCount != 2 {
		t.Errorf("counts = %d/%d, want 1/2", info.OnlinePlayersCount, info.BoundUsersCount)
	}
	if !info.ConnectionStatus.WebSocketConnected {
		t.Error("connection status not propagated")
	}
	if info.ServerName != "" {
		t.Errorf("ServerName = %q without GameInfoProvider", info.ServerName)
	}
}

func TestRestartTransport_SettlesBeforeShutdown(t *testing.T) {
	cap := newMockCapability()
	adapter, _ := newTestAdapter(cap, time.Minute)

	ok, _ := adapter.RestartTransport()
	if !ok {
		t.Fatal("RestartTransport not initiated")
	}

	select {
	case <-cap.restarted:
	case <-time.After(2 * time.Second):
		t.Fatal("restart never reached the component")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := adapter.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}
