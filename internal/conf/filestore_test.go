package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileStore_SeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileStore(path, map[string]any{"target_group": "", "chat_count_limit": 20})
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	if v := store.Get("chat_count_limit"); v != 20 {
		t.Errorf("Get(chat_count_limit) = %v, want 20", v)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults not persisted: %v", err)
	}
}

func TestFileStore_SetSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	store.Set("target_group", "12345")
	store.Set("server.port", 9090)
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	reloaded, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if v := reloaded.Get("target_group"); v != "12345" {
		t.Errorf("Get(target_group) = %v, want 12345", v)
	}
	// JSON numbers decode as float64.
	if v := reloaded.Get("server.port"); v != float64(9090) {
		t.Errorf("Get(server.port) = %v (%T), want 9090", v, v)
	}
}

func TestFileStore_DottedKeyNavigation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	store.Set("a.b.c", "deep")
	if v := store.Get("a.b.c"); v != "deep" {
		t.Errorf("Get(a.b.c) = %v, want deep", v)
	}
	if v := store.Get("a.missing"); v != nil {
		t.Errorf("Get(a.missing) = %v, want nil", v)
	}
	if v := store.Get("a.b.c.d"); v != nil {
		t.Errorf("Get past a leaf = %v, want nil", v)
	}
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path, nil); err == nil {
		t.Fatal("NewFileStore() accepted corrupt JSON")
	}
}

func TestApplyFile_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webui_config.json")
	store, err := NewFileStore(path, map[string]any{
		"server": map[string]any{"host": "0.0.0.0", "port": 9000},
	})
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	t.Setenv("WEBUI_HOST", "")
	t.Setenv("WEBUI_PORT", "8888")

	config := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 8888}}
	config.ApplyFile(store)

	if config.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want file value when env unset", config.Server.Host)
	}
	if config.Server.Port != 8888 {
		t.Errorf("Port = %d, want env value preserved", config.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{MessageDir: "/tmp/messages"},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error on valid config: %v", err)
	}

	badPort := *valid
	badPort.Server.Port = 0
	if err := badPort.Validate(); err == nil {
		t.Error("Validate() accepted port 0")
	}

	noHost := *valid
	noHost.Server.Host = ""
	if err := noHost.Validate(); err == nil {
		t.Error("Validate() accepted empty host")
	}
}
