package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DBPath != "./data/chatlab.db" {
		t.Errorf("Expected default db path, got %q", cfg.DBPath)
	}
	if cfg.SyncJournal.Enabled {
		t.Error("Expected journal disabled by default")
	}
	if cfg.SyncJournal.QueueSize != 1000 {
		t.Errorf("Expected default queue size 1000, got %d", cfg.SyncJournal.QueueSize)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_TOKEN", "secret")
	t.Setenv("SYNC_JOURNAL_ENABLED", "true")
	t.Setenv("SYNC_JOURNAL_QUEUE_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if cfg.AdminToken != "secret" {
		t.Errorf("Expected admin token from env, got %q", cfg.AdminToken)
	}
	if !cfg.SyncJournal.Enabled || cfg.SyncJournal.QueueSize != 50 {
		t.Errorf("Expected enabled journal with queue 50, got %+v", cfg.SyncJournal)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{Port: "8080", DBPath: "./x.db", SyncJournal: SyncJournalConfig{QueueSize: 10}}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	noPort := valid
	noPort.Port = ""
	if err := noPort.Validate(); err == nil {
		t.Error("Expected error for empty port")
	}

	journalNoPath := valid
	journalNoPath.SyncJournal.Enabled = true
	if err := journalNoPath.Validate(); err == nil {
		t.Error("Expected error for enabled journal without path")
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://chatlab.example.org", false},
	}
	for _, tc := range cases {
		cfg := Config{FrontendURL: tc.frontendURL}
		if got := cfg.IsDevelopment(); got != tc.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tc.frontendURL, got, tc.want)
		}
	}
}
