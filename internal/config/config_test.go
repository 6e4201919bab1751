package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Bot.DefaultLang != DefaultLang {
		t.Errorf("defaultLang = %q, want %q", cfg.Bot.DefaultLang, DefaultLang)
	}
	if cfg.Bot.AntifloodWindow != DefaultAntifloodWindow {
		t.Errorf("antifloodWindow = %d, want %d", cfg.Bot.AntifloodWindow, DefaultAntifloodWindow)
	}
	if cfg.Bot.Workers != DefaultWorkers {
		t.Errorf("workers = %d, want %d", cfg.Bot.Workers, DefaultWorkers)
	}
	if cfg.Ledger.CategoriesWorksheet != DefaultCategoriesWS {
		t.Errorf("categoriesWorksheet = %q, want %q", cfg.Ledger.CategoriesWorksheet, DefaultCategoriesWS)
	}
	if cfg.Store.DBPath == "" {
		t.Error("dbPath should not be empty")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("BUDGETBOT_TELEGRAM_TOKEN", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Bot.DefaultLang != DefaultLang {
		t.Errorf("expected default lang %q, got %q", DefaultLang, cfg.Bot.DefaultLang)
	}
	if cfg.Telegram.Token != "" {
		t.Errorf("token should be empty, got %q", cfg.Telegram.Token)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("BUDGETBOT_TELEGRAM_TOKEN", "")
	t.Setenv("BUDGETBOT_SPREADSHEET_ID", "")

	cfgDir := filepath.Join(tmpDir, ".budgetbot")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	fileCfg := map[string]any{
		"telegram": map[string]any{"token": "123:abc"},
		"ledger":   map[string]any{"spreadsheetId": "sheet-1"},
		"bot":      map[string]any{"defaultLang": "ru", "antifloodWindow": 5},
	}
	data, _ := json.Marshal(fileCfg)
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q, want 123:abc", cfg.Telegram.Token)
	}
	if cfg.Ledger.SpreadsheetID != "sheet-1" {
		t.Errorf("spreadsheetId = %q, want sheet-1", cfg.Ledger.SpreadsheetID)
	}
	if cfg.Bot.DefaultLang != "ru" {
		t.Errorf("defaultLang = %q, want ru", cfg.Bot.DefaultLang)
	}
	if cfg.Bot.AntifloodWindow != 5 {
		t.Errorf("antifloodWindow = %d, want 5", cfg.Bot.AntifloodWindow)
	}
	// Unset fields keep defaults
	if cfg.Ledger.TransactionsWorksheet != DefaultTransactionsWS {
		t.Errorf("transactionsWorksheet = %q, want default", cfg.Ledger.TransactionsWorksheet)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("BUDGETBOT_TELEGRAM_TOKEN", "env-token")
	t.Setenv("BUDGETBOT_SUPERUSER_ID", "42")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("token = %q, want env-token", cfg.Telegram.Token)
	}
	if cfg.Store.SuperuserID != 42 {
		t.Errorf("superuserId = %d, want 42", cfg.Store.SuperuserID)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("BUDGETBOT_TELEGRAM_TOKEN", "")

	cfg := DefaultConfig()
	cfg.Telegram.Token = "saved-token"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.Telegram.Token != "saved-token" {
		t.Errorf("token = %q, want saved-token", loaded.Telegram.Token)
	}
}
