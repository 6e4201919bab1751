package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultLang            = "en"
	DefaultAntifloodWindow = 2 // seconds
	DefaultWorkers         = 8
	DefaultRequestTimeout  = 30 // seconds
	DefaultBufSize         = 100
	DefaultCategoriesWS    = "Categories"
	DefaultTransactionsWS  = "Transactions"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Ledger   LedgerConfig   `json:"ledger"`
	Store    StoreConfig    `json:"store"`
	Bot      BotConfig      `json:"bot"`
}

type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Debug     bool     `json:"debug,omitempty"`
}

// LedgerConfig addresses the Google Sheets ledger. The spreadsheet is
// referenced by id, worksheets by title.
type LedgerConfig struct {
	CredentialsFile       string `json:"credentialsFile"`
	SpreadsheetID         string `json:"spreadsheetId"`
	CategoriesWorksheet   string `json:"categoriesWorksheet"`
	TransactionsWorksheet string `json:"transactionsWorksheet"`
	RefreshSchedule       string `json:"refreshSchedule,omitempty"` // cron expr, empty disables
}

type StoreConfig struct {
	DBPath            string `json:"dbPath"`
	SuperuserID       int64  `json:"superuserId,omitempty"`
	SuperuserUsername string `json:"superuserUsername,omitempty"`
}

type BotConfig struct {
	DefaultLang     string `json:"defaultLang"`
	AntifloodWindow int    `json:"antifloodWindow"` // seconds, 0 disables
	Workers         int    `json:"workers"`
	RequestTimeout  int    `json:"requestTimeout"` // seconds, ledger and store I/O
}

func DefaultConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			CategoriesWorksheet:   DefaultCategoriesWS,
			TransactionsWorksheet: DefaultTransactionsWS,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(ConfigDir(), "data", "users.db"),
		},
		Bot: BotConfig{
			DefaultLang:     DefaultLang,
			AntifloodWindow: DefaultAntifloodWindow,
			Workers:         DefaultWorkers,
			RequestTimeout:  DefaultRequestTimeout,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".budgetbot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig reads the config file, then applies .env and environment
// overrides. A missing file is not an error; a missing telegram token
// is caught later, at startup.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()

	if token := os.Getenv("BUDGETBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if id := os.Getenv("BUDGETBOT_SPREADSHEET_ID"); id != "" {
		cfg.Ledger.SpreadsheetID = id
	}
	if path := os.Getenv("BUDGETBOT_CREDENTIALS_FILE"); path != "" {
		cfg.Ledger.CredentialsFile = path
	}
	if path := os.Getenv("BUDGETBOT_DB_PATH"); path != "" {
		cfg.Store.DBPath = path
	}
	if lang := os.Getenv("BUDGETBOT_DEFAULT_LANG"); lang != "" {
		cfg.Bot.DefaultLang = lang
	}
	if id := os.Getenv("BUDGETBOT_SUPERUSER_ID"); id != "" {
		if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
			cfg.Store.SuperuserID = parsed
		}
	}
	if window := os.Getenv("BUDGETBOT_ANTIFLOOD_WINDOW"); window != "" {
		if parsed, err := strconv.Atoi(window); err == nil {
			cfg.Bot.AntifloodWindow = parsed
		}
	}

	if cfg.Bot.DefaultLang == "" {
		cfg.Bot.DefaultLang = DefaultLang
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = DefaultWorkers
	}
	if cfg.Bot.RequestTimeout <= 0 {
		cfg.Bot.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Ledger.CategoriesWorksheet == "" {
		cfg.Ledger.CategoriesWorksheet = DefaultCategoriesWS
	}
	if cfg.Ledger.TransactionsWorksheet == "" {
		cfg.Ledger.TransactionsWorksheet = DefaultTransactionsWS
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
