package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/konverner/budget-telegram-bot/internal/config"
	"github.com/konverner/budget-telegram-bot/internal/gateway"
)

var rootCmd = &cobra.Command{
	Use:   "budgetbot",
	Short: "budgetbot - Telegram budget tracking bot backed by Google Sheets",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot (telegram polling + dispatcher)",
	RunE:  runBot,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directories",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show budgetbot configuration status",
	RunE:  runStatus,
}

var debugFlag bool

func init() {
	runCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(runCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debugFlag {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not set. Run 'budgetbot onboard' or set BUDGETBOT_TELEGRAM_TOKEN")
	}
	if cfg.Ledger.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id not set. Run 'budgetbot onboard' or set BUDGETBOT_SPREADSHEET_ID")
	}

	log := newLogger()

	gw, err := gateway.New(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	dataDir := filepath.Join(cfgDir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fmt.Printf("Data directory ready: %s\n", dataDir)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set the telegram token and spreadsheet id\n", cfgPath)
	fmt.Println("  2. Point credentialsFile at a Google service account key with Sheets access")
	fmt.Println("  3. Run 'budgetbot run' to start the bot")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Telegram token: %s\n", maskToken(cfg.Telegram.Token))
	fmt.Printf("Spreadsheet: %s\n", valueOrUnset(cfg.Ledger.SpreadsheetID))
	fmt.Printf("Credentials file: %s\n", valueOrUnset(cfg.Ledger.CredentialsFile))
	fmt.Printf("Worksheets: %s / %s\n", cfg.Ledger.CategoriesWorksheet, cfg.Ledger.TransactionsWorksheet)
	fmt.Printf("User DB: %s\n", cfg.Store.DBPath)
	fmt.Printf("Default language: %s\n", cfg.Bot.DefaultLang)
	fmt.Printf("Antiflood window: %ds\n", cfg.Bot.AntifloodWindow)
	if cfg.Ledger.RefreshSchedule != "" {
		fmt.Printf("Taxonomy refresh: %s\n", cfg.Ledger.RefreshSchedule)
	} else {
		fmt.Println("Taxonomy refresh: manual (/update_categories)")
	}

	return nil
}

func maskToken(token string) string {
	if token == "" {
		return "not set"
	}
	if len(token) <= 8 {
		return "set"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func valueOrUnset(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}
