package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken      string `yaml:"bot_token"`
		DestinationID int64  `yaml:"destination_id"`
	} `yaml:"telegram"`
	DexScreener struct {
		BaseURL          string `yaml:"base_url"`
		Chain            string `yaml:"chain"`
		RequestSpacingMS int    `yaml:"request_spacing_ms"`
	} `yaml:"dexscreener"`
	Tracking struct {
		MinEntryFDV      float64 `yaml:"min_entry_fdv"`
		MinKeepFDV       float64 `yaml:"min_keep_fdv"`
		BatchSize        int     `yaml:"batch_size"`
		UpdateCron       string  `yaml:"update_cron"`
		PurgeCron        string  `yaml:"purge_cron"`
		HoldWindowMin    int     `yaml:"hold_window_minutes"`
		NoDataGraceHours int     `yaml:"no_data_grace_hours"`
		MaxAgeHours      int     `yaml:"max_age_hours"`
		MinGrowthShow    float64 `yaml:"min_growth_show"`
	} `yaml:"tracking"`
	Simulation struct {
		InvestAmount float64 `yaml:"invest_amount"`
		DelayMinutes int     `yaml:"delay_minutes"`
	} `yaml:"simulation"`
	Panels struct {
		CooldownSeconds int `yaml:"cooldown_seconds"`
		ListLimit       int `yaml:"list_limit"`
		DashboardLimit  int `yaml:"dashboard_limit"`
		TopLimit        int `yaml:"top_limit"`
		MentionsLimit   int `yaml:"mentions_limit"`
	} `yaml:"panels"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		StateFile  string `yaml:"state_file"`
	} `yaml:"database"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("DESTINATION_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.DestinationID = id
		}
	}
	if v := os.Getenv("DEXSCREENER_BASE_URL"); v != "" {
		cfg.DexScreener.BaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.Database.StateFile = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DexScreener.BaseURL == "" {
		cfg.DexScreener.BaseURL = "https://api.dexscreener.com"
	}
	if cfg.DexScreener.Chain == "" {
		cfg.DexScreener.Chain = "solana"
	}
	if cfg.DexScreener.RequestSpacingMS == 0 {
		cfg.DexScreener.RequestSpacingMS = 1000
	}
	if cfg.Tracking.MinEntryFDV == 0 {
		cfg.Tracking.MinEntryFDV = 20000
	}
	if cfg.Tracking.MinKeepFDV == 0 {
		cfg.Tracking.MinKeepFDV = 10000
	}
	if cfg.Tracking.BatchSize == 0 {
		cfg.Tracking.BatchSize = 30
	}
	if cfg.Tracking.UpdateCron == "" {
		cfg.Tracking.UpdateCron = "*/10 * * * * *"
	}
	if cfg.Tracking.PurgeCron == "" {
		cfg.Tracking.PurgeCron = "0 0 4 * * *"
	}
	if cfg.Tracking.HoldWindowMin == 0 {
		cfg.Tracking.HoldWindowMin = 15
	}
	if cfg.Tracking.NoDataGraceHours == 0 {
		cfg.Tracking.NoDataGraceHours = 24
	}
	if cfg.Tracking.MaxAgeHours == 0 {
		cfg.Tracking.MaxAgeHours = 72
	}
	if cfg.Tracking.MinGrowthShow == 0 {
		cfg.Tracking.MinGrowthShow = 1.30
	}
	if cfg.Simulation.InvestAmount == 0 {
		cfg.Simulation.InvestAmount = 7
	}
	if cfg.Simulation.DelayMinutes == 0 {
		cfg.Simulation.DelayMinutes = 2
	}
	if cfg.Panels.CooldownSeconds == 0 {
		cfg.Panels.CooldownSeconds = 15
	}
	if cfg.Panels.ListLimit == 0 {
		cfg.Panels.ListLimit = 20
	}
	if cfg.Panels.DashboardLimit == 0 {
		cfg.Panels.DashboardLimit = 15
	}
	if cfg.Panels.TopLimit == 0 {
		cfg.Panels.TopLimit = 15
	}
	if cfg.Panels.MentionsLimit == 0 {
		cfg.Panels.MentionsLimit = 5
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/token_radar.db"
	}
	if cfg.Database.StateFile == "" {
		cfg.Database.StateFile = "data/state.json"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":3000"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.DestinationID == 0 {
		return fmt.Errorf("telegram.destination_id is required")
	}
	if c.Tracking.MinKeepFDV > c.Tracking.MinEntryFDV {
		return fmt.Errorf("tracking.min_keep_fdv must not exceed min_entry_fdv")
	}
	if c.Tracking.BatchSize <= 0 {
		return fmt.Errorf("tracking.batch_size must be positive")
	}
	return nil
}
