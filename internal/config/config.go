// Package config exposes strongly typed application configuration loaded from YAML.
// Secrets (broker keys, telegram token) stay in the environment and never live here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Turtle holds the channel and volatility parameters for both systems.
type Turtle struct {
	System1EntryPeriod  int     `yaml:"system1_entry_period"`
	System1ExitPeriod   int     `yaml:"system1_exit_period"`
	System2EntryPeriod  int     `yaml:"system2_entry_period"`
	System2ExitPeriod   int     `yaml:"system2_exit_period"`
	ATRPeriod           int     `yaml:"atr_period"`
	PyramidUnitInterval float64 `yaml:"pyramid_unit_interval"`
}

// Risk holds the sizing and unit-budget guard-rails.
type Risk struct {
	RiskPerUnit               float64 `yaml:"risk_per_unit"`
	MaxUnitsPerInstrument     int     `yaml:"max_units_per_instrument"`
	MaxUnitsCorrelated        int     `yaml:"max_units_correlated"`
	MaxUnitsLooselyCorrelated int     `yaml:"max_units_loosely_correlated"`
	MaxUnitsTotal             int     `yaml:"max_units_total"`
	StopATRMultiplier         float64 `yaml:"stop_atr_multiplier"`
	StopMaxPercent            float64 `yaml:"stop_max_percent"`
	BreakevenThresholdN       float64 `yaml:"breakeven_threshold_n"`
}

// Sector classifies one instrument into a correlation group. The classification is
// produced outside the system and consumed by the unit ledger as-is.
type Sector struct {
	Key   string `yaml:"key"`
	Loose bool   `yaml:"loose"`
}

// Broker selects and tunes the execution backend.
type Broker struct {
	Mode               string  `yaml:"mode"` // paper | alpaca
	PaperStartingCash  float64 `yaml:"paper_starting_cash"`
	StatusPollAttempts int     `yaml:"status_poll_attempts"`
	StatusPollMs       int     `yaml:"status_poll_interval_ms"`
}

// Trader configures the evaluation cycle.
type Trader struct {
	Watchlist        []string          `yaml:"watchlist"`
	Sectors          map[string]Sector `yaml:"sectors"`
	PollIntervalSecs int               `yaml:"poll_interval_secs"`
}

// Journal points at the persistence files.
type Journal struct {
	SignalsPath  string `yaml:"signals_path"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// Config collects every configuration leaf.
type Config struct {
	App     App     `yaml:"app"`
	Turtle  Turtle  `yaml:"turtle"`
	Risk    Risk    `yaml:"risk"`
	Broker  Broker  `yaml:"broker"`
	Trader  Trader  `yaml:"trader"`
	Journal Journal `yaml:"journal"`
}

// Load reads a YAML file, hydrates a Config, and fills defaults for anything the
// file leaves at zero.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setInt(&c.Turtle.System1EntryPeriod, 20)
	setInt(&c.Turtle.System1ExitPeriod, 10)
	setInt(&c.Turtle.System2EntryPeriod, 55)
	setInt(&c.Turtle.System2ExitPeriod, 20)
	setInt(&c.Turtle.ATRPeriod, 20)
	setFloat(&c.Turtle.PyramidUnitInterval, 0.5)

	setFloat(&c.Risk.RiskPerUnit, 0.02)
	setInt(&c.Risk.MaxUnitsPerInstrument, 4)
	setInt(&c.Risk.MaxUnitsCorrelated, 10)
	setInt(&c.Risk.MaxUnitsLooselyCorrelated, 16)
	setInt(&c.Risk.MaxUnitsTotal, 20)
	setFloat(&c.Risk.StopATRMultiplier, 2)
	setFloat(&c.Risk.StopMaxPercent, 0.08)
	setFloat(&c.Risk.BreakevenThresholdN, 1)

	if c.Broker.Mode == "" {
		c.Broker.Mode = "paper"
	}
	setFloat(&c.Broker.PaperStartingCash, 100_000)
	setInt(&c.Broker.StatusPollAttempts, 5)
	setInt(&c.Broker.StatusPollMs, 2000)

	setInt(&c.Trader.PollIntervalSecs, 60)

	if c.Journal.SignalsPath == "" {
		c.Journal.SignalsPath = "data/signals.jsonl"
	}
	if c.Journal.SnapshotPath == "" {
		c.Journal.SnapshotPath = "data/state.json"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9105"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
}

// BarLookback returns how many daily bars a cycle needs: the longest channel plus
// the current day and one spare for the ATR seed close.
func (c *Config) BarLookback() int {
	lookback := c.Turtle.System2EntryPeriod
	if c.Turtle.ATRPeriod > lookback {
		lookback = c.Turtle.ATRPeriod
	}
	return lookback + 2
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}
