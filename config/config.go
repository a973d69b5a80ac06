package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeSimulated Mode = "SIMULATED"
	ModeLive      Mode = "LIVE"
)

// Config is everything the bot reads at startup. Strategy and execution
// settings come from the YAML file; API keys and the Telegram token come from
// the environment (optionally via .env) so the file stays shareable.
type Config struct {
	Mode Mode `yaml:"mode" default:"SIMULATED" validate:"oneof=SIMULATED LIVE"`

	// BitkubSymbol is the executed pair (e.g. THB_HYPER); BinanceSymbol the
	// monitored USDT pair the averages are computed on (e.g. HYPERUSDT).
	BitkubSymbol  string `yaml:"bitkub_symbol" validate:"required"`
	BinanceSymbol string `yaml:"binance_symbol" validate:"required"`

	PositionSizeTHB float64 `yaml:"position_size_thb" default:"100" validate:"gt=0"`
	TradingFeePct   float64 `yaml:"trading_fee_pct" default:"0.25" validate:"gte=0,lte=100"`

	Timeframe string `yaml:"timeframe" default:"1d" validate:"oneof=1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`

	Indicator struct {
		FastPeriod int    `yaml:"fast_period" default:"10" validate:"gte=1"`
		SlowPeriod int    `yaml:"slow_period" default:"20" validate:"gte=1"`
		Kind       string `yaml:"kind" default:"SMA" validate:"oneof=SMA EMA WMA"`
	} `yaml:"indicator"`

	Execution struct {
		Mode           string  `yaml:"mode" default:"LIMIT" validate:"oneof=LIMIT MARKET"`
		MaxSlippagePct float64 `yaml:"max_slippage_pct" default:"0.5" validate:"gte=0,lte=100"`
	} `yaml:"execution"`

	// SelfBuy pre-seeds the managed position at startup, as if a buy of
	// AmountCoin had already filled.
	SelfBuy struct {
		Enabled    bool    `yaml:"enabled"`
		AmountCoin float64 `yaml:"amount_coin" validate:"gte=0"`
	} `yaml:"self_buy"`

	// PollOverrides replaces candle-aligned waiting with a fixed cadence for
	// the listed timeframes ("1d: 15m"). Absent entirely, the built-in table
	// applies.
	PollOverrides map[string]string `yaml:"poll_overrides"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9464"`
	} `yaml:"metrics"`

	Telegram struct {
		Enabled bool  `yaml:"enabled"`
		ChatID  int64 `yaml:"chat_id"`
	} `yaml:"telegram"`

	// From the environment.
	BinanceAPIKey    string `yaml:"-"`
	BinanceSecretKey string `yaml:"-"`
	BitkubAPIKey     string `yaml:"-"`
	BitkubAPISecret  string `yaml:"-"`
	TelegramToken    string `yaml:"-"`

	// Parsed form of PollOverrides.
	PollIntervals map[string]time.Duration `yaml:"-"`
}

// defaultPollOverrides is the built-in fixed-cadence subset: the shortest
// timeframes poll on a tight fixed interval (waiting out every candle close
// adds nothing there), the coarsest ones poll every 15 minutes instead of
// once a day or slower.
var defaultPollOverrides = map[string]time.Duration{
	"1s": 10 * time.Second,
	"1m": 10 * time.Second,
	"1d": 15 * time.Minute,
	"3d": 15 * time.Minute,
	"1w": 15 * time.Minute,
	"1M": 15 * time.Minute,
}

// Load reads the YAML file at path, fills defaults, applies environment
// secrets and validates the result. Any invalidity here is fatal: the trading
// loop must never start on a config it had to guess about.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.BinanceAPIKey = os.Getenv("BINANCE_API_KEY")
	cfg.BinanceSecretKey = os.Getenv("BINANCE_SECRET_KEY")
	cfg.BitkubAPIKey = os.Getenv("BITKUB_API_KEY")
	cfg.BitkubAPISecret = os.Getenv("BITKUB_API_SECRET")
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if c.PollOverrides == nil {
		c.PollIntervals = defaultPollOverrides
	} else {
		c.PollIntervals = make(map[string]time.Duration, len(c.PollOverrides))
		for tf, raw := range c.PollOverrides {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("poll override %s: %w", tf, err)
			}
			if d <= 0 {
				return fmt.Errorf("poll override %s must be positive, got %s", tf, raw)
			}
			c.PollIntervals[tf] = d
		}
	}

	if c.Mode == ModeLive && (c.BitkubAPIKey == "" || c.BitkubAPISecret == "") {
		return fmt.Errorf("LIVE mode requires BITKUB_API_KEY and BITKUB_API_SECRET")
	}
	if c.Telegram.Enabled && (c.TelegramToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram notifications require TELEGRAM_BOT_TOKEN and telegram.chat_id")
	}
	return nil
}

// Warnings reports settings that are legal but probably not what the operator
// wanted.
func (c *Config) Warnings() []string {
	var w []string
	if c.Indicator.FastPeriod >= c.Indicator.SlowPeriod {
		w = append(w, fmt.Sprintf("fast MA period %d is not below slow period %d; crossover directions will invert",
			c.Indicator.FastPeriod, c.Indicator.SlowPeriod))
	}
	if c.Execution.Mode == "MARKET" && c.Execution.MaxSlippagePct != 0 {
		w = append(w, "MARKET execution ignores max_slippage_pct")
	}
	return w
}
