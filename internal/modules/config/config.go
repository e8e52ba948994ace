package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"flow_bot/internal/signal"
	"flow_bot/internal/sizing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	defaultConfigFile = "values_local.yaml"
	envPrefix         = "FLOW_BOT"

	apiKeyENV        = "BITFLYER_API_KEY"
	apiSecretENV     = "BITFLYER_API_SECRET"
	tokenTelegramENV = "TELEGRAM_TOKEN"
	databaseDSN      = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Trade    TradeConfig    `mapstructure:"trade"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Health   HealthConfig   `mapstructure:"health"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ExchangeConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	BaseURL   string        `mapstructure:"base_url"`
	WSURL     string        `mapstructure:"ws_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type TradeConfig struct {
	Pair    string        `mapstructure:"pair"`    // спот, напр. BTC_JPY
	Product string        `mapstructure:"product"` // торгуемый продукт, напр. FX_BTC_JPY
	Timeout time.Duration `mapstructure:"timeout"` // окно ожидания исполнения
	Warmup  int           `mapstructure:"warmup"`  // сообщений до начала торговли

	EWM        EWMConfig   `mapstructure:"ewm"`
	Bollinger  []float64   `mapstructure:"bollinger"`
	BandPolicy string      `mapstructure:"band_policy"`
	Fallback   string      `mapstructure:"fallback"`
	Contrary   bool        `mapstructure:"contrary"`
	Pivot      PivotConfig `mapstructure:"pivot"`

	Bet  BetConfig  `mapstructure:"bet"`
	Size SizeConfig `mapstructure:"size"`

	SFD         SFDConfig    `mapstructure:"sfd"`
	MinKeepRate float64      `mapstructure:"min_keep_rate"`
	IFDOCO      IFDOCOConfig `mapstructure:"ifdoco"`
}

type EWMConfig struct {
	Alpha         float64 `mapstructure:"alpha"`
	SeedFromFirst bool    `mapstructure:"seed_from_first"`
}

type PivotConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Alpha   float64 `mapstructure:"alpha"`
}

type BetConfig struct {
	Strategy      string  `mapstructure:"strategy"`
	Metric        string  `mapstructure:"metric"`
	Multiplier    float64 `mapstructure:"multiplier"`
	MinPnlPerUnit float64 `mapstructure:"min_pnl_per_unit"`
}

type SizeConfig struct {
	Unit      float64 `mapstructure:"unit"`
	Init      float64 `mapstructure:"init"`
	Min       float64 `mapstructure:"min"`
	Max       float64 `mapstructure:"max"`
	Increment float64 `mapstructure:"increment"`
}

type SFDConfig struct {
	Pins     []float64 `mapstructure:"pins"`
	SkipDist float64   `mapstructure:"skip_dist"`
}

type IFDOCOConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	LimitSpread float64 `mapstructure:"limit_spread"`
	TakeProfit  float64 `mapstructure:"take_profit"`
	StopLoss    float64 `mapstructure:"stop_loss"`
}

type BrokerConfig struct {
	Mode  string      `mapstructure:"mode"` // live | paper
	Paper PaperConfig `mapstructure:"paper"`
}

type PaperConfig struct {
	Collateral   float64 `mapstructure:"collateral"`
	MaxOrderSize float64 `mapstructure:"max_order_size"`
}

type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"` // sqlite | postgres
	DSN     string `mapstructure:"dsn"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type HealthConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Options: откуда читать конфиг. Пустой Path значит $CONFIG_FILE или configs/values_local.yaml.
type Options struct {
	Path string
}

func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = defaultConfigFile
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	return filepath.Join("configs", name)
}

// NewConfig: fx-провайдер.
func NewConfig(opts Options) (*Config, error) {
	cfg, err := Load(ResolvePath(opts.Path))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load читает YAML, поверх кладёт переменные окружения FLOW_BOT_* и секреты из .env.
func Load(path string) (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv(apiKeyENV); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv(apiSecretENV); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv(tokenTelegramENV); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv(databaseDSN); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.base_url", "https://api.bitflyer.com")
	v.SetDefault("exchange.ws_url", "wss://ws.lightstream.bitflyer.com/json-rpc")
	v.SetDefault("exchange.timeout", "10s")

	v.SetDefault("trade.pair", "BTC_JPY")
	v.SetDefault("trade.product", "FX_BTC_JPY")
	v.SetDefault("trade.timeout", "3600s")
	v.SetDefault("trade.warmup", 20)
	v.SetDefault("trade.ewm.alpha", 0.01)
	v.SetDefault("trade.ewm.seed_from_first", false)
	v.SetDefault("trade.bollinger", []float64{1})
	v.SetDefault("trade.band_policy", string(signal.PolicyAuto))
	v.SetDefault("trade.fallback", string(signal.FallbackReverseLast))
	v.SetDefault("trade.contrary", false)
	v.SetDefault("trade.pivot.enabled", false)
	v.SetDefault("trade.pivot.alpha", 0.1)
	v.SetDefault("trade.bet.strategy", string(sizing.Flat))
	v.SetDefault("trade.bet.metric", "margin")
	v.SetDefault("trade.bet.multiplier", 2.0)
	v.SetDefault("trade.bet.min_pnl_per_unit", 0.0)
	v.SetDefault("trade.size.unit", 0.01)
	v.SetDefault("trade.size.init", 0.0)
	v.SetDefault("trade.size.min", 0.0)
	v.SetDefault("trade.size.max", 0.1)
	v.SetDefault("trade.size.increment", 0.001)
	v.SetDefault("trade.sfd.pins", []float64{0.05, 0.1, 0.15, 0.2})
	v.SetDefault("trade.sfd.skip_dist", 0.0)
	v.SetDefault("trade.min_keep_rate", 0.0)
	v.SetDefault("trade.ifdoco.enabled", false)
	v.SetDefault("trade.ifdoco.limit_spread", 0.0)
	v.SetDefault("trade.ifdoco.take_profit", 0.001)
	v.SetDefault("trade.ifdoco.stop_loss", 0.001)

	v.SetDefault("broker.mode", "live")
	v.SetDefault("broker.paper.collateral", 100000.0)
	v.SetDefault("broker.paper.max_order_size", 1.0)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "./data/ticks.db")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("health.addr", ":8080")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("logging.level", "info")
}

// Validate ...
func (c *Config) Validate() error {
	t := c.Trade
	if t.Product == "" {
		return errors.New("trade.product is required")
	}
	if t.EWM.Alpha <= 0 || t.EWM.Alpha > 1 {
		return fmt.Errorf("trade.ewm.alpha must be in (0, 1], got %v", t.EWM.Alpha)
	}
	if t.Pivot.Enabled && (t.Pivot.Alpha <= 0 || t.Pivot.Alpha > 1) {
		return fmt.Errorf("trade.pivot.alpha must be in (0, 1], got %v", t.Pivot.Alpha)
	}
	if t.Timeout <= 0 {
		return errors.New("trade.timeout must be positive")
	}
	if t.Warmup < 1 {
		return errors.New("trade.warmup must be at least 1")
	}
	if t.Size.Unit <= 0 {
		return errors.New("trade.size.unit must be positive")
	}
	if t.Size.Max > 0 && t.Size.Max < t.Size.Min {
		return errors.New("trade.size.max must not be less than trade.size.min")
	}
	if t.Size.Increment <= 0 {
		return errors.New("trade.size.increment must be positive")
	}
	if _, err := sizing.ParseProgression(t.Bet.Strategy); err != nil {
		return fmt.Errorf("trade.bet.strategy: %w", err)
	}
	if _, err := sizing.NewWinMetric(t.Bet.Metric, t.Bet.MinPnlPerUnit); err != nil {
		return fmt.Errorf("trade.bet.metric: %w", err)
	}
	if _, err := signal.ParseBandPolicy(t.BandPolicy); err != nil {
		return fmt.Errorf("trade.band_policy: %w", err)
	}
	if _, err := signal.ParseFallback(t.Fallback); err != nil {
		return fmt.Errorf("trade.fallback: %w", err)
	}
	switch c.Broker.Mode {
	case "live", "paper":
	default:
		return fmt.Errorf("broker.mode must be live or paper, got %q", c.Broker.Mode)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver)
	}
	return nil
}

// WriteTemplate пишет YAML со значениями по умолчанию. Существующий файл не перезаписывается.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	}
	v := viper.New()
	setDefaults(v)

	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o600)
}
