package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Service    ServiceConfig  `mapstructure:"service"`
	Run        RunConfig      `mapstructure:"run"`
	Strategy   StrategyConfig `mapstructure:"strategy"`
	Model      ModelConfig    `mapstructure:"model"`
	Risk       RiskConfig     `mapstructure:"risk"`
	Data       DataConfig     `mapstructure:"data"`
	DB         string         `mapstructure:"db_dsn"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Report     ReportConfig   `mapstructure:"report"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
	Tracing    TracingConfig  `mapstructure:"tracing"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
}

type ServiceConfig struct {
	Name      string `mapstructure:"name"`
	AdminAddr string `mapstructure:"admin_addr"` // пусто: health-сервер не поднимаем
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type RunConfig struct {
	Symbol         string  `mapstructure:"symbol"`
	InitialBalance float64 `mapstructure:"initial_balance"`
	Warmup         int     `mapstructure:"warmup"`
	TieBreak       string  `mapstructure:"tie_break"`   // long|short|neutral
	SharpeMode     string  `mapstructure:"sharpe_mode"` // per_trade|annualized
}

// StrategyConfig задаёт параметры полос, окно W и множитель отклонения k.
type StrategyConfig struct {
	Window    int     `mapstructure:"window"`
	Deviation float64 `mapstructure:"deviation"`
}

type ModelConfig struct {
	Horizon         int           `mapstructure:"horizon"`
	MinSamples      int           `mapstructure:"min_samples"`
	RetrainEvery    int           `mapstructure:"retrain_every"`    // в шагах
	RetrainInterval time.Duration `mapstructure:"retrain_interval"` // в симулированном времени, если > 0
	WindowSize      int           `mapstructure:"window_size"`
	Threshold       float64       `mapstructure:"threshold"`
	Tree            TreeConfig    `mapstructure:"tree"`
}

type TreeConfig struct {
	MaxDepth        int `mapstructure:"max_depth"`
	MinSamplesSplit int `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int `mapstructure:"min_samples_leaf"`
}

type RiskConfig struct {
	MaxDailyTrades  int     `mapstructure:"max_daily_trades"`
	MaxDailyLossPct float64 `mapstructure:"max_daily_loss_pct"`
	BaseRiskPct     float64 `mapstructure:"base_risk_pct"`
	MaxRiskPct      float64 `mapstructure:"max_risk_pct"`
}

type DataConfig struct {
	Source    string       `mapstructure:"source"` // csv|postgres|random
	Path      string       `mapstructure:"path"`
	Timeframe string       `mapstructure:"timeframe"`
	From      string       `mapstructure:"from"` // RFC3339 или 2006-01-02
	To        string       `mapstructure:"to"`
	Random    RandomConfig `mapstructure:"random"`
}

type RandomConfig struct {
	Seed       int64   `mapstructure:"seed"`
	Count      int     `mapstructure:"count"`
	StartPrice float64 `mapstructure:"start_price"`
	Volatility float64 `mapstructure:"volatility"`
}

type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"` // пусто: один прогон и выход
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	return Load(filepath.Join(getenvDefault(configDirENV, "configs"), configFileName))
}

// Load читает YAML (если файл есть), накладывает дефолты и ENV и валидирует результат.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", tokenTelegramENV)
	_ = v.BindEnv("db_dsn", databaseDSN)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		timeToStringHook(),
	))); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return cfg, nil
}

// timeToStringHook: YAML отдаёт дату без кавычек как time.Time, а from/to в конфиге строки.
func timeToStringHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		t, ok := data.(time.Time)
		if !ok || to.Kind() != reflect.String {
			return data, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "backtest_bot")
	v.SetDefault("service.admin_addr", "")
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.log_format", "json")

	v.SetDefault("run.symbol", "ETHUSDT")
	v.SetDefault("run.initial_balance", 1000.0)
	v.SetDefault("run.warmup", 26)
	v.SetDefault("run.tie_break", "long")
	v.SetDefault("run.sharpe_mode", "per_trade")

	v.SetDefault("strategy.window", 10)
	v.SetDefault("strategy.deviation", 0.5)

	v.SetDefault("model.horizon", 5)
	v.SetDefault("model.min_samples", 100)
	v.SetDefault("model.retrain_every", 24)
	v.SetDefault("model.retrain_interval", "0s")
	v.SetDefault("model.window_size", 1000)
	v.SetDefault("model.threshold", 0.6)
	v.SetDefault("model.tree.max_depth", 5)
	v.SetDefault("model.tree.min_samples_split", 50)
	v.SetDefault("model.tree.min_samples_leaf", 25)

	v.SetDefault("risk.max_daily_trades", 100)
	v.SetDefault("risk.max_daily_loss_pct", 10.0)
	v.SetDefault("risk.base_risk_pct", 1.0)
	v.SetDefault("risk.max_risk_pct", 5.0)

	v.SetDefault("data.source", "random")
	v.SetDefault("data.path", "")
	v.SetDefault("data.timeframe", "5m")
	v.SetDefault("data.from", "")
	v.SetDefault("data.to", "")
	v.SetDefault("data.random.seed", 42)
	v.SetDefault("data.random.count", 1000)
	v.SetDefault("data.random.start_price", 2000.0)
	v.SetDefault("data.random.volatility", 0.01)

	v.SetDefault("db_dsn", "")
	v.SetDefault("sqlite_path", "")
	v.SetDefault("report.dir", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("schedule.cron", "")
}

// Validate проверяет только внешнюю обвязку. Параметры стратегии, модели, риска и прогона
// проверяют конструкторы соответствующих компонентов при сборке fx-графа.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "csv":
		if c.Data.Path == "" {
			return errors.New("data.path is required for csv source")
		}
	case "postgres":
		if c.DB == "" {
			return errors.New("db_dsn is required for postgres source")
		}
	case "random":
	default:
		return errors.Errorf("unknown data.source %q", c.Data.Source)
	}
	if _, _, err := c.Data.Range(); err != nil {
		return err
	}
	if c.Tracing.Enabled && (c.Tracing.Host == "" || c.Tracing.Port <= 0) {
		return errors.New("tracing.host and tracing.port are required when tracing is enabled")
	}
	return nil
}

// Range разбирает data.from/data.to. Пустые значения: нулевое время (без ограничения).
func (d DataConfig) Range() (from, to time.Time, err error) {
	if from, err = parseTime(d.From); err != nil {
		return from, to, errors.Wrap(err, "data.from")
	}
	if to, err = parseTime(d.To); err != nil {
		return from, to, errors.Wrap(err, "data.to")
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return from, to, errors.New("data.to must be after data.from")
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.Errorf("bad time %q, want RFC3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
