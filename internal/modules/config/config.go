package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"coin_bot/internal/helper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"

	envPrefix = "BOT"

	// потолок long_periods: 3 дня минутных точек
	MaxHistoryCapacity = 4320
	MinPollInterval    = 5 * time.Second
)

const (
	ModePaper = "paper"
	ModeLive  = "live"

	PriceSourceREST      = "rest"
	PriceSourceWebsocket = "websocket"

	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config ...
type Config struct {
	Service struct {
		Name      string `yaml:"name"`
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	Log LogConfig `yaml:"log"`

	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Percent  PercentConfig  `yaml:"percent"`

	Instruments []InstrumentConfig `yaml:"instruments"`

	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // пусто => только stdout
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ExchangeConfig struct {
	RestURL    string `yaml:"rest_url"`
	WSURL      string `yaml:"ws_url"`
	Key        string `yaml:"key"`
	Secret     string `yaml:"secret"`
	Passphrase string `yaml:"passphrase"`
	USDAccount string `yaml:"usd_account"`
	// rest | websocket
	PriceSource string `yaml:"price_source"`
	// 0 => равен интервалу опроса
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// котировка из ws старше этого считается протухшей
	QuoteMaxAge time.Duration `yaml:"quote_max_age"`
}

type TradingConfig struct {
	Mode         string        `yaml:"mode"`     // paper | live
	Strategy     string        `yaml:"strategy"` // moving | percent
	PollInterval time.Duration `yaml:"poll_interval"`
	ShortPeriods int           `yaml:"short_periods"`
	LongPeriods  int           `yaml:"long_periods"`
	FeeRate      float64       `yaml:"fee_rate"`
	// доля свободных USD на одну покупку (0.49 - два инструмента делят пул)
	BuyFraction float64 `yaml:"buy_fraction"`
	// стартовый баланс paper-режима
	PaperUSD float64 `yaml:"paper_usd"`
}

type PercentConfig struct {
	DayWindow      time.Duration `yaml:"day_window"`
	Bucket         time.Duration `yaml:"bucket"`
	MultiDayWindow time.Duration `yaml:"multi_day_window"`
	DayBucket      time.Duration `yaml:"day_bucket"`
	Cooldown       time.Duration `yaml:"cooldown"`
	TakeProfit     float64       `yaml:"take_profit"`
	StopLoss       float64       `yaml:"stop_loss"`
}

type InstrumentConfig struct {
	Name    string `yaml:"name"`
	Ticker  string `yaml:"ticker"`
	Account string `yaml:"account"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // file | postgres | sqlite
	Dir    string `yaml:"dir"`
	DSN    string `yaml:"dsn"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

func Default() Config {
	cfg := Config{}
	cfg.Service.Name = "coin_bot"
	cfg.Service.Host = "0.0.0.0"
	cfg.Service.AdminPort = 9033

	cfg.Log = LogConfig{
		Level:      "info",
		File:       "logs/debug.log",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
	cfg.Exchange = ExchangeConfig{
		RestURL:     "https://api.exchange.coinbase.com",
		WSURL:       "wss://ws-feed.exchange.coinbase.com",
		PriceSource: PriceSourceREST,
		QuoteMaxAge: 30 * time.Second,
	}
	cfg.Trading = TradingConfig{
		Mode:         ModePaper,
		Strategy:     "moving",
		PollInterval: time.Minute,
		ShortPeriods: 30,
		LongPeriods:  120,
		FeeRate:      0.003,
		BuyFraction:  0.49,
		PaperUSD:     1000,
	}
	cfg.Percent = PercentConfig{
		DayWindow:      24 * time.Hour,
		Bucket:         20 * time.Minute,
		MultiDayWindow: 72 * time.Hour,
		DayBucket:      24 * time.Hour,
		Cooldown:       6 * time.Hour,
		TakeProfit:     1.036,
		StopLoss:       0.956,
	}
	cfg.Instruments = []InstrumentConfig{
		{Name: "Bitcoin", Ticker: "BTC-USD"},
		{Name: "Ethereum", Ticker: "ETH-USD"},
	}
	cfg.Storage = StorageConfig{Driver: StorageFile, Dir: "backup"}
	cfg.Tracing = TracingConfig{Host: "localhost", Port: 6831}
	return cfg
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	return Load("configs/" + configFileName)
}

// Load: дефолты -> yaml -> env (BOT_SECTION_KEY) -> валидация.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		// список инструментов из файла заменяет дефолтный целиком
		config.Instruments = nil
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, errors.Wrapf(err, "decode config %s", path)
		}
		if len(config.Instruments) == 0 {
			config.Instruments = Default().Instruments
		}
	case os.IsNotExist(err):
		// без файла работаем на дефолтах и env
	default:
		return nil, errors.Wrapf(err, "open config %s", path)
	}

	config.applyEnv(newEnv())
	for i := range config.Instruments {
		config.Instruments[i].Ticker = helper.NormTicker(config.Instruments[i].Ticker)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func (c *Config) applyEnv(v *viper.Viper) {
	str := func(key string, dst *string) {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	integer := func(key string, dst *int) {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	float := func(key string, dst *float64) {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	duration := func(key string, dst *time.Duration) {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	boolean := func(key string, dst *bool) {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	integer("service.admin_port", &c.Service.AdminPort)
	str("log.level", &c.Log.Level)
	str("log.file", &c.Log.File)

	str("exchange.rest_url", &c.Exchange.RestURL)
	str("exchange.ws_url", &c.Exchange.WSURL)
	str("exchange.key", &c.Exchange.Key)
	str("exchange.secret", &c.Exchange.Secret)
	str("exchange.passphrase", &c.Exchange.Passphrase)
	str("exchange.usd_account", &c.Exchange.USDAccount)
	str("exchange.price_source", &c.Exchange.PriceSource)
	duration("exchange.request_timeout", &c.Exchange.RequestTimeout)

	str("trading.mode", &c.Trading.Mode)
	str("trading.strategy", &c.Trading.Strategy)
	duration("trading.poll_interval", &c.Trading.PollInterval)
	integer("trading.short_periods", &c.Trading.ShortPeriods)
	integer("trading.long_periods", &c.Trading.LongPeriods)
	float("trading.fee_rate", &c.Trading.FeeRate)
	float("trading.buy_fraction", &c.Trading.BuyFraction)
	float("trading.paper_usd", &c.Trading.PaperUSD)

	str("storage.driver", &c.Storage.Driver)
	str("storage.dir", &c.Storage.Dir)
	str("storage.dsn", &c.Storage.DSN)

	str("telegram.token", &c.Telegram.Token)
	_ = v.BindEnv("telegram.chat_id")
	if v.IsSet("telegram.chat_id") {
		c.Telegram.ChatID = v.GetInt64("telegram.chat_id")
	}
	boolean("tracing.enabled", &c.Tracing.Enabled)
	str("tracing.host", &c.Tracing.Host)
	integer("tracing.port", &c.Tracing.Port)

	// старые имена переменных
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.Storage.DSN = dsn
	}
}

// RequestTimeout - таймаут одного запроса к бирже, по умолчанию интервал опроса.
func (c *Config) RequestTimeout() time.Duration {
	if c.Exchange.RequestTimeout > 0 {
		return c.Exchange.RequestTimeout
	}
	return c.Trading.PollInterval
}

func (c *Config) Paper() bool { return c.Trading.Mode == ModePaper }

// USDAccount - счёт USD; в paper-режиме можно не задавать.
func (c *Config) USDAccount() string {
	if c.Exchange.USDAccount != "" {
		return c.Exchange.USDAccount
	}
	return "USD"
}

// AccountID - счёт монеты; по умолчанию базовая валюта тикера.
func (ic InstrumentConfig) AccountID() string {
	if ic.Account != "" {
		return ic.Account
	}
	if base, _, ok := helper.SplitTicker(ic.Ticker); ok {
		return base
	}
	return ic.Ticker
}

// DisplayName - имя для логов и дашборда.
func (ic InstrumentConfig) DisplayName() string {
	if ic.Name != "" {
		return ic.Name
	}
	return ic.Ticker
}

func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.AdminPort)
}

// HistoryCapacity - сколько точек держать в памяти на инструмент.
// Скользящей хватает long_periods (не больше MaxHistoryCapacity, см. Validate).
// Процентной нужно многодневное окно плюс опорная точка на его дальнем краю:
// последняя пара корзин берёт точку с индексом window.
func (c *Config) HistoryCapacity() int {
	n := c.Trading.LongPeriods
	if c.Trading.Strategy == "percent" && c.Trading.PollInterval > 0 {
		if days := int(c.Percent.MultiDayWindow/c.Trading.PollInterval) + 1; days > n {
			n = days
		}
	}
	return n
}
