package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var ErrInvalid = errors.New("invalid config")

func invalid(format string, args ...any) error {
	return errors.Wrap(ErrInvalid, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	t := c.Trading
	if t.PollInterval < MinPollInterval {
		return invalid("poll_interval cannot be less than %s", MinPollInterval)
	}
	if t.ShortPeriods <= 0 {
		return invalid("short_periods must be positive")
	}
	if t.ShortPeriods >= t.LongPeriods {
		return invalid("short_periods must be less than long_periods")
	}
	if t.LongPeriods > MaxHistoryCapacity {
		return invalid("long_periods cannot exceed %d", MaxHistoryCapacity)
	}
	if t.FeeRate < 0 || t.FeeRate >= 1 {
		return invalid("fee_rate must be in [0, 1)")
	}
	if t.BuyFraction <= 0 || t.BuyFraction > 1 {
		return invalid("buy_fraction must be in (0, 1]")
	}

	switch t.Mode {
	case ModePaper:
		if t.PaperUSD <= 0 {
			return invalid("paper_usd must be positive")
		}
	case ModeLive:
		e := c.Exchange
		if e.Key == "" || e.Secret == "" || e.Passphrase == "" || e.USDAccount == "" {
			return invalid("live mode requires exchange key, secret, passphrase and usd_account")
		}
		for _, inst := range c.Instruments {
			if inst.Account == "" {
				return invalid("live mode requires account for %s", inst.Ticker)
			}
		}
	default:
		return invalid("unknown trading mode %q", t.Mode)
	}

	switch t.Strategy {
	case "moving":
	case "percent":
		if err := c.validatePercent(); err != nil {
			return err
		}
	default:
		return invalid("unknown strategy %q", t.Strategy)
	}

	switch c.Exchange.PriceSource {
	case PriceSourceREST, PriceSourceWebsocket:
	default:
		return invalid("unknown price_source %q", c.Exchange.PriceSource)
	}

	if len(c.Instruments) == 0 {
		return invalid("at least one instrument is required")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Ticker == "" {
			return invalid("instrument ticker is required")
		}
		if seen[inst.Ticker] {
			return invalid("duplicate instrument %s", inst.Ticker)
		}
		seen[inst.Ticker] = true
	}

	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.Dir == "" {
			return invalid("storage.dir is required for file driver")
		}
	case StoragePostgres, StorageSQLite:
		if c.Storage.DSN == "" {
			return invalid("storage.dsn is required for %s driver", c.Storage.Driver)
		}
	default:
		return invalid("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validatePercent() error {
	p := c.Percent
	poll := c.Trading.PollInterval
	if p.Bucket < poll || p.DayWindow < p.Bucket {
		return invalid("percent: need poll_interval <= bucket <= day_window")
	}
	if p.DayBucket < p.Bucket || p.MultiDayWindow < 2*p.DayBucket {
		return invalid("percent: multi_day_window must hold at least two day buckets")
	}
	if p.TakeProfit <= 1 || p.StopLoss <= 0 || p.StopLoss >= 1 {
		return invalid("percent: take_profit must be > 1 and stop_loss in (0, 1)")
	}
	// окно истории должно вмещать хотя бы сутки точек
	if int64(c.Trading.LongPeriods)*int64(poll) < int64(p.DayWindow) {
		return invalid("percent: long_periods * poll_interval must cover day_window (%s)", p.DayWindow)
	}
	return nil
}

// Dump - итоговый конфиг в yaml для стартового лога, секреты замаскированы.
func (c *Config) Dump() string {
	masked := *c
	masked.Exchange.Secret = mask(c.Exchange.Secret)
	masked.Exchange.Passphrase = mask(c.Exchange.Passphrase)
	masked.Exchange.Key = mask(c.Exchange.Key)
	masked.Telegram.Token = mask(c.Telegram.Token)
	masked.Storage.DSN = mask(c.Storage.DSN)

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("config dump error: %v", err)
	}
	return string(out)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
