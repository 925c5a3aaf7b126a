package health

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"coin_bot/internal/accounting"
	"coin_bot/internal/instrument"
	"coin_bot/internal/modules/config"
	"coin_bot/internal/modules/health/service"
)

type Config struct {
	Addr    string // например ":9033"
	LogFile string

	Mode         string
	Strategy     string
	ShortPeriods int
	LongPeriods  int
}

func NewConfig(cfg *config.Config) Config {
	return Config{
		Addr:         cfg.AdminAddr(),
		LogFile:      cfg.Log.File,
		Mode:         cfg.Trading.Mode,
		Strategy:     cfg.Trading.Strategy,
		ShortPeriods: cfg.Trading.ShortPeriods,
		LongPeriods:  cfg.Trading.LongPeriods,
	}
}

type StatusPage struct {
	Mode         string              `json:"mode"`
	Strategy     string              `json:"strategy"`
	ShortPeriods int                 `json:"short_periods"`
	LongPeriods  int                 `json:"long_periods"`
	TotalProfit  float64             `json:"total_profit"`
	TotalFees    float64             `json:"total_fees"`
	Instruments  []instrument.Status `json:"instruments"`
}

func NewMux(cfg Config, state *service.State, totals *accounting.Totals) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: раннеры запущены
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"ready":       state.Ready(),
			"wsConnected": state.WSConnected(),
			"uptimeSec":   int64(state.Uptime().Seconds()),
			"lastTickUnix": func() int64 {
				t := state.LastTick()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		writeJSON(w, resp)
	})

	// сводка по боту: периоды, итоги, последние точки и сделки
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		sum := totals.Summary()
		writeJSON(w, StatusPage{
			Mode:         cfg.Mode,
			Strategy:     cfg.Strategy,
			ShortPeriods: cfg.ShortPeriods,
			LongPeriods:  cfg.LongPeriods,
			TotalProfit:  sum.Profit,
			TotalFees:    sum.Fees,
			Instruments:  state.Statuses(),
		})
	})

	mux.HandleFunc("/debug", func(w http.ResponseWriter, r *http.Request) {
		if cfg.LogFile == "" {
			http.Error(w, "file logging disabled", http.StatusNotFound)
			return
		}
		if _, err := os.Stat(cfg.LogFile); err != nil {
			http.Error(w, "log file not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(cfg.LogFile))
		http.ServeFile(w, r, cfg.LogFile)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			log.Info("admin http listening", zap.String("addr", cfg.Addr))
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
