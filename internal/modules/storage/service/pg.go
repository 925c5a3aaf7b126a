package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
	"coin_bot/pkg/db"
)

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_points (
		id        BIGSERIAL PRIMARY KEY,
		ticker    TEXT NOT NULL,
		ts        TIMESTAMPTZ NOT NULL,
		sequence  BIGINT NOT NULL,
		bid       DOUBLE PRECISION NOT NULL,
		ask       DOUBLE PRECISION NOT NULL,
		bid_size  DOUBLE PRECISION NOT NULL DEFAULT 0,
		ask_size  DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS price_points_ticker_ts ON price_points (ticker, ts DESC)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id      UUID PRIMARY KEY,
		ticker  TEXT NOT NULL,
		ts      TIMESTAMPTZ NOT NULL,
		type    TEXT NOT NULL,
		price   DOUBLE PRECISION NOT NULL,
		fee     DOUBLE PRECISION NOT NULL,
		size    DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_ticker_ts ON transactions (ticker, ts)`,
	`CREATE TABLE IF NOT EXISTS instrument_state (
		ticker          TEXT PRIMARY KEY,
		holding         BOOLEAN NOT NULL,
		initial_round   BOOLEAN NOT NULL,
		cooldown        BOOLEAN NOT NULL,
		cooldown_ticks  INTEGER NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
}

// PgStore - хранение в postgres через пул pgx и менеджер транзакций.
type PgStore struct {
	tm      db.TxManager
	closeFn func()
}

func NewPgStore(tm db.TxManager, closeFn func()) *PgStore {
	return &PgStore{tm: tm, closeFn: closeFn}
}

func (s *PgStore) Migrate(ctx context.Context) error {
	return s.tm.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		for _, stmt := range pgSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PgStore) AppendPoint(ctx context.Context, ticker string, p models.PricePoint) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.AppendPoint: %w", err)
		}
	}()

	_, err = s.tm.Conn().Exec(ctx,
		`INSERT INTO price_points (ticker, ts, sequence, bid, ask, bid_size, ask_size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ticker, p.Timestamp, p.Sequence, p.Bid, p.Ask, p.BidSize, p.AskSize)
	return err
}

const pgInsertTxn = `INSERT INTO transactions (id, ticker, ts, type, price, fee, size)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING`

func (s *PgStore) AppendTransaction(ctx context.Context, ticker string, t models.Transaction) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.AppendTransaction: %w", err)
		}
	}()

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, pgInsertTxn, t.ID, ticker, t.Timestamp, string(t.Type), t.Price, t.Fee, t.Size)
		return err
	})
}

// SaveSnapshot обновляет флаги позиции и дописывает недостающие сделки.
// Точки не переписываются, они уже лежат в price_points.
func (s *PgStore) SaveSnapshot(ctx context.Context, snap instrument.Snapshot) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.SaveSnapshot: %w", err)
		}
	}()

	return s.tm.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO instrument_state (ticker, holding, initial_round, cooldown, cooldown_ticks, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (ticker) DO UPDATE SET
			   holding = EXCLUDED.holding,
			   initial_round = EXCLUDED.initial_round,
			   cooldown = EXCLUDED.cooldown,
			   cooldown_ticks = EXCLUDED.cooldown_ticks,
			   updated_at = EXCLUDED.updated_at`,
			snap.Ticker, snap.Holding, snap.InitialRound, snap.Cooldown, snap.CooldownTicks, time.Now().UTC())
		if err != nil {
			return err
		}
		for _, t := range snap.Transactions {
			if _, err := tx.Exec(ctx, pgInsertTxn, t.ID, snap.Ticker, t.Timestamp, string(t.Type), t.Price, t.Fee, t.Size); err != nil {
				return err
			}
		}
		return nil
	})
}

type pointRow struct {
	Ts       time.Time
	Sequence int64
	Bid      float64
	Ask      float64
	BidSize  float64
	AskSize  float64
}

type txnRow struct {
	ID    string
	Ts    time.Time
	Type  string
	Price float64
	Fee   float64
	Size  float64
}

func (s *PgStore) LoadSnapshot(ctx context.Context, ticker string, limit int) (snap instrument.Snapshot, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.LoadSnapshot: %w", err)
		}
	}()

	// LIMIT NULL в postgres - без ограничения
	var lim any = limit
	if limit <= 0 {
		lim = nil
	}

	snap = instrument.Snapshot{Ticker: ticker, InitialRound: true}
	err = s.tm.RunSnapshot(ctx, func(ctx context.Context, tx db.Transaction) error {
		err := tx.QueryRow(ctx,
			`SELECT holding, initial_round, cooldown, cooldown_ticks FROM instrument_state WHERE ticker = $1`, ticker,
		).Scan(&snap.Holding, &snap.InitialRound, &snap.Cooldown, &snap.CooldownTicks)
		switch {
		case err == nil:
			ok = true
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT ts, sequence, bid, ask, bid_size, ask_size FROM price_points
			 WHERE ticker = $1 ORDER BY ts DESC, id DESC LIMIT $2`, ticker, lim)
		if err != nil {
			return err
		}
		points, err := pgx.CollectRows(rows, pgx.RowToStructByPos[pointRow])
		if err != nil {
			return err
		}
		for _, p := range points {
			snap.History = append(snap.History, models.PricePoint{
				Timestamp: p.Ts, Sequence: p.Sequence, Bid: p.Bid, Ask: p.Ask, BidSize: p.BidSize, AskSize: p.AskSize,
			})
		}

		rows, err = tx.Query(ctx,
			`SELECT id::text, ts, type, price, fee, size FROM transactions WHERE ticker = $1 ORDER BY ts`, ticker)
		if err != nil {
			return err
		}
		txns, err := pgx.CollectRows(rows, pgx.RowToStructByPos[txnRow])
		if err != nil {
			return err
		}
		for _, t := range txns {
			snap.Transactions = append(snap.Transactions, models.Transaction{
				ID: t.ID, Timestamp: t.Ts, Type: models.TxType(t.Type), Price: t.Price, Fee: t.Fee, Size: t.Size,
			})
		}
		return nil
	})
	if err != nil {
		return instrument.Snapshot{}, false, err
	}

	return snap, ok || len(snap.History) > 0 || len(snap.Transactions) > 0, nil
}

func (s *PgStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
