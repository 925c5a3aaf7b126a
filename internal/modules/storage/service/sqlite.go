package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_points (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker    TEXT NOT NULL,
		ts        INTEGER NOT NULL,
		sequence  INTEGER NOT NULL,
		bid       REAL NOT NULL,
		ask       REAL NOT NULL,
		bid_size  REAL NOT NULL DEFAULT 0,
		ask_size  REAL NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS price_points_ticker_ts ON price_points (ticker, ts)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id      TEXT PRIMARY KEY,
		ticker  TEXT NOT NULL,
		ts      INTEGER NOT NULL,
		type    TEXT NOT NULL,
		price   REAL NOT NULL,
		fee     REAL NOT NULL,
		size    REAL NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS instrument_state (
		ticker          TEXT PRIMARY KEY,
		holding         INTEGER NOT NULL,
		initial_round   INTEGER NOT NULL,
		cooldown        INTEGER NOT NULL,
		cooldown_ticks  INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	)`,
}

// SQLiteStore - локальная база в одном файле, без внешнего сервера.
// Время хранится в unix-наносекундах.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite не любит параллельных писателей
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AppendPoint(ctx context.Context, ticker string, p models.PricePoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_points (ticker, ts, sequence, bid, ask, bid_size, ask_size) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ticker, p.Timestamp.UnixNano(), p.Sequence, p.Bid, p.Ask, p.BidSize, p.AskSize)
	if err != nil {
		return fmt.Errorf("SQLiteStore.AppendPoint: %w", err)
	}
	return nil
}

const sqliteInsertTxn = `INSERT OR IGNORE INTO transactions (id, ticker, ts, type, price, fee, size) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) AppendTransaction(ctx context.Context, ticker string, t models.Transaction) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertTxn,
		t.ID, ticker, t.Timestamp.UnixNano(), string(t.Type), t.Price, t.Fee, t.Size)
	if err != nil {
		return fmt.Errorf("SQLiteStore.AppendTransaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap instrument.Snapshot) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SQLiteStore.SaveSnapshot: %w", err)
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO instrument_state (ticker, holding, initial_round, cooldown, cooldown_ticks, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (ticker) DO UPDATE SET
		   holding = excluded.holding,
		   initial_round = excluded.initial_round,
		   cooldown = excluded.cooldown,
		   cooldown_ticks = excluded.cooldown_ticks,
		   updated_at = excluded.updated_at`,
		snap.Ticker, snap.Holding, snap.InitialRound, snap.Cooldown, snap.CooldownTicks, time.Now().UnixNano())
	if err != nil {
		return err
	}
	for _, t := range snap.Transactions {
		if _, err = tx.ExecContext(ctx, sqliteInsertTxn,
			t.ID, snap.Ticker, t.Timestamp.UnixNano(), string(t.Type), t.Price, t.Fee, t.Size); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, ticker string, limit int) (snap instrument.Snapshot, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SQLiteStore.LoadSnapshot: %w", err)
		}
	}()

	snap = instrument.Snapshot{Ticker: ticker, InitialRound: true}

	err = s.db.QueryRowContext(ctx,
		`SELECT holding, initial_round, cooldown, cooldown_ticks FROM instrument_state WHERE ticker = ?`, ticker,
	).Scan(&snap.Holding, &snap.InitialRound, &snap.Cooldown, &snap.CooldownTicks)
	switch {
	case err == nil:
		ok = true
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	default:
		return instrument.Snapshot{}, false, err
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, sequence, bid, ask, bid_size, ask_size FROM price_points
		 WHERE ticker = ? ORDER BY ts DESC, id DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return instrument.Snapshot{}, false, err
	}
	for rows.Next() {
		var (
			p  models.PricePoint
			ts int64
		)
		if err = rows.Scan(&ts, &p.Sequence, &p.Bid, &p.Ask, &p.BidSize, &p.AskSize); err != nil {
			rows.Close()
			return instrument.Snapshot{}, false, err
		}
		p.Timestamp = time.Unix(0, ts).UTC()
		snap.History = append(snap.History, p)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return instrument.Snapshot{}, false, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, ts, type, price, fee, size FROM transactions WHERE ticker = ? ORDER BY ts`, ticker)
	if err != nil {
		return instrument.Snapshot{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t   models.Transaction
			ts  int64
			typ string
		)
		if err = rows.Scan(&t.ID, &ts, &typ, &t.Price, &t.Fee, &t.Size); err != nil {
			return instrument.Snapshot{}, false, err
		}
		t.Timestamp = time.Unix(0, ts).UTC()
		t.Type = models.TxType(typ)
		snap.Transactions = append(snap.Transactions, t)
	}
	if err = rows.Err(); err != nil {
		return instrument.Snapshot{}, false, err
	}

	return snap, ok || len(snap.History) > 0 || len(snap.Transactions) > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
