package service

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

const (
	backupFile  = "backup.json"
	historyFile = "history.jsonl"
	txnFile     = "transactions.jsonl"
)

// FileStore - каталог на тикер: backup.json (снапшот целиком, перезаписывается),
// history.jsonl и transactions.jsonl (только дописываются).
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) tickerDir(ticker string) (string, error) {
	d := filepath.Join(s.dir, strings.ToLower(ticker))
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	return d, nil
}

func (s *FileStore) appendLine(ticker, name string, v any) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("FileStore.append %s/%s: %w", ticker, name, err)
		}
	}()

	line, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.tickerDir(ticker)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(d, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

func (s *FileStore) AppendPoint(_ context.Context, ticker string, p models.PricePoint) error {
	return s.appendLine(ticker, historyFile, p)
}

func (s *FileStore) AppendTransaction(_ context.Context, ticker string, tx models.Transaction) error {
	return s.appendLine(ticker, txnFile, tx)
}

// SaveSnapshot пишет во временный файл и переименовывает, чтобы не оставить битый бэкап.
func (s *FileStore) SaveSnapshot(_ context.Context, snap instrument.Snapshot) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("FileStore.SaveSnapshot %s: %w", snap.Ticker, err)
		}
	}()

	body, err := sonic.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.tickerDir(snap.Ticker)
	if err != nil {
		return err
	}
	tmp := filepath.Join(d, backupFile+".tmp")
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(d, backupFile))
}

func (s *FileStore) LoadSnapshot(_ context.Context, ticker string, limit int) (snap instrument.Snapshot, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("FileStore.LoadSnapshot %s: %w", ticker, err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := os.ReadFile(filepath.Join(s.dir, strings.ToLower(ticker), backupFile))
	if os.IsNotExist(err) {
		// бэкапа нет: прогреваем окно из долгой истории, позиция с нуля
		points, err := s.readHistory(ticker, limit)
		if err != nil || len(points) == 0 {
			return instrument.Snapshot{}, false, err
		}
		return instrument.Snapshot{Ticker: ticker, History: points, InitialRound: true}, true, nil
	}
	if err != nil {
		return instrument.Snapshot{}, false, err
	}
	if err := sonic.Unmarshal(body, &snap); err != nil {
		return instrument.Snapshot{}, false, err
	}
	if limit > 0 && len(snap.History) > limit {
		snap.History = snap.History[:limit]
	}
	snap.Ticker = ticker
	return snap, true, nil
}

// readHistory - последние limit точек долгой истории, свежие первыми.
func (s *FileStore) readHistory(ticker string, limit int) ([]models.PricePoint, error) {
	f, err := os.Open(filepath.Join(s.dir, strings.ToLower(ticker), historyFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []models.PricePoint
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var p models.PricePoint
		if err := sonic.Unmarshal(sc.Bytes(), &p); err != nil {
			// хвост мог оборваться на записи
			continue
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }
