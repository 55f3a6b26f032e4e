package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"MinerviniScreener/internal/model"
)

// Store is the journal's persistence. Insert and Update each touch one record
// and are atomic against every other writer of the same store, including
// other processes.
type Store interface {
	// LoadAll returns all records in booking order.
	LoadAll(ctx context.Context) ([]model.TradeRecord, error)
	// Insert appends a new record. An existing id is an error.
	Insert(ctx context.Context, rec model.TradeRecord) error
	// Update reads the current record with id, applies fn and writes the
	// result. Nothing is written when fn fails; its error is returned as is.
	// A missing id yields model.ErrTradeNotFound.
	Update(ctx context.Context, id string, fn func(*model.TradeRecord) error) (model.TradeRecord, error)
}

// FileStore keeps the journal as a JSON array in a single file. Writers
// serialize on an flock'ed sidecar file and always re-read before writing.
type FileStore struct {
	Path string

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

// LoadAll returns an empty journal if the file doesn't exist. Writes replace
// the file by rename, so readers never see a partial file.
func (s *FileStore) LoadAll(ctx context.Context) ([]model.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var recs []model.TradeRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return recs, nil
}

func (s *FileStore) Insert(ctx context.Context, rec model.TradeRecord) error {
	return s.withLock(ctx, func() error {
		recs, err := s.LoadAll(ctx)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if r.ID == rec.ID {
				return fmt.Errorf("trade %s already exists", rec.ID)
			}
		}
		return s.write(append(recs, rec))
	})
}

func (s *FileStore) Update(ctx context.Context, id string, fn func(*model.TradeRecord) error) (model.TradeRecord, error) {
	var out model.TradeRecord
	err := s.withLock(ctx, func() error {
		recs, err := s.LoadAll(ctx)
		if err != nil {
			return err
		}
		for i := range recs {
			if recs[i].ID != id {
				continue
			}
			rec := recs[i]
			if err := fn(&rec); err != nil {
				return err
			}
			recs[i] = rec
			if err := s.write(recs); err != nil {
				return err
			}
			out = rec
			return nil
		}
		return fmt.Errorf("trade %s: %w", id, model.ErrTradeNotFound)
	})
	return out, err
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	defer unlockFile(f)
	return fn()
}

// write must be called with the lock held.
func (s *FileStore) write(recs []model.TradeRecord) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
