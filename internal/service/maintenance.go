package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jask/serialcore/internal/database"
	"github.com/jask/serialcore/internal/database/repository"
	"github.com/jask/serialcore/internal/executor"
)

// MaintenanceService houses destructive/ops actions on the hash store.
// Everything runs inside the database context.
type MaintenanceService struct {
	store *database.Context
	graph *executor.GraphExecutor
}

func NewMaintenanceService(store *database.Context) *MaintenanceService {
	return &MaintenanceService{store: store, graph: executor.NewGraphExecutor(store)}
}

// Reset wipes all recorded digests. It keeps the schema intact.
func (s *MaintenanceService) Reset(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("maintenance: store not configured")
	}
	detached := context.WithoutCancel(ctx)
	return executor.Await(ctx, s.graph, func() (int64, error) {
		var n int64
		err := s.store.WithTx(detached, func(tx *sql.Tx) error {
			var err error
			n, err = repository.NewContentHashRepo(tx).DeleteAll(detached)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("reset content_hashes: %w", err)
		}
		return n, nil
	})
}

// Prune removes records whose file no longer exists and returns how many
// were removed.
func (s *MaintenanceService) Prune(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("maintenance: store not configured")
	}
	detached := context.WithoutCancel(ctx)
	return executor.Await(ctx, s.graph, func() (int, error) {
		removed := 0
		err := s.store.WithTx(detached, func(tx *sql.Tx) error {
			repo := repository.NewContentHashRepo(tx)
			all, err := repo.List(detached)
			if err != nil {
				return err
			}
			for _, h := range all {
				_, err := os.Stat(h.Path)
				if err == nil || !errors.Is(err, fs.ErrNotExist) {
					continue
				}
				if err := repo.Delete(detached, h.ID); err != nil {
					return fmt.Errorf("delete %s: %w", h.Path, err)
				}
				removed++
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		return removed, nil
	})
}
