package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jask/serialcore/internal/database"
	"github.com/jask/serialcore/internal/database/repository"
	"github.com/jask/serialcore/internal/executor"
)

// HashService hashes files on a dedicated thread and records the digests
// through the database context. Hashing never runs on the caller's goroutine
// and the store is only touched from inside the context.
type HashService struct {
	hasher *executor.ThreadExecutor
	store  *database.Context
	graph  *executor.GraphExecutor
	logger *slog.Logger
}

// HashResult is the outcome of hashing one file.
type HashResult struct {
	Record repository.ContentHash
	Cached bool
}

// HashReport summarizes a batch.
type HashReport struct {
	Hashed  int
	Cached  int
	Records []repository.ContentHash
	Errors  []error
}

type digest struct {
	sum     string
	size    int64
	modTime time.Time
}

func NewHashService(hasher *executor.ThreadExecutor, store *database.Context, logger *slog.Logger) *HashService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HashService{
		hasher: hasher,
		store:  store,
		graph:  executor.NewGraphExecutor(store),
		logger: logger.With("service", "hasher"),
	}
}

// HashFile hashes path unless the stored record already matches its size and
// modification time. Cancelling ctx abandons the wait but not the work: a
// digest already being computed still completes and is stored.
func (s *HashService) HashFile(ctx context.Context, path string) (HashResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return HashResult{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return HashResult{}, err
	}
	if !info.Mode().IsRegular() {
		return HashResult{}, fmt.Errorf("%s: not a regular file", abs)
	}

	detached := context.WithoutCancel(ctx)

	existing, err := executor.Await(ctx, s.graph, func() (repository.ContentHash, error) {
		db, err := s.store.DB()
		if err != nil {
			return repository.ContentHash{}, err
		}
		return repository.NewContentHashRepo(db).GetByPath(detached, abs)
	})
	switch {
	case err == nil && existing.Size == info.Size() && existing.ModifiedAt.Equal(info.ModTime().UTC()):
		s.logger.Debug("Digest unchanged.", "path", abs)
		return HashResult{Record: existing, Cached: true}, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return HashResult{}, fmt.Errorf("lookup %s: %w", abs, err)
	}

	d, err := executor.Run(ctx, s.hasher, func() (digest, error) {
		s.hasher.CheckIsolated()
		return hashFile(abs)
	})
	if err != nil {
		return HashResult{}, err
	}

	rec := repository.ContentHash{
		ID:         repository.ContentHashID(abs),
		Path:       abs,
		SHA256:     d.sum,
		Size:       d.size,
		ModifiedAt: d.modTime,
		HashedAt:   database.Now(),
	}
	_, err = executor.Await(ctx, s.graph, func() (struct{}, error) {
		return struct{}{}, s.store.WithTx(detached, func(tx *sql.Tx) error {
			return repository.NewContentHashRepo(tx).Upsert(detached, rec)
		})
	})
	if err != nil {
		return HashResult{}, fmt.Errorf("store %s: %w", abs, err)
	}
	s.logger.Debug("Digest stored.", "path", abs, "sha256", rec.SHA256, "size", rec.Size)
	return HashResult{Record: rec}, nil
}

// HashFiles hashes paths one after another in the given order. Per-file
// failures are collected in the report; only a done ctx stops the batch.
func (s *HashService) HashFiles(ctx context.Context, paths []string) (HashReport, error) {
	var rep HashReport
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := s.HashFile(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			rep.Errors = append(rep.Errors, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if res.Cached {
			rep.Cached++
		} else {
			rep.Hashed++
		}
		rep.Records = append(rep.Records, res.Record)
	}
	s.logger.Info("Hash batch finished.", "hashed", rep.Hashed, "cached", rep.Cached, "errors", len(rep.Errors))
	return rep, nil
}

// List returns every stored record ordered by path.
func (s *HashService) List(ctx context.Context) ([]repository.ContentHash, error) {
	detached := context.WithoutCancel(ctx)
	return executor.Await(ctx, s.graph, func() ([]repository.ContentHash, error) {
		db, err := s.store.DB()
		if err != nil {
			return nil, err
		}
		return repository.NewContentHashRepo(db).List(detached)
	})
}

// Duplicates groups stored paths sharing a digest. Digests with a single
// path are omitted.
func (s *HashService) Duplicates(ctx context.Context) (map[string][]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]string)
	for _, h := range all {
		groups[h.SHA256] = append(groups[h.SHA256], h.Path)
	}
	for sum, paths := range groups {
		if len(paths) < 2 {
			delete(groups, sum)
			continue
		}
		sort.Strings(paths)
	}
	return groups, nil
}

func hashFile(path string) (digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return digest{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return digest{}, err
	}
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return digest{}, fmt.Errorf("read %s: %w", path, err)
	}
	return digest{
		sum:     hex.EncodeToString(h.Sum(nil)),
		size:    n,
		modTime: info.ModTime().UTC(),
	}, nil
}
