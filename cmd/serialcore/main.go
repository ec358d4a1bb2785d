package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/jask/serialcore/internal/config"
	"github.com/jask/serialcore/internal/database"
	"github.com/jask/serialcore/internal/executor"
	"github.com/jask/serialcore/internal/logging"
	"github.com/jask/serialcore/internal/service"
)

const usage = `usage: serialcore <command> [args]

commands:
  hash <path>...       hash files and record their digests
  list                 list recorded digests
  dupes                list paths sharing a digest
  prune                forget files that no longer exist
  reset                forget everything
  step [frames]        drive the frame counter on the core thread
  init-config [path]   write the default config file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "init-config" {
		path := config.Path()
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			log.Fatalf("init-config: %v", err)
		}
		fmt.Println(path)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := database.NewContext(db, "store")
	defer store.Close()

	if err := run(ctx, cfg, store, cmd, args); err != nil {
		logger.Error("Command failed.", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, store *database.Context, cmd string, args []string) error {
	logger := logging.FromContext(ctx)

	switch cmd {
	case "hash":
		if len(args) == 0 {
			return fmt.Errorf("hash: no paths given")
		}
		// Validate has already accepted the name.
		prio, _ := executor.ParsePriority(cfg.Hasher.Priority)
		hasher, err := executor.NewThreadExecutor(ctx, cfg.Hasher.ThreadName,
			executor.WithPriority(prio), executor.WithLogger(logger))
		if err != nil {
			return err
		}
		defer hasher.Close()

		svc := service.NewHashService(hasher, store, logger)
		rep, err := svc.HashFiles(ctx, args)
		if err != nil {
			return err
		}
		for _, r := range rep.Records {
			fmt.Printf("%s  %s\n", r.SHA256, r.Path)
		}
		for _, e := range rep.Errors {
			fmt.Fprintf(os.Stderr, "error: %v\n", e)
		}
		fmt.Fprintf(os.Stderr, "hashed %d, unchanged %d, failed %d\n", rep.Hashed, rep.Cached, len(rep.Errors))
		if len(rep.Errors) > 0 {
			return fmt.Errorf("%d file(s) failed", len(rep.Errors))
		}
		return nil

	case "list":
		all, err := service.NewHashService(nil, store, logger).List(ctx)
		if err != nil {
			return err
		}
		for _, r := range all {
			fmt.Printf("%s  %10d  %s\n", r.SHA256, r.Size, r.Path)
		}
		return nil

	case "dupes":
		groups, err := service.NewHashService(nil, store, logger).Duplicates(ctx)
		if err != nil {
			return err
		}
		sums := make([]string, 0, len(groups))
		for sum := range groups {
			sums = append(sums, sum)
		}
		sort.Strings(sums)
		for _, sum := range sums {
			fmt.Println(sum)
			for _, p := range groups[sum] {
				fmt.Printf("  %s\n", p)
			}
		}
		return nil

	case "prune":
		n, err := service.NewMaintenanceService(store).Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d\n", n)
		return nil

	case "reset":
		n, err := service.NewMaintenanceService(store).Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d\n", n)
		return nil

	case "step":
		frames := uint64(cfg.Stepper.FrameRate)
		if len(args) > 0 {
			n, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || n == 0 {
				return fmt.Errorf("step: invalid frame count %q", args[0])
			}
			frames = n
		}
		return step(ctx, cfg, frames)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

var errFrameBudget = errors.New("frame budget reached")

// countingCore stops the stepper by failing once the budget is spent.
type countingCore struct {
	budget uint64
}

func (c countingCore) Step(frame uint64) error {
	if frame > c.budget {
		return errFrameBudget
	}
	return nil
}

func step(ctx context.Context, cfg config.Config, frames uint64) error {
	logger := logging.FromContext(ctx)
	prio, _ := executor.ParsePriority(cfg.Stepper.Priority)
	core, err := executor.NewThreadExecutor(ctx, cfg.Stepper.ThreadName,
		executor.WithPriority(prio), executor.WithLogger(logger))
	if err != nil {
		return err
	}
	defer core.Close()

	s, err := service.NewStepper(core, countingCore{budget: frames}, cfg.Stepper.FrameRate, logger)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()
	for s.Running() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := s.Err(); err != nil && !errors.Is(err, errFrameBudget) {
		return err
	}
	st := core.Stats()
	fmt.Printf("frames %d in %s, dropped ticks %d\n", s.Frames(), time.Since(start).Round(time.Millisecond), st.DroppedTicks)
	return nil
}
