package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jask/serialcore/internal/executor"
)

// ErrStepperRunning is returned by Start when the stepper is already running.
var ErrStepperRunning = errors.New("stepper: already running")

// Core is an externally provided component advanced one frame at a time.
// Step is always called from the stepper's dedicated thread.
type Core interface {
	Step(frame uint64) error
}

// Stepper advances a Core at a fixed frame rate on a dedicated thread, so a
// slow or blocking frame never holds up the rest of the program. Frames that
// come due while the previous one is still running are skipped.
type Stepper struct {
	thread   *executor.ThreadExecutor
	core     Core
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *executor.Timer
	err   error

	frames atomic.Uint64
}

// NewStepper builds a stepper running core at frameRate frames per second on
// thread. frameRate must be positive.
func NewStepper(thread *executor.ThreadExecutor, core Core, frameRate int, logger *slog.Logger) (*Stepper, error) {
	if frameRate <= 0 {
		return nil, fmt.Errorf("stepper: frame rate must be positive, got %d", frameRate)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stepper{
		thread:   thread,
		core:     core,
		interval: time.Second / time.Duration(frameRate),
		logger:   logger.With("service", "stepper", "thread", thread.Name()),
	}, nil
}

// Interval returns the time between frames.
func (s *Stepper) Interval() time.Duration {
	return s.interval
}

// Start attaches the frame timer. It clears any error left by a previous run.
func (s *Stepper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return ErrStepperRunning
	}
	tm, err := s.thread.Schedule(s.interval, func(time.Time) { s.step() })
	if err != nil {
		return fmt.Errorf("stepper: attach timer: %w", err)
	}
	s.timer = tm
	s.err = nil
	s.logger.Info("Stepping started.", "interval", s.interval)
	return nil
}

// Stop detaches the frame timer. It is a no-op when not running.
func (s *Stepper) Stop() {
	s.mu.Lock()
	tm := s.timer
	s.timer = nil
	s.mu.Unlock()

	if tm != nil {
		tm.Stop()
		s.logger.Info("Stepping stopped.", "frames", s.frames.Load())
	}
}

// Running reports whether the frame timer is attached.
func (s *Stepper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// StepOnce advances a single frame on the dedicated thread and waits for it.
// Frames from StepOnce and from the timer share one sequence.
func (s *Stepper) StepOnce(ctx context.Context) (uint64, error) {
	return executor.Run(ctx, s.thread, func() (uint64, error) {
		if err := s.advance(); err != nil {
			return 0, err
		}
		return s.frames.Load(), nil
	})
}

// Frames returns how many frames have completed.
func (s *Stepper) Frames() uint64 {
	return s.frames.Load()
}

// Err returns the error that stopped the last run, if any.
func (s *Stepper) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stepper) step() {
	if err := s.advance(); err != nil {
		s.logger.Error("Core step failed, stopping.", "frame", s.frames.Load()+1, "error", err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.Stop()
	}
}

// advance runs exactly one frame; it must run on the dedicated thread.
func (s *Stepper) advance() error {
	s.thread.CheckIsolated()
	frame := s.frames.Load() + 1
	if err := s.core.Step(frame); err != nil {
		return err
	}
	s.frames.Store(frame)
	return nil
}
