package workers

import (
	"consult-chat/contract"
	"consult-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// RestartHook is told about every restart of a failed worker.
type RestartHook func(name contract.WorkerName, err error)

// Supervisor runs the workers of one chat panel (terminal input, event
// fan-out). A worker that panics or fails is restarted after a short
// delay; a worker returning nil is done for good. Run returns once every
// worker stopped.
type Supervisor struct {
	Cancel       context.CancelFunc
	wg           *sync.WaitGroup
	log          *slog.Logger
	workers      []contract.Worker
	restartDelay time.Duration
	onRestart    []RestartHook

	mu       sync.Mutex
	restarts map[contract.WorkerName]int
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{
		wg:           &sync.WaitGroup{},
		log:          log,
		restartDelay: waitTimeBeforeRestart,
		restarts:     make(map[contract.WorkerName]int),
	}
}

// WithRestartDelay overrides the pause between two runs of a failed worker.
func (s *Supervisor) WithRestartDelay(d time.Duration) *Supervisor {
	s.restartDelay = d
	return s
}

func (s *Supervisor) WithRestartHook(hooks ...RestartHook) *Supervisor {
	s.onRestart = append(s.onRestart, hooks...)
	return s
}

// Restarts returns how many times the named worker was restarted.
func (s *Supervisor) Restarts(name contract.WorkerName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts[name]
}

// Run blocks until all workers returned. Cancelling ctx, or calling Stop,
// stops every worker.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start keeps one worker alive in its own goroutine until it returns nil or
// ctx is done.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.WorkerName(contract.GetWorkerName(worker))

	go func() {
		defer s.wg.Done()
		for {
			err := runOnce(ctx, worker)
			switch {
			case ctx.Err() != nil:
				s.log.Debug("Worker stopped", "name", name)
				return
			case err == nil:
				s.log.Debug("Worker finished", "name", name)
				return
			}

			count := s.recordRestart(name, err)
			s.log.Warn("Worker failed, restarting", "name", name, "restarts", count, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartDelay):
			}
		}
	}()
}

// Stop cancels every worker; Run returns once they are all gone.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}

func (s *Supervisor) recordRestart(name contract.WorkerName, err error) int {
	s.mu.Lock()
	s.restarts[name]++
	count := s.restarts[name]
	s.mu.Unlock()

	for _, hook := range s.onRestart {
		hook(name, err)
	}
	return count
}

// runOnce turns a panic into ErrWorkerPanic.
func runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}
