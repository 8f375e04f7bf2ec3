package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultShutdownTimeout bounds how long Stop waits for workers to return.
const defaultShutdownTimeout = 30 * time.Second

var ErrNoWorkers = errors.New("no workers registered")

// Manager starts registered workers in their own goroutines and stops them together.
type Manager struct {
	workers         []Worker
	logger          *zap.Logger
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
	mu              sync.Mutex
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		workers:         make([]Worker, 0),
		logger:          logger,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Register adds w. Workers registered after Start are not started.
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered", zap.String("name", w.Name()))
}

func (m *Manager) snapshot() []Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	workers := make([]Worker, len(m.workers))
	copy(workers, m.workers)
	return workers
}

// Start launches every registered worker and returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	workers := m.snapshot()
	if len(workers) == 0 {
		return ErrNoWorkers
	}

	m.logger.Info("Starting workers", zap.Int("count", len(workers)))

	for _, worker := range workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			m.logger.Info("Starting worker", zap.String("name", w.Name()))
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("Worker failed",
					zap.String("name", w.Name()),
					zap.Error(err))
			}
		}(worker)
	}

	return nil
}

// Stop signals every worker and waits for them up to the shutdown timeout.
func (m *Manager) Stop() error {
	workers := m.snapshot()

	m.logger.Info("Stopping workers", zap.Int("count", len(workers)))

	for _, worker := range workers {
		if err := worker.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("name", worker.Name()),
				zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All workers stopped gracefully")
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("Workers shutdown timed out",
			zap.Duration("timeout", m.shutdownTimeout))
		return fmt.Errorf("workers shutdown timed out after %v", m.shutdownTimeout)
	}

	return nil
}
